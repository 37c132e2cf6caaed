package domain

import (
	"strings"
	"time"

	catalogdomain "github.com/somagouache/gouache/internal/catalog/domain"
)

const (
	EventTypePaymentSucceeded = "payment_intent.succeeded"
	EventTypePaymentFailed    = "payment_intent.payment_failed"
	EventTypeTransferCreated  = "transfer.created"
	EventTypePayoutPaid       = "payout.paid"
	EventTypePayoutFailed     = "payout.failed"
	EventTypeDisputeCreated   = "charge.dispute.created"
)

// Event is a decoded provider notification. Each variant validates its own required fields.
type Event interface {
	Envelope() Envelope
	Validate() error
}

// Envelope carries the fields common to every provider event.
type Envelope struct {
	ID         string
	Type       string
	OccurredAt time.Time
	Livemode   bool
	Raw        []byte
}

// SaleMetadata is what the intent issuer stamps on every payment intent.
type SaleMetadata struct {
	BuyerID   string
	ArtistID  string
	ItemID    string
	ItemType  string
	ItemTitle string
	// StockSnapshot is the pre-purchase stock value; informational only.
	StockSnapshot string
}

// Missing lists the required keys that are absent.
func (m SaleMetadata) Missing() []string {
	missing := []string{}
	if strings.TrimSpace(m.ItemID) == "" {
		missing = append(missing, "itemId")
	}
	if strings.TrimSpace(m.ItemType) == "" {
		missing = append(missing, "itemType")
	}
	if strings.TrimSpace(m.BuyerID) == "" {
		missing = append(missing, "buyerId")
	}
	if strings.TrimSpace(m.ArtistID) == "" {
		missing = append(missing, "artistId")
	}
	return missing
}

type PaymentSucceeded struct {
	Env                  Envelope
	PaymentIntentID      string
	Amount               int64
	Currency             string
	ApplicationFeeAmount *int64
	Metadata             SaleMetadata
}

func (e PaymentSucceeded) Envelope() Envelope { return e.Env }

func (e PaymentSucceeded) Validate() error {
	if strings.TrimSpace(e.PaymentIntentID) == "" {
		return NewMalformedEventError(e.Env, "payment intent id")
	}
	if missing := e.Metadata.Missing(); len(missing) > 0 {
		return NewMalformedEventError(e.Env, missing...)
	}
	if _, ok := catalogdomain.ParseItemType(e.Metadata.ItemType); !ok {
		return NewMalformedEventError(e.Env, "itemType")
	}
	if e.Amount <= 0 {
		return NewMalformedEventError(e.Env, "amount")
	}
	if strings.TrimSpace(e.Currency) == "" {
		return NewMalformedEventError(e.Env, "currency")
	}
	return nil
}

type PaymentFailed struct {
	Env             Envelope
	PaymentIntentID string
	Amount          int64
	Currency        string
	ErrorCode       string
	ErrorMessage    string
	Metadata        SaleMetadata
}

func (e PaymentFailed) Envelope() Envelope { return e.Env }

func (e PaymentFailed) Validate() error {
	if strings.TrimSpace(e.PaymentIntentID) == "" {
		return NewMalformedEventError(e.Env, "payment intent id")
	}
	return nil
}

type TransferCreated struct {
	Env               Envelope
	TransferID        string
	Destination       string
	SourceTransaction string
	Amount            int64
	Currency          string
}

func (e TransferCreated) Envelope() Envelope { return e.Env }

func (e TransferCreated) Validate() error {
	if strings.TrimSpace(e.TransferID) == "" {
		return NewMalformedEventError(e.Env, "transfer id")
	}
	return nil
}

type Payout struct {
	Env         Envelope
	PayoutID    string
	Amount      int64
	Currency    string
	Status      string
	FailureCode string
}

func (e Payout) Envelope() Envelope { return e.Env }

func (e Payout) Validate() error {
	if strings.TrimSpace(e.PayoutID) == "" {
		return NewMalformedEventError(e.Env, "payout id")
	}
	return nil
}

type DisputeCreated struct {
	Env             Envelope
	DisputeID       string
	ChargeID        string
	PaymentIntentID string
	Amount          int64
	Currency        string
	Reason          string
	Status          string
}

func (e DisputeCreated) Envelope() Envelope { return e.Env }

func (e DisputeCreated) Validate() error {
	if strings.TrimSpace(e.DisputeID) == "" {
		return NewMalformedEventError(e.Env, "dispute id")
	}
	return nil
}

// Unhandled is any event type the processor accepts and ignores.
type Unhandled struct {
	Env Envelope
}

func (e Unhandled) Envelope() Envelope { return e.Env }

func (e Unhandled) Validate() error { return nil }
