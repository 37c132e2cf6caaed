package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/somagouache/gouache/internal/catalog/domain"
	"gorm.io/datatypes"
)

const ProviderStripe = "stripe"

const SaleStatusCompleted = "completed"

// Sale is written once, on the first successful settlement of a payment intent.
type Sale struct {
	ID                   snowflake.ID           `json:"id" gorm:"primaryKey"`
	PaymentIntentID      string                 `json:"payment_intent_id" gorm:"type:text;not null;uniqueIndex:ux_sales_payment_intent_id"`
	ItemID               string                 `json:"item_id" gorm:"type:text;not null"`
	ItemType             catalogdomain.ItemType `json:"item_type" gorm:"type:text;not null"`
	ItemTitle            string                 `json:"item_title" gorm:"type:text"`
	BuyerID              string                 `json:"buyer_id" gorm:"type:text;not null;index"`
	ArtistID             string                 `json:"artist_id" gorm:"type:text;not null;index"`
	Amount               int64                  `json:"amount" gorm:"not null"`
	Currency             string                 `json:"currency" gorm:"type:text;not null"`
	ApplicationFeeAmount int64                  `json:"application_fee_amount" gorm:"not null"`
	ArtistPayout         int64                  `json:"artist_payout" gorm:"not null"`
	Status               string                 `json:"status" gorm:"type:text;not null"`
	CreatedAt            time.Time              `json:"created_at" gorm:"not null"`
	CompletedAt          time.Time              `json:"completed_at" gorm:"not null"`
}

func (Sale) TableName() string { return "sales" }

type PaymentStatus string

const (
	PaymentStatusUnseen    PaymentStatus = "unseen"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
)

// CanTransition enforces unseen -> failed -> succeeded, with succeeded terminal.
func CanTransition(from, to PaymentStatus) bool {
	switch from {
	case PaymentStatusUnseen, "":
		return to == PaymentStatusFailed || to == PaymentStatusSucceeded
	case PaymentStatusFailed:
		return to == PaymentStatusFailed || to == PaymentStatusSucceeded
	default:
		return false
	}
}

// AllowedFrom lists the statuses a payment intent may move to "to" from.
func AllowedFrom(to PaymentStatus) []PaymentStatus {
	out := []PaymentStatus{}
	for _, from := range []PaymentStatus{PaymentStatusUnseen, PaymentStatusFailed, PaymentStatusSucceeded} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// PaymentState is the explicit settlement status per payment intent.
type PaymentState struct {
	PaymentIntentID string        `json:"payment_intent_id" gorm:"primaryKey;type:text"`
	Status          PaymentStatus `json:"status" gorm:"type:text;not null"`
	LastEventID     string        `json:"last_event_id" gorm:"type:text"`
	CreatedAt       time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time     `json:"updated_at" gorm:"not null"`
}

func (PaymentState) TableName() string { return "payment_states" }

type FailedPayment struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	PaymentIntentID string       `json:"payment_intent_id" gorm:"type:text;not null;index"`
	ProviderEventID string       `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_failed_payments_event"`
	BuyerID         string       `json:"buyer_id" gorm:"type:text"`
	ItemID          string       `json:"item_id" gorm:"type:text"`
	ItemType        string       `json:"item_type" gorm:"type:text"`
	Amount          int64        `json:"amount"`
	Currency        string       `json:"currency" gorm:"type:text"`
	ErrorCode       string       `json:"error_code" gorm:"type:text"`
	ErrorMessage    string       `json:"error_message" gorm:"type:text"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
}

func (FailedPayment) TableName() string { return "failed_payments" }

const TransferStatusPending = "pending"

type Transfer struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	ProviderTransferID string       `json:"provider_transfer_id" gorm:"type:text;not null;index"`
	ProviderEventID    string       `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_transfers_event"`
	Destination        string       `json:"destination" gorm:"type:text"`
	SourceTransaction  string       `json:"source_transaction" gorm:"type:text"`
	Amount             int64        `json:"amount"`
	Currency           string       `json:"currency" gorm:"type:text"`
	Status             string       `json:"status" gorm:"type:text;not null"`
	CreatedAt          time.Time    `json:"created_at" gorm:"not null"`
}

func (Transfer) TableName() string { return "transfers" }

type Dispute struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	ProviderDisputeID string       `json:"provider_dispute_id" gorm:"type:text;not null;index"`
	ProviderEventID   string       `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_disputes_event"`
	ChargeID          string       `json:"charge_id" gorm:"type:text"`
	PaymentIntentID   string       `json:"payment_intent_id" gorm:"type:text;index"`
	Amount            int64        `json:"amount"`
	Currency          string       `json:"currency" gorm:"type:text"`
	Reason            string       `json:"reason" gorm:"type:text"`
	Status            string       `json:"status" gorm:"type:text"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null"`
}

func (Dispute) TableName() string { return "disputes" }

// EventRecord is an admitted provider webhook kept for dedup and replay.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event_id,priority:1"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event_id,priority:2"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
	Attempts        int            `json:"attempts" gorm:"not null;default:0"`
	LastError       *string        `json:"last_error" gorm:"type:text"`
}

func (EventRecord) TableName() string { return "payment_events" }

// SettlementError keeps effect failures that were acknowledged to the provider.
type SettlementError struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	ProviderEventID string       `json:"provider_event_id" gorm:"type:text;not null;index"`
	EventType       string       `json:"event_type" gorm:"type:text;not null"`
	PaymentIntentID string       `json:"payment_intent_id" gorm:"type:text;index"`
	Reason          string       `json:"reason" gorm:"type:text;not null"`
	Message         string       `json:"message" gorm:"type:text"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
}

func (SettlementError) TableName() string { return "settlement_errors" }
