package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*EventRecord, error)
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
	RecordAttempt(ctx context.Context, db *gorm.DB, id snowflake.ID, lastError string) error
	ListUnprocessed(ctx context.Context, db *gorm.DB, receivedBefore time.Time, maxAttempts int, limit int) ([]EventRecord, error)

	InsertSale(ctx context.Context, db *gorm.DB, sale *Sale) (bool, error)
	FindSale(ctx context.Context, db *gorm.DB, paymentIntentID string) (*Sale, error)

	FindState(ctx context.Context, db *gorm.DB, paymentIntentID string) (*PaymentState, error)
	// TransitionState upserts the status only when the current status allows it.
	TransitionState(ctx context.Context, db *gorm.DB, paymentIntentID string, to PaymentStatus, eventID string, at time.Time) (bool, error)

	InsertFailedPayment(ctx context.Context, db *gorm.DB, item *FailedPayment) (bool, error)
	InsertTransfer(ctx context.Context, db *gorm.DB, item *Transfer) (bool, error)
	InsertDispute(ctx context.Context, db *gorm.DB, item *Dispute) (bool, error)
	InsertSettlementError(ctx context.Context, db *gorm.DB, item *SettlementError) error
}

type CreateIntentRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	ArtistID    string `json:"artistId"`
	ItemID      string `json:"itemId"`
	ItemType    string `json:"itemType"`
	BuyerID     string `json:"buyerId"`
	Description string `json:"description,omitempty"`
}

type CreateIntentResponse struct {
	ClientSecret         string `json:"clientSecret"`
	PaymentIntentID      string `json:"paymentIntentId"`
	Amount               int64  `json:"amount"`
	Currency             string `json:"currency"`
	ApplicationFeeAmount int64  `json:"applicationFeeAmount"`
	ArtistPayout         int64  `json:"artistPayout"`
}

type IntentService interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*CreateIntentResponse, error)
}

// Outcome reports what handling an admitted event did.
type Outcome string

const (
	OutcomeSettled   Outcome = "settled"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRecorded  Outcome = "recorded"
	OutcomeLogged    Outcome = "logged"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeMalformed Outcome = "malformed"
	OutcomeErrored   Outcome = "errored"
)

type SettlementService interface {
	// HandleEvent authenticates and applies one webhook delivery. A non-nil error
	// means the delivery was rejected before admission.
	HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (Outcome, error)
	// Replay re-applies a stored, previously admitted event.
	Replay(ctx context.Context, record EventRecord) (Outcome, error)
}

const VerificationStatusProcessing = "processing"

type VerificationResult struct {
	Status    string     `json:"status"`
	Amount    *int64     `json:"amount,omitempty"`
	Currency  string     `json:"currency,omitempty"`
	ItemID    string     `json:"itemId,omitempty"`
	ItemType  string     `json:"itemType,omitempty"`
	ItemTitle string     `json:"itemTitle,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	Message   string     `json:"message,omitempty"`
}

type VerificationService interface {
	Verify(ctx context.Context, paymentIntentID string) (*VerificationResult, error)
}

// SaleNotifier tells the seller about a completed sale. Failures never affect settlement.
type SaleNotifier interface {
	NotifySale(ctx context.Context, sale Sale) error
}

type ReceiptService interface {
	Render(ctx context.Context, paymentIntentID string) ([]byte, error)
}
