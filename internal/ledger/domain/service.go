package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrInvalidSourceType    = errors.New("invalid_source_type")
	ErrInvalidSourceID      = errors.New("invalid_source_id")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidOccurredAt    = errors.New("invalid_occurred_at")
	ErrInvalidEntryLines    = errors.New("invalid_entry_lines")
	ErrInvalidAccount       = errors.New("invalid_account")
	ErrInvalidLineDirection = errors.New("invalid_line_direction")
	ErrInvalidLineAmount    = errors.New("invalid_line_amount")
	ErrUnbalancedEntry      = errors.New("unbalanced_entry")
)

// Entry is a posting request; lines reference accounts by code.
type Entry struct {
	SourceType LedgerSourceType
	SourceID   string
	Currency   string
	OccurredAt time.Time
	Lines      []LedgerEntryLine
}

type Service interface {
	// CreateEntry posts an entry in its own transaction. Reposting the same source is a no-op.
	CreateEntry(ctx context.Context, entry Entry) (bool, error)
	// PostEntryTx posts an entry inside the caller's transaction.
	PostEntryTx(ctx context.Context, tx *gorm.DB, entry Entry) (bool, error)
	// SaleEntry builds the balanced posting for a settled sale.
	SaleEntry(paymentIntentID, currency string, amount, fee int64, occurredAt time.Time) Entry
}

// ValidateBalanced checks that debits equal credits per currency.
func ValidateBalanced(lines []LedgerEntryLine) error {
	totals := map[string]int64{}
	for _, line := range lines {
		switch line.Direction {
		case LedgerEntryDirectionDebit:
			totals[line.Currency] += line.Amount
		case LedgerEntryDirectionCredit:
			totals[line.Currency] -= line.Amount
		default:
			return ErrInvalidLineDirection
		}
	}
	for _, total := range totals {
		if total != 0 {
			return ErrUnbalancedEntry
		}
	}
	return nil
}
