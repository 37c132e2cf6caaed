package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// LedgerEntryDirection represents debit or credit postings.
type LedgerEntryDirection string

const (
	LedgerEntryDirectionDebit  LedgerEntryDirection = "debit"
	LedgerEntryDirectionCredit LedgerEntryDirection = "credit"
)

type LedgerSourceType string

const (
	SourceTypeSale     LedgerSourceType = "sale"     // buyer payment split between seller and platform
	SourceTypeTransfer LedgerSourceType = "transfer" // payout leg moved to the seller's connected account
	SourceTypeDispute  LedgerSourceType = "dispute"  // funds held by a chargeback
)

type LedgerAccountCode string

const (
	// Assets
	AccountCodeCash LedgerAccountCode = "cash"

	// Liabilities
	AccountCodeSellerPayable LedgerAccountCode = "seller_payable"
	AccountCodeDisputeHold   LedgerAccountCode = "dispute_hold"

	// Revenue
	AccountCodeCommissionRevenue LedgerAccountCode = "platform_commission"
)

var accountNames = map[LedgerAccountCode]string{
	AccountCodeCash:              "Cash (provider balance)",
	AccountCodeSellerPayable:     "Payable to sellers",
	AccountCodeDisputeHold:       "Disputed funds",
	AccountCodeCommissionRevenue: "Platform commission",
}

// AccountName returns the display name for a chart-of-accounts code.
func AccountName(code LedgerAccountCode) string {
	if name, ok := accountNames[code]; ok {
		return name
	}
	return string(code)
}

// LedgerAccount defines a chart-of-accounts entry.
type LedgerAccount struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	Code      LedgerAccountCode `gorm:"type:text;not null;uniqueIndex:ux_ledger_accounts_code"`
	Name      string            `gorm:"type:text;not null"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (LedgerAccount) TableName() string { return "ledger_accounts" }

// LedgerEntry captures the immutable header for a financial event.
type LedgerEntry struct {
	ID         snowflake.ID     `gorm:"primaryKey"`
	SourceType LedgerSourceType `gorm:"type:text;not null;uniqueIndex:ux_ledger_entries_source,priority:1"`
	SourceID   string           `gorm:"type:text;not null;uniqueIndex:ux_ledger_entries_source,priority:2"`
	Currency   string           `gorm:"type:text;not null"`
	OccurredAt time.Time        `gorm:"not null"`
	CreatedAt  time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// LedgerEntryLine is a double-entry posting line.
type LedgerEntryLine struct {
	ID            snowflake.ID         `gorm:"primaryKey"`
	LedgerEntryID snowflake.ID         `gorm:"not null;index"`
	AccountID     snowflake.ID         `gorm:"not null;index"`
	AccountCode   LedgerAccountCode    `gorm:"-"`
	Direction     LedgerEntryDirection `gorm:"type:text;not null"`
	Currency      string               `gorm:"type:text;not null"`
	Amount        int64                `gorm:"not null"`
	CreatedAt     time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (LedgerEntryLine) TableName() string { return "ledger_entry_lines" }
