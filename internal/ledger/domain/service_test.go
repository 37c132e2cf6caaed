package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBalanced(t *testing.T) {
	balanced := []LedgerEntryLine{
		{Direction: LedgerEntryDirectionDebit, Currency: "usd", Amount: 2999},
		{Direction: LedgerEntryDirectionCredit, Currency: "usd", Amount: 2849},
		{Direction: LedgerEntryDirectionCredit, Currency: "usd", Amount: 150},
	}
	assert.NoError(t, ValidateBalanced(balanced))

	unbalanced := []LedgerEntryLine{
		{Direction: LedgerEntryDirectionDebit, Currency: "usd", Amount: 2999},
		{Direction: LedgerEntryDirectionCredit, Currency: "usd", Amount: 2849},
	}
	assert.ErrorIs(t, ValidateBalanced(unbalanced), ErrUnbalancedEntry)

	mixed := []LedgerEntryLine{
		{Direction: LedgerEntryDirectionDebit, Currency: "usd", Amount: 100},
		{Direction: LedgerEntryDirectionCredit, Currency: "eur", Amount: 100},
	}
	assert.ErrorIs(t, ValidateBalanced(mixed), ErrUnbalancedEntry)
}

func TestAccountName(t *testing.T) {
	assert.Equal(t, "Payable to sellers", AccountName(AccountCodeSellerPayable))
	assert.Equal(t, "mystery", AccountName(LedgerAccountCode("mystery")))
}
