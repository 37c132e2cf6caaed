package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/somagouache/gouache/internal/ledger/domain"
	"github.com/somagouache/gouache/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, ledgerdomain.Service) {
	t.Helper()
	db := testsupport.OpenDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return db, NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})
}

func TestCreateEntryPostsSaleOnce(t *testing.T) {
	db, svc := newTestService(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := svc.SaleEntry("pi_1", "USD", 2999, 150, at)

	inserted, err := svc.CreateEntry(context.Background(), entry)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = svc.CreateEntry(context.Background(), entry)
	require.NoError(t, err)
	assert.False(t, inserted)

	testsupport.AssertCount(t, db, "ledger_entries", 1, "source_type = ? AND source_id = ?", "sale", "pi_1")
	testsupport.AssertCount(t, db, "ledger_entry_lines", 3, "")
	testsupport.AssertCount(t, db, "ledger_entry_lines", 3, "currency = ?", "usd")
	testsupport.AssertCount(t, db, "ledger_accounts", 3, "")

	var credited int64
	require.NoError(t, db.Raw(
		`SELECT COALESCE(SUM(l.amount), 0) FROM ledger_entry_lines l
		 JOIN ledger_accounts a ON a.id = l.account_id
		 WHERE a.code = ? AND l.direction = ?`,
		string(ledgerdomain.AccountCodeSellerPayable), string(ledgerdomain.LedgerEntryDirectionCredit),
	).Scan(&credited).Error)
	assert.Equal(t, int64(2849), credited)
}

func TestCreateEntryRejectsInvalidEntries(t *testing.T) {
	_, svc := newTestService(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	unbalanced := svc.SaleEntry("pi_2", "usd", 1000, 100, at)
	unbalanced.Lines[0].Amount = 999
	_, err := svc.CreateEntry(context.Background(), unbalanced)
	assert.ErrorIs(t, err, ledgerdomain.ErrUnbalancedEntry)

	noSource := svc.SaleEntry("", "usd", 1000, 100, at)
	_, err = svc.CreateEntry(context.Background(), noSource)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidSourceID)

	noTime := svc.SaleEntry("pi_3", "usd", 1000, 100, time.Time{})
	_, err = svc.CreateEntry(context.Background(), noTime)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidOccurredAt)

	oneLine := svc.SaleEntry("pi_4", "usd", 1000, 100, at)
	oneLine.Lines = oneLine.Lines[:1]
	_, err = svc.CreateEntry(context.Background(), oneLine)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidEntryLines)

	negative := svc.SaleEntry("pi_5", "usd", 1000, 100, at)
	negative.Lines[2].Amount = -100
	negative.Lines[1].Amount = 1100
	_, err = svc.CreateEntry(context.Background(), negative)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidLineAmount)
}

func TestPostEntryTxRollsBackWithCaller(t *testing.T) {
	db, svc := newTestService(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := db.Transaction(func(tx *gorm.DB) error {
		inserted, err := svc.PostEntryTx(context.Background(), tx, svc.SaleEntry("pi_6", "usd", 500, 25, at))
		require.NoError(t, err)
		require.True(t, inserted)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	testsupport.AssertCount(t, db, "ledger_entries", 0, "")
}
