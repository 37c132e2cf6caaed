// Package testsupport opens in-memory databases carrying the production schema for package tests.
package testsupport

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

var schema = []string{
	`CREATE TABLE sellers (
		id TEXT PRIMARY KEY,
		display_name TEXT,
		email TEXT,
		stripe_account_id TEXT,
		stripe_onboarding_status TEXT,
		charges_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		payouts_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE artworks (
		id TEXT PRIMARY KEY,
		artist_id TEXT NOT NULL,
		title TEXT,
		kind TEXT NOT NULL,
		price BIGINT NOT NULL DEFAULT 0,
		currency TEXT,
		stock BIGINT NOT NULL DEFAULT 0,
		sold BOOLEAN NOT NULL DEFAULT FALSE,
		sold_at TIMESTAMP,
		buyer_id TEXT,
		payment_intent_id TEXT,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE courses (
		id TEXT PRIMARY KEY,
		instructor_id TEXT NOT NULL,
		title TEXT,
		price BIGINT NOT NULL DEFAULT 0,
		currency TEXT,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		enrollment_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE course_enrollments (
		id BIGINT PRIMARY KEY,
		course_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		payment_intent_id TEXT NOT NULL,
		enrolled_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_course_enrollments_purchase ON course_enrollments(course_id, user_id, payment_intent_id)`,
	`CREATE TABLE books (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL,
		title TEXT,
		price BIGINT NOT NULL DEFAULT 0,
		currency TEXT,
		available BOOLEAN NOT NULL DEFAULT FALSE,
		stock BIGINT NOT NULL DEFAULT 0,
		sold BOOLEAN NOT NULL DEFAULT FALSE,
		sold_at TIMESTAMP,
		buyer_id TEXT,
		payment_intent_id TEXT,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE sales (
		id BIGINT PRIMARY KEY,
		payment_intent_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		item_type TEXT NOT NULL,
		item_title TEXT,
		buyer_id TEXT NOT NULL,
		artist_id TEXT NOT NULL,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		application_fee_amount BIGINT NOT NULL,
		artist_payout BIGINT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_sales_payment_intent_id ON sales(payment_intent_id)`,
	`CREATE TABLE payment_states (
		payment_intent_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		last_event_id TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE failed_payments (
		id BIGINT PRIMARY KEY,
		payment_intent_id TEXT NOT NULL,
		provider_event_id TEXT NOT NULL,
		buyer_id TEXT,
		item_id TEXT,
		item_type TEXT,
		amount BIGINT,
		currency TEXT,
		error_code TEXT,
		error_message TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_failed_payments_event ON failed_payments(provider_event_id)`,
	`CREATE TABLE transfers (
		id BIGINT PRIMARY KEY,
		provider_transfer_id TEXT NOT NULL,
		provider_event_id TEXT NOT NULL,
		destination TEXT,
		source_transaction TEXT,
		amount BIGINT,
		currency TEXT,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_transfers_event ON transfers(provider_event_id)`,
	`CREATE TABLE disputes (
		id BIGINT PRIMARY KEY,
		provider_dispute_id TEXT NOT NULL,
		provider_event_id TEXT NOT NULL,
		charge_id TEXT,
		payment_intent_id TEXT,
		amount BIGINT,
		currency TEXT,
		reason TEXT,
		status TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_disputes_event ON disputes(provider_event_id)`,
	`CREATE TABLE payment_events (
		id BIGINT PRIMARY KEY,
		provider TEXT NOT NULL,
		provider_event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		received_at TIMESTAMP NOT NULL,
		processed_at TIMESTAMP,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE UNIQUE INDEX ux_payment_events_provider_event_id ON payment_events(provider, provider_event_id)`,
	`CREATE TABLE settlement_errors (
		id BIGINT PRIMARY KEY,
		provider_event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payment_intent_id TEXT,
		reason TEXT NOT NULL,
		message TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE ledger_accounts (
		id BIGINT PRIMARY KEY,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_ledger_accounts_code ON ledger_accounts(code)`,
	`CREATE TABLE ledger_entries (
		id BIGINT PRIMARY KEY,
		source_type TEXT NOT NULL,
		source_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		occurred_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_ledger_entries_source ON ledger_entries(source_type, source_id)`,
	`CREATE TABLE ledger_entry_lines (
		id BIGINT PRIMARY KEY,
		ledger_entry_id BIGINT NOT NULL,
		account_id BIGINT NOT NULL,
		direction TEXT NOT NULL,
		currency TEXT NOT NULL,
		amount BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

// OpenDB returns a fresh shared-cache in-memory sqlite database with every table created.
// A single connection serialises writers the way row locks would in postgres.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

// AssertCount fails the test when the table does not hold exactly want rows matching the filter.
func AssertCount(t *testing.T, db *gorm.DB, table string, want int64, where string, args ...any) {
	t.Helper()

	query := db.Table(table)
	if where != "" {
		query = query.Where(where, args...)
	}
	var got int64
	if err := query.Count(&got).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	if got != want {
		t.Fatalf("expected %d rows in %s, got %d", want, table, got)
	}
}
