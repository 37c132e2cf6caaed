package testsupport

import (
	"testing"
	"time"

	"gorm.io/gorm"
)

var fixtureTime = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

// SeedSeller inserts a seller; ready sellers have a completed connected account.
func SeedSeller(t *testing.T, db *gorm.DB, id string, ready bool) {
	t.Helper()

	accountID, status := "", "pending"
	if ready {
		accountID, status = "acct_"+id, "complete"
	}
	mustExec(t, db,
		`INSERT INTO sellers (id, display_name, email, stripe_account_id, stripe_onboarding_status,
			charges_enabled, payouts_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, "Seller "+id, id+"@example.com", accountID, status, ready, ready, fixtureTime, fixtureTime,
	)
}

// SeedArtwork inserts an original or print listed by artistID.
func SeedArtwork(t *testing.T, db *gorm.DB, id, artistID, kind string, price, stock int64) {
	t.Helper()

	mustExec(t, db,
		`INSERT INTO artworks (id, artist_id, title, kind, price, currency, stock, sold, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, artistID, "Artwork "+id, kind, price, "usd", stock, false, fixtureTime, fixtureTime,
	)
}

func SeedCourse(t *testing.T, db *gorm.DB, id, instructorID string, price int64, active bool) {
	t.Helper()

	mustExec(t, db,
		`INSERT INTO courses (id, instructor_id, title, price, currency, is_active, enrollment_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, instructorID, "Course "+id, price, "usd", active, 0, fixtureTime, fixtureTime,
	)
}

func SeedBook(t *testing.T, db *gorm.DB, id, authorID string, price, stock int64) {
	t.Helper()

	mustExec(t, db,
		`INSERT INTO books (id, author_id, title, price, currency, available, stock, sold, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, authorID, "Book "+id, price, "usd", true, stock, false, fixtureTime, fixtureTime,
	)
}

func mustExec(t *testing.T, db *gorm.DB, sql string, args ...any) {
	t.Helper()
	if err := db.Exec(sql, args...).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
}
