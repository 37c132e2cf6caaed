package migration

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	catalogdomain "github.com/somagouache/gouache/internal/catalog/domain"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	paymentrepository "github.com/somagouache/gouache/internal/payment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(entry.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Positive(t, ups)
	assert.Equal(t, ups, downs)
}

func TestAutoMigrateSupportsIdempotentInserts(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:automigrate?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(conn))

	repo := paymentrepository.Provide()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sale := &paymentdomain.Sale{
		ID:                   1,
		PaymentIntentID:      "pi_1",
		ItemID:               "print_1",
		ItemType:             catalogdomain.ItemTypePrint,
		BuyerID:              "buyer_1",
		ArtistID:             "artist_1",
		Amount:               2999,
		Currency:             "usd",
		ApplicationFeeAmount: 150,
		ArtistPayout:         2849,
		Status:               paymentdomain.SaleStatusCompleted,
		CreatedAt:            at,
		CompletedAt:          at,
	}

	inserted, err := repo.InsertSale(context.Background(), conn, sale)
	require.NoError(t, err)
	assert.True(t, inserted)

	sale.ID = 2
	inserted, err = repo.InsertSale(context.Background(), conn, sale)
	require.NoError(t, err)
	assert.False(t, inserted)
}
