package notify

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	catalogrepository "github.com/somagouache/gouache/internal/catalog/repository"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	"github.com/somagouache/gouache/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentTemplate struct {
	to   []string
	name string
	data map[string]interface{}
}

type fakeEmail struct {
	sent []sentTemplate
}

func (f *fakeEmail) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

func (f *fakeEmail) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	f.sent = append(f.sent, sentTemplate{to: to, name: templateName, data: data.(map[string]interface{})})
	return nil
}

func TestNotifySaleEmailsSeller(t *testing.T) {
	db := testsupport.OpenDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	testsupport.SeedSeller(t, db, "artist_1", true)

	mailer := &fakeEmail{}
	notifier := New(Params{DB: db, Log: zap.NewNop(), Catalog: catalogrepository.Provide(node), Email: mailer})

	err = notifier.NotifySale(context.Background(), paymentdomain.Sale{
		PaymentIntentID:      "pi_1",
		ItemID:               "print_1",
		ItemTitle:            "Harbour at dusk",
		ArtistID:             "artist_1",
		Amount:               2999,
		Currency:             "usd",
		ApplicationFeeAmount: 150,
		ArtistPayout:         2849,
	})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"artist_1@example.com"}, mailer.sent[0].to)
	assert.Equal(t, "sale_completed", mailer.sent[0].name)
	assert.Equal(t, "USD 28.49", mailer.sent[0].data["payout"])
	assert.Equal(t, "Seller artist_1", mailer.sent[0].data["seller_name"])
}

func TestNotifySaleUnknownSeller(t *testing.T) {
	db := testsupport.OpenDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	mailer := &fakeEmail{}
	notifier := New(Params{DB: db, Log: zap.NewNop(), Catalog: catalogrepository.Provide(node), Email: mailer})
	require.NoError(t, notifier.NotifySale(context.Background(), paymentdomain.Sale{ArtistID: "ghost"}))
	assert.Empty(t, mailer.sent)
}
