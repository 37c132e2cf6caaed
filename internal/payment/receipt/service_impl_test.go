package receipt

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/somagouache/gouache/internal/catalog/domain"
	catalogrepository "github.com/somagouache/gouache/internal/catalog/repository"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	paymentrepository "github.com/somagouache/gouache/internal/payment/repository"
	"github.com/somagouache/gouache/internal/providers/pdf"
	"github.com/somagouache/gouache/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturingPDF struct {
	got pdf.ReceiptData
}

func (c *capturingPDF) GenerateReceipt(ctx context.Context, data pdf.ReceiptData) (io.Reader, error) {
	c.got = data
	return bytes.NewReader([]byte("%PDF-test")), nil
}

func testSale() *paymentdomain.Sale {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &paymentdomain.Sale{
		ID:                   42,
		PaymentIntentID:      "pi_1",
		ItemID:               "print_1",
		ItemType:             catalogdomain.ItemTypePrint,
		ItemTitle:            "Harbour at dusk",
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
}

func TestRenderSettledSale(t *testing.T) {
	db := testsupport.OpenDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := paymentrepository.Provide()
	_, err = repo.InsertSale(context.Background(), db, testSale())
	require.NoError(t, err)
	testsupport.SeedSeller(t, db, "artist_1", true)

	renderer := &capturingPDF{}
	svc := NewService(Params{DB: db, Log: zap.NewNop(), Repo: repo, Catalog: catalogrepository.Provide(node), PDF: renderer})

	doc, err := svc.Render(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-test"), doc)
	assert.Equal(t, "42", renderer.got.ReceiptNumber)
	assert.Equal(t, "Seller artist_1", renderer.got.SellerName)
	assert.Equal(t, "USD 29.99", renderer.got.Total)
	assert.Equal(t, "USD 1.50", renderer.got.PlatformFee)
	assert.Equal(t, "USD 28.49", renderer.got.SellerPayout)
	assert.Equal(t, "March 1, 2026", renderer.got.DatePaid)
	require.Len(t, renderer.got.Items, 1)
	assert.Equal(t, "Harbour at dusk", renderer.got.Items[0].Description)
}

func TestRenderUnknownSale(t *testing.T) {
	db := testsupport.OpenDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := NewService(Params{DB: db, Log: zap.NewNop(), Repo: paymentrepository.Provide(), Catalog: catalogrepository.Provide(node), PDF: &capturingPDF{}})

	_, err = svc.Render(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, paymentdomain.ErrSaleNotFound)
}

func TestMarotoRendersReceipt(t *testing.T) {
	doc, err := pdf.New().GenerateReceipt(context.Background(), BuildReceiptData(testSale(), nil))
	require.NoError(t, err)
	body, err := io.ReadAll(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}
