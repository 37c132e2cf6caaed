package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	catalogdomain "github.com/somagouache/gouache/internal/catalog/domain"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	"github.com/somagouache/gouache/internal/payment/domain/mocks"
	paymentrepository "github.com/somagouache/gouache/internal/payment/repository"
	"github.com/somagouache/gouache/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestVerifyPrefersLocalSale(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().RetrievePaymentIntent(gomock.Any(), gomock.Any()).Times(0)

	db := testsupport.OpenDB(t)
	repo := paymentrepository.Provide()
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inserted, err := repo.InsertSale(context.Background(), db, &paymentdomain.Sale{
		ID:                   1,
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
		CreatedAt:            createdAt,
		CompletedAt:          createdAt,
	})
	require.NoError(t, err)
	require.True(t, inserted)

	svc := NewService(Params{DB: db, Log: zap.NewNop(), Repo: repo, Provider: provider})
	result, err := svc.Verify(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "completed", result.Status)
	require.NotNil(t, result.Amount)
	assert.Equal(t, int64(2999), *result.Amount)
	assert.Equal(t, "print_1", result.ItemID)
	assert.Equal(t, "print", result.ItemType)
	assert.Equal(t, "Harbour at dusk", result.ItemTitle)
	require.NotNil(t, result.CreatedAt)
	assert.True(t, createdAt.Equal(*result.CreatedAt))
}

func TestVerifyFallsBackToProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().RetrievePaymentIntent(gomock.Any(), "pi_2").Return(&paymentdomain.ProviderPaymentIntent{
		ID:       "pi_2",
		Status:   "requires_payment_method",
		Amount:   4999,
		Currency: "usd",
		Metadata: map[string]string{"itemId": "course_1", "itemType": "course", "itemTitle": "Ink basics"},
	}, nil)

	svc := NewService(Params{DB: testsupport.OpenDB(t), Log: zap.NewNop(), Repo: paymentrepository.Provide(), Provider: provider})
	result, err := svc.Verify(context.Background(), "pi_2")
	require.NoError(t, err)
	assert.Equal(t, "requires_payment_method", result.Status)
	assert.Equal(t, "course_1", result.ItemID)
	assert.Equal(t, "course", result.ItemType)
	assert.Nil(t, result.CreatedAt)
}

func TestVerifyReportsProcessingWhenProviderFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().RetrievePaymentIntent(gomock.Any(), "pi_3").Return(nil, errors.New("connection reset"))

	svc := NewService(Params{DB: testsupport.OpenDB(t), Log: zap.NewNop(), Repo: paymentrepository.Provide(), Provider: provider})
	result, err := svc.Verify(context.Background(), "pi_3")
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.VerificationStatusProcessing, result.Status)
	assert.Nil(t, result.Amount)
	assert.NotEmpty(t, result.Message)
}

func TestVerifyRequiresID(t *testing.T) {
	svc := NewService(Params{DB: testsupport.OpenDB(t), Log: zap.NewNop(), Repo: paymentrepository.Provide()})
	_, err := svc.Verify(context.Background(), "  ")
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidRequest)
}
