package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	catalogrepository "github.com/somagouache/gouache/internal/catalog/repository"
	"github.com/somagouache/gouache/internal/config"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	"github.com/somagouache/gouache/internal/payment/domain/mocks"
	"github.com/somagouache/gouache/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, provider paymentdomain.Provider) (paymentdomain.IntentService, *gorm.DB) {
	t.Helper()

	db := testsupport.OpenDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Catalog:  catalogrepository.Provide(node),
		Provider: provider,
		Commerce: config.NewStaticCommerceConfigHolder(config.DefaultCommerceConfig()),
	})
	return svc, db
}

func printRequest() paymentdomain.CreateIntentRequest {
	return paymentdomain.CreateIntentRequest{
		Amount:   2999,
		Currency: "USD",
		ArtistID: "artist_1",
		ItemID:   "print_1",
		ItemType: "print",
		BuyerID:  "buyer_1",
	}
}

func TestCreateIntentSplitsPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	svc, db := newTestService(t, provider)
	testsupport.SeedSeller(t, db, "artist_1", true)
	testsupport.SeedArtwork(t, db, "print_1", "artist_1", "print", 2999, 3)

	provider.EXPECT().
		CreatePaymentIntent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params paymentdomain.CreatePaymentIntentParams) (*paymentdomain.ProviderPaymentIntent, error) {
			assert.Equal(t, int64(2999), params.Amount)
			assert.Equal(t, "usd", params.Currency)
			assert.Equal(t, int64(150), params.ApplicationFeeAmount)
			assert.Equal(t, "acct_artist_1", params.DestinationAccount)
			assert.NotEmpty(t, params.IdempotencyKey)
			assert.Equal(t, map[string]string{
				"buyerId":   "buyer_1",
				"artistId":  "artist_1",
				"itemId":    "print_1",
				"itemType":  "print",
				"itemTitle": "Artwork print_1",
				"stock":     "3",
			}, params.Metadata)
			return &paymentdomain.ProviderPaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret_abc"}, nil
		})

	resp, err := svc.CreateIntent(context.Background(), printRequest())
	require.NoError(t, err)
	assert.Equal(t, "pi_1", resp.PaymentIntentID)
	assert.Equal(t, "pi_1_secret_abc", resp.ClientSecret)
	assert.Equal(t, int64(150), resp.ApplicationFeeAmount)
	assert.Equal(t, int64(2849), resp.ArtistPayout)
	assert.Equal(t, resp.Amount, resp.ApplicationFeeAmount+resp.ArtistPayout)

	testsupport.AssertCount(t, db, "sales", 0, "")
	testsupport.AssertCount(t, db, "payment_events", 0, "")
}

func TestCreateIntentCourseOmitsStock(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	svc, db := newTestService(t, provider)
	testsupport.SeedSeller(t, db, "instructor_1", true)
	testsupport.SeedCourse(t, db, "course_1", "instructor_1", 9900, true)

	provider.EXPECT().
		CreatePaymentIntent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params paymentdomain.CreatePaymentIntentParams) (*paymentdomain.ProviderPaymentIntent, error) {
			_, ok := params.Metadata["stock"]
			assert.False(t, ok)
			assert.Equal(t, "course", params.Metadata["itemType"])
			return &paymentdomain.ProviderPaymentIntent{ID: "pi_c", ClientSecret: "secret"}, nil
		})

	resp, err := svc.CreateIntent(context.Background(), paymentdomain.CreateIntentRequest{
		Amount: 9900, Currency: "usd", ArtistID: "instructor_1", ItemID: "course_1", ItemType: "course", BuyerID: "buyer_1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(495), resp.ApplicationFeeAmount)
	assert.Equal(t, int64(9405), resp.ArtistPayout)
}

func TestCreateIntentRejections(t *testing.T) {
	cases := []struct {
		name   string
		seed   func(t *testing.T, db *gorm.DB)
		mutate func(req *paymentdomain.CreateIntentRequest)
		want   error
	}{
		{
			name: "missing buyer",
			mutate: func(req *paymentdomain.CreateIntentRequest) {
				req.BuyerID = ""
			},
			want: paymentdomain.ErrInvalidRequest,
		},
		{
			name: "unknown item type",
			mutate: func(req *paymentdomain.CreateIntentRequest) {
				req.ItemType = "sculpture"
			},
			want: paymentdomain.ErrInvalidItemType,
		},
		{
			name: "below minimum",
			mutate: func(req *paymentdomain.CreateIntentRequest) {
				req.Amount = 49
			},
			want: paymentdomain.ErrInvalidAmount,
		},
		{
			name: "currency not allowed",
			mutate: func(req *paymentdomain.CreateIntentRequest) {
				req.Currency = "xyz"
			},
			want: paymentdomain.ErrInvalidCurrency,
		},
		{
			name: "unknown artist",
			want: paymentdomain.ErrArtistNotFound,
		},
		{
			name: "seller not ready",
			seed: func(t *testing.T, db *gorm.DB) {
				testsupport.SeedSeller(t, db, "artist_1", false)
				testsupport.SeedArtwork(t, db, "print_1", "artist_1", "print", 2999, 3)
			},
			want: paymentdomain.ErrPayeeNotReady,
		},
		{
			name: "missing item",
			seed: func(t *testing.T, db *gorm.DB) {
				testsupport.SeedSeller(t, db, "artist_1", true)
			},
			want: paymentdomain.ErrItemNotFound,
		},
		{
			name: "item owned by someone else",
			seed: func(t *testing.T, db *gorm.DB) {
				testsupport.SeedSeller(t, db, "artist_1", true)
				testsupport.SeedArtwork(t, db, "print_1", "artist_2", "print", 2999, 3)
			},
			want: paymentdomain.ErrOwnershipMismatch,
		},
		{
			name: "kind differs from request",
			seed: func(t *testing.T, db *gorm.DB) {
				testsupport.SeedSeller(t, db, "artist_1", true)
				testsupport.SeedArtwork(t, db, "print_1", "artist_1", "original", 2999, 0)
			},
			want: paymentdomain.ErrItemTypeMismatch,
		},
		{
			name: "print out of stock",
			seed: func(t *testing.T, db *gorm.DB) {
				testsupport.SeedSeller(t, db, "artist_1", true)
				testsupport.SeedArtwork(t, db, "print_1", "artist_1", "print", 2999, 0)
			},
			want: paymentdomain.ErrNotAvailable,
		},
		{
			name: "inactive course",
			seed: func(t *testing.T, db *gorm.DB) {
				testsupport.SeedSeller(t, db, "artist_1", true)
				testsupport.SeedCourse(t, db, "course_1", "artist_1", 9900, false)
			},
			mutate: func(req *paymentdomain.CreateIntentRequest) {
				req.ItemID = "course_1"
				req.ItemType = "course"
			},
			want: paymentdomain.ErrNotAvailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			provider := mocks.NewMockProvider(ctrl)
			provider.EXPECT().CreatePaymentIntent(gomock.Any(), gomock.Any()).Times(0)

			svc, db := newTestService(t, provider)
			if tc.seed != nil {
				tc.seed(t, db)
			}
			req := printRequest()
			if tc.mutate != nil {
				tc.mutate(&req)
			}

			resp, err := svc.CreateIntent(context.Background(), req)
			assert.Nil(t, resp)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestCreateIntentSoldOriginal(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	svc, db := newTestService(t, provider)
	testsupport.SeedSeller(t, db, "artist_1", true)
	testsupport.SeedArtwork(t, db, "orig_1", "artist_1", "original", 50000, 0)
	require.NoError(t, db.Exec(`UPDATE artworks SET sold = ? WHERE id = ?`, true, "orig_1").Error)

	_, err := svc.CreateIntent(context.Background(), paymentdomain.CreateIntentRequest{
		Amount: 50000, Currency: "usd", ArtistID: "artist_1", ItemID: "orig_1", ItemType: "original", BuyerID: "buyer_1",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrNotAvailable)
}

func TestCreateIntentProviderFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	svc, db := newTestService(t, provider)
	testsupport.SeedSeller(t, db, "artist_1", true)
	testsupport.SeedArtwork(t, db, "print_1", "artist_1", "print", 2999, 3)

	providerErr := &paymentdomain.ProviderError{StatusCode: 402, Code: "account_invalid", Message: "Destination account is restricted."}
	provider.EXPECT().CreatePaymentIntent(gomock.Any(), gomock.Any()).Return(nil, providerErr)

	_, err := svc.CreateIntent(context.Background(), printRequest())
	var got *paymentdomain.ProviderError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, "Destination account is restricted.", got.Message)
}
