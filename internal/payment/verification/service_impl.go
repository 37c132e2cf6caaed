package verification

import (
	"context"
	"strings"
	"time"

	"github.com/somagouache/gouache/internal/config"
	obscontext "github.com/somagouache/gouache/internal/observability/context"
	obslogger "github.com/somagouache/gouache/internal/observability/logger"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	"github.com/somagouache/gouache/internal/payment/stripe"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const processingMessage = "Payment is being processed. Please check back shortly."

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     paymentdomain.Repository
	Provider paymentdomain.Provider
	Config   config.Config
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         paymentdomain.Repository
	provider     paymentdomain.Provider
	storeTimeout time.Duration
}

func NewService(p Params) paymentdomain.VerificationService {
	storeTimeout := p.Config.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = 10 * time.Second
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.verification"),
		repo:         p.Repo,
		provider:     p.Provider,
		storeTimeout: storeTimeout,
	}
}

// Verify answers from the local sale first, then the provider, and falls back to
// "processing" when neither can say more.
func (s *Service) Verify(ctx context.Context, paymentIntentID string) (*paymentdomain.VerificationResult, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, paymentdomain.ErrInvalidRequest
	}
	ctx = obscontext.WithPaymentIntentID(ctx, paymentIntentID)
	log := obslogger.WithContext(ctx, s.log)

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	sale, err := s.repo.FindSale(storeCtx, s.db, paymentIntentID)
	cancel()
	if err != nil {
		log.Warn("sale lookup failed", zap.Error(err))
	}
	if sale != nil {
		return fromSale(sale), nil
	}

	if s.provider == nil {
		return processing(), nil
	}
	intent, err := s.provider.RetrievePaymentIntent(ctx, paymentIntentID)
	if err != nil {
		log.Warn("provider lookup failed", zap.Error(err))
		return processing(), nil
	}
	return fromIntent(intent), nil
}

func fromSale(sale *paymentdomain.Sale) *paymentdomain.VerificationResult {
	amount := sale.Amount
	createdAt := sale.CreatedAt
	return &paymentdomain.VerificationResult{
		Status:    paymentdomain.SaleStatusCompleted,
		Amount:    &amount,
		Currency:  sale.Currency,
		ItemID:    sale.ItemID,
		ItemType:  string(sale.ItemType),
		ItemTitle: sale.ItemTitle,
		CreatedAt: &createdAt,
	}
}

func fromIntent(intent *paymentdomain.ProviderPaymentIntent) *paymentdomain.VerificationResult {
	amount := intent.Amount
	result := &paymentdomain.VerificationResult{
		Status:    intent.Status,
		Amount:    &amount,
		Currency:  intent.Currency,
		ItemID:    intent.Metadata[stripe.MetadataItemID],
		ItemType:  intent.Metadata[stripe.MetadataItemType],
		ItemTitle: intent.Metadata[stripe.MetadataItemTitle],
	}
	if !intent.Created.IsZero() {
		created := intent.Created
		result.CreatedAt = &created
	}
	return result
}

func processing() *paymentdomain.VerificationResult {
	return &paymentdomain.VerificationResult{
		Status:  paymentdomain.VerificationStatusProcessing,
		Message: processingMessage,
	}
}
