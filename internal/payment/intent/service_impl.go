package intent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	catalogdomain "github.com/somagouache/gouache/internal/catalog/domain"
	"github.com/somagouache/gouache/internal/config"
	obslogger "github.com/somagouache/gouache/internal/observability/logger"
	obsmetrics "github.com/somagouache/gouache/internal/observability/metrics"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	"github.com/somagouache/gouache/internal/payment/stripe"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Catalog    catalogdomain.Repository
	Provider   paymentdomain.Provider
	Config     config.Config
	Commerce   *config.CommerceConfigHolder
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	catalog      catalogdomain.Repository
	provider     paymentdomain.Provider
	commerce     *config.CommerceConfigHolder
	storeTimeout time.Duration
	obsMetrics   *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.IntentService {
	storeTimeout := p.Config.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = 10 * time.Second
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.intent"),
		catalog:      p.Catalog,
		provider:     p.Provider,
		commerce:     p.Commerce,
		storeTimeout: storeTimeout,
		obsMetrics:   p.ObsMetrics,
	}
}

type validatedRequest struct {
	amount   int64
	currency string
	artistID string
	itemID   string
	itemType catalogdomain.ItemType
	buyerID  string
}

func (s *Service) CreateIntent(ctx context.Context, req paymentdomain.CreateIntentRequest) (*paymentdomain.CreateIntentResponse, error) {
	commerce := s.commerceConfig()
	input, err := validate(req, commerce)
	if err != nil {
		return nil, err
	}

	seller, item, err := s.loadSale(ctx, input)
	if err != nil {
		return nil, err
	}

	fee, payout := paymentdomain.Split(input.amount, commerce.CommissionRate)
	metadata := map[string]string{
		stripe.MetadataBuyerID:   input.buyerID,
		stripe.MetadataArtistID:  input.artistID,
		stripe.MetadataItemID:    input.itemID,
		stripe.MetadataItemType:  string(input.itemType),
		stripe.MetadataItemTitle: item.Title,
	}
	if input.itemType.Stocked() {
		metadata[stripe.MetadataStock] = strconv.FormatInt(item.Stock, 10)
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = fmt.Sprintf("%s: %s", input.itemType, item.Title)
	}

	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("item_id", input.itemID),
		zap.String("item_type", string(input.itemType)),
	)

	intent, err := s.provider.CreatePaymentIntent(ctx, paymentdomain.CreatePaymentIntentParams{
		Amount:               input.amount,
		Currency:             input.currency,
		ApplicationFeeAmount: fee,
		DestinationAccount:   seller.StripeAccountID,
		Description:          description,
		IdempotencyKey:       uuid.NewString(),
		Metadata:             metadata,
	})
	if err != nil {
		log.Warn("payment intent creation failed", zap.Error(err))
		return nil, err
	}

	log.Info("payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("amount", input.amount),
		zap.Int64("application_fee_amount", fee),
	)
	s.obsMetrics.RecordIntentCreated(ctx, string(input.itemType), input.currency)

	return &paymentdomain.CreateIntentResponse{
		ClientSecret:         intent.ClientSecret,
		PaymentIntentID:      intent.ID,
		Amount:               input.amount,
		Currency:             input.currency,
		ApplicationFeeAmount: fee,
		ArtistPayout:         payout,
	}, nil
}

func (s *Service) loadSale(ctx context.Context, input validatedRequest) (*catalogdomain.Seller, *catalogdomain.Item, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	seller, err := s.catalog.FindSeller(storeCtx, s.db, input.artistID)
	if err != nil {
		return nil, nil, err
	}
	if seller == nil {
		return nil, nil, paymentdomain.ErrArtistNotFound
	}
	if !seller.PayoutReady() {
		return nil, nil, paymentdomain.ErrPayeeNotReady
	}

	item, err := s.catalog.FindItem(storeCtx, s.db, input.itemType, input.itemID)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrUnsupportedItem) {
			return nil, nil, paymentdomain.ErrInvalidItemType
		}
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, paymentdomain.ErrItemNotFound
	}
	if item.OwnerID != input.artistID {
		return nil, nil, paymentdomain.ErrOwnershipMismatch
	}
	if item.Type != input.itemType {
		return nil, nil, paymentdomain.ErrItemTypeMismatch
	}
	if !item.Purchasable {
		return nil, nil, paymentdomain.ErrNotAvailable
	}
	return seller, item, nil
}

func (s *Service) commerceConfig() config.CommerceConfig {
	if s.commerce == nil {
		return config.DefaultCommerceConfig()
	}
	return s.commerce.Get()
}

func validate(req paymentdomain.CreateIntentRequest, commerce config.CommerceConfig) (validatedRequest, error) {
	input := validatedRequest{
		amount:   req.Amount,
		currency: strings.ToLower(strings.TrimSpace(req.Currency)),
		artistID: strings.TrimSpace(req.ArtistID),
		itemID:   strings.TrimSpace(req.ItemID),
		buyerID:  strings.TrimSpace(req.BuyerID),
	}
	if input.artistID == "" || input.itemID == "" || input.buyerID == "" || strings.TrimSpace(req.ItemType) == "" {
		return input, paymentdomain.ErrInvalidRequest
	}
	itemType, ok := catalogdomain.ParseItemType(req.ItemType)
	if !ok {
		return input, paymentdomain.ErrInvalidItemType
	}
	input.itemType = itemType
	if input.amount <= 0 || input.amount < commerce.MinimumAmount {
		return input, paymentdomain.ErrInvalidAmount
	}
	if input.currency == "" || !commerce.AllowsCurrency(input.currency) {
		return input, paymentdomain.ErrInvalidCurrency
	}
	return input, nil
}
