package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/somagouache/gouache/internal/catalog/domain"
	"github.com/somagouache/gouache/internal/clock"
	"github.com/somagouache/gouache/internal/config"
	ledgerdomain "github.com/somagouache/gouache/internal/ledger/domain"
	obscontext "github.com/somagouache/gouache/internal/observability/context"
	obslogger "github.com/somagouache/gouache/internal/observability/logger"
	obsmetrics "github.com/somagouache/gouache/internal/observability/metrics"
	"github.com/somagouache/gouache/internal/observability/tracing"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	"github.com/somagouache/gouache/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	reasonEntitlementConflict = "entitlement_conflict"
	reasonMalformed           = "malformed_event"
	notifyTimeout             = 30 * time.Second
)

type Params struct {
	fx.In

	DB                *gorm.DB
	Log               *zap.Logger
	GenID             *snowflake.Node
	Repo              paymentdomain.Repository
	Catalog           catalogdomain.Repository
	Ledger            ledgerdomain.Service
	Adapter           paymentdomain.WebhookAdapter
	Clock             clock.Clock
	Config            config.Config
	Commerce          *config.CommerceConfigHolder
	Notifier          paymentdomain.SaleNotifier    `optional:"true"`
	ObsMetrics        *obsmetrics.Metrics           `optional:"true"`
	SettlementMetrics *obsmetrics.SettlementMetrics `optional:"true"`
}

type Service struct {
	db                *gorm.DB
	log               *zap.Logger
	genID             *snowflake.Node
	repo              paymentdomain.Repository
	catalog           catalogdomain.Repository
	ledger            ledgerdomain.Service
	adapter           paymentdomain.WebhookAdapter
	clock             clock.Clock
	commerce          *config.CommerceConfigHolder
	notifier          paymentdomain.SaleNotifier
	storeTimeout      time.Duration
	obsMetrics        *obsmetrics.Metrics
	settlementMetrics *obsmetrics.SettlementMetrics
}

func NewService(p Params) paymentdomain.SettlementService {
	return New(p)
}

func New(p Params) *Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	storeTimeout := p.Config.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = 10 * time.Second
	}
	return &Service{
		db:                p.DB,
		log:               p.Log.Named("payment.settlement"),
		genID:             p.GenID,
		repo:              p.Repo,
		catalog:           p.Catalog,
		ledger:            p.Ledger,
		adapter:           p.Adapter,
		clock:             clk,
		commerce:          p.Commerce,
		notifier:          p.Notifier,
		storeTimeout:      storeTimeout,
		obsMetrics:        p.ObsMetrics,
		settlementMetrics: p.SettlementMetrics,
	}
}

func (s *Service) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (paymentdomain.Outcome, error) {
	if err := s.adapter.Verify(ctx, payload, signatureHeader); err != nil {
		s.obsMetrics.RecordWebhookRejection(ctx, err.Error())
		if errors.Is(err, paymentdomain.ErrWebhookSecretMissing) {
			s.log.Error("webhook signing secret is not configured")
		} else {
			obslogger.WithContext(ctx, s.log).Warn("webhook rejected", zap.Error(err))
		}
		return "", err
	}

	event, err := s.adapter.Parse(ctx, payload)
	if err != nil {
		return s.handleUnparseable(ctx, payload, err), nil
	}

	env := event.Envelope()
	ctx = withEvent(ctx, env)
	record := s.admit(ctx, payload, env)
	if record != nil && record.ProcessedAt != nil {
		s.observe(ctx, env, paymentdomain.OutcomeDuplicate, time.Time{})
		return paymentdomain.OutcomeDuplicate, nil
	}
	return s.apply(ctx, record, event), nil
}

func (s *Service) Replay(ctx context.Context, record paymentdomain.EventRecord) (paymentdomain.Outcome, error) {
	if record.ProcessedAt != nil {
		return paymentdomain.OutcomeDuplicate, nil
	}

	event, err := s.adapter.Parse(ctx, []byte(record.Payload))
	if err != nil {
		if paymentdomain.IsMalformedEvent(err) || errors.Is(err, paymentdomain.ErrInvalidPayload) {
			s.log.Warn("stored event can never be applied",
				zap.String("provider_event_id", record.ProviderEventID),
				zap.Error(err),
			)
			s.markProcessed(ctx, &record)
			return paymentdomain.OutcomeMalformed, nil
		}
		return "", err
	}

	ctx = withEvent(ctx, event.Envelope())
	return s.apply(ctx, &record, event), nil
}

func withEvent(ctx context.Context, env paymentdomain.Envelope) context.Context {
	ctx = obscontext.WithEventID(ctx, env.ID)
	return correlation.ForEvent(ctx, env.ID)
}

// admit stores the delivery in the event log. It returns the stored row, or nil
// when the log itself is unavailable; effects are still attempted in that case.
func (s *Service) admit(ctx context.Context, payload []byte, env paymentdomain.Envelope) *paymentdomain.EventRecord {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	record := &paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        s.adapter.Provider(),
		ProviderEventID: env.ID,
		EventType:       env.Type,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      s.clock.Now(),
	}
	inserted, err := s.repo.InsertEvent(storeCtx, s.db, record)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Error("failed to store webhook event", zap.Error(err))
		return nil
	}
	if inserted {
		return record
	}

	existing, err := s.repo.FindEvent(storeCtx, s.db, record.Provider, env.ID)
	if err != nil || existing == nil {
		obslogger.WithContext(ctx, s.log).Error("failed to load stored webhook event", zap.Error(err))
		return nil
	}
	return existing
}

func (s *Service) apply(ctx context.Context, record *paymentdomain.EventRecord, event paymentdomain.Event) paymentdomain.Outcome {
	env := event.Envelope()
	start := time.Now()
	ctx = obscontext.WithPaymentIntentID(ctx, paymentIntentID(event))

	ctx, span := otel.Tracer("gouache/settlement").Start(ctx, "settlement.apply")
	defer span.End()
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("event_type", env.Type),
		attribute.String("provider", s.adapter.Provider()),
	)...)

	outcome, err := s.dispatch(ctx, event)
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "settlement failed")
		s.fail(ctx, record, event, err)
		outcome = paymentdomain.OutcomeErrored
	} else {
		s.markProcessed(ctx, record)
	}

	span.SetAttributes(tracing.SafeAttributes(attribute.String("outcome", string(outcome)))...)
	s.observe(ctx, env, outcome, start)
	return outcome
}

func (s *Service) dispatch(ctx context.Context, event paymentdomain.Event) (paymentdomain.Outcome, error) {
	switch e := event.(type) {
	case paymentdomain.PaymentSucceeded:
		return s.settleSale(ctx, e)
	case paymentdomain.PaymentFailed:
		return s.recordFailedPayment(ctx, e)
	case paymentdomain.TransferCreated:
		return s.recordTransfer(ctx, e)
	case paymentdomain.DisputeCreated:
		return s.recordDispute(ctx, e)
	case paymentdomain.Payout:
		s.logPayout(ctx, e)
		return paymentdomain.OutcomeLogged, nil
	default:
		obslogger.WithContext(ctx, s.log).Debug("ignoring webhook event", zap.String("event_type", event.Envelope().Type))
		return paymentdomain.OutcomeIgnored, nil
	}
}

func (s *Service) settleSale(ctx context.Context, e paymentdomain.PaymentSucceeded) (paymentdomain.Outcome, error) {
	itemType, _ := catalogdomain.ParseItemType(e.Metadata.ItemType)
	currency := strings.ToLower(strings.TrimSpace(e.Currency))
	fee := s.applicationFee(e)
	now := s.clock.Now()
	completedAt := e.Env.OccurredAt
	if completedAt.IsZero() {
		completedAt = now
	}

	sale := paymentdomain.Sale{
		ID:                   s.genID.Generate(),
		PaymentIntentID:      e.PaymentIntentID,
		ItemID:               e.Metadata.ItemID,
		ItemType:             itemType,
		ItemTitle:            e.Metadata.ItemTitle,
		BuyerID:              e.Metadata.BuyerID,
		ArtistID:             e.Metadata.ArtistID,
		Amount:               e.Amount,
		Currency:             currency,
		ApplicationFeeAmount: fee,
		ArtistPayout:         e.Amount - fee,
		Status:               paymentdomain.SaleStatusCompleted,
		CreatedAt:            now,
		CompletedAt:          completedAt,
	}

	log := obslogger.WithContext(ctx, s.log)

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var (
		inserted    bool
		entitlement catalogdomain.EntitlementResult
	)
	err := s.db.WithContext(storeCtx).Transaction(func(tx *gorm.DB) error {
		var err error
		inserted, err = s.repo.InsertSale(storeCtx, tx, &sale)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}

		if _, err := s.repo.TransitionState(storeCtx, tx, e.PaymentIntentID, paymentdomain.PaymentStatusSucceeded, e.Env.ID, now); err != nil {
			return err
		}

		entitlement, err = s.catalog.ApplyEntitlement(storeCtx, tx, catalogdomain.Entitlement{
			ItemID:          sale.ItemID,
			ItemType:        itemType,
			BuyerID:         sale.BuyerID,
			PaymentIntentID: sale.PaymentIntentID,
			At:              completedAt,
		})
		if err != nil {
			return fmt.Errorf("apply entitlement: %w", err)
		}
		if entitlement.Conflict {
			if err := s.repo.InsertSettlementError(storeCtx, tx, &paymentdomain.SettlementError{
				ID:              s.genID.Generate(),
				ProviderEventID: e.Env.ID,
				EventType:       e.Env.Type,
				PaymentIntentID: e.PaymentIntentID,
				Reason:          reasonEntitlementConflict,
				Message:         fmt.Sprintf("%s %s could not be granted to buyer", itemType, sale.ItemID),
				CreatedAt:       now,
			}); err != nil {
				return err
			}
		}

		_, err = s.ledger.PostEntryTx(storeCtx, tx, s.ledger.SaleEntry(e.PaymentIntentID, currency, e.Amount, fee, completedAt))
		return err
	})
	if err != nil {
		return "", err
	}

	if !inserted {
		log.Info("sale already recorded for payment intent")
		return paymentdomain.OutcomeDuplicate, nil
	}

	if entitlement.Conflict {
		log.Warn("sale recorded but item was no longer available",
			zap.String("item_id", sale.ItemID),
			zap.String("item_type", string(itemType)),
			zap.String("stock_snapshot", e.Metadata.StockSnapshot),
		)
		s.obsMetrics.RecordSettlementError(ctx, e.Env.Type, reasonEntitlementConflict)
		s.settlementMetrics.IncStockExhausted(string(itemType))
	}

	log.Info("sale settled",
		zap.String("item_id", sale.ItemID),
		zap.String("item_type", string(itemType)),
		zap.Int64("amount", sale.Amount),
		zap.Int64("application_fee_amount", sale.ApplicationFeeAmount),
		zap.Int64("artist_payout", sale.ArtistPayout),
	)
	s.obsMetrics.RecordSale(ctx, string(itemType), currency, sale.Amount)
	s.notify(ctx, sale)
	return paymentdomain.OutcomeSettled, nil
}

// applicationFee prefers the fee fixed on the intent; the configured rate is the fallback.
func (s *Service) applicationFee(e paymentdomain.PaymentSucceeded) int64 {
	if e.ApplicationFeeAmount != nil && *e.ApplicationFeeAmount >= 0 && *e.ApplicationFeeAmount <= e.Amount {
		return *e.ApplicationFeeAmount
	}
	rate := config.DefaultCommerceConfig().CommissionRate
	if s.commerce != nil {
		rate = s.commerce.Get().CommissionRate
	}
	return paymentdomain.ApplicationFee(e.Amount, rate)
}

func (s *Service) notify(ctx context.Context, sale paymentdomain.Sale) {
	if s.notifier == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	go func() {
		defer cancel()
		if err := s.notifier.NotifySale(notifyCtx, sale); err != nil {
			obslogger.WithContext(notifyCtx, s.log).Warn("seller notification failed",
				zap.String("payment_intent_id", sale.PaymentIntentID),
				zap.Error(err),
			)
		}
	}()
}

func (s *Service) recordFailedPayment(ctx context.Context, e paymentdomain.PaymentFailed) (paymentdomain.Outcome, error) {
	now := s.clock.Now()
	item := paymentdomain.FailedPayment{
		ID:              s.genID.Generate(),
		PaymentIntentID: e.PaymentIntentID,
		ProviderEventID: e.Env.ID,
		BuyerID:         e.Metadata.BuyerID,
		ItemID:          e.Metadata.ItemID,
		ItemType:        e.Metadata.ItemType,
		Amount:          e.Amount,
		Currency:        strings.ToLower(e.Currency),
		ErrorCode:       e.ErrorCode,
		ErrorMessage:    e.ErrorMessage,
		CreatedAt:       now,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var inserted, transitioned bool
	err := s.db.WithContext(storeCtx).Transaction(func(tx *gorm.DB) error {
		var err error
		inserted, err = s.repo.InsertFailedPayment(storeCtx, tx, &item)
		if err != nil || !inserted {
			return err
		}
		transitioned, err = s.repo.TransitionState(storeCtx, tx, e.PaymentIntentID, paymentdomain.PaymentStatusFailed, e.Env.ID, now)
		return err
	})
	if err != nil {
		return "", err
	}
	if !inserted {
		return paymentdomain.OutcomeDuplicate, nil
	}

	log := obslogger.WithContext(ctx, s.log)
	if !transitioned {
		log.Info("payment failure recorded after success; status unchanged")
	} else {
		log.Info("payment failure recorded", zap.String("error_code", e.ErrorCode))
	}
	return paymentdomain.OutcomeRecorded, nil
}

func (s *Service) recordTransfer(ctx context.Context, e paymentdomain.TransferCreated) (paymentdomain.Outcome, error) {
	currency := strings.ToLower(e.Currency)
	item := paymentdomain.Transfer{
		ID:                 s.genID.Generate(),
		ProviderTransferID: e.TransferID,
		ProviderEventID:    e.Env.ID,
		Destination:        e.Destination,
		SourceTransaction:  e.SourceTransaction,
		Amount:             e.Amount,
		Currency:           currency,
		Status:             paymentdomain.TransferStatusPending,
		CreatedAt:          s.clock.Now(),
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var inserted bool
	err := s.db.WithContext(storeCtx).Transaction(func(tx *gorm.DB) error {
		var err error
		inserted, err = s.repo.InsertTransfer(storeCtx, tx, &item)
		if err != nil || !inserted || e.Amount <= 0 || currency == "" {
			return err
		}
		_, err = s.ledger.PostEntryTx(storeCtx, tx, ledgerdomain.Entry{
			SourceType: ledgerdomain.SourceTypeTransfer,
			SourceID:   e.TransferID,
			Currency:   currency,
			OccurredAt: occurredAt(e.Env, item.CreatedAt),
			Lines: []ledgerdomain.LedgerEntryLine{
				{AccountCode: ledgerdomain.AccountCodeSellerPayable, Direction: ledgerdomain.LedgerEntryDirectionDebit, Currency: currency, Amount: e.Amount},
				{AccountCode: ledgerdomain.AccountCodeCash, Direction: ledgerdomain.LedgerEntryDirectionCredit, Currency: currency, Amount: e.Amount},
			},
		})
		return err
	})
	if err != nil {
		return "", err
	}
	if !inserted {
		return paymentdomain.OutcomeDuplicate, nil
	}

	obslogger.WithContext(ctx, s.log).Info("transfer recorded",
		zap.String("transfer_id", e.TransferID),
		zap.String("destination", e.Destination),
		zap.Int64("amount", e.Amount),
	)
	return paymentdomain.OutcomeRecorded, nil
}

func (s *Service) recordDispute(ctx context.Context, e paymentdomain.DisputeCreated) (paymentdomain.Outcome, error) {
	currency := strings.ToLower(e.Currency)
	item := paymentdomain.Dispute{
		ID:                s.genID.Generate(),
		ProviderDisputeID: e.DisputeID,
		ProviderEventID:   e.Env.ID,
		ChargeID:          e.ChargeID,
		PaymentIntentID:   e.PaymentIntentID,
		Amount:            e.Amount,
		Currency:          currency,
		Reason:            e.Reason,
		Status:            e.Status,
		CreatedAt:         s.clock.Now(),
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var inserted bool
	err := s.db.WithContext(storeCtx).Transaction(func(tx *gorm.DB) error {
		var err error
		inserted, err = s.repo.InsertDispute(storeCtx, tx, &item)
		if err != nil || !inserted || e.Amount <= 0 || currency == "" {
			return err
		}
		_, err = s.ledger.PostEntryTx(storeCtx, tx, ledgerdomain.Entry{
			SourceType: ledgerdomain.SourceTypeDispute,
			SourceID:   e.DisputeID,
			Currency:   currency,
			OccurredAt: occurredAt(e.Env, item.CreatedAt),
			Lines: []ledgerdomain.LedgerEntryLine{
				{AccountCode: ledgerdomain.AccountCodeDisputeHold, Direction: ledgerdomain.LedgerEntryDirectionDebit, Currency: currency, Amount: e.Amount},
				{AccountCode: ledgerdomain.AccountCodeCash, Direction: ledgerdomain.LedgerEntryDirectionCredit, Currency: currency, Amount: e.Amount},
			},
		})
		return err
	})
	if err != nil {
		return "", err
	}
	if !inserted {
		return paymentdomain.OutcomeDuplicate, nil
	}

	log := obslogger.WithContext(ctx, s.log)
	log.Warn("dispute opened",
		zap.String("dispute_id", e.DisputeID),
		zap.String("reason", e.Reason),
		zap.Int64("amount", e.Amount),
	)
	return paymentdomain.OutcomeRecorded, nil
}

func (s *Service) logPayout(ctx context.Context, e paymentdomain.Payout) {
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("payout_id", e.PayoutID),
		zap.Int64("amount", e.Amount),
		zap.String("currency", e.Currency),
	)
	if e.Env.Type == paymentdomain.EventTypePayoutFailed {
		log.Warn("payout failed", zap.String("failure_code", e.FailureCode))
		return
	}
	log.Info("payout paid")
}

func occurredAt(env paymentdomain.Envelope, fallback time.Time) time.Time {
	if env.OccurredAt.IsZero() {
		return fallback
	}
	return env.OccurredAt
}

// handleUnparseable acknowledges an authentic delivery that can never be applied.
func (s *Service) handleUnparseable(ctx context.Context, payload []byte, err error) paymentdomain.Outcome {
	log := obslogger.WithContext(ctx, s.log)

	var malformed *paymentdomain.MalformedEventError
	if !errors.As(err, &malformed) {
		log.Warn("webhook payload could not be decoded", zap.Error(err))
		s.obsMetrics.RecordWebhookEvent(ctx, s.adapter.Provider(), "unknown", string(paymentdomain.OutcomeMalformed))
		return paymentdomain.OutcomeMalformed
	}

	env := paymentdomain.Envelope{ID: malformed.EventID, Type: malformed.EventType}
	ctx = withEvent(ctx, env)
	log = obslogger.WithContext(ctx, s.log)
	log.Warn("webhook event is missing required fields",
		zap.String("event_type", malformed.EventType),
		zap.Strings("missing", malformed.Missing),
	)

	if record := s.admit(ctx, payload, env); record != nil && record.ProcessedAt == nil {
		s.markProcessed(ctx, record)
		s.storeSettlementError(ctx, env, "", reasonMalformed, err)
	}
	s.obsMetrics.RecordSettlementError(ctx, malformed.EventType, reasonMalformed)
	s.observe(ctx, env, paymentdomain.OutcomeMalformed, time.Time{})
	return paymentdomain.OutcomeMalformed
}

// fail keeps the event unprocessed for replay and leaves an audit row behind.
func (s *Service) fail(ctx context.Context, record *paymentdomain.EventRecord, event paymentdomain.Event, cause error) {
	env := event.Envelope()
	reason := obsmetrics.ClassifySettlementError(cause)
	if errors.Is(cause, catalogdomain.ErrItemNotFound) {
		reason = "item_not_found"
	}

	obslogger.WithContext(ctx, s.log).Error("failed to apply webhook event",
		zap.String("event_type", env.Type),
		zap.String("reason", reason),
		zap.Bool("retryable", obsmetrics.IsSettlementErrorRetryable(cause)),
		zap.Error(cause),
	)
	s.obsMetrics.RecordSettlementError(ctx, env.Type, reason)
	s.storeSettlementError(ctx, env, paymentIntentID(event), reason, cause)

	if record == nil {
		return
	}
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()
	if err := s.repo.RecordAttempt(storeCtx, s.db, record.ID, cause.Error()); err != nil {
		s.log.Error("failed to record event attempt", zap.Error(err))
	}
}

func (s *Service) storeSettlementError(ctx context.Context, env paymentdomain.Envelope, piID string, reason string, cause error) {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	item := paymentdomain.SettlementError{
		ID:              s.genID.Generate(),
		ProviderEventID: env.ID,
		EventType:       env.Type,
		PaymentIntentID: piID,
		Reason:          reason,
		Message:         tracing.SafeError(cause).Error(),
		CreatedAt:       s.clock.Now(),
	}
	if err := s.repo.InsertSettlementError(storeCtx, s.db, &item); err != nil {
		s.log.Error("failed to store settlement error", zap.String("provider_event_id", env.ID), zap.Error(err))
	}
}

func (s *Service) markProcessed(ctx context.Context, record *paymentdomain.EventRecord) {
	if record == nil {
		return
	}
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()
	if err := s.repo.MarkProcessed(storeCtx, s.db, record.ID, s.clock.Now()); err != nil {
		s.log.Error("failed to mark event processed", zap.String("provider_event_id", record.ProviderEventID), zap.Error(err))
	}
}

func (s *Service) observe(ctx context.Context, env paymentdomain.Envelope, outcome paymentdomain.Outcome, start time.Time) {
	s.obsMetrics.RecordWebhookEvent(ctx, s.adapter.Provider(), env.Type, string(outcome))
	if !start.IsZero() {
		s.settlementMetrics.ObserveHandle(env.Type, string(outcome), time.Since(start))
	}
}

func paymentIntentID(event paymentdomain.Event) string {
	switch e := event.(type) {
	case paymentdomain.PaymentSucceeded:
		return e.PaymentIntentID
	case paymentdomain.PaymentFailed:
		return e.PaymentIntentID
	case paymentdomain.DisputeCreated:
		return e.PaymentIntentID
	default:
		return ""
	}
}
