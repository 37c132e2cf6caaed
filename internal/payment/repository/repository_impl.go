package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/somagouache/gouache/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*domain.EventRecord, error) {
	var item domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, provider_event_id, event_type, payload,
			received_at, processed_at, attempts, last_error
		 FROM payment_events
		 WHERE provider = ? AND provider_event_id = ?
		 LIMIT 1`,
		provider,
		providerEventID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.EventRecord) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payment_events (
			id, provider, provider_event_id, event_type, payload,
			received_at, processed_at, attempts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_event_id) DO NOTHING`,
		event.ID,
		event.Provider,
		event.ProviderEventID,
		event.EventType,
		event.Payload,
		event.ReceivedAt,
		event.ProcessedAt,
		event.Attempts,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events
		 SET processed_at = ?, last_error = NULL
		 WHERE id = ?`,
		processedAt,
		id,
	).Error
}

func (r *repo) RecordAttempt(ctx context.Context, db *gorm.DB, id snowflake.ID, lastError string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events
		 SET attempts = attempts + 1, last_error = ?
		 WHERE id = ?`,
		lastError,
		id,
	).Error
}

func (r *repo) ListUnprocessed(ctx context.Context, db *gorm.DB, receivedBefore time.Time, maxAttempts int, limit int) ([]domain.EventRecord, error) {
	var items []domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, provider_event_id, event_type, payload,
			received_at, processed_at, attempts, last_error
		 FROM payment_events
		 WHERE processed_at IS NULL AND received_at < ? AND attempts < ?
		 ORDER BY received_at ASC
		 LIMIT ?`,
		receivedBefore,
		maxAttempts,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertSale(ctx context.Context, db *gorm.DB, sale *domain.Sale) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO sales (
			id, payment_intent_id, item_id, item_type, item_title, buyer_id, artist_id,
			amount, currency, application_fee_amount, artist_payout, status,
			created_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (payment_intent_id) DO NOTHING`,
		sale.ID,
		sale.PaymentIntentID,
		sale.ItemID,
		string(sale.ItemType),
		sale.ItemTitle,
		sale.BuyerID,
		sale.ArtistID,
		sale.Amount,
		sale.Currency,
		sale.ApplicationFeeAmount,
		sale.ArtistPayout,
		sale.Status,
		sale.CreatedAt,
		sale.CompletedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindSale(ctx context.Context, db *gorm.DB, paymentIntentID string) (*domain.Sale, error) {
	var sale domain.Sale
	err := db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID).Take(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repo) FindState(ctx context.Context, db *gorm.DB, paymentIntentID string) (*domain.PaymentState, error) {
	var state domain.PaymentState
	err := db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID).Take(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *repo) TransitionState(ctx context.Context, db *gorm.DB, paymentIntentID string, to domain.PaymentStatus, eventID string, at time.Time) (bool, error) {
	allowed := domain.AllowedFrom(to)
	if len(allowed) == 0 {
		return false, nil
	}
	from := make([]string, 0, len(allowed))
	for _, status := range allowed {
		from = append(from, string(status))
	}

	res := db.WithContext(ctx).Exec(
		`INSERT INTO payment_states (payment_intent_id, status, last_event_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (payment_intent_id) DO UPDATE
		SET status = excluded.status, last_event_id = excluded.last_event_id, updated_at = excluded.updated_at
		WHERE payment_states.status IN ?`,
		paymentIntentID,
		string(to),
		eventID,
		at,
		at,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertFailedPayment(ctx context.Context, db *gorm.DB, item *domain.FailedPayment) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO failed_payments (
			id, payment_intent_id, provider_event_id, buyer_id, item_id, item_type,
			amount, currency, error_code, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider_event_id) DO NOTHING`,
		item.ID,
		item.PaymentIntentID,
		item.ProviderEventID,
		item.BuyerID,
		item.ItemID,
		item.ItemType,
		item.Amount,
		item.Currency,
		item.ErrorCode,
		item.ErrorMessage,
		item.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertTransfer(ctx context.Context, db *gorm.DB, item *domain.Transfer) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO transfers (
			id, provider_transfer_id, provider_event_id, destination, source_transaction,
			amount, currency, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider_event_id) DO NOTHING`,
		item.ID,
		item.ProviderTransferID,
		item.ProviderEventID,
		item.Destination,
		item.SourceTransaction,
		item.Amount,
		item.Currency,
		item.Status,
		item.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertDispute(ctx context.Context, db *gorm.DB, item *domain.Dispute) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO disputes (
			id, provider_dispute_id, provider_event_id, charge_id, payment_intent_id,
			amount, currency, reason, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider_event_id) DO NOTHING`,
		item.ID,
		item.ProviderDisputeID,
		item.ProviderEventID,
		item.ChargeID,
		item.PaymentIntentID,
		item.Amount,
		item.Currency,
		item.Reason,
		item.Status,
		item.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertSettlementError(ctx context.Context, db *gorm.DB, item *domain.SettlementError) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO settlement_errors (
			id, provider_event_id, event_type, payment_intent_id, reason, message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.ProviderEventID,
		item.EventType,
		item.PaymentIntentID,
		item.Reason,
		item.Message,
		item.CreatedAt,
	).Error
}
