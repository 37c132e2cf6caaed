package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/somagouache/gouache/internal/ledger/domain"
	obsmetrics "github.com/somagouache/gouache/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) CreateEntry(ctx context.Context, entry ledgerdomain.Entry) (bool, error) {
	var inserted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inserted, err = s.PostEntryTx(ctx, tx, entry)
		return err
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func (s *Service) PostEntryTx(ctx context.Context, tx *gorm.DB, entry ledgerdomain.Entry) (bool, error) {
	normalized, err := s.normalize(entry)
	if err != nil {
		return false, err
	}

	entryID := s.genID.Generate()
	now := time.Now().UTC()
	result := tx.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (
			id, source_type, source_id, currency, occurred_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_type, source_id) DO NOTHING`,
		entryID,
		string(normalized.SourceType),
		normalized.SourceID,
		normalized.Currency,
		normalized.OccurredAt.UTC(),
		now,
	)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		s.log.Debug("ledger entry already posted",
			zap.String("source_type", string(normalized.SourceType)),
			zap.String("source_id", normalized.SourceID),
		)
		return false, nil
	}

	for _, line := range normalized.Lines {
		accountID := line.AccountID
		if accountID == 0 {
			accountID, err = s.ensureAccount(ctx, tx, line.AccountCode)
			if err != nil {
				return false, err
			}
		}
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO ledger_entry_lines (
				id, ledger_entry_id, account_id, direction, currency, amount, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.genID.Generate(),
			entryID,
			accountID,
			string(line.Direction),
			line.Currency,
			line.Amount,
			now,
		).Error; err != nil {
			return false, err
		}
	}

	s.obsMetrics.RecordLedgerEntry(ctx, string(normalized.SourceType))
	return true, nil
}

func (s *Service) SaleEntry(paymentIntentID, currency string, amount, fee int64, occurredAt time.Time) ledgerdomain.Entry {
	return ledgerdomain.Entry{
		SourceType: ledgerdomain.SourceTypeSale,
		SourceID:   paymentIntentID,
		Currency:   currency,
		OccurredAt: occurredAt,
		Lines: []ledgerdomain.LedgerEntryLine{
			{AccountCode: ledgerdomain.AccountCodeCash, Direction: ledgerdomain.LedgerEntryDirectionDebit, Currency: currency, Amount: amount},
			{AccountCode: ledgerdomain.AccountCodeSellerPayable, Direction: ledgerdomain.LedgerEntryDirectionCredit, Currency: currency, Amount: amount - fee},
			{AccountCode: ledgerdomain.AccountCodeCommissionRevenue, Direction: ledgerdomain.LedgerEntryDirectionCredit, Currency: currency, Amount: fee},
		},
	}
}

func (s *Service) normalize(entry ledgerdomain.Entry) (ledgerdomain.Entry, error) {
	sourceType := ledgerdomain.LedgerSourceType(strings.TrimSpace(string(entry.SourceType)))
	if sourceType == "" {
		return entry, ledgerdomain.ErrInvalidSourceType
	}
	sourceID := strings.TrimSpace(entry.SourceID)
	if sourceID == "" {
		return entry, ledgerdomain.ErrInvalidSourceID
	}
	currency := strings.ToLower(strings.TrimSpace(entry.Currency))
	if currency == "" {
		return entry, ledgerdomain.ErrInvalidCurrency
	}
	if entry.OccurredAt.IsZero() {
		return entry, ledgerdomain.ErrInvalidOccurredAt
	}
	if len(entry.Lines) < 2 {
		return entry, ledgerdomain.ErrInvalidEntryLines
	}

	lines := make([]ledgerdomain.LedgerEntryLine, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		if line.AccountID == 0 && strings.TrimSpace(string(line.AccountCode)) == "" {
			return entry, ledgerdomain.ErrInvalidAccount
		}
		direction, err := normalizeDirection(line.Direction)
		if err != nil {
			return entry, err
		}
		if line.Amount < 0 {
			return entry, ledgerdomain.ErrInvalidLineAmount
		}
		lineCurrency := strings.ToLower(strings.TrimSpace(line.Currency))
		if lineCurrency == "" {
			lineCurrency = currency
		}
		lines = append(lines, ledgerdomain.LedgerEntryLine{
			AccountID:   line.AccountID,
			AccountCode: line.AccountCode,
			Direction:   direction,
			Currency:    lineCurrency,
			Amount:      line.Amount,
		})
	}

	if err := ledgerdomain.ValidateBalanced(lines); err != nil {
		return entry, err
	}

	return ledgerdomain.Entry{
		SourceType: sourceType,
		SourceID:   sourceID,
		Currency:   currency,
		OccurredAt: entry.OccurredAt,
		Lines:      lines,
	}, nil
}

func (s *Service) ensureAccount(ctx context.Context, tx *gorm.DB, code ledgerdomain.LedgerAccountCode) (snowflake.ID, error) {
	if err := tx.WithContext(ctx).Exec(
		`INSERT INTO ledger_accounts (id, code, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING`,
		s.genID.Generate(),
		string(code),
		ledgerdomain.AccountName(code),
		time.Now().UTC(),
	).Error; err != nil {
		return 0, err
	}

	var account ledgerdomain.LedgerAccount
	if err := tx.WithContext(ctx).Raw(
		`SELECT id, code, name, created_at FROM ledger_accounts WHERE code = ?`,
		string(code),
	).Scan(&account).Error; err != nil {
		return 0, err
	}
	if account.ID == 0 {
		return 0, ledgerdomain.ErrInvalidAccount
	}
	return account.ID, nil
}

func normalizeDirection(direction ledgerdomain.LedgerEntryDirection) (ledgerdomain.LedgerEntryDirection, error) {
	normalized := strings.ToLower(strings.TrimSpace(string(direction)))
	switch normalized {
	case string(ledgerdomain.LedgerEntryDirectionDebit):
		return ledgerdomain.LedgerEntryDirectionDebit, nil
	case string(ledgerdomain.LedgerEntryDirectionCredit):
		return ledgerdomain.LedgerEntryDirectionCredit, nil
	default:
		return "", ledgerdomain.ErrInvalidLineDirection
	}
}
