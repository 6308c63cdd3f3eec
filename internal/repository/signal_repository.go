package repository

import (
	"context"
	"database/sql"
	"time"

	"fundarb/internal/models"
	"fundarb/pkg/utils"
)

// SignalRepository - работа с таблицей trade_signals
//
// Назначение: журнал эмитированных торговых сигналов для оффлайн-анализа
// качества скоринга (сигнал против фактически реализованного фандинга)
type SignalRepository struct {
	db *sql.DB
}

// NewSignalRepository создает новый экземпляр репозитория
func NewSignalRepository(db *sql.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Create записывает сигнал в журнал
func (r *SignalRepository) Create(ctx context.Context, sig *models.TradeSignal) error {
	query := `
		INSERT INTO trade_signals (
			symbol, long_venue, short_venue,
			entry_price_long, entry_price_short,
			target_spread_bps, funding_yield_bps, score, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	createdAt := time.UnixMilli(utils.SecondsToMs(sig.Timestamp)).UTC()

	var id int64
	return r.db.QueryRowContext(ctx, query,
		sig.Symbol,
		sig.LongVenue,
		sig.ShortVenue,
		sig.EntryPriceLong,
		sig.EntryPriceShort,
		sig.TargetSpread,
		sig.FundingYieldBps,
		sig.Score,
		createdAt,
	).Scan(&id)
}

// GetRecent возвращает последние limit сигналов, новые первыми
func (r *SignalRepository) GetRecent(ctx context.Context, limit int) ([]models.TradeSignal, error) {
	query := `
		SELECT symbol, long_venue, short_venue,
		       entry_price_long, entry_price_short,
		       target_spread_bps, funding_yield_bps, score, created_at
		FROM trade_signals
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []models.TradeSignal
	for rows.Next() {
		var sig models.TradeSignal
		var createdAt time.Time

		err := rows.Scan(
			&sig.Symbol,
			&sig.LongVenue,
			&sig.ShortVenue,
			&sig.EntryPriceLong,
			&sig.EntryPriceShort,
			&sig.TargetSpread,
			&sig.FundingYieldBps,
			&sig.Score,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}

		sig.Timestamp = utils.MsToSeconds(createdAt.UnixMilli())
		signals = append(signals, sig)
	}

	return signals, rows.Err()
}

// DeleteOlderThan удаляет сигналы старше заданного возраста.
// Возвращает число удаленных записей.
func (r *SignalRepository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	query := `DELETE FROM trade_signals WHERE created_at < $1`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC().Add(-age))
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
