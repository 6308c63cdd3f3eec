package scanner

import (
	"context"

	"go.uber.org/zap"

	"fundarb/internal/models"
)

// SignalStore - журнал торговых сигналов. Реализуется репозиторием
// поверх PostgreSQL; nil-store означает только логирование.
type SignalStore interface {
	Create(ctx context.Context, sig *models.TradeSignal) error
}

// SignalRecorder дренирует очередь сигналов: каждый сигнал логируется
// и, при подключённом журнале, записывается в БД.
//
// Ошибка записи не останавливает дренаж: потерянный журнальный рекорд
// дешевле заблокированной очереди сигналов.
type SignalRecorder struct {
	signals <-chan *models.TradeSignal
	store   SignalStore
	log     *zap.Logger
}

// NewSignalRecorder создаёт рекордер. store может быть nil.
func NewSignalRecorder(signals <-chan *models.TradeSignal, store SignalStore, log *zap.Logger) *SignalRecorder {
	return &SignalRecorder{
		signals: signals,
		store:   store,
		log:     log,
	}
}

// Run дренирует очередь до отмены контекста
func (r *SignalRecorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-r.signals:
			r.record(ctx, sig)
		}
	}
}

func (r *SignalRecorder) record(ctx context.Context, sig *models.TradeSignal) {
	r.log.Info("trade signal",
		zap.String("symbol", sig.Symbol),
		zap.String("long", sig.LongVenue),
		zap.String("short", sig.ShortVenue),
		zap.Float64("entry_long", sig.EntryPriceLong),
		zap.Float64("entry_short", sig.EntryPriceShort),
		zap.Float64("target_spread_bps", sig.TargetSpread),
		zap.Float64("funding_yield_bps", sig.FundingYieldBps),
		zap.Float64("score", sig.Score))

	if r.store == nil {
		return
	}

	if err := r.store.Create(ctx, sig); err != nil {
		r.log.Error("failed to journal signal",
			zap.String("symbol", sig.Symbol),
			zap.Error(err))
	}
}
