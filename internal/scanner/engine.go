package scanner

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"fundarb/internal/models"
	"fundarb/pkg/utils"
)

// ============ Inline FNV-1a hash без аллокаций ============
// Константы FNV-1a для 32-битного хэша
const (
	fnvOffset32 = uint32(2166136261)
	fnvPrime32  = uint32(16777619)
)

// fnvHash вычисляет FNV-1a hash строки БЕЗ аллокаций.
// В отличие от fnv.New32a() не создаёт объект на куче.
func fnvHash(s string) uint32 {
	h := fnvOffset32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime32
	}
	return h
}

// EngineConfig - параметры движка
type EngineConfig struct {
	// Минимальный счёт для эмиссии торгового сигнала
	SignalScoreThreshold float64
	// Окно подавления повторных сигналов по символу
	Cooldown time.Duration
	// Количество скоринг-воркеров (0 = по числу CPU, максимум 16)
	Workers int
}

// scoreJob - задание на скоринг одного символа
type scoreJob struct {
	symbol string
	snaps  []models.Snapshot
	nowSec float64
}

// scoreResult - результат скоринг-прохода
type scoreResult struct {
	symbol string
	opps   []models.Opportunity
	err    error
}

// Engine - координатор между приёмом снапшотов, скорингом, таблицей
// возможностей и эмиссией сигналов.
//
// Архитектура:
//   - Цикл Run - единственный писатель таблицы снапшотов и таблицы
//     возможностей: табличных локов на пути приёма нет
//   - Скоринг (CPU-тяжёлый) уходит воркерам, шардированным по
//     fnvHash(symbol): проходы одного символа сохраняют порядок,
//     цикл приёма никогда не блокируется на скоринге
//   - Занятый шард означает пропуск задания: следующий снапшот символа
//     всё равно перезапустит скоринг на свежих данных
//
// Поток данных:
// SnapshotQueue → ingest → shard[hash(symbol)] → worker → applyPass
type Engine struct {
	cfg    EngineConfig
	log    *zap.Logger
	scorer *Scorer
	queue  *SnapshotQueue
	table  *OpportunityTable

	// Исходящая очередь сигналов; nil = эмиссия отключена
	signals chan<- *models.TradeSignal

	// symbol → venue → последний валидный снапшот.
	// Принадлежит горутине Run, лока нет.
	market map[string]map[string]models.Snapshot

	// symbol → wall-clock секунды последнего сигнала
	cooldowns map[string]float64

	shards  []chan scoreJob
	results chan scoreResult

	// Источник wall-clock времени; подменяется в тестах
	now func() float64
}

// NewEngine создаёт движок. signals может быть nil - тогда сигналы
// подавляются, скоринг и таблица продолжают работать.
func NewEngine(cfg EngineConfig, queue *SnapshotQueue, scorer *Scorer, table *OpportunityTable, signals chan<- *models.TradeSignal, log *zap.Logger) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > 16 {
		workers = 16
	}

	e := &Engine{
		cfg:       cfg,
		log:       log,
		scorer:    scorer,
		queue:     queue,
		table:     table,
		signals:   signals,
		market:    make(map[string]map[string]models.Snapshot),
		cooldowns: make(map[string]float64),
		shards:    make([]chan scoreJob, workers),
		results:   make(chan scoreResult, workers*4),
		now:       utils.NowUnix,
	}

	for i := range e.shards {
		e.shards[i] = make(chan scoreJob, 64)
	}

	return e
}

// Run запускает воркеры и главный цикл движка. Блокируется до отмены
// контекста. Ошибки ниже движка никогда не завершают Run.
func (e *Engine) Run(ctx context.Context) {
	e.log.Info("engine started",
		zap.Int("workers", len(e.shards)),
		zap.Float64("signal_threshold", e.cfg.SignalScoreThreshold))

	for _, shard := range e.shards {
		go e.scoreWorker(ctx, shard)
	}

	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopped")
			return

		case res := <-e.results:
			e.applyPass(res)

		case <-e.queue.Ready():
			for {
				snap, ok := e.queue.TryPop()
				if !ok {
					break
				}
				e.ingest(snap)
			}
			// Развёртка по фандингу в хвосте каждого цикла приёма
			e.table.SweepExpired(utils.SecondsToMs(e.now()))
		}
	}
}

// ingest обрабатывает один снапшот: валидация, обновление таблицы,
// постановка скоринг-задания
func (e *Engine) ingest(snap *models.Snapshot) {
	if !snap.IsValid() {
		SnapshotsInvalid.WithLabelValues(snap.Venue).Inc()
		return
	}

	SnapshotsIngested.WithLabelValues(snap.Venue).Inc()

	venues, ok := e.market[snap.Symbol]
	if !ok {
		venues = make(map[string]models.Snapshot)
		e.market[snap.Symbol] = venues
	}
	venues[snap.Venue] = *snap

	if len(venues) < 2 {
		return
	}

	snaps := make([]models.Snapshot, 0, len(venues))
	for _, s := range venues {
		snaps = append(snaps, s)
	}

	job := scoreJob{symbol: snap.Symbol, snaps: snaps, nowSec: e.now()}
	shard := e.shards[fnvHash(snap.Symbol)%uint32(len(e.shards))]

	select {
	case shard <- job:
	default:
		// Шард насыщен: пропускаем, следующий снапшот символа
		// перезапустит скоринг на более свежих данных
		ScoreJobsDropped.Inc()
	}
}

// scoreWorker выполняет скоринг-задания одного шарда
func (e *Engine) scoreWorker(ctx context.Context, shard <-chan scoreJob) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-shard:
			opps, err := e.safeScore(job)
			select {
			case e.results <- scoreResult{symbol: job.symbol, opps: opps, err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// safeScore вызывает скорер, превращая панику в ошибку
func (e *Engine) safeScore(job scoreJob) (opps []models.Opportunity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scorer panic: %v", r)
		}
	}()

	start := time.Now()
	opps = e.scorer.Score(job.snaps, job.nowSec)
	ScoringDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)

	return opps, nil
}

// applyPass применяет результат скоринг-прохода: мутации таблицы,
// глобальная развёртка по фандингу, эмиссия сигналов
func (e *Engine) applyPass(res scoreResult) {
	if res.err != nil {
		// Состояние символа в таблице сохраняется до следующего
		// успешного прохода
		ScoringPasses.WithLabelValues("error").Inc()
		e.log.Error("scoring failed", zap.String("symbol", res.symbol), zap.Error(res.err))
		return
	}

	e.table.ApplyPass(res.symbol, res.opps)

	if len(res.opps) == 0 {
		ScoringPasses.WithLabelValues("empty").Inc()
	} else {
		ScoringPasses.WithLabelValues("hit").Inc()
	}

	e.table.SweepExpired(utils.SecondsToMs(e.now()))

	for i := range res.opps {
		e.maybeEmitSignal(&res.opps[i])
	}
}

// maybeEmitSignal эмитирует сигнал если возможность пересекает порог
// и символ не на cooldown'е
func (e *Engine) maybeEmitSignal(opp *models.Opportunity) {
	if opp.FinalScore < e.cfg.SignalScoreThreshold {
		return
	}

	if e.signals == nil {
		SignalsSuppressed.WithLabelValues("no_queue").Inc()
		return
	}

	now := e.now()

	if last, ok := e.cooldowns[opp.Symbol]; ok && now-last < e.cfg.Cooldown.Seconds() {
		SignalsSuppressed.WithLabelValues("cooldown").Inc()
		return
	}

	sig := &models.TradeSignal{
		Symbol:          opp.Symbol,
		LongVenue:       opp.LongVenue,
		ShortVenue:      opp.ShortVenue,
		EntryPriceLong:  opp.AskLong,
		EntryPriceShort: opp.BidShort,
		TargetSpread:    opp.EntrySpreadBps,
		FundingYieldBps: opp.GrossYieldBps,
		Score:           opp.FinalScore,
		Timestamp:       now,
	}

	if !tryEnqueueSignal(e.signals, sig) {
		// Cooldown не обновляем: сигнал не дошёл до потребителя
		return
	}

	e.cooldowns[opp.Symbol] = now

	e.log.Info("signal emitted",
		zap.String("symbol", sig.Symbol),
		zap.String("long", sig.LongVenue),
		zap.String("short", sig.ShortVenue),
		zap.Float64("score", sig.Score),
		zap.Float64("yield_bps", sig.FundingYieldBps))
}
