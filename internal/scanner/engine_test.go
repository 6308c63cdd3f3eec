package scanner

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"fundarb/internal/models"
)

func newTestEngine(signals chan *models.TradeSignal) *Engine {
	cfg := EngineConfig{
		SignalScoreThreshold: 10.0,
		Cooldown:             600 * time.Second,
		Workers:              1,
	}
	e := NewEngine(cfg, NewSnapshotQueue(), NewScorer(DefaultScorerConfig()),
		NewOpportunityTable(), signals, zap.NewNop())
	e.now = func() float64 { return testNowSec }
	return e
}

func futureOpp(symbol string, score float64) models.Opportunity {
	return models.Opportunity{
		Symbol:         symbol,
		LongVenue:      "binance",
		ShortVenue:     "bybit",
		GrossYieldBps:  10.0,
		EntrySpreadBps: 20.0,
		NetProfitBps:   16.1,
		FinalScore:     score,
		EarliestTS:     int64(testNowSec*1000) + 45*60*1000,
		AskLong:        100.0,
		BidShort:       100.2,
	}
}

// Невалидный снапшот не попадает ни в рыночную таблицу, ни в скоринг
func TestEngineIngestRejectsInvalid(t *testing.T) {
	e := newTestEngine(nil)

	bad := testSnap("binance", 0.0001)
	bad.Ask = 0
	e.ingest(&bad)

	if len(e.market) != 0 {
		t.Errorf("market has %d symbols after invalid snapshot, want 0", len(e.market))
	}
}

// Скоринг-задание ставится только когда символ виден минимум с двух бирж
func TestEngineIngestDispatch(t *testing.T) {
	e := newTestEngine(nil)

	first := testSnap("binance", 0.0001)
	e.ingest(&first)

	select {
	case job := <-e.shards[0]:
		t.Fatalf("job dispatched with a single venue: %+v", job)
	default:
	}

	second := testSnap("bybit", 0.0005)
	e.ingest(&second)

	select {
	case job := <-e.shards[0]:
		if job.symbol != "BTCUSDT" {
			t.Errorf("job.symbol = %s, want BTCUSDT", job.symbol)
		}
		if len(job.snaps) != 2 {
			t.Errorf("job carries %d snapshots, want 2", len(job.snaps))
		}
		if job.nowSec != testNowSec {
			t.Errorf("job.nowSec = %v, want the injected clock", job.nowSec)
		}
	default:
		t.Fatal("no job dispatched with two venues")
	}
}

func TestEngineApplyPassEmitsSignal(t *testing.T) {
	signals := make(chan *models.TradeSignal, 4)
	e := newTestEngine(signals)

	opp := futureOpp("BTCUSDT", 12.9)
	e.applyPass(scoreResult{symbol: "BTCUSDT", opps: []models.Opportunity{opp}})

	if e.table.Len() != 1 {
		t.Errorf("table.Len() = %d, want 1", e.table.Len())
	}

	select {
	case sig := <-signals:
		if sig.Symbol != "BTCUSDT" || sig.LongVenue != "binance" || sig.ShortVenue != "bybit" {
			t.Errorf("wrong signal identity: %+v", sig)
		}
		if sig.EntryPriceLong != 100.0 || sig.EntryPriceShort != 100.2 {
			t.Errorf("entry prices = %v/%v, want 100.0/100.2", sig.EntryPriceLong, sig.EntryPriceShort)
		}
		if sig.Score != 12.9 || sig.FundingYieldBps != 10.0 {
			t.Errorf("score=%v yield=%v, want 12.9/10.0", sig.Score, sig.FundingYieldBps)
		}
		if sig.Timestamp != testNowSec {
			t.Errorf("Timestamp = %v, want the injected clock", sig.Timestamp)
		}
	default:
		t.Fatal("no signal emitted for a score above the threshold")
	}
}

// Счёт ниже порога обновляет таблицу, но сигнала не рождает
func TestEngineApplyPassBelowThreshold(t *testing.T) {
	signals := make(chan *models.TradeSignal, 4)
	e := newTestEngine(signals)

	e.applyPass(scoreResult{symbol: "BTCUSDT", opps: []models.Opportunity{futureOpp("BTCUSDT", 9.9)}})

	if e.table.Len() != 1 {
		t.Errorf("table.Len() = %d, want 1", e.table.Len())
	}
	select {
	case sig := <-signals:
		t.Fatalf("unexpected signal below threshold: %+v", sig)
	default:
	}
}

// Повторный сигнал по символу внутри окна подавляется; после окна -
// эмитируется снова
func TestEngineSignalCooldown(t *testing.T) {
	signals := make(chan *models.TradeSignal, 4)
	e := newTestEngine(signals)

	clock := testNowSec
	e.now = func() float64 { return clock }

	pass := func() {
		e.applyPass(scoreResult{symbol: "BTCUSDT", opps: []models.Opportunity{futureOpp("BTCUSDT", 12.9)}})
	}

	pass()
	if len(signals) != 1 {
		t.Fatalf("got %d signals after first pass, want 1", len(signals))
	}

	clock += 599
	pass()
	if len(signals) != 1 {
		t.Fatalf("got %d signals inside the cooldown window, want 1", len(signals))
	}

	clock += 2 // 601 секунда после первого сигнала
	pass()
	if len(signals) != 2 {
		t.Fatalf("got %d signals after the window elapsed, want 2", len(signals))
	}
}

// Cooldown действует по символу: другой символ эмитирует независимо
func TestEngineSignalCooldownPerSymbol(t *testing.T) {
	signals := make(chan *models.TradeSignal, 4)
	e := newTestEngine(signals)

	e.applyPass(scoreResult{symbol: "BTCUSDT", opps: []models.Opportunity{futureOpp("BTCUSDT", 12.9)}})
	e.applyPass(scoreResult{symbol: "ETHUSDT", opps: []models.Opportunity{futureOpp("ETHUSDT", 15.0)}})

	if len(signals) != 2 {
		t.Fatalf("got %d signals for two symbols, want 2", len(signals))
	}
}

// Без очереди сигналов движок продолжает скоринг, не паникуя
func TestEngineNilSignalQueue(t *testing.T) {
	e := newTestEngine(nil)

	e.applyPass(scoreResult{symbol: "BTCUSDT", opps: []models.Opportunity{futureOpp("BTCUSDT", 12.9)}})

	if e.table.Len() != 1 {
		t.Errorf("table.Len() = %d, want 1", e.table.Len())
	}
}

// Полный буфер сигналов не блокирует проход и не трогает cooldown
func TestEngineSignalBufferFull(t *testing.T) {
	signals := make(chan *models.TradeSignal) // без буфера, потребителя нет
	e := newTestEngine(signals)

	e.applyPass(scoreResult{symbol: "BTCUSDT", opps: []models.Opportunity{futureOpp("BTCUSDT", 12.9)}})

	if _, ok := e.cooldowns["BTCUSDT"]; ok {
		t.Error("cooldown was armed for a dropped signal")
	}
}

// Ошибка скоринга сохраняет предыдущее состояние символа в таблице
func TestEngineApplyPassErrorPreservesTable(t *testing.T) {
	e := newTestEngine(nil)

	e.applyPass(scoreResult{symbol: "BTCUSDT", opps: []models.Opportunity{futureOpp("BTCUSDT", 12.9)}})
	if e.table.Len() != 1 {
		t.Fatalf("table.Len() = %d after seeding, want 1", e.table.Len())
	}

	e.applyPass(scoreResult{symbol: "BTCUSDT", err: context.DeadlineExceeded})

	if e.table.Len() != 1 {
		t.Errorf("table.Len() = %d after failed pass, want the preserved 1", e.table.Len())
	}
}

// Сквозной прогон: снапшоты двух бирж через очередь доезжают до таблицы
func TestEngineRunEndToEnd(t *testing.T) {
	signals := make(chan *models.TradeSignal, 4)
	e := newTestEngine(signals)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	long := testSnap("binance", -0.0005)
	short := testSnap("bybit", 0.0005)
	short.Bid = 100.2
	short.Ask = 100.22
	short.QuoteVolume = 20_000_000

	e.queue.Publish(&long)
	e.queue.Publish(&short)

	deadline := time.After(2 * time.Second)
	for e.table.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("no opportunity reached the table")
		case <-time.After(5 * time.Millisecond):
		}
	}

	key := models.PairKey{Symbol: "BTCUSDT", LongVenue: "binance", ShortVenue: "bybit"}
	opp, ok := e.table.Get(key)
	if !ok {
		t.Fatalf("expected %v in the table", key)
	}
	if opp.FinalScore != 12.9 {
		t.Errorf("FinalScore = %v, want 12.9", opp.FinalScore)
	}

	select {
	case sig := <-signals:
		if sig.Symbol != "BTCUSDT" {
			t.Errorf("signal symbol = %s, want BTCUSDT", sig.Symbol)
		}
	case <-time.After(time.Second):
		t.Fatal("no signal emitted")
	}
}
