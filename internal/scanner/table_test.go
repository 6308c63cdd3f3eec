package scanner

import (
	"testing"

	"fundarb/internal/models"
)

func testOpp(symbol, long, short string, score float64, earliestTS int64) models.Opportunity {
	return models.Opportunity{
		Symbol:       symbol,
		LongVenue:    long,
		ShortVenue:   short,
		FinalScore:   score,
		NetProfitBps: score,
		EarliestTS:   earliestTS,
	}
}

func TestTableApplyPassUpsert(t *testing.T) {
	tbl := NewOpportunityTable()

	tbl.ApplyPass("BTCUSDT", []models.Opportunity{
		testOpp("BTCUSDT", "binance", "bybit", 12.0, 1000),
	})

	key := models.PairKey{Symbol: "BTCUSDT", LongVenue: "binance", ShortVenue: "bybit"}
	opp, ok := tbl.Get(key)
	if !ok {
		t.Fatal("opportunity not found after ApplyPass")
	}
	if opp.FinalScore != 12.0 {
		t.Errorf("FinalScore = %v, want 12.0", opp.FinalScore)
	}

	// Повторный проход того же символа замещает запись целиком
	tbl.ApplyPass("BTCUSDT", []models.Opportunity{
		testOpp("BTCUSDT", "binance", "bybit", 20.0, 2000),
	})

	opp, ok = tbl.Get(key)
	if !ok {
		t.Fatal("opportunity lost after second pass")
	}
	if opp.FinalScore != 20.0 || opp.EarliestTS != 2000 {
		t.Errorf("got score=%v ts=%d, want the replaced record 20.0/2000", opp.FinalScore, opp.EarliestTS)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

// Пары символа, не вернувшиеся из прохода, удаляются; чужие символы
// прохода не видят
func TestTableApplyPassRemovesStale(t *testing.T) {
	tbl := NewOpportunityTable()

	tbl.ApplyPass("BTCUSDT", []models.Opportunity{
		testOpp("BTCUSDT", "binance", "bybit", 12.0, 1000),
		testOpp("BTCUSDT", "bybit", "binance", 8.0, 1000),
	})
	tbl.ApplyPass("ETHUSDT", []models.Opportunity{
		testOpp("ETHUSDT", "binance", "bitget", 9.0, 1000),
	})

	if tbl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tbl.Len())
	}

	// Новый проход BTCUSDT возвращает только одну ориентацию
	tbl.ApplyPass("BTCUSDT", []models.Opportunity{
		testOpp("BTCUSDT", "binance", "bybit", 11.0, 1500),
	})

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d after partial pass, want 2", tbl.Len())
	}
	if _, ok := tbl.Get(models.PairKey{Symbol: "BTCUSDT", LongVenue: "bybit", ShortVenue: "binance"}); ok {
		t.Error("stale orientation survived the pass")
	}
	if _, ok := tbl.Get(models.PairKey{Symbol: "ETHUSDT", LongVenue: "binance", ShortVenue: "bitget"}); !ok {
		t.Error("unrelated symbol was touched by the pass")
	}
}

// Пустой проход очищает символ целиком
func TestTableApplyPassEmptyClearsSymbol(t *testing.T) {
	tbl := NewOpportunityTable()

	tbl.ApplyPass("BTCUSDT", []models.Opportunity{
		testOpp("BTCUSDT", "binance", "bybit", 12.0, 1000),
	})
	tbl.ApplyPass("BTCUSDT", nil)

	if tbl.Len() != 0 {
		t.Errorf("Len() = %d after empty pass, want 0", tbl.Len())
	}
}

func TestTableSweepExpired(t *testing.T) {
	tbl := NewOpportunityTable()

	tbl.ApplyPass("BTCUSDT", []models.Opportunity{
		testOpp("BTCUSDT", "binance", "bybit", 12.0, 1000),
	})
	tbl.ApplyPass("ETHUSDT", []models.Opportunity{
		testOpp("ETHUSDT", "binance", "bitget", 9.0, 5000),
	})

	// Граница первой пары наступила ровно сейчас - удаляется
	if removed := tbl.SweepExpired(1000); removed != 1 {
		t.Fatalf("SweepExpired removed %d, want 1", removed)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d after sweep, want 1", tbl.Len())
	}
	if _, ok := tbl.Get(models.PairKey{Symbol: "ETHUSDT", LongVenue: "binance", ShortVenue: "bitget"}); !ok {
		t.Error("future-boundary opportunity was swept")
	}

	if removed := tbl.SweepExpired(1000); removed != 0 {
		t.Errorf("second sweep removed %d, want 0", removed)
	}
}

func TestTableSnapshotSorted(t *testing.T) {
	tbl := NewOpportunityTable()

	tbl.ApplyPass("BTCUSDT", []models.Opportunity{
		testOpp("BTCUSDT", "binance", "bybit", 8.0, 1000),
	})
	tbl.ApplyPass("ETHUSDT", []models.Opportunity{
		testOpp("ETHUSDT", "bybit", "bitget", 15.0, 1000),
	})
	tbl.ApplyPass("SOLUSDT", []models.Opportunity{
		testOpp("SOLUSDT", "binance", "bitget", 11.5, 1000),
	})

	out := tbl.SnapshotSorted()
	if len(out) != 3 {
		t.Fatalf("got %d opportunities, want 3", len(out))
	}

	wantSymbols := []string{"ETHUSDT", "SOLUSDT", "BTCUSDT"}
	for i, want := range wantSymbols {
		if out[i].Symbol != want {
			t.Errorf("position %d: got %s, want %s", i, out[i].Symbol, want)
		}
	}
}

func TestTableSymbolKeys(t *testing.T) {
	tbl := NewOpportunityTable()

	tbl.ApplyPass("BTCUSDT", []models.Opportunity{
		testOpp("BTCUSDT", "binance", "bybit", 8.0, 1000),
		testOpp("BTCUSDT", "bybit", "binance", 6.0, 1000),
	})

	keys := tbl.SymbolKeys("BTCUSDT")
	if len(keys) != 2 {
		t.Errorf("got %d keys, want 2", len(keys))
	}
	if keys := tbl.SymbolKeys("ETHUSDT"); len(keys) != 0 {
		t.Errorf("got %d keys for an absent symbol, want 0", len(keys))
	}
}
