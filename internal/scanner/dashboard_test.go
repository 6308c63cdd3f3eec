package scanner

import (
	"context"
	"strings"
	"testing"
	"time"

	"fundarb/internal/models"
)

func TestDashboardRenderEmpty(t *testing.T) {
	tbl := NewOpportunityTable()
	d := NewDashboard(tbl, time.Second, 20, &strings.Builder{})

	if out := d.Render(); out != "" {
		t.Errorf("empty table rendered %q, want nothing", out)
	}
}

func TestDashboardRenderFormat(t *testing.T) {
	tbl := NewOpportunityTable()
	tbl.ApplyPass("BTCUSDT", []models.Opportunity{{
		Symbol:           "BTCUSDT",
		LongVenue:        "binance",
		ShortVenue:       "bybit",
		NetProfitBps:     16.1,
		EntrySpreadBps:   20.0,
		LiquidityScore:   0.8,
		TimeToFundingMin: 45.0,
		FinalScore:       12.9,
		EarliestTS:       1000,
	}})

	d := NewDashboard(tbl, time.Second, 20, &strings.Builder{})
	out := d.Render()

	if !strings.Contains(out, "--- LIVE DELTA NEUTRAL OPPORTUNITIES (Top 1 of 1) ---") {
		t.Errorf("missing banner in:\n%s", out)
	}
	if !strings.Contains(out, "SYM") || !strings.Contains(out, "NET BPS") {
		t.Errorf("missing column header in:\n%s", out)
	}
	if !strings.Contains(out, "BTCUSDT") {
		t.Errorf("missing symbol row in:\n%s", out)
	}
	if !strings.Contains(out, "BIN/BYB") {
		t.Errorf("missing venue pair tag in:\n%s", out)
	}
	if !strings.Contains(out, "+20.0") {
		t.Errorf("missing signed spread in:\n%s", out)
	}
	if !strings.Contains(out, "45.0m") {
		t.Errorf("missing time-to-funding in:\n%s", out)
	}
	if !strings.Contains(out, strings.Repeat("-", 75)) {
		t.Errorf("missing separator in:\n%s", out)
	}
}

// Отрицательный спред печатается со знаком минус
func TestDashboardRenderNegativeSpread(t *testing.T) {
	tbl := NewOpportunityTable()
	tbl.ApplyPass("ETHUSDT", []models.Opportunity{{
		Symbol:         "ETHUSDT",
		LongVenue:      "bitget",
		ShortVenue:     "binance",
		EntrySpreadBps: -3.5,
		FinalScore:     7.0,
		EarliestTS:     1000,
	}})

	d := NewDashboard(tbl, time.Second, 20, &strings.Builder{})
	out := d.Render()

	if !strings.Contains(out, "-3.5") {
		t.Errorf("missing negative spread in:\n%s", out)
	}
	if !strings.Contains(out, "BIT/BIN") {
		t.Errorf("missing venue pair tag in:\n%s", out)
	}
}

func TestDashboardRenderTopN(t *testing.T) {
	tbl := NewOpportunityTable()
	symbols := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	for i, sym := range symbols {
		tbl.ApplyPass(sym, []models.Opportunity{{
			Symbol:     sym,
			LongVenue:  "binance",
			ShortVenue: "bybit",
			FinalScore: float64(20 - i),
			EarliestTS: 1000,
		}})
	}

	d := NewDashboard(tbl, time.Second, 2, &strings.Builder{})
	out := d.Render()

	if !strings.Contains(out, "(Top 2 of 3)") {
		t.Errorf("missing truncation banner in:\n%s", out)
	}
	if !strings.Contains(out, "BTCUSDT") || !strings.Contains(out, "ETHUSDT") {
		t.Errorf("top scorers missing in:\n%s", out)
	}
	if strings.Contains(out, "SOLUSDT") {
		t.Errorf("truncated row leaked into:\n%s", out)
	}
}

func TestDashboardRunWritesToOutput(t *testing.T) {
	tbl := NewOpportunityTable()
	tbl.ApplyPass("BTCUSDT", []models.Opportunity{{
		Symbol:     "BTCUSDT",
		LongVenue:  "binance",
		ShortVenue: "bybit",
		FinalScore: 12.9,
		EarliestTS: 1000,
	}})

	var buf strings.Builder
	d := NewDashboard(tbl, 10*time.Millisecond, 20, &buf)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	d.Run(ctx)

	if !strings.Contains(buf.String(), "BTCUSDT") {
		t.Errorf("Run never rendered the table: %q", buf.String())
	}
}
