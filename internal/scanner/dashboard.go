package scanner

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Dashboard периодически печатает верх таблицы возможностей в терминал.
//
// Формат строки фиксированный, колонки выровнены по ширинам
// 12/12/6/8/8/4/6. Пустая таблица не печатает ничего - терминал
// остаётся чистым между появлениями возможностей.
type Dashboard struct {
	table    *OpportunityTable
	interval time.Duration
	topN     int
	out      io.Writer
}

// NewDashboard создаёт рендерер поверх таблицы возможностей
func NewDashboard(table *OpportunityTable, interval time.Duration, topN int, out io.Writer) *Dashboard {
	return &Dashboard{
		table:    table,
		interval: interval,
		topN:     topN,
		out:      out,
	}
}

// Run печатает дашборд раз в interval до отмены контекста
func (d *Dashboard) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if rendered := d.Render(); rendered != "" {
				fmt.Fprint(d.out, rendered)
			}
		}
	}
}

// Render возвращает текстовое представление верха таблицы.
// Пустая таблица рендерится в пустую строку.
func (d *Dashboard) Render() string {
	opps := d.table.SnapshotSorted()
	if len(opps) == 0 {
		return ""
	}

	total := len(opps)
	if len(opps) > d.topN {
		opps = opps[:d.topN]
	}

	var b strings.Builder
	sep := strings.Repeat("-", 75)

	fmt.Fprintf(&b, "\n--- LIVE DELTA NEUTRAL OPPORTUNITIES (Top %d of %d) ---\n", len(opps), total)
	fmt.Fprintf(&b, "%-12s %-12s %-6s %-8s %-8s %-4s %-6s\n",
		"SYM", "PAIR", "SCORE", "NET BPS", "SPREAD", "LIQ", "TIME")
	b.WriteString(sep + "\n")

	for i := range opps {
		opp := &opps[i]
		pair := venueTag(opp.LongVenue) + "/" + venueTag(opp.ShortVenue)
		fmt.Fprintf(&b, "%-12s %-12s %-6.1f %-8.2f %-+8.1f %-4.2f %-6s\n",
			opp.Symbol,
			pair,
			opp.FinalScore,
			opp.NetProfitBps,
			opp.EntrySpreadBps,
			opp.LiquidityScore,
			fmt.Sprintf("%.1fm", opp.TimeToFundingMin))
	}

	b.WriteString(sep + "\n")

	return b.String()
}

// venueTag сокращает имя биржи до трёхбуквенного тэга колонки PAIR
func venueTag(venue string) string {
	if len(venue) > 3 {
		venue = venue[:3]
	}
	return strings.ToUpper(venue)
}
