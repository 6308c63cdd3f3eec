package models

// TradeSignal - исходящее сообщение для исполнителя (executor).
//
// Публикуется движком в очередь сигналов, когда возможность пересекает
// порог SIGNAL_SCORE_THRESHOLD и символ не на cooldown'е. Потребитель
// обязан считать поля неизменяемыми.
type TradeSignal struct {
	Symbol     string `json:"symbol"`
	LongVenue  string `json:"long_venue"`
	ShortVenue string `json:"short_venue"`

	// Цены входа: лонг по ask длинной биржи, шорт по bid короткой
	EntryPriceLong  float64 `json:"entry_price_long"`
	EntryPriceShort float64 `json:"entry_price_short"`

	// Целевой спред = entry_spread_bps возможности на момент сигнала
	TargetSpread float64 `json:"target_spread"`

	FundingYieldBps float64 `json:"funding_yield_bps"`
	Score           float64 `json:"score"`

	// Wall-clock секунды эмиссии сигнала
	Timestamp float64 `json:"timestamp"`
}
