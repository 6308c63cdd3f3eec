package models

// PairKey - идентичность возможности: (символ, лонг-биржа, шорт-биржа).
// Используется как ключ таблицы возможностей; строковая форма нужна только
// для сериализации (дашборд, API, журнал).
type PairKey struct {
	Symbol     string
	LongVenue  string
	ShortVenue string
}

// String возвращает каноническую строковую форму "{symbol}_{long}_{short}"
func (k PairKey) String() string {
	return k.Symbol + "_" + k.LongVenue + "_" + k.ShortVenue
}

// Opportunity - оценённая кросс-биржевая возможность funding-арбитража.
//
// Производное значение: полностью пересчитывается скорером на каждом проходе
// и никогда не мутируется на месте. Все bps-поля округлены до 2 знаков,
// FinalScore до 1 знака, LiquidityScore до 2, TimeToFundingMin до 1.
type Opportunity struct {
	Symbol     string `json:"symbol"`
	LongVenue  string `json:"long_venue"`
	ShortVenue string `json:"short_venue"`

	GrossYieldBps     float64 `json:"gross_yield_bps"`
	FeesBps           float64 `json:"fees_bps"`
	EntrySpreadBps    float64 `json:"entry_spread_bps"`
	NetProfitBps      float64 `json:"net_profit_bps"`
	LiquidityScore    float64 `json:"liquidity_score"`
	MarkDivergenceBps float64 `json:"mark_divergence_bps"`

	// Минуты до ближайшего фандинга и его метка (epoch ms)
	TimeToFundingMin float64 `json:"time_to_funding_min"`
	EarliestTS       int64   `json:"earliest_ts"`

	FinalScore float64 `json:"final_score"`

	// Цены входа на момент оценки
	AskLong  float64 `json:"ask_long"`
	BidShort float64 `json:"bid_short"`
}

// Key возвращает идентичность возможности
func (o *Opportunity) Key() PairKey {
	return PairKey{Symbol: o.Symbol, LongVenue: o.LongVenue, ShortVenue: o.ShortVenue}
}
