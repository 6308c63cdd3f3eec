package models

import "math"

// Snapshot - нормализованное состояние рынка для пары (биржа, символ)
// в один момент времени. Собирается адаптером биржи из WebSocket потоков
// и после прохождения IsValid() публикуется в очередь движка.
//
// Единицы измерения:
//   - FundingRate: доля за фандинговый интервал (0.0001 = 1 bps)
//   - NextFundingTS: epoch МИЛЛИСЕКУНДЫ (фиксируется на границе адаптера,
//     все три биржи отдают миллисекунды нативно)
//   - ObservedAt: wall-clock секунды создания снапшота адаптером
//
// Снапшот неизменяем после публикации: адаптер всегда публикует копию
// своего staging-состояния, движок никогда не мутирует поля.
type Snapshot struct {
	Venue  string `json:"venue"`
	Symbol string `json:"symbol"`

	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`

	MarkPrice  float64 `json:"mark_price"`
	IndexPrice float64 `json:"index_price"`

	FundingRate   float64 `json:"funding_rate"`
	NextFundingTS int64   `json:"next_funding_ts"`

	// Скользящие объёмы за 24 часа
	BaseVolume  float64 `json:"base_volume"`
	QuoteVolume float64 `json:"quote_volume"`

	ObservedAt float64 `json:"observed_at"`
}

// IsValid проверяет снапшот перед обновлением таблицы движка.
//
// Правила:
//   - venue и symbol непустые
//   - все числовые поля конечны (не NaN/Inf); адаптеры инициализируют
//     staging-записи NaN'ами, поэтому NaN означает "поле ещё не пришло"
//   - цены строго положительные, ask >= bid
//   - NextFundingTS > 0, ObservedAt > 0
//   - объёмы неотрицательные (ноль допустим, его отсеет фильтр ликвидности)
//   - FundingRate == 0 допустим: нулевая ставка - легитимное состояние рынка
func (s *Snapshot) IsValid() bool {
	if s.Venue == "" || s.Symbol == "" {
		return false
	}

	for _, v := range []float64{
		s.Bid, s.Ask, s.MarkPrice, s.IndexPrice,
		s.FundingRate, s.BaseVolume, s.QuoteVolume, s.ObservedAt,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	if s.Bid <= 0 || s.Ask <= 0 {
		return false
	}
	if s.Ask < s.Bid {
		return false
	}
	if s.MarkPrice <= 0 || s.IndexPrice <= 0 {
		return false
	}
	if s.NextFundingTS <= 0 {
		return false
	}
	if s.BaseVolume < 0 || s.QuoteVolume < 0 {
		return false
	}
	if s.ObservedAt <= 0 {
		return false
	}

	return true
}

// TableKey - составной ключ таблицы снапшотов (symbol, venue).
// Struct key вместо конкатенации строк: Go оптимизирует такие ключи в map
// без аллокаций.
type TableKey struct {
	Symbol string
	Venue  string
}

// Key возвращает ключ снапшота для таблицы и конфлирующей очереди
func (s *Snapshot) Key() TableKey {
	return TableKey{Symbol: s.Symbol, Venue: s.Venue}
}
