package scanner

import (
	"math"
	"sort"

	"fundarb/internal/models"
	"fundarb/pkg/utils"
)

// ScorerConfig - пороги и таблицы комиссий скоринг-конвейера.
// Инжектируется при создании, чтобы тесты могли варьировать параметры.
type ScorerConfig struct {
	// Минимальный 24h quote-объём снапшота (USD)
	MinVolumeUSD float64
	// Минимальная чистая прибыль кандидата (bps, строго больше)
	MinProfitBps float64
	// Минимальный итоговый счёт
	MinScoreThreshold float64
	// Отсечка аномальных спредов входа (bps, включительно)
	MaxValidSpreadBps float64
	// Максимальный возраст снапшота в секундах (0 = без ограничения)
	MaxSnapshotAgeS float64

	// Комиссии в долях с обязательным ключом "default"
	MakerFees map[string]float64
	TakerFees map[string]float64
}

// DefaultScorerConfig возвращает продакшен-дефолты
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		MinVolumeUSD:      1_000_000,
		MinProfitBps:      2.0,
		MinScoreThreshold: 5.0,
		MaxValidSpreadBps: 200.0,
		MaxSnapshotAgeS:   600,
		MakerFees: map[string]float64{
			"binance": 0.00018,
			"bybit":   0.00020,
			"bitget":  0.00020,
			"default": 0.00020,
		},
		TakerFees: map[string]float64{
			"binance": 0.00046,
			"bybit":   0.00055,
			"bitget":  0.00060,
			"default": 0.00060,
		},
	}
}

// Вес штрафа за расхождение марк-цен в итоговом счёте
const markDivergencePenalty = 0.25

// Scorer превращает набор снапшотов одного символа в ранжированный список
// кросс-биржевых возможностей.
//
// Score - тотальная чистая функция своих аргументов и статических таблиц
// конфигурации: wall-clock передаётся явно, ранжирование не зависит от
// порядка обхода map (сортировка явная, с детерминированным tie-break'ом).
type Scorer struct {
	cfg ScorerConfig
}

// NewScorer создаёт скорер с заданной конфигурацией
func NewScorer(cfg ScorerConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

func (sc *Scorer) makerFor(venue string) float64 {
	if fee, ok := sc.cfg.MakerFees[venue]; ok {
		return fee
	}
	return sc.cfg.MakerFees["default"]
}

func (sc *Scorer) takerFor(venue string) float64 {
	if fee, ok := sc.cfg.TakerFees[venue]; ok {
		return fee
	}
	return sc.cfg.TakerFees["default"]
}

// Score оценивает все упорядоченные пары (лонг, шорт) по снапшотам одного
// символа. nowSec - wall-clock секунды; метки фандинга в снапшотах - epoch ms.
//
// Конвейер:
//  1. Жёсткие фильтры: фандинг в будущем, объём выше порога, снапшот свежий
//  2. Обе ориентации каждой пары бирж (лонг/шорт фиксируются порядком)
//  3. Эффективный фандинг: платит/получает только нога с ближайшей границей
//  4. gross_yield = (eff_fr_short - eff_fr_long) * 10_000
//  5. Комиссии: maker вход + taker выход на обеих ногах
//  6. Спред входа (bid шорта против ask лонга), отсечка аномалий
//  7. net = gross + spread - fees, фильтр минимальной прибыли
//  8. Ликвидность: clamp((log10(min_vol) - 5) / 2.5, 0.1, 1.2)
//  9. Счёт: clamp((net - 0.25 * mark_divergence) * liquidity, 0, 100)
//
// Сложность O(n^2) по числу бирж символа (n <= 5).
func (sc *Scorer) Score(snaps []models.Snapshot, nowSec float64) []models.Opportunity {
	if len(snaps) < 2 {
		return nil
	}

	nowMs := utils.SecondsToMs(nowSec)

	live := make([]models.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if s.NextFundingTS <= nowMs {
			continue
		}
		if s.QuoteVolume <= sc.cfg.MinVolumeUSD {
			continue
		}
		if sc.cfg.MaxSnapshotAgeS > 0 && s.ObservedAt <= nowSec-sc.cfg.MaxSnapshotAgeS {
			continue
		}
		live = append(live, s)
	}

	if len(live) < 2 {
		return nil
	}

	var out []models.Opportunity
	for i := range live {
		for j := range live {
			if i == j || live[i].Venue == live[j].Venue {
				continue
			}
			if opp, ok := sc.scorePair(&live[i], &live[j], nowSec); ok {
				out = append(out, opp)
			}
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].FinalScore != out[b].FinalScore {
			return out[a].FinalScore > out[b].FinalScore
		}
		return out[a].Key().String() < out[b].Key().String()
	})

	return out
}

// scorePair оценивает одну ориентированную пару: лонг на long, шорт на short
func (sc *Scorer) scorePair(long, short *models.Snapshot, nowSec float64) (models.Opportunity, bool) {
	// Эффективный фандинг: на ближайшей границе платит/получает только
	// нога, чья граница наступает первой; вторая нога в этот момент
	// не кредитуется
	earliest := long.NextFundingTS
	if short.NextFundingTS < earliest {
		earliest = short.NextFundingTS
	}

	var effLong, effShort float64
	if long.NextFundingTS == earliest {
		effLong = long.FundingRate
	}
	if short.NextFundingTS == earliest {
		effShort = short.FundingRate
	}

	// Шорт платит лонгу фандинг: шорт на бирже с положительной ставкой -
	// это доход
	grossYieldBps := (effShort - effLong) * 10_000

	feesBps := (sc.makerFor(long.Venue) + sc.makerFor(short.Venue) +
		sc.takerFor(long.Venue) + sc.takerFor(short.Venue)) * 10_000

	entrySpreadBps := utils.SpreadBps(short.Bid, long.Ask)

	// Спреды выше отсечки почти всегда означают аномалию данных
	// (остановленный рынок, приостановка ввода/вывода)
	if entrySpreadBps >= sc.cfg.MaxValidSpreadBps {
		return models.Opportunity{}, false
	}

	markDivBps := utils.MarkDivergenceBps(long.MarkPrice, short.MarkPrice)

	netProfitBps := grossYieldBps + entrySpreadBps - feesBps
	if netProfitBps <= sc.cfg.MinProfitBps {
		return models.Opportunity{}, false
	}

	minVol := long.QuoteVolume
	if short.QuoteVolume < minVol {
		minVol = short.QuoteVolume
	}
	liquidity := utils.Clamp((math.Log10(minVol)-5.0)/2.5, 0.1, 1.2)

	raw := (netProfitBps - markDivergencePenalty*markDivBps) * liquidity
	finalScore := utils.Clamp(raw, 0, 100)
	if finalScore < sc.cfg.MinScoreThreshold {
		return models.Opportunity{}, false
	}

	return models.Opportunity{
		Symbol:            long.Symbol,
		LongVenue:         long.Venue,
		ShortVenue:        short.Venue,
		GrossYieldBps:     utils.RoundTo(grossYieldBps, 2),
		FeesBps:           utils.RoundTo(feesBps, 2),
		EntrySpreadBps:    utils.RoundTo(entrySpreadBps, 2),
		NetProfitBps:      utils.RoundTo(netProfitBps, 2),
		LiquidityScore:    utils.RoundTo(liquidity, 2),
		MarkDivergenceBps: utils.RoundTo(markDivBps, 2),
		TimeToFundingMin:  utils.RoundTo(utils.MinutesUntilMs(earliest, nowSec), 1),
		EarliestTS:        earliest,
		FinalScore:        utils.RoundTo(finalScore, 1),
		AskLong:           long.Ask,
		BidShort:          short.Bid,
	}, true
}
