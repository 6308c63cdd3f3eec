package utils

import (
	"math"
)

// math.go - математические утилиты для оценки funding-арбитража
//
// Назначение:
// Вспомогательные функции для скоринг-конвейера.
// Все функции являются чистыми (pure functions) без побочных эффектов.
//
// Функции:
// - Clamp: ограничение значения в диапазоне
// - RoundTo: округление до N знаков после запятой
// - SpreadBps: спред входа между bid шорта и ask лонга
// - MarkDivergenceBps: расхождение марк-цен двух бирж

// Clamp ограничивает значение диапазоном [lo, hi].
//
// Параметры:
//   - v: исходное значение
//   - lo: нижняя граница
//   - hi: верхняя граница
//
// Примеры:
//   - Clamp(5.0, 0, 100) = 5.0
//   - Clamp(-3.0, 0, 100) = 0.0
//   - Clamp(150.0, 0, 100) = 100.0
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RoundTo округляет значение до places знаков после запятой.
//
// Стандартное математическое округление (half away from zero).
//
// Примеры:
//   - RoundTo(12.725, 1) = 12.7
//   - RoundTo(14.055, 2) = 14.06
func RoundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// SpreadBps расчитывает спред входа в базисных пунктах.
//
// Формула:
//
//	spread_bps = (bidShort - askLong) / askLong * 10_000
//
// Положительное значение означает "продать дорого, купить дёшево" -
// мгновенная прибыль на цене при входе.
//
// Возвращает 0 если askLong <= 0.
func SpreadBps(bidShort, askLong float64) float64 {
	if askLong <= 0 {
		return 0
	}
	return (bidShort - askLong) / askLong * 10_000
}

// MarkDivergenceBps расчитывает расхождение марк-цен двух бирж
// относительно их среднего, в базисных пунктах.
//
// Формула:
//
//	|markL - markS| / avg(markL, markS) * 10_000
//
// Большое расхождение - индикатор шумных или остановленных данных.
// Возвращает 0 если среднее неположительное.
func MarkDivergenceBps(markL, markS float64) float64 {
	avg := (markL + markS) / 2
	if avg <= 0 {
		return 0
	}
	return math.Abs(markL-markS) / avg * 10_000
}
