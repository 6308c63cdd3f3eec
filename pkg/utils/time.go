package utils

import (
	"time"
)

// time.go - утилиты для работы со временем
//
// Назначение:
// Единая точка конвертации временных единиц. Метки фандинга фиксируются
// в epoch-миллисекундах на границе адаптера; wall-clock внутри движка
// и скорера - секунды. Эти функции исключают путаницу sec/ms.

// NowUnix возвращает текущее wall-clock время в секундах (с дробной частью)
func NowUnix() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// NowUnixMs возвращает текущее время в epoch-миллисекундах
func NowUnixMs() int64 {
	return time.Now().UnixMilli()
}

// SecondsToMs переводит wall-clock секунды в epoch-миллисекунды
func SecondsToMs(sec float64) int64 {
	return int64(sec * 1000)
}

// MsToSeconds переводит epoch-миллисекунды в секунды (с дробной частью)
func MsToSeconds(ms int64) float64 {
	return float64(ms) / 1000
}

// MinutesUntilMs возвращает количество минут от nowSec (секунды)
// до tsMs (epoch-миллисекунды). Отрицательное значение - момент в прошлом.
func MinutesUntilMs(tsMs int64, nowSec float64) float64 {
	return (MsToSeconds(tsMs) - nowSec) / 60
}
