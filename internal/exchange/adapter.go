// Package exchange содержит адаптеры публичных рыночных данных бирж.
//
// Каждый адаптер нормализует нативный формат биржи (REST-метаданные +
// WebSocket-поток тикеров) в models.Snapshot и публикует снапшоты в
// SnapshotSink. Приватные эндпоинты (балансы, ордера) не используются -
// сканеру достаточно публичных данных.
package exchange

import (
	"context"
	"math"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"fundarb/internal/models"
)

// Быстрый drop-in для encoding/json на горячем пути декодирования
// WebSocket-кадров
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Adapter - унифицированный интерфейс адаптера биржи
type Adapter interface {
	// Name возвращает каноническое имя биржи
	Name() string

	// LoadMarkets загружает список торгуемых USDT-margined линейных
	// перпетуалов через REST
	LoadMarkets(ctx context.Context) ([]Market, error)

	// Stream подключается к WebSocket-потоку и публикует снапшоты
	// в sink до отмены контекста. Внутри живёт собственный цикл
	// переподключения; возврат до отмены контекста - фатальная ошибка.
	Stream(ctx context.Context, sink SnapshotSink) error
}

// SnapshotSink принимает нормализованные снапшоты.
// Реализуется конфлирующей очередью сканера.
type SnapshotSink interface {
	Publish(s *models.Snapshot)
}

// Market - метаданные одного торгуемого контракта
type Market struct {
	// Канонический символ вида BTCUSDT
	Symbol string
}

// Options - общие настройки адаптеров, приходят из конфигурации
type Options struct {
	ConnectTimeout   time.Duration
	PingInterval     time.Duration
	ReconnectBackoff time.Duration

	// Разбиение подписок на изолированные соединения (bitget)
	ChunkSize    int
	ChunkStagger time.Duration
}

// VenueError - ошибка, возвращённая биржей
type VenueError struct {
	Venue    string
	Code     string
	Message  string
	Original error
}

func (e *VenueError) Error() string {
	if e.Code != "" {
		return e.Venue + ": [" + e.Code + "] " + e.Message
	}
	return e.Venue + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для errors.Is() и errors.As()
func (e *VenueError) Unwrap() error {
	return e.Original
}

// newStagedSnapshot возвращает заготовку снапшота: числовые поля - NaN,
// то есть "ещё не приходили". Запись становится публикуемой только когда
// все потоки биржи доставили свои поля и IsValid() проходит.
func newStagedSnapshot(venue, symbol string) *models.Snapshot {
	return &models.Snapshot{
		Venue:       venue,
		Symbol:      symbol,
		Bid:         math.NaN(),
		Ask:         math.NaN(),
		MarkPrice:   math.NaN(),
		IndexPrice:  math.NaN(),
		FundingRate: math.NaN(),
		BaseVolume:  math.NaN(),
		QuoteVolume: math.NaN(),
	}
}

// publishIfComplete штампует время наблюдения и публикует копию снапшота,
// если запись полная и валидная. Копия изолирует потребителя от
// последующих мутаций staged-записи.
func publishIfComplete(sink SnapshotSink, s *models.Snapshot, nowSec float64) bool {
	s.ObservedAt = nowSec
	if !s.IsValid() {
		return false
	}
	cp := *s
	sink.Publish(&cp)
	return true
}

// parseFloat разбирает строковое число биржи; пустая строка или мусор
// дают NaN - поле остаётся "не пришедшим"
func parseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// parseMs разбирает миллисекундную метку времени; мусор даёт 0
func parseMs(s string) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
