package exchange

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"fundarb/internal/models"
	"fundarb/pkg/retry"
	"fundarb/pkg/utils"
)

const (
	binanceBaseURL = "https://fapi.binance.com"
	binanceWSURL   = "wss://fstream.binance.com/stream"
)

// Binance - адаптер USDT-M фьючерсов Binance.
//
// Один комбинированный WebSocket несёт три all-market потока:
//   - !bookTicker          - лучшие bid/ask по каждому символу
//   - !ticker@arr          - 24h объёмы
//   - !markPrice@arr@1s    - mark/index цены, фандинг, метка фандинга
//
// Потоки приходят вразнобой, поэтому запись символа собирается по частям:
// поля стартуют как NaN и публикуются только когда все три потока
// доставили своё.
type Binance struct {
	opts    Options
	log     *zap.Logger
	rest    *RESTClient
	baseURL string

	// Символы из LoadMarkets; заполняется до Stream
	allowed map[string]struct{}

	// Собираемые записи; принадлежит горутине чтения потока
	staged map[string]*models.Snapshot

	sink SnapshotSink
}

// NewBinance создаёт адаптер Binance
func NewBinance(opts Options, log *zap.Logger) *Binance {
	return &Binance{
		opts:    opts,
		log:     log,
		rest:    NewRESTClient(DefaultRESTClientConfig()),
		baseURL: binanceBaseURL,
		allowed: make(map[string]struct{}),
		staged:  make(map[string]*models.Snapshot),
	}
}

func (b *Binance) Name() string {
	return "binance"
}

// LoadMarkets загружает торгуемые USDT-перпетуалы через exchangeInfo
func (b *Binance) LoadMarkets(ctx context.Context) ([]Market, error) {
	type symbolInfo struct {
		Symbol       string `json:"symbol"`
		Status       string `json:"status"`
		ContractType string `json:"contractType"`
		QuoteAsset   string `json:"quoteAsset"`
	}

	markets, err := retry.DoWithResult(ctx, func() ([]Market, error) {
		var resp struct {
			Symbols []symbolInfo `json:"symbols"`
		}
		if err := b.rest.GetJSON(ctx, b.baseURL+"/fapi/v1/exchangeInfo", &resp); err != nil {
			return nil, &VenueError{Venue: "binance", Message: "exchangeInfo failed", Original: err}
		}

		var out []Market
		for _, s := range resp.Symbols {
			if s.Status != "TRADING" || s.ContractType != "PERPETUAL" || s.QuoteAsset != "USDT" {
				continue
			}
			out = append(out, Market{Symbol: s.Symbol})
		}
		if len(out) == 0 {
			return nil, &VenueError{Venue: "binance", Message: "no tradable linear perpetuals"}
		}
		return out, nil
	}, retry.NetworkConfig())
	if err != nil {
		return nil, err
	}

	for _, m := range markets {
		b.allowed[m.Symbol] = struct{}{}
	}

	b.log.Info("markets loaded", zap.String("venue", "binance"), zap.Int("count", len(markets)))
	return markets, nil
}

// Stream подключается к комбинированному потоку и публикует снапшоты
// до отмены контекста
func (b *Binance) Stream(ctx context.Context, sink SnapshotSink) error {
	if len(b.allowed) == 0 {
		return &VenueError{Venue: "binance", Message: "markets not loaded"}
	}
	b.sink = sink

	url := fmt.Sprintf("%s?streams=%s", binanceWSURL,
		"!bookTicker/!ticker@arr/!markPrice@arr@1s")

	runStream(ctx, streamConfig{
		venue:            "binance",
		url:              url,
		connectTimeout:   b.opts.ConnectTimeout,
		pingInterval:     b.opts.PingInterval,
		reconnectBackoff: b.opts.ReconnectBackoff,
		onMessage:        b.handleFrame,
	}, b.log)

	return nil
}

// handleFrame разбирает кадр комбинированного потока
func (b *Binance) handleFrame(frame []byte) {
	var env struct {
		Stream string              `json:"stream"`
		Data   jsoniter.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(frame, &env); err != nil || env.Stream == "" {
		ParseErrors.WithLabelValues("binance").Inc()
		return
	}

	switch {
	case env.Stream == "!bookTicker":
		b.handleBook(env.Data)
	case strings.HasPrefix(env.Stream, "!ticker"):
		b.handleTickers(env.Data)
	case strings.HasPrefix(env.Stream, "!markPrice"):
		b.handleMarks(env.Data)
	}
}

func (b *Binance) handleBook(data []byte) {
	var ev struct {
		Symbol string `json:"s"`
		Bid    string `json:"b"`
		Ask    string `json:"a"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		ParseErrors.WithLabelValues("binance").Inc()
		return
	}

	s := b.record(ev.Symbol)
	if s == nil {
		return
	}
	s.Bid = parseFloat(ev.Bid)
	s.Ask = parseFloat(ev.Ask)
	b.publish(s)
}

func (b *Binance) handleTickers(data []byte) {
	var evs []struct {
		Symbol      string `json:"s"`
		BaseVolume  string `json:"v"`
		QuoteVolume string `json:"q"`
	}
	if err := json.Unmarshal(data, &evs); err != nil {
		ParseErrors.WithLabelValues("binance").Inc()
		return
	}

	for _, ev := range evs {
		s := b.record(ev.Symbol)
		if s == nil {
			continue
		}
		s.BaseVolume = parseFloat(ev.BaseVolume)
		s.QuoteVolume = parseFloat(ev.QuoteVolume)
		b.publish(s)
	}
}

func (b *Binance) handleMarks(data []byte) {
	var evs []struct {
		Symbol      string `json:"s"`
		MarkPrice   string `json:"p"`
		IndexPrice  string `json:"i"`
		FundingRate string `json:"r"`
		NextFunding int64  `json:"T"`
	}
	if err := json.Unmarshal(data, &evs); err != nil {
		ParseErrors.WithLabelValues("binance").Inc()
		return
	}

	for _, ev := range evs {
		s := b.record(ev.Symbol)
		if s == nil {
			continue
		}
		s.MarkPrice = parseFloat(ev.MarkPrice)
		s.IndexPrice = parseFloat(ev.IndexPrice)
		s.FundingRate = parseFloat(ev.FundingRate)
		s.NextFundingTS = ev.NextFunding
		b.publish(s)
	}
}

// record возвращает собираемую запись символа, создавая её при первом
// появлении. Символы вне списка рынков игнорируются.
func (b *Binance) record(symbol string) *models.Snapshot {
	if _, ok := b.allowed[symbol]; !ok {
		return nil
	}
	s, ok := b.staged[symbol]
	if !ok {
		s = newStagedSnapshot("binance", symbol)
		b.staged[symbol] = s
	}
	return s
}

func (b *Binance) publish(s *models.Snapshot) {
	if publishIfComplete(b.sink, s, utils.NowUnix()) {
		SnapshotsPublished.WithLabelValues("binance").Inc()
	}
}
