package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fundarb/internal/models"
	"fundarb/pkg/retry"
	"fundarb/pkg/utils"
)

const (
	bybitBaseURL = "https://api.bybit.com"
	bybitWSURL   = "wss://stream.bybit.com/v5/public/linear"

	// Лимит аргументов в одном subscribe-запросе
	bybitSubscribeBatch = 10
)

// Bybit - адаптер линейных перпетуалов Bybit v5.
//
// Единый публичный поток tickers.{symbol} несёт все нужные поля. После
// первого полного снапшота биржа шлёт дельты: в кадре присутствуют
// только изменившиеся поля, остальные приходят пустыми строками.
// Запись символа поэтому обновляется только пришедшими полями.
type Bybit struct {
	opts    Options
	log     *zap.Logger
	rest    *RESTClient
	baseURL string

	symbols []string
	staged  map[string]*models.Snapshot

	sink SnapshotSink
}

// NewBybit создаёт адаптер Bybit
func NewBybit(opts Options, log *zap.Logger) *Bybit {
	return &Bybit{
		opts:    opts,
		log:     log,
		rest:    NewRESTClient(DefaultRESTClientConfig()),
		baseURL: bybitBaseURL,
		staged:  make(map[string]*models.Snapshot),
	}
}

func (b *Bybit) Name() string {
	return "bybit"
}

// LoadMarkets загружает торгуемые USDT-перпетуалы через instruments-info
// с обходом курсорной пагинации
func (b *Bybit) LoadMarkets(ctx context.Context) ([]Market, error) {
	markets, err := retry.DoWithResult(ctx, func() ([]Market, error) {
		var out []Market
		cursor := ""

		for {
			reqURL := b.baseURL + "/v5/market/instruments-info?category=linear&limit=1000"
			if cursor != "" {
				reqURL += "&cursor=" + url.QueryEscape(cursor)
			}

			var resp struct {
				RetCode int    `json:"retCode"`
				RetMsg  string `json:"retMsg"`
				Result  struct {
					List []struct {
						Symbol       string `json:"symbol"`
						ContractType string `json:"contractType"`
						Status       string `json:"status"`
						QuoteCoin    string `json:"quoteCoin"`
					} `json:"list"`
					NextPageCursor string `json:"nextPageCursor"`
				} `json:"result"`
			}
			if err := b.rest.GetJSON(ctx, reqURL, &resp); err != nil {
				return nil, &VenueError{Venue: "bybit", Message: "instruments-info failed", Original: err}
			}
			if resp.RetCode != 0 {
				return nil, &VenueError{Venue: "bybit", Code: fmt.Sprint(resp.RetCode), Message: resp.RetMsg}
			}

			for _, s := range resp.Result.List {
				if s.Status != "Trading" || s.ContractType != "LinearPerpetual" || s.QuoteCoin != "USDT" {
					continue
				}
				out = append(out, Market{Symbol: s.Symbol})
			}

			cursor = resp.Result.NextPageCursor
			if cursor == "" {
				break
			}
		}

		if len(out) == 0 {
			return nil, &VenueError{Venue: "bybit", Message: "no tradable linear perpetuals"}
		}
		return out, nil
	}, retry.NetworkConfig())
	if err != nil {
		return nil, err
	}

	b.symbols = b.symbols[:0]
	for _, m := range markets {
		b.symbols = append(b.symbols, m.Symbol)
	}

	b.log.Info("markets loaded", zap.String("venue", "bybit"), zap.Int("count", len(markets)))
	return markets, nil
}

// Stream подключается к публичному потоку и публикует снапшоты
// до отмены контекста
func (b *Bybit) Stream(ctx context.Context, sink SnapshotSink) error {
	if len(b.symbols) == 0 {
		return &VenueError{Venue: "bybit", Message: "markets not loaded"}
	}
	b.sink = sink

	runStream(ctx, streamConfig{
		venue:            "bybit",
		url:              bybitWSURL,
		connectTimeout:   b.opts.ConnectTimeout,
		pingInterval:     b.opts.PingInterval,
		reconnectBackoff: b.opts.ReconnectBackoff,
		onConnect:        b.subscribe,
		ping: func(conn *websocket.Conn) error {
			return conn.WriteJSON(map[string]string{"op": "ping"})
		},
		onMessage: b.handleFrame,
	}, b.log)

	return nil
}

// subscribe отправляет подписки на tickers батчами
func (b *Bybit) subscribe(conn *websocket.Conn) error {
	for start := 0; start < len(b.symbols); start += bybitSubscribeBatch {
		end := start + bybitSubscribeBatch
		if end > len(b.symbols) {
			end = len(b.symbols)
		}

		args := make([]string, 0, end-start)
		for _, sym := range b.symbols[start:end] {
			args = append(args, "tickers."+sym)
		}

		msg := map[string]interface{}{"op": "subscribe", "args": args}
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
	}
	return nil
}

// handleFrame разбирает кадр потока: служебные ответы пропускаются,
// снапшоты и дельты тикеров сливаются в собираемую запись
func (b *Bybit) handleFrame(frame []byte) {
	var msg struct {
		Topic string `json:"topic"`
		Data  struct {
			Symbol      string `json:"symbol"`
			Bid         string `json:"bid1Price"`
			Ask         string `json:"ask1Price"`
			MarkPrice   string `json:"markPrice"`
			IndexPrice  string `json:"indexPrice"`
			FundingRate string `json:"fundingRate"`
			NextFunding string `json:"nextFundingTime"`
			BaseVolume  string `json:"volume24h"`
			QuoteVolume string `json:"turnover24h"`
		} `json:"data"`
	}
	if err := json.Unmarshal(frame, &msg); err != nil {
		ParseErrors.WithLabelValues("bybit").Inc()
		return
	}
	if !strings.HasPrefix(msg.Topic, "tickers.") || msg.Data.Symbol == "" {
		return
	}

	s, ok := b.staged[msg.Data.Symbol]
	if !ok {
		s = newStagedSnapshot("bybit", msg.Data.Symbol)
		b.staged[msg.Data.Symbol] = s
	}

	// Дельта несёт только изменившиеся поля
	if msg.Data.Bid != "" {
		s.Bid = parseFloat(msg.Data.Bid)
	}
	if msg.Data.Ask != "" {
		s.Ask = parseFloat(msg.Data.Ask)
	}
	if msg.Data.MarkPrice != "" {
		s.MarkPrice = parseFloat(msg.Data.MarkPrice)
	}
	if msg.Data.IndexPrice != "" {
		s.IndexPrice = parseFloat(msg.Data.IndexPrice)
	}
	if msg.Data.FundingRate != "" {
		s.FundingRate = parseFloat(msg.Data.FundingRate)
	}
	if msg.Data.NextFunding != "" {
		s.NextFundingTS = parseMs(msg.Data.NextFunding)
	}
	if msg.Data.BaseVolume != "" {
		s.BaseVolume = parseFloat(msg.Data.BaseVolume)
	}
	if msg.Data.QuoteVolume != "" {
		s.QuoteVolume = parseFloat(msg.Data.QuoteVolume)
	}

	if publishIfComplete(b.sink, s, utils.NowUnix()) {
		SnapshotsPublished.WithLabelValues("bybit").Inc()
	}
}
