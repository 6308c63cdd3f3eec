package exchange

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fundarb/internal/models"
	"fundarb/pkg/retry"
	"fundarb/pkg/utils"
)

const (
	bitgetBaseURL = "https://api.bitget.com"
	bitgetWSURL   = "wss://ws.bitget.com/v2/ws/public"
)

// Bitget - адаптер USDT-FUTURES Bitget v2.
//
// Биржа ограничивает число подписок на соединение, поэтому символы
// режутся на чанки: каждый чанк живёт на изолированном соединении со
// своим циклом переподключения. Старт чанков растянут во времени, чтобы
// не упереться в лимит рукопожатий. Падение одного чанка не трогает
// остальные.
type Bitget struct {
	opts    Options
	log     *zap.Logger
	rest    *RESTClient
	baseURL string

	symbols []string
	sink    SnapshotSink
}

// NewBitget создаёт адаптер Bitget
func NewBitget(opts Options, log *zap.Logger) *Bitget {
	return &Bitget{
		opts:    opts,
		log:     log,
		rest:    NewRESTClient(DefaultRESTClientConfig()),
		baseURL: bitgetBaseURL,
	}
}

func (b *Bitget) Name() string {
	return "bitget"
}

// LoadMarkets загружает торгуемые USDT-перпетуалы через contracts
func (b *Bitget) LoadMarkets(ctx context.Context) ([]Market, error) {
	markets, err := retry.DoWithResult(ctx, func() ([]Market, error) {
		var resp struct {
			Code string `json:"code"`
			Msg  string `json:"msg"`
			Data []struct {
				Symbol       string `json:"symbol"`
				QuoteCoin    string `json:"quoteCoin"`
				SymbolStatus string `json:"symbolStatus"`
			} `json:"data"`
		}
		reqURL := b.baseURL + "/api/v2/mix/market/contracts?productType=usdt-futures"
		if err := b.rest.GetJSON(ctx, reqURL, &resp); err != nil {
			return nil, &VenueError{Venue: "bitget", Message: "contracts failed", Original: err}
		}
		if resp.Code != "00000" {
			return nil, &VenueError{Venue: "bitget", Code: resp.Code, Message: resp.Msg}
		}

		var out []Market
		for _, s := range resp.Data {
			if s.SymbolStatus != "normal" || s.QuoteCoin != "USDT" {
				continue
			}
			out = append(out, Market{Symbol: s.Symbol})
		}
		if len(out) == 0 {
			return nil, &VenueError{Venue: "bitget", Message: "no tradable linear perpetuals"}
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

	b.log.Info("markets loaded", zap.String("venue", "bitget"), zap.Int("count", len(markets)))
	return markets, nil
}

// Stream запускает по изолированному соединению на чанк символов
// и блокируется до отмены контекста
func (b *Bitget) Stream(ctx context.Context, sink SnapshotSink) error {
	if len(b.symbols) == 0 {
		return &VenueError{Venue: "bitget", Message: "markets not loaded"}
	}
	b.sink = sink

	chunkSize := b.opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 50
	}

	var wg sync.WaitGroup
	index := 0
	for start := 0; start < len(b.symbols); start += chunkSize {
		end := start + chunkSize
		if end > len(b.symbols) {
			end = len(b.symbols)
		}

		chunk := b.symbols[start:end]
		delay := time.Duration(index) * b.opts.ChunkStagger
		index++

		wg.Add(1)
		go func() {
			defer wg.Done()
			b.runChunk(ctx, chunk, delay)
		}()
	}

	wg.Wait()
	return nil
}

// runChunk держит соединение одного чанка: отложенный старт, собственная
// собираемая таблица, собственный цикл переподключения
func (b *Bitget) runChunk(ctx context.Context, chunk []string, delay time.Duration) {
	if delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	// Записи чанка принадлежат горутине чтения его соединения
	staged := make(map[string]*models.Snapshot, len(chunk))

	runStream(ctx, streamConfig{
		venue:            "bitget",
		url:              bitgetWSURL,
		connectTimeout:   b.opts.ConnectTimeout,
		pingInterval:     b.opts.PingInterval,
		reconnectBackoff: b.opts.ReconnectBackoff,
		onConnect: func(conn *websocket.Conn) error {
			return subscribeBitgetTickers(conn, chunk)
		},
		ping: func(conn *websocket.Conn) error {
			return conn.WriteMessage(websocket.TextMessage, []byte("ping"))
		},
		onMessage: func(frame []byte) {
			b.handleFrame(staged, frame)
		},
	}, b.log)
}

func subscribeBitgetTickers(conn *websocket.Conn, symbols []string) error {
	type arg struct {
		InstType string `json:"instType"`
		Channel  string `json:"channel"`
		InstID   string `json:"instId"`
	}

	args := make([]arg, 0, len(symbols))
	for _, sym := range symbols {
		args = append(args, arg{InstType: "USDT-FUTURES", Channel: "ticker", InstID: sym})
	}

	return conn.WriteJSON(map[string]interface{}{"op": "subscribe", "args": args})
}

// handleFrame разбирает кадр тикера одного чанка
func (b *Bitget) handleFrame(staged map[string]*models.Snapshot, frame []byte) {
	// Ответ на прикладной ping приходит голым текстом
	if bytes.Equal(frame, []byte("pong")) {
		return
	}

	var msg struct {
		Action string `json:"action"`
		Arg    struct {
			Channel string `json:"channel"`
		} `json:"arg"`
		Data []struct {
			InstID      string `json:"instId"`
			Bid         string `json:"bidPr"`
			Ask         string `json:"askPr"`
			MarkPrice   string `json:"markPrice"`
			IndexPrice  string `json:"indexPrice"`
			FundingRate string `json:"fundingRate"`
			NextFunding string `json:"nextFundingTime"`
			BaseVolume  string `json:"baseVolume"`
			QuoteVolume string `json:"quoteVolume"`
		} `json:"data"`
	}
	if err := json.Unmarshal(frame, &msg); err != nil {
		ParseErrors.WithLabelValues("bitget").Inc()
		return
	}
	if msg.Arg.Channel != "ticker" {
		return
	}

	for _, ev := range msg.Data {
		if ev.InstID == "" {
			continue
		}

		s, ok := staged[ev.InstID]
		if !ok {
			s = newStagedSnapshot("bitget", ev.InstID)
			staged[ev.InstID] = s
		}

		s.Bid = parseFloat(ev.Bid)
		s.Ask = parseFloat(ev.Ask)
		s.MarkPrice = parseFloat(ev.MarkPrice)
		s.IndexPrice = parseFloat(ev.IndexPrice)
		s.FundingRate = parseFloat(ev.FundingRate)
		s.NextFundingTS = parseMs(ev.NextFunding)
		s.BaseVolume = parseFloat(ev.BaseVolume)
		s.QuoteVolume = parseFloat(ev.QuoteVolume)

		if publishIfComplete(b.sink, s, utils.NowUnix()) {
			SnapshotsPublished.WithLabelValues("bitget").Inc()
		}
	}
}
