package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// streamConfig описывает один WebSocket-поток с переподключением
type streamConfig struct {
	// Имя биржи для логов и метрик
	venue string

	// URL потока
	url string

	connectTimeout   time.Duration
	pingInterval     time.Duration
	reconnectBackoff time.Duration

	// onConnect вызывается после каждого (пере)подключения:
	// отправка подписок. Ошибка рвёт соединение и уходит в backoff.
	onConnect func(conn *websocket.Conn) error

	// ping отправляет прикладной ping; nil = ping уровня протокола
	ping func(conn *websocket.Conn) error

	// onMessage обрабатывает входящий кадр. Вызывается из единственной
	// горутины чтения потока.
	onMessage func(frame []byte)
}

// runStream держит поток живым до отмены контекста: подключение, чтение,
// плоский backoff между попытками. Ошибки соединения не фатальны и
// никогда не покидают цикл.
func runStream(ctx context.Context, cfg streamConfig, log *zap.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := streamOnce(ctx, cfg, log)
		if ctx.Err() != nil {
			return
		}

		WSReconnects.WithLabelValues(cfg.venue).Inc()
		log.Warn("stream disconnected",
			zap.String("venue", cfg.venue),
			zap.Duration("backoff", cfg.reconnectBackoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.reconnectBackoff):
		}
	}
}

// streamOnce выполняет один жизненный цикл соединения: dial, подписки,
// ping-горутина, цикл чтения до первой ошибки
func streamOnce(ctx context.Context, cfg streamConfig, log *zap.Logger) error {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: cfg.connectTimeout}
	conn, _, err := dialer.DialContext(dialCtx, cfg.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.url, err)
	}
	defer conn.Close()

	if cfg.onConnect != nil {
		if err := cfg.onConnect(conn); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}

	log.Info("stream connected", zap.String("venue", cfg.venue), zap.String("url", cfg.url))

	// Принудительное закрытие соединения снимает блокировку ReadMessage
	// при отмене контекста
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if cfg.pingInterval > 0 {
		go pingLoop(conn, cfg, done)
	}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		WSMessages.WithLabelValues(cfg.venue).Inc()
		cfg.onMessage(frame)
	}
}

// pingLoop периодически пингует соединение. Ошибка записи рвёт
// соединение - цикл чтения заметит и уйдёт в переподключение.
func pingLoop(conn *websocket.Conn, cfg streamConfig, done <-chan struct{}) {
	ticker := time.NewTicker(cfg.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			var err error
			if cfg.ping != nil {
				err = cfg.ping(conn)
			} else {
				err = conn.WriteMessage(websocket.PingMessage, nil)
			}
			if err != nil {
				conn.Close()
				return
			}
		}
	}
}
