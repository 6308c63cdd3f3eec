package exchange

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"fundarb/pkg/ratelimit"
)

// RESTClientConfig - настройки HTTP-клиента для публичных REST-эндпоинтов
// бирж (загрузка метаданных рынков)
type RESTClientConfig struct {
	ConnectTimeout time.Duration
	TotalTimeout   time.Duration

	// Connection pooling
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// Лимит частоты запросов (token bucket)
	RequestsPerSecond float64
	Burst             float64
}

// DefaultRESTClientConfig возвращает консервативные дефолты: публичные
// эндпоинты бирж переносят порядка 10-20 req/sec с одного IP
func DefaultRESTClientConfig() RESTClientConfig {
	return RESTClientConfig{
		ConnectTimeout:      5 * time.Second,
		TotalTimeout:        30 * time.Second,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		RequestsPerSecond:   5,
		Burst:               10,
	}
}

// RESTClient - HTTP-клиент с connection pooling и rate limiting
type RESTClient struct {
	client  *http.Client
	limiter *ratelimit.RateLimiter
}

// NewRESTClient создаёт клиент с заданной конфигурацией
func NewRESTClient(cfg RESTClientConfig) *RESTClient {
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 5 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		ForceAttemptHTTP2: true,
	}

	return &RESTClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.TotalTimeout,
		},
		limiter: ratelimit.NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
}

// GetJSON выполняет GET и декодирует ответ в out, уважая rate limit
func (c *RESTClient) GetJSON(ctx context.Context, url string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// Close закрывает idle-соединения при graceful shutdown
func (c *RESTClient) Close() {
	if transport, ok := c.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
