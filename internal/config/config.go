package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит всю конфигурацию сканера
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Scanner  ScannerConfig
	Venues   VenueConfig
	Fees     FeeConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера (read-only API + /metrics)
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig - настройки подключения к БД журнала сигналов.
// Журнал опционален: пустой Host отключает персистентность.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// Enabled возвращает true если журнал сигналов включён
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// ScannerConfig - пороги скоринга и параметры движка
type ScannerConfig struct {
	// Период обновления текстового дашборда
	DashboardInterval time.Duration
	// Количество строк дашборда
	DashboardTopN int

	// Снапшоты с 24h quote-объёмом ниже порога отбрасываются скорером
	MinVolumeUSD float64
	// Минимальная чистая прибыль кандидата (bps)
	MinProfitBps float64
	// Минимальный итоговый счёт для попадания в таблицу
	MinScoreThreshold float64
	// Отсечка аномальных спредов входа (bps)
	MaxValidSpreadBps float64
	// Минимальный счёт для эмиссии торгового сигнала
	SignalScoreThreshold float64
	// Окно подавления повторных сигналов по символу
	Cooldown time.Duration
	// Снапшоты старше этого возраста игнорируются скорером
	MaxSnapshotAge time.Duration

	// Количество скоринг-воркеров (0 = по числу CPU)
	ScorerWorkers int
	// Ёмкость буфера исходящих сигналов
	SignalBuffer int
}

// VenueConfig - параметры подключений к биржам
type VenueConfig struct {
	// Список активных бирж (binance, bybit, bitget)
	Venues []string

	// Размер чанка символов на одно изолированное соединение
	ChunkSize int
	// Задержка старта чанка: ChunkStagger * индекс чанка
	ChunkStagger time.Duration
	// Пауза перед переподключением после ошибки потока
	ReconnectBackoff time.Duration
	// Таймаут установки WebSocket соединения
	ConnectTimeout time.Duration
	// Интервал ping для поддержания соединения
	PingInterval time.Duration
}

// FeeConfig - статические таблицы комиссий по биржам (доли, не bps).
// Вход предполагается maker на обеих ногах, выход - taker.
type FeeConfig struct {
	Maker map[string]float64
	Taker map[string]float64
}

// MakerFor возвращает maker-комиссию биржи с fallback'ом на "default"
func (f FeeConfig) MakerFor(venue string) float64 {
	if fee, ok := f.Maker[venue]; ok {
		return fee
	}
	return f.Maker["default"]
}

// TakerFor возвращает taker-комиссию биржи с fallback'ом на "default"
func (f FeeConfig) TakerFor(venue string) float64 {
	if fee, ok := f.Taker[venue]; ok {
		return fee
	}
	return f.Taker["default"]
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// defaultMakerFees / defaultTakerFees - дефолтные комиссии (VIP0, доли)
func defaultMakerFees() map[string]float64 {
	return map[string]float64{
		"binance": 0.00018,
		"bybit":   0.00020,
		"bitget":  0.00020,
		"default": 0.00020,
	}
}

func defaultTakerFees() map[string]float64 {
	return map[string]float64{
		"binance": 0.00046,
		"bybit":   0.00055,
		"bitget":  0.00060,
		"default": 0.00060,
	}
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "fundarb"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Scanner: ScannerConfig{
			DashboardInterval:    getEnvAsSeconds("DASHBOARD_INTERVAL_S", 60),
			DashboardTopN:        getEnvAsInt("DASHBOARD_TOP_N", 20),
			MinVolumeUSD:         getEnvAsFloat("MIN_VOLUME_USD", 1_000_000),
			MinProfitBps:         getEnvAsFloat("MIN_PROFIT_BPS", 2.0),
			MinScoreThreshold:    getEnvAsFloat("MIN_SCORE_THRESHOLD", 5.0),
			MaxValidSpreadBps:    getEnvAsFloat("MAX_VALID_SPREAD_BPS", 200.0),
			SignalScoreThreshold: getEnvAsFloat("SIGNAL_SCORE_THRESHOLD", 10.0),
			Cooldown:             getEnvAsSeconds("COOLDOWN_SECONDS", 600),
			MaxSnapshotAge:       getEnvAsSeconds("MAX_SNAPSHOT_AGE_S", 600),
			ScorerWorkers:        getEnvAsInt("SCORER_WORKERS", 0),
			SignalBuffer:         getEnvAsInt("SIGNAL_BUFFER", 256),
		},
		Venues: VenueConfig{
			Venues:           getEnvAsList("VENUES", []string{"binance", "bybit", "bitget"}),
			ChunkSize:        getEnvAsInt("CHUNK_SIZE", 50),
			ChunkStagger:     getEnvAsSeconds("CHUNK_STAGGER_S", 2.0),
			ReconnectBackoff: getEnvAsSeconds("RECONNECT_BACKOFF_S", 5.0),
			ConnectTimeout:   getEnvAsSeconds("WS_CONNECT_TIMEOUT_S", 10),
			PingInterval:     getEnvAsSeconds("WS_PING_INTERVAL_S", 20),
		},
		Fees: FeeConfig{
			Maker: getEnvAsFees("EXCHANGE_MAKER_FEES", defaultMakerFees()),
			Taker: getEnvAsFees("EXCHANGE_TAKER_FEES", defaultTakerFees()),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Enabled() && (c.Database.Port < 1 || c.Database.Port > 65535) {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Scanner.DashboardInterval <= 0 {
		return fmt.Errorf("DASHBOARD_INTERVAL_S must be positive, got %v", c.Scanner.DashboardInterval)
	}

	if c.Scanner.DashboardTopN < 1 {
		return fmt.Errorf("DASHBOARD_TOP_N must be at least 1, got %d", c.Scanner.DashboardTopN)
	}

	if c.Scanner.MinVolumeUSD < 0 {
		return fmt.Errorf("MIN_VOLUME_USD cannot be negative, got %v", c.Scanner.MinVolumeUSD)
	}

	if c.Scanner.MaxValidSpreadBps <= 0 {
		return fmt.Errorf("MAX_VALID_SPREAD_BPS must be positive, got %v", c.Scanner.MaxValidSpreadBps)
	}

	if c.Scanner.Cooldown < 0 {
		return fmt.Errorf("COOLDOWN_SECONDS cannot be negative, got %v", c.Scanner.Cooldown)
	}

	if c.Scanner.SignalBuffer < 1 {
		return fmt.Errorf("SIGNAL_BUFFER must be at least 1, got %d", c.Scanner.SignalBuffer)
	}

	if len(c.Venues.Venues) == 0 {
		return fmt.Errorf("VENUES must list at least one venue")
	}

	if c.Venues.ChunkSize < 1 {
		return fmt.Errorf("CHUNK_SIZE must be at least 1, got %d", c.Venues.ChunkSize)
	}

	if c.Venues.ReconnectBackoff <= 0 {
		return fmt.Errorf("RECONNECT_BACKOFF_S must be positive, got %v", c.Venues.ReconnectBackoff)
	}

	if c.Venues.ChunkStagger < 0 {
		return fmt.Errorf("CHUNK_STAGGER_S cannot be negative, got %v", c.Venues.ChunkStagger)
	}

	for _, fees := range []map[string]float64{c.Fees.Maker, c.Fees.Taker} {
		if _, ok := fees["default"]; !ok {
			return fmt.Errorf("fee table must contain a default entry")
		}
		for venue, fee := range fees {
			if fee < 0 || fee > 0.01 {
				return fmt.Errorf("fee for %s out of range [0, 0.01]: %v", venue, fee)
			}
		}
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSeconds читает значение в секундах (допускается дробное)
// и возвращает time.Duration
func getEnvAsSeconds(key string, defaultSeconds float64) time.Duration {
	seconds := getEnvAsFloat(key, defaultSeconds)
	return time.Duration(seconds * float64(time.Second))
}

// getEnvAsList читает список, разделённый запятыми
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// getEnvAsFees читает таблицу комиссий в формате "binance:0.00018,bybit:0.0002".
// Указанные биржи перекрывают дефолты, остальные записи сохраняются.
func getEnvAsFees(key string, defaults map[string]float64) map[string]float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaults
	}

	result := make(map[string]float64, len(defaults))
	for k, v := range defaults {
		result[k] = v
	}

	for _, entry := range strings.Split(valueStr, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 2)
		if len(parts) != 2 {
			continue
		}
		venue := strings.ToLower(strings.TrimSpace(parts[0]))
		fee, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || venue == "" {
			continue
		}
		result[venue] = fee
	}

	return result
}
