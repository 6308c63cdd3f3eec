package utils

// logger.go - настройка логирования
//
// Назначение:
// Инициализация структурированного zap-логгера для всего процесса.
//
// Уровни: debug, info, warn, error
// Форматы:
//   - json: production (машиночитаемый вывод)
//   - console: разработка (человекочитаемый вывод с цветными уровнями)

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger создаёт и настраивает zap.Logger
//
// Параметры:
//   - level: "debug", "info", "warn", "error"
//   - format: "json" или "console"
//
// Возвращает ошибку при неизвестном уровне или формате.
func InitLogger(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid log format %q (want json or console)", format)
	}

	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
