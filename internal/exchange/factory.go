package exchange

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// SupportedVenues - список поддерживаемых бирж
var SupportedVenues = []string{
	"binance",
	"bybit",
	"bitget",
}

// New создаёт адаптер биржи по имени
func New(name string, opts Options, log *zap.Logger) (Adapter, error) {
	switch strings.ToLower(name) {
	case "binance":
		return NewBinance(opts, log), nil
	case "bybit":
		return NewBybit(opts, log), nil
	case "bitget":
		return NewBitget(opts, log), nil
	default:
		return nil, fmt.Errorf("unsupported venue: %s", name)
	}
}

// IsSupported проверяет, поддерживается ли биржа
func IsSupported(name string) bool {
	name = strings.ToLower(name)
	for _, supported := range SupportedVenues {
		if name == supported {
			return true
		}
	}
	return false
}
