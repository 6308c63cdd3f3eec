package exchange

import (
	"testing"

	"go.uber.org/zap"
)

func TestFactoryCreatesSupportedVenues(t *testing.T) {
	for _, name := range SupportedVenues {
		adapter, err := New(name, Options{}, zap.NewNop())
		if err != nil {
			t.Errorf("New(%s): %v", name, err)
			continue
		}
		if adapter.Name() != name {
			t.Errorf("Name() = %s, want %s", adapter.Name(), name)
		}
	}
}

func TestFactoryCaseInsensitive(t *testing.T) {
	adapter, err := New("Binance", Options{}, zap.NewNop())
	if err != nil {
		t.Fatalf("New(Binance): %v", err)
	}
	if adapter.Name() != "binance" {
		t.Errorf("Name() = %s", adapter.Name())
	}
}

func TestFactoryUnsupportedVenue(t *testing.T) {
	if _, err := New("okx", Options{}, zap.NewNop()); err == nil {
		t.Fatal("expected an error for an unsupported venue")
	}
}

func TestIsSupported(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"binance", true},
		{"BYBIT", true},
		{"bitget", true},
		{"okx", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsSupported(c.name); got != c.want {
			t.Errorf("IsSupported(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}
