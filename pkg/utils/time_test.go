package utils

import (
	"math"
	"testing"
	"time"
)

func TestSecondsToMs(t *testing.T) {
	tests := []struct {
		name string
		sec  float64
		want int64
	}{
		{"whole seconds", 1_700_000_000.0, 1_700_000_000_000},
		{"fractional seconds", 1.5, 1500},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SecondsToMs(tt.sec); got != tt.want {
				t.Errorf("SecondsToMs(%v) = %d, want %d", tt.sec, got, tt.want)
			}
		})
	}
}

func TestMsToSeconds(t *testing.T) {
	if got := MsToSeconds(1500); got != 1.5 {
		t.Errorf("MsToSeconds(1500) = %v, want 1.5", got)
	}
	if got := MsToSeconds(1_700_000_000_000); got != 1_700_000_000.0 {
		t.Errorf("MsToSeconds = %v, want 1.7e9", got)
	}
}

func TestMinutesUntilMs(t *testing.T) {
	now := 1_700_000_000.0

	tests := []struct {
		name string
		tsMs int64
		want float64
	}{
		{"one hour ahead", SecondsToMs(now + 3600), 60.0},
		{"thirty seconds ahead", SecondsToMs(now + 30), 0.5},
		{"in the past", SecondsToMs(now - 60), -1.0},
		{"exactly now", SecondsToMs(now), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinutesUntilMs(tt.tsMs, now)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("MinutesUntilMs = %v, want %v", got, tt.want)
			}
		})
	}
}

// NowUnix и NowUnixMs должны согласовываться между собой
func TestNowConsistency(t *testing.T) {
	sec := NowUnix()
	ms := NowUnixMs()

	diff := math.Abs(MsToSeconds(ms) - sec)
	if diff > 1.0 {
		t.Errorf("NowUnix and NowUnixMs diverge by %.3fs", diff)
	}

	if sec < float64(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()) {
		t.Errorf("NowUnix() = %v looks wrong", sec)
	}
}
