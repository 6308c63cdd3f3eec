package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewRateLimiterDefaults(t *testing.T) {
	tests := []struct {
		name      string
		rate      float64
		burst     float64
		wantRate  float64
		wantBurst float64
	}{
		{"explicit", 10, 20, 10, 20},
		{"zero rate", 0, 0, 10, 20},
		{"burst below rate", 10, 5, 10, 10},
		{"zero burst", 5, 0, 5, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(tt.rate, tt.burst)
			if rl.rate != tt.wantRate {
				t.Errorf("rate = %v, want %v", rl.rate, tt.wantRate)
			}
			if rl.burst != tt.wantBurst {
				t.Errorf("burst = %v, want %v", rl.burst, tt.wantBurst)
			}
		})
	}
}

func TestAllowConsumesBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)

	// Ведро начинается полным: три токена доступны сразу
	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("allow %d: expected token", i)
		}
	}

	if rl.Allow() {
		t.Fatal("expected bucket to be empty")
	}
}

func TestWaitBlocksUntilRefill(t *testing.T) {
	rl := NewRateLimiter(100, 1)

	if !rl.Allow() {
		t.Fatal("expected initial token")
	}

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// При 100 req/sec следующий токен появляется примерно через 10ms
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("Wait returned too early: %v", elapsed)
	}
}

func TestWaitCancelled(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	rl.Allow() // опустошаем ведро

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}
