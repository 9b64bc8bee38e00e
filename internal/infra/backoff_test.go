package infra

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReconnectBackoff(t *testing.T) {
	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{10, 60 * time.Second},  // capped
		{100, 60 * time.Second}, // still capped
	}

	for _, tt := range tests {
		if got := ReconnectBackoff.Delay(tt.retryCount); got != tt.want {
			t.Errorf("ReconnectBackoff.Delay(%d) = %s, want %s", tt.retryCount, got, tt.want)
		}
	}
}

func TestRequestBackoff(t *testing.T) {
	if got := RequestBackoff.Delay(2); got != time.Second {
		t.Errorf("Delay(2) = %s, want 1s", got)
	}
	if got := RequestBackoff.Delay(8); got != 4*time.Second {
		t.Errorf("Delay(8) = %s, want cap 4s", got)
	}
}

func TestBackoff_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := Backoff{Base: time.Hour, Max: time.Hour}
	start := time.Now()
	err := b.Sleep(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep ignored cancellation")
	}
}
