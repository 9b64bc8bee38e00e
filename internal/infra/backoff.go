package infra

import (
	"context"
	"time"
)

// Backoff is an exponential delay schedule: Base * 2^retry, capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

var (
	// ReconnectBackoff paces websocket reconnects.
	ReconnectBackoff = Backoff{Base: 1 * time.Second, Max: 60 * time.Second}
	// RequestBackoff paces retries of a single RPC request.
	RequestBackoff = Backoff{Base: 250 * time.Millisecond, Max: 4 * time.Second}
)

// Delay returns the wait before attempt retry+1. Negative retries get Base.
func (b Backoff) Delay(retry int) time.Duration {
	if retry < 0 {
		return b.Base
	}
	// 2^30 * Base is past any sane Max; avoid shifting further.
	if retry > 30 {
		return b.Max
	}
	d := b.Base * time.Duration(1<<retry)
	if d > b.Max || d <= 0 {
		return b.Max
	}
	return d
}

// Sleep waits Delay(retry) or until ctx is done.
func (b Backoff) Sleep(ctx context.Context, retry int) error {
	t := time.NewTimer(b.Delay(retry))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
