package engine

import (
	"context"
	"log/slog"
	"time"

	"percolator_go/internal/infra/solana"
)

// AccountReader is the part of the RPC client the poller needs.
type AccountReader interface {
	GetAccount(ctx context.Context, address solana.Address) (solana.AccountResult, error)
}

// Poll reads address every interval and forwards each result to inbox until
// ctx is done. It is the fallback when no websocket endpoint is reachable.
// Read errors are logged and retried on the next tick.
func Poll(ctx context.Context, reader AccountReader, address solana.Address, interval time.Duration, inbox chan<- solana.AccountUpdate) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := reader.GetAccount(ctx, address)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("Poll failed", slog.String("address", address.String()), slog.Any("error", err))
		} else {
			select {
			case inbox <- solana.AccountUpdate{Address: address, Slot: res.Slot, Data: res.Data}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
