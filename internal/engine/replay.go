package engine

import (
	"context"
	"fmt"

	"percolator_go/internal/infra/solana"
	"percolator_go/internal/storage"
)

// Replay feeds stored snapshots for address, oldest first, through seq
// synchronously. Because the raw bytes are stored, a sequencer built with a
// different layout re-decodes the history under that layout. seq should
// have no store of its own. Returns the number of snapshots fed.
func Replay(ctx context.Context, store *storage.SnapshotStore, address solana.Address, limit int, seq *Sequencer) (int, error) {
	snaps, err := store.ListSnapshots(ctx, address.String(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load snapshots: %w", err)
	}

	// ListSnapshots is newest first
	for i := len(snaps) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return len(snaps) - 1 - i, err
		}
		seq.process(ctx, solana.AccountUpdate{
			Address: address,
			Slot:    snaps[i].Slot,
			Data:    snaps[i].Raw,
		})
	}
	return len(snaps), nil
}
