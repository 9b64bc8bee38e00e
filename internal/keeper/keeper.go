// Package keeper periodically submits keeper-crank commands.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"percolator_go/internal/execution"
	"percolator_go/internal/infra"
	"percolator_go/internal/instruction"
)

// SlotReader is the part of the RPC client the keeper needs.
type SlotReader interface {
	GetSlot(ctx context.Context) (uint64, error)
}

// Keeper cranks one engine on a fixed interval.
type Keeper struct {
	slots     SlotReader
	submitter execution.Submitter
	programID string
	args      instruction.Args
	interval  time.Duration
}

// New creates a keeper. args supplies caller index, oracle price, funding
// rate and allowPanic; NowSlot is filled from slots on every crank.
func New(slots SlotReader, submitter execution.Submitter, programID string, args instruction.Args, interval time.Duration) *Keeper {
	return &Keeper{
		slots:     slots,
		submitter: submitter,
		programID: programID,
		args:      args,
		interval:  interval,
	}
}

// ArgsFromConfig maps the keeper config section to crank arguments.
func ArgsFromConfig(cfg *infra.Config) instruction.Args {
	k := cfg.Keeper
	return instruction.Args{
		CallerIndex:           k.CallerIndex,
		OraclePrice:           k.OraclePrice,
		FundingRateBpsPerSlot: k.FundingRateBpsPerSlot,
		AllowPanic:            k.AllowPanic,
	}
}

// Validate builds a crank once so bad arguments fail at startup rather
// than on every tick.
func (k *Keeper) Validate() error {
	if k.programID == "" {
		return errors.New("keeper: program id is required")
	}
	if _, err := k.args.KeeperCrank(); err != nil {
		return fmt.Errorf("keeper: %w", err)
	}
	return nil
}

// RunOnce reads the current slot, builds and encodes a crank, and submits
// it. Returns the submission id.
func (k *Keeper) RunOnce(ctx context.Context) (string, error) {
	slot, err := k.slots.GetSlot(ctx)
	if err != nil {
		return "", fmt.Errorf("get slot: %w", err)
	}

	args := k.args
	args.NowSlot = strconv.FormatUint(slot, 10)
	cmd, err := args.KeeperCrank()
	if err != nil {
		return "", fmt.Errorf("build crank: %w", err)
	}

	ix, err := execution.NewInstruction(k.programID, cmd)
	if err != nil {
		return "", fmt.Errorf("encode crank: %w", err)
	}

	id, err := k.submitter.Submit(ctx, ix)
	if err != nil {
		return "", fmt.Errorf("submit crank: %w", err)
	}

	slog.Info("Crank submitted",
		slog.String("id", id),
		slog.Uint64("slot", slot),
		slog.Uint64("caller", cmd.CallerIndex),
		slog.Uint64("oracle", cmd.OraclePrice))
	return id, nil
}

// Run cranks immediately and then every interval until ctx is done.
// Failures are logged and retried on the next tick.
func (k *Keeper) Run(ctx context.Context) error {
	slog.Info("Keeper started", slog.String("program", k.programID), slog.Duration("interval", k.interval))

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		if _, err := k.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				slog.Info("Keeper stopping...")
				return nil
			}
			slog.Warn("Crank failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			slog.Info("Keeper stopping...")
			return nil
		case <-ticker.C:
		}
	}
}
