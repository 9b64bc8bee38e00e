package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"percolator_go/internal/engine"
	"percolator_go/internal/infra"
	"percolator_go/internal/infra/solana"
	"percolator_go/internal/storage"
)

func (c *cli) watchCmd() *cobra.Command {
	var (
		address    string
		poll       time.Duration
		archiveDir string
		keep       int
		noStore    bool
		count      int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow an engine-state account and record snapshots",
		Long: `Subscribe to the engine-state account over the cluster websocket (or poll
with --poll) and print every new reading. Readings are recorded in the
history database unless --no-store is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			addr, err := c.resolveStateAddress(ctx, address)
			if err != nil {
				return err
			}

			var store *storage.SnapshotStore
			if !noStore {
				if store, err = c.boot.OpenStore(); err != nil {
					return err
				}
			}
			var archive *storage.Archive
			if archiveDir != "" {
				archive = storage.NewArchive(archiveDir)
			}

			seen := 0
			seq := engine.NewSequencer(256, c.boot.Layout, store, archive, func(s storage.Snapshot) {
				if err := c.printSnapshot(s); err != nil {
					slog.Warn("Output failed", slog.Any("error", err))
				}
				if archive != nil && keep > 0 {
					if err := archive.Cleanup(keep); err != nil {
						slog.Warn("Archive cleanup failed", slog.Any("error", err))
					}
				}
				seen++
				if count > 0 && seen >= count {
					cancel()
				}
			})
			if err := seq.Recover(ctx, addr); err != nil {
				return err
			}

			client, err := c.boot.Client()
			if err != nil {
				return err
			}

			// initial reading so output starts immediately
			if res, err := client.GetAccount(ctx, addr); err != nil {
				slog.Warn("Initial read failed", slog.Any("error", err))
			} else {
				seq.Inbox() <- solana.AccountUpdate{Address: addr, Slot: res.Slot, Data: res.Data}
			}

			if poll > 0 {
				go engine.Poll(ctx, client, addr, poll, seq.Inbox())
			} else {
				wsURL, err := c.boot.WSURL()
				if err != nil {
					return err
				}
				watcher := solana.NewAccountWatcher(wsURL, addr, c.boot.Config.Cluster.Commitment, func(u solana.AccountUpdate) {
					select {
					case seq.Inbox() <- u:
					case <-ctx.Done():
					}
				})
				worker := infra.NewBaseWSWorker(watcher)
				worker.Start(ctx)
				defer worker.Stop()
			}

			slog.Info("Watching engine state",
				slog.String("address", addr.String()),
				slog.String("layout", c.boot.Layout.Name),
				slog.Bool("polling", poll > 0))

			seq.Run(ctx)

			accepted, rejected := seq.Stats()
			slog.Info("Watch stopped", slog.Uint64("accepted", accepted), slog.Uint64("undecodable", rejected))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&address, "address", "a", "", "engine-state account address")
	f.DurationVar(&poll, "poll", 0, "poll interval instead of a websocket subscription (e.g. 5s)")
	f.StringVar(&archiveDir, "archive", "", "also write each snapshot as JSON into this directory")
	f.IntVar(&keep, "keep", 0, "keep only the newest N archive files (0 = all)")
	f.BoolVar(&noStore, "no-store", false, "do not record snapshots in the history database")
	f.IntVar(&count, "count", 0, "stop after N readings (0 = until interrupted)")
	return cmd
}
