package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"percolator_go/internal/engine"
	"percolator_go/internal/storage"
)

func (c *cli) historyCmd() *cobra.Command {
	var (
		address  string
		limit    int
		relayout bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded snapshots",
		Long: `List snapshots recorded by watch and decode --save, newest first. With
--relayout the stored bytes are decoded again under the current --layout
and printed oldest first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.boot.OpenStore()
			if err != nil {
				return err
			}

			if relayout {
				addr, err := c.resolveStateAddress(cmd.Context(), address)
				if err != nil {
					return err
				}
				seq := engine.NewSequencer(1, c.boot.Layout, nil, nil, func(s storage.Snapshot) {
					if err := c.printSnapshot(s); err != nil {
						slog.Warn("Output failed", slog.Any("error", err))
					}
				})
				n, err := engine.Replay(cmd.Context(), store, addr, limit, seq)
				if err != nil {
					return err
				}
				if _, rejected := seq.Stats(); rejected > 0 {
					slog.Warn("Some snapshots do not decode under this layout",
						slog.String("layout", c.boot.Layout.Name),
						slog.Uint64("undecodable", rejected),
						slog.Int("total", n))
				}
				return nil
			}

			snaps, err := store.ListSnapshots(cmd.Context(), address, limit)
			if err != nil {
				return err
			}
			if len(snaps) == 0 && !c.jsonOutput() {
				fmt.Fprintln(c.out, "no snapshots recorded")
				return nil
			}
			if c.jsonOutput() {
				if snaps == nil {
					snaps = []*storage.Snapshot{}
				}
				return writeJSON(c.out, snaps)
			}
			for _, s := range snaps {
				if err := c.printSnapshot(*s); err != nil {
					return err
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&address, "address", "a", "", "only this engine-state account")
	f.IntVarP(&limit, "limit", "n", 20, "maximum number of snapshots")
	f.BoolVar(&relayout, "relayout", false, "re-decode stored bytes under --layout")
	return cmd
}
