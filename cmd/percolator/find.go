package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"percolator_go/internal/engine"
	"percolator_go/internal/infra/solana"
)

func (c *cli) findCmd() *cobra.Command {
	var program string

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Locate a program's engine-state account",
		Long: `Scan the accounts owned by the wrapper program and report the first one that
decodes as engine state. Defaults to program.wrapper_program_id, then the
known Percolator program.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var prog solana.Address
			var err error
			if program != "" {
				prog, err = solana.ParseAddress(program)
			} else {
				prog, err = c.boot.ProgramAddress()
			}
			if err != nil {
				return err
			}

			client, err := c.boot.Client()
			if err != nil {
				return err
			}
			slog.Info("Scanning program accounts", slog.String("program", prog.String()))

			addr, rec, err := engine.FindState(cmd.Context(), client, prog, c.boot.Layout)
			if err != nil {
				return err
			}

			if store, err := c.boot.OpenStore(); err != nil {
				slog.Warn("Could not remember state address", slog.Any("error", err))
			} else if err := store.UpsertMetadata(cmd.Context(), stateAddressKey(prog), addr.String()); err != nil {
				slog.Warn("Could not remember state address", slog.Any("error", err))
			}

			return c.printState(c.viewFor(addr, 0, rec))
		},
	}

	cmd.Flags().StringVarP(&program, "program", "p", "", "wrapper program address")
	return cmd
}
