package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"percolator_go/internal/execution"
	"percolator_go/internal/infra"
	"percolator_go/internal/keeper"
)

func (c *cli) keeperCmd() *cobra.Command {
	var (
		once     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "keeper",
		Short: "Submit keeper cranks on an interval",
		Long: `Read the current slot and submit a keeper crank every keeper.interval_sec.
keeper.mode selects the submitter: PAPER logs the payload, PIPE writes one
JSON line per crank to stdout for an external signer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.boot.Config
			prog, err := c.boot.ProgramAddress()
			if err != nil {
				return err
			}

			caller := cfg.Keeper.CallerIndex
			if caller == "" {
				caller = "0"
			}
			if err := c.boot.Lock("keeper-" + caller); err != nil {
				return err
			}

			client, err := c.boot.Client()
			if err != nil {
				return err
			}
			submitter, err := execution.NewSubmitter(cfg.Keeper.Mode, c.out)
			if err != nil {
				return err
			}

			if interval <= 0 {
				interval = time.Duration(cfg.Keeper.IntervalSec) * time.Second
			}
			k := keeper.New(client, submitter, prog.String(), keeper.ArgsFromConfig(cfg), interval)
			if err := k.Validate(); err != nil {
				return err
			}

			infra.PrintBanner(c.errOut, cfg)

			if once {
				id, err := k.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				if _, isPipe := submitter.(*execution.PipeSubmitter); !isPipe {
					fmt.Fprintln(c.out, id)
				}
				return nil
			}
			return k.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "submit a single crank and exit")
	cmd.Flags().DurationVar(&interval, "interval", 0, "override keeper.interval_sec")
	return cmd
}
