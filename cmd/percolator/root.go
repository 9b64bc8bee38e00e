package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"percolator_go/internal/app"
	"percolator_go/internal/infra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	app.Options
	Output string // text | json
}

type cli struct {
	root   *cobra.Command
	flags  globalFlags
	boot   *app.Bootstrap
	out    io.Writer
	errOut io.Writer
}

func newCLI(out, errOut io.Writer) *cli {
	c := &cli{out: out, errOut: errOut}

	c.root = &cobra.Command{
		Use:   "percolator",
		Short: "Percolator engine state decoder and command encoder",
		Long: `percolator reads the Percolator risk engine's state account and builds the
byte payloads of its commands.

  decode    decode an engine-state account from a file, hex or the cluster
  find      locate the engine-state account of a program
  encode    build deposit / withdraw / trade / crank payloads
  watch     follow an engine-state account and record snapshots
  keeper    submit keeper cranks on an interval
  history   list or re-decode recorded snapshots`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch c.flags.Output {
			case "text", "json":
			default:
				return fmt.Errorf("unknown output format %q (text|json)", c.flags.Output)
			}
			c.boot = app.NewBootstrap()
			return c.boot.Initialize(c.flags.Options)
		},
	}
	c.root.SetOut(out)
	c.root.SetErr(errOut)

	pf := c.root.PersistentFlags()
	pf.StringVar(&c.flags.ConfigPath, "config", "", "config file (default: configs/config.yaml, then the OS config dir)")
	pf.StringVar(&c.flags.SecretsPath, "secrets", "", "secrets file holding helius_api_key / rpc_url")
	pf.StringVar(&c.flags.Layout, "layout", "", "engine state layout: v1|v2 (overrides state.layout)")
	pf.StringVar(&c.flags.LogLevel, "log-level", "", "debug|info|warn|error (overrides logging.level)")
	pf.StringVarP(&c.flags.Output, "output", "o", "text", "output format: text|json")

	c.root.AddCommand(
		c.decodeCmd(),
		c.findCmd(),
		c.encodeCmd(),
		c.watchCmd(),
		c.keeperCmd(),
		c.historyCmd(),
		c.versionCmd(),
	)
	return c
}

func (c *cli) close() {
	if c.boot != nil {
		c.boot.Close()
	}
}

func (c *cli) jsonOutput() bool {
	return c.flags.Output == "json"
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(c.out, "%s %s\n", infra.AppName, infra.AppVersion)
			return nil
		},
	}
}
