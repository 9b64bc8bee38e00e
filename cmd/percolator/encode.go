package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"percolator_go/internal/execution"
	"percolator_go/internal/instruction"
)

// encodeFlags are shared by the encode subcommands.
type encodeFlags struct {
	args      instruction.Args
	format    string // hex | base64
	submit    bool
	fetchSlot bool
}

type encodedView struct {
	Tag    string `json:"tag"`
	Len    int    `json:"len"`
	Hex    string `json:"hex"`
	Base64 string `json:"base64"`
	ID     string `json:"submission_id,omitempty"`
}

func (c *cli) encodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Build a command payload",
		Long: `Build the byte payload of an engine command. Integers are decimal and may
contain underscores; amounts accept --decimals for human units.`,
	}

	cmd.AddCommand(
		c.encodeSub(instruction.TagDeposit, "deposit", "Deposit collateral into an account",
			func(f *pflag.FlagSet, a *instruction.Args) {
				f.StringVar(&a.AccountIndex, "account", "", "account index (u64)")
				amountFlags(f, a)
				f.StringVar(&a.NowSlot, "now-slot", "", "current slot (u64)")
			}),
		c.encodeSub(instruction.TagWithdraw, "withdraw", "Withdraw collateral from an account",
			func(f *pflag.FlagSet, a *instruction.Args) {
				f.StringVar(&a.AccountIndex, "account", "", "account index (u64)")
				amountFlags(f, a)
				f.StringVar(&a.NowSlot, "now-slot", "", "current slot (u64)")
				f.StringVar(&a.OraclePrice, "oracle-price", "", "oracle price (u64)")
			}),
		c.encodeSub(instruction.TagExecuteTrade, "trade", "Execute a trade between an LP and a user",
			func(f *pflag.FlagSet, a *instruction.Args) {
				f.StringVar(&a.LPIndex, "lp", "", "LP account index (u64)")
				f.StringVar(&a.UserIndex, "user", "", "user account index (u64)")
				f.StringVar(&a.NowSlot, "now-slot", "", "current slot (u64)")
				f.StringVar(&a.OraclePrice, "oracle-price", "", "oracle price (u64)")
				f.StringVar(&a.Size, "size", "", "signed position size (i128, negative = short)")
			}),
		c.encodeSub(instruction.TagKeeperCrank, "crank", "Run the keeper crank",
			func(f *pflag.FlagSet, a *instruction.Args) {
				f.StringVar(&a.CallerIndex, "caller", "", "caller account index (u64)")
				f.StringVar(&a.NowSlot, "now-slot", "", "current slot (u64)")
				f.StringVar(&a.OraclePrice, "oracle-price", "", "oracle price (u64)")
				f.StringVar(&a.FundingRateBpsPerSlot, "funding-rate", "", "funding rate in bps per slot (i64)")
				f.BoolVar(&a.AllowPanic, "allow-panic", false, "allow the crank to panic the engine")
			}),
	)
	return cmd
}

func amountFlags(f *pflag.FlagSet, a *instruction.Args) {
	f.StringVar(&a.Amount, "amount", "", "amount in base units (u128), or human units with --decimals")
	f.Int32Var(&a.AmountDecimals, "decimals", 0, "token decimals for --amount")
}

func (c *cli) encodeSub(tag instruction.Tag, use, short string, bind func(*pflag.FlagSet, *instruction.Args)) *cobra.Command {
	var ef encodeFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ef.format != "hex" && ef.format != "base64" {
				return fmt.Errorf("unknown format %q (hex|base64)", ef.format)
			}

			if ef.fetchSlot {
				client, err := c.boot.Client()
				if err != nil {
					return err
				}
				slot, err := client.GetSlot(cmd.Context())
				if err != nil {
					return err
				}
				ef.args.NowSlot = strconv.FormatUint(slot, 10)
			}

			command, err := ef.args.Build(tag)
			if err != nil {
				return err
			}
			data, err := instruction.Encode(command)
			if err != nil {
				return err
			}

			view := encodedView{
				Tag:    tag.String(),
				Len:    len(data),
				Hex:    hex.EncodeToString(data),
				Base64: base64.StdEncoding.EncodeToString(data),
			}

			if ef.submit {
				prog, err := c.boot.ProgramAddress()
				if err != nil {
					return err
				}
				submitter, err := execution.NewSubmitter(c.boot.Config.Keeper.Mode, c.out)
				if err != nil {
					return err
				}
				id, err := submitter.Submit(cmd.Context(), execution.Instruction{ProgramID: prog.String(), Tag: tag, Data: data})
				if err != nil {
					return err
				}
				view.ID = id
			}

			if c.jsonOutput() {
				return writeJSON(c.out, view)
			}
			if ef.format == "base64" {
				fmt.Fprintln(c.out, view.Base64)
			} else {
				fmt.Fprintln(c.out, view.Hex)
			}
			return nil
		},
	}

	f := cmd.Flags()
	bind(f, &ef.args)
	f.StringVar(&ef.format, "format", "hex", "text output encoding: hex|base64")
	f.BoolVar(&ef.submit, "submit", false, "hand the payload to the configured submitter (keeper.mode)")
	f.BoolVar(&ef.fetchSlot, "fetch-slot", false, "use the cluster's current slot for --now-slot")
	return cmd
}
