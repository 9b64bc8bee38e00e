package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"percolator_go/internal/infra/solana"
	"percolator_go/internal/state"
	"percolator_go/internal/storage"
	"percolator_go/pkg/wide"
)

// stateView is the JSON shape of decode, find and watch output.
type stateView struct {
	Address  string       `json:"address,omitempty"`
	Explorer string       `json:"explorer,omitempty"`
	Slot     uint64       `json:"slot,omitempty"`
	Layout   string       `json:"layout"`
	Tier     string       `json:"tier"`
	Record   state.Record `json:"record"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func amount(u wide.Uint128) string {
	c := u.Compact()
	if c == u.String() {
		return c
	}
	return fmt.Sprintf("%s (%s)", c, u.String())
}

func optional[T uint64 | uint16](v T, ok bool) string {
	if !ok {
		return "-"
	}
	return strconv.FormatUint(uint64(v), 10)
}

// writeState prints a decoded record as an aligned table.
func writeState(w io.Writer, v stateView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	r := v.Record

	if v.Address != "" {
		fmt.Fprintf(tw, "address\t%s\n", v.Address)
	}
	if v.Explorer != "" {
		fmt.Fprintf(tw, "explorer\t%s\n", v.Explorer)
	}
	if v.Slot != 0 {
		fmt.Fprintf(tw, "read at slot\t%d\n", v.Slot)
	}
	fmt.Fprintf(tw, "layout\t%s\n", v.Layout)
	fmt.Fprintf(tw, "tier\t%s\n", r.Tier)
	fmt.Fprintf(tw, "vault\t%s\n", amount(r.Vault))
	fmt.Fprintf(tw, "insurance balance\t%s\n", amount(r.InsuranceBalance))
	fmt.Fprintf(tw, "insurance fee revenue\t%s\n", amount(r.InsuranceFeeRevenue))
	fmt.Fprintf(tw, "current slot\t%d\n", r.CurrentSlot)
	fmt.Fprintf(tw, "last funding slot\t%d\n", r.LastFundingSlot)
	fmt.Fprintf(tw, "funding rate (bps/slot)\t%d\n", r.FundingRateBpsPerSlot)
	fmt.Fprintf(tw, "last crank slot\t%d\n", r.LastCrankSlot)
	fmt.Fprintf(tw, "total open interest\t%s\n", amount(r.TotalOpenInterest))
	fmt.Fprintf(tw, "c_tot\t%s\n", amount(r.CTot))
	fmt.Fprintf(tw, "pnl_pos_tot\t%s\n", amount(r.PnlPosTot))
	fmt.Fprintf(tw, "lifetime liquidations\t%s\n", optional(r.LifetimeLiquidations()))
	fmt.Fprintf(tw, "used accounts\t%s\n", optional(r.NumUsedAccounts()))
	return tw.Flush()
}

func (c *cli) printState(v stateView) error {
	v.Tier = v.Record.Tier.String()
	if c.jsonOutput() {
		return writeJSON(c.out, v)
	}
	return writeState(c.out, v)
}

func (c *cli) viewFor(address solana.Address, slot uint64, rec state.Record) stateView {
	return stateView{
		Address:  address.String(),
		Explorer: solana.AccountURL(address.String(), c.boot.ExplorerCluster()),
		Slot:     slot,
		Layout:   c.boot.Layout.Name,
		Record:   rec,
	}
}

// snapshotLine is one row of watch and history text output.
func snapshotLine(s storage.Snapshot) string {
	liq := optional(s.Record.LifetimeLiquidations())
	return fmt.Sprintf("%s  slot=%d  %s  tier=%s  vault=%s  oi=%s  funding=%d  liquidations=%s",
		s.CreatedAt.Local().Format(time.DateTime),
		s.Slot,
		solana.TruncateAddress(s.Address),
		s.Record.Tier,
		s.Record.Vault.Compact(),
		s.Record.TotalOpenInterest.Compact(),
		s.Record.FundingRateBpsPerSlot,
		liq,
	)
}

func (c *cli) printSnapshot(s storage.Snapshot) error {
	if c.jsonOutput() {
		return json.NewEncoder(c.out).Encode(s)
	}
	_, err := fmt.Fprintln(c.out, snapshotLine(s))
	return err
}
