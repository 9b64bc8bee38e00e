package state

import (
	"encoding/json"
	"fmt"

	"percolator_go/pkg/wide"
)

// Tier says how far into the layout a record was decoded.
type Tier uint8

const (
	// TierMandatory: only the ten mandatory fields.
	TierMandatory Tier = iota + 1
	// TierLiquidations: mandatory fields plus LifetimeLiquidations.
	TierLiquidations
	// TierAccounts: everything, including NumUsedAccounts.
	TierAccounts
)

func (t Tier) String() string {
	switch t {
	case TierMandatory:
		return "mandatory"
	case TierLiquidations:
		return "liquidations"
	case TierAccounts:
		return "accounts"
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

// Record is a decoded engine-state snapshot. It is a plain value; nothing in
// it refers back to the source buffer.
type Record struct {
	Vault                 wide.Uint128
	InsuranceBalance      wide.Uint128
	InsuranceFeeRevenue   wide.Uint128
	CurrentSlot           uint64
	LastFundingSlot       uint64
	FundingRateBpsPerSlot int64
	LastCrankSlot         uint64
	TotalOpenInterest     wide.Uint128
	CTot                  wide.Uint128
	PnlPosTot             wide.Uint128

	Tier Tier

	lifetimeLiquidations uint64
	numUsedAccounts      uint16
}

// LifetimeLiquidations is present from TierLiquidations up.
func (r Record) LifetimeLiquidations() (uint64, bool) {
	if r.Tier < TierLiquidations {
		return 0, false
	}
	return r.lifetimeLiquidations, true
}

// NumUsedAccounts is present only at TierAccounts.
func (r Record) NumUsedAccounts() (uint16, bool) {
	if r.Tier < TierAccounts {
		return 0, false
	}
	return r.numUsedAccounts, true
}

// recordJSON is the wire shape for JSON output and the snapshot store.
// 128-bit values are decimal strings.
type recordJSON struct {
	Vault                 wide.Uint128 `json:"vault"`
	InsuranceBalance      wide.Uint128 `json:"insurance_balance"`
	InsuranceFeeRevenue   wide.Uint128 `json:"insurance_fee_revenue"`
	CurrentSlot           uint64       `json:"current_slot"`
	LastFundingSlot       uint64       `json:"last_funding_slot"`
	FundingRateBpsPerSlot int64        `json:"funding_rate_bps_per_slot"`
	LastCrankSlot         uint64       `json:"last_crank_slot"`
	TotalOpenInterest     wide.Uint128 `json:"total_open_interest"`
	CTot                  wide.Uint128 `json:"c_tot"`
	PnlPosTot             wide.Uint128 `json:"pnl_pos_tot"`
	LifetimeLiquidations  *uint64      `json:"lifetime_liquidations,omitempty"`
	NumUsedAccounts       *uint16      `json:"num_used_accounts,omitempty"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		Vault:                 r.Vault,
		InsuranceBalance:      r.InsuranceBalance,
		InsuranceFeeRevenue:   r.InsuranceFeeRevenue,
		CurrentSlot:           r.CurrentSlot,
		LastFundingSlot:       r.LastFundingSlot,
		FundingRateBpsPerSlot: r.FundingRateBpsPerSlot,
		LastCrankSlot:         r.LastCrankSlot,
		TotalOpenInterest:     r.TotalOpenInterest,
		CTot:                  r.CTot,
		PnlPosTot:             r.PnlPosTot,
	}
	if v, ok := r.LifetimeLiquidations(); ok {
		out.LifetimeLiquidations = &v
	}
	if v, ok := r.NumUsedAccounts(); ok {
		out.NumUsedAccounts = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a record; the tier follows from which optional
// fields are present.
func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Record{
		Vault:                 in.Vault,
		InsuranceBalance:      in.InsuranceBalance,
		InsuranceFeeRevenue:   in.InsuranceFeeRevenue,
		CurrentSlot:           in.CurrentSlot,
		LastFundingSlot:       in.LastFundingSlot,
		FundingRateBpsPerSlot: in.FundingRateBpsPerSlot,
		LastCrankSlot:         in.LastCrankSlot,
		TotalOpenInterest:     in.TotalOpenInterest,
		CTot:                  in.CTot,
		PnlPosTot:             in.PnlPosTot,
		Tier:                  TierMandatory,
	}
	if in.LifetimeLiquidations != nil {
		r.Tier = TierLiquidations
		r.lifetimeLiquidations = *in.LifetimeLiquidations
	}
	if in.NumUsedAccounts != nil {
		if in.LifetimeLiquidations == nil {
			return fmt.Errorf("num_used_accounts present without lifetime_liquidations")
		}
		r.Tier = TierAccounts
		r.numUsedAccounts = *in.NumUsedAccounts
	}
	return nil
}
