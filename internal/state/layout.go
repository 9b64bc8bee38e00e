package state

import (
	"fmt"
	"strings"

	"percolator_go/pkg/wire"
)

// Field names shared by every layout. Decode assigns fields by name, so a
// layout only has to say where each one lives.
const (
	FieldVault                 = "vault"
	FieldInsuranceBalance      = "insurance_balance"
	FieldInsuranceFeeRevenue   = "insurance_fee_revenue"
	FieldCurrentSlot           = "current_slot"
	FieldLastFundingSlot       = "last_funding_slot"
	FieldFundingRateBpsPerSlot = "funding_rate_bps_per_slot"
	FieldLastCrankSlot         = "last_crank_slot"
	FieldTotalOpenInterest     = "total_open_interest"
	FieldCTot                  = "c_tot"
	FieldPnlPosTot             = "pnl_pos_tot"
	FieldLifetimeLiquidations  = "lifetime_liquidations"
	FieldNumUsedAccounts       = "num_used_accounts"
)

var mandatoryNames = []string{
	FieldVault,
	FieldInsuranceBalance,
	FieldInsuranceFeeRevenue,
	FieldCurrentSlot,
	FieldLastFundingSlot,
	FieldFundingRateBpsPerSlot,
	FieldLastCrankSlot,
	FieldTotalOpenInterest,
	FieldCTot,
	FieldPnlPosTot,
}

var mandatoryKinds = map[string]wire.Kind{
	FieldVault:                 wire.KindU128,
	FieldInsuranceBalance:      wire.KindU128,
	FieldInsuranceFeeRevenue:   wire.KindU128,
	FieldCurrentSlot:           wire.KindU64,
	FieldLastFundingSlot:       wire.KindU64,
	FieldFundingRateBpsPerSlot: wire.KindI64,
	FieldLastCrankSlot:         wire.KindU64,
	FieldTotalOpenInterest:     wire.KindU128,
	FieldCTot:                  wire.KindU128,
	FieldPnlPosTot:             wire.KindU128,
}

// Layout is one version of the engine-state account layout.
//
// Mandatory fields must all fit for a decode to succeed. Liquidations and
// Accounts are the two optional trailing fields; each becomes present once
// the buffer reaches its end offset. Build layouts with NewLayout; a layout
// that fails Validate decodes nothing.
type Layout struct {
	Name         string
	Mandatory    []wire.Field
	Liquidations wire.Field
	Accounts     wire.Field

	validated bool // set by NewLayout
}

// MinLength is the smallest buffer that holds every mandatory field.
func (l Layout) MinLength() int { return wire.Extent(l.Mandatory) }

// LiquidationsThreshold is the buffer length at which LifetimeLiquidations
// becomes present.
func (l Layout) LiquidationsThreshold() int { return l.Liquidations.End() }

// AccountsThreshold is the buffer length at which NumUsedAccounts becomes
// present.
func (l Layout) AccountsThreshold() int { return l.Accounts.End() }

// TierFor reports how much of the record a buffer of n bytes can hold.
// ok is false when n is below MinLength or the layout is invalid.
func (l Layout) TierFor(n int) (tier Tier, ok bool) {
	if !l.usable() || n < l.MinLength() {
		return 0, false
	}
	switch {
	case n >= l.AccountsThreshold():
		return TierAccounts, true
	case n >= l.LiquidationsThreshold():
		return TierLiquidations, true
	}
	return TierMandatory, true
}

func (l Layout) usable() bool {
	return l.validated || l.Validate() == nil
}

// Validate checks that the layout has every mandatory field with the
// expected kind, no overlaps, and thresholds in ascending order.
func (l Layout) Validate() error {
	if len(l.Mandatory) != len(mandatoryNames) {
		return fmt.Errorf("layout %s: %d mandatory fields, want %d", l.Name, len(l.Mandatory), len(mandatoryNames))
	}
	seen := make(map[string]bool, len(l.Mandatory))
	for _, f := range l.Mandatory {
		want, known := mandatoryKinds[f.Name]
		if !known {
			return fmt.Errorf("layout %s: unknown field %s", l.Name, f)
		}
		if f.Kind != want {
			return fmt.Errorf("layout %s: field %s must be %s", l.Name, f, want)
		}
		if seen[f.Name] {
			return fmt.Errorf("layout %s: duplicate field %s", l.Name, f.Name)
		}
		seen[f.Name] = true
	}
	if l.Liquidations.Name != FieldLifetimeLiquidations || l.Liquidations.Kind != wire.KindU64 {
		return fmt.Errorf("layout %s: bad liquidations field %s", l.Name, l.Liquidations)
	}
	if l.Accounts.Name != FieldNumUsedAccounts || l.Accounts.Kind != wire.KindU16 {
		return fmt.Errorf("layout %s: bad accounts field %s", l.Name, l.Accounts)
	}

	all := append(append([]wire.Field{}, l.Mandatory...), l.Liquidations, l.Accounts)
	if err := wire.CheckDisjoint(all); err != nil {
		return fmt.Errorf("layout %s: %w", l.Name, err)
	}

	if l.LiquidationsThreshold() <= l.MinLength() {
		return fmt.Errorf("layout %s: liquidations threshold %d not above minimum %d",
			l.Name, l.LiquidationsThreshold(), l.MinLength())
	}
	if l.AccountsThreshold() < l.LiquidationsThreshold() {
		return fmt.Errorf("layout %s: accounts threshold %d below liquidations threshold %d",
			l.Name, l.AccountsThreshold(), l.LiquidationsThreshold())
	}
	return nil
}

// NewLayout validates a layout description.
func NewLayout(name string, mandatory []wire.Field, liquidations, accounts wire.Field) (Layout, error) {
	l := Layout{
		Name:         name,
		Mandatory:    mandatory,
		Liquidations: liquidations,
		Accounts:     accounts,
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	l.validated = true
	return l, nil
}

func mustLayout(name string, mandatory []wire.Field, liquidations, accounts wire.Field) Layout {
	l, err := NewLayout(name, mandatory, liquidations, accounts)
	if err != nil {
		panic("STATE_BAD_LAYOUT: " + err.Error())
	}
	return l
}

// LayoutV1 is the default account layout. lastFundingSlot occupies a
// 16-byte slot at 200 of which only the low word is read.
var LayoutV1 = mustLayout("v1",
	[]wire.Field{
		{Name: FieldVault, Offset: 0, Kind: wire.KindU128},
		{Name: FieldInsuranceBalance, Offset: 16, Kind: wire.KindU128},
		{Name: FieldInsuranceFeeRevenue, Offset: 32, Kind: wire.KindU128},
		// 48..191: risk params, not decoded
		{Name: FieldCurrentSlot, Offset: 192, Kind: wire.KindU64},
		{Name: FieldLastFundingSlot, Offset: 200, Kind: wire.KindU64},
		{Name: FieldFundingRateBpsPerSlot, Offset: 216, Kind: wire.KindI64},
		{Name: FieldLastCrankSlot, Offset: 224, Kind: wire.KindU64},
		{Name: FieldTotalOpenInterest, Offset: 248, Kind: wire.KindU128},
		{Name: FieldCTot, Offset: 264, Kind: wire.KindU128},
		{Name: FieldPnlPosTot, Offset: 280, Kind: wire.KindU128},
	},
	wire.Field{Name: FieldLifetimeLiquidations, Offset: 320, Kind: wire.KindU64},
	wire.Field{Name: FieldNumUsedAccounts, Offset: 904, Kind: wire.KindU16},
)

// LayoutV2 places a 16-byte funding index at 200 and a max crank staleness
// word at 240, neither decoded. numUsedAccounts follows the force-realize
// counter, the LP aggregates and the 512-byte used bitmap, at 912.
var LayoutV2 = mustLayout("v2",
	[]wire.Field{
		{Name: FieldVault, Offset: 0, Kind: wire.KindU128},
		{Name: FieldInsuranceBalance, Offset: 16, Kind: wire.KindU128},
		{Name: FieldInsuranceFeeRevenue, Offset: 32, Kind: wire.KindU128},
		{Name: FieldCurrentSlot, Offset: 192, Kind: wire.KindU64},
		// 200..215: funding index (i128)
		{Name: FieldLastFundingSlot, Offset: 216, Kind: wire.KindU64},
		{Name: FieldFundingRateBpsPerSlot, Offset: 224, Kind: wire.KindI64},
		{Name: FieldLastCrankSlot, Offset: 232, Kind: wire.KindU64},
		// 240..247: max crank staleness
		{Name: FieldTotalOpenInterest, Offset: 248, Kind: wire.KindU128},
		{Name: FieldCTot, Offset: 264, Kind: wire.KindU128},
		{Name: FieldPnlPosTot, Offset: 280, Kind: wire.KindU128},
	},
	wire.Field{Name: FieldLifetimeLiquidations, Offset: 320, Kind: wire.KindU64},
	wire.Field{Name: FieldNumUsedAccounts, Offset: 912, Kind: wire.KindU16},
)

// DefaultLayout is used by Decode.
var DefaultLayout = LayoutV1

// Layouts lists every known layout by name.
var Layouts = map[string]Layout{
	LayoutV1.Name: LayoutV1,
	LayoutV2.Name: LayoutV2,
}

// LayoutByName resolves "v1" / "v2" (case-insensitive). Empty means default.
func LayoutByName(name string) (Layout, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultLayout, nil
	}
	l, ok := Layouts[name]
	if !ok {
		return Layout{}, fmt.Errorf("unknown state layout %q", name)
	}
	return l, nil
}
