// Package state decodes the engine-state account into a Record.
//
// Offsets come from a Layout table and every read goes through wire.Read.
// Buffers shorter than the mandatory extent decode to nothing; longer ones
// pick up the optional trailing fields as their thresholds are reached.
// There is no magic or discriminator check: a buffer written under another
// layout, or carrying a leading tag, decodes to meaningless values.
package state

import (
	"errors"
	"fmt"

	"percolator_go/pkg/wire"
)

// ErrTruncatedInput is returned by DecodeErr when the buffer is shorter than
// the layout's mandatory extent.
var ErrTruncatedInput = errors.New("engine state buffer too short")

// ErrInvalidLayout is returned by DecodeErr for a layout that fails Validate.
var ErrInvalidLayout = errors.New("invalid engine state layout")

// Decode reads buf with DefaultLayout. ok is false when buf is truncated.
func Decode(buf []byte) (Record, bool) {
	return DecodeWithLayout(buf, DefaultLayout)
}

// DecodeWithLayout reads buf with l. ok is false when len(buf) is below
// l.MinLength() or l is not a valid layout.
func DecodeWithLayout(buf []byte, l Layout) (Record, bool) {
	tier, ok := l.TierFor(len(buf))
	if !ok {
		return Record{}, false
	}

	r := Record{Tier: tier}
	for _, f := range l.Mandatory {
		v, err := wire.Read(buf, f)
		if err != nil {
			// MinLength covers every mandatory field
			return Record{}, false
		}
		assign(&r, f.Name, v)
	}

	if tier >= TierLiquidations {
		if v, err := wire.Read(buf, l.Liquidations); err == nil {
			r.lifetimeLiquidations = v.Uint64()
		}
	}
	if tier >= TierAccounts {
		if v, err := wire.Read(buf, l.Accounts); err == nil {
			r.numUsedAccounts = v.Uint16()
		}
	}
	return r, true
}

// DecodeErr is DecodeWithLayout for callers that want an error value.
func DecodeErr(buf []byte, l Layout) (Record, error) {
	if !l.usable() {
		return Record{}, fmt.Errorf("%w: %w", ErrInvalidLayout, l.Validate())
	}
	r, ok := DecodeWithLayout(buf, l)
	if !ok {
		return Record{}, fmt.Errorf("%w: layout %s needs %d bytes, have %d",
			ErrTruncatedInput, l.Name, l.MinLength(), len(buf))
	}
	return r, nil
}

func assign(r *Record, name string, v wire.Value) {
	switch name {
	case FieldVault:
		r.Vault = v.Uint128()
	case FieldInsuranceBalance:
		r.InsuranceBalance = v.Uint128()
	case FieldInsuranceFeeRevenue:
		r.InsuranceFeeRevenue = v.Uint128()
	case FieldCurrentSlot:
		r.CurrentSlot = v.Uint64()
	case FieldLastFundingSlot:
		r.LastFundingSlot = v.Uint64()
	case FieldFundingRateBpsPerSlot:
		r.FundingRateBpsPerSlot = v.Int64()
	case FieldLastCrankSlot:
		r.LastCrankSlot = v.Uint64()
	case FieldTotalOpenInterest:
		r.TotalOpenInterest = v.Uint128()
	case FieldCTot:
		r.CTot = v.Uint128()
	case FieldPnlPosTot:
		r.PnlPosTot = v.Uint128()
	}
}
