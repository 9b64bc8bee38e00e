package instruction

import "percolator_go/pkg/wire"

// Field layouts after the discriminator byte.
var (
	DepositLayout = wire.Sequential(1,
		wire.Spec{Name: "account_index", Kind: wire.KindU64},
		wire.Spec{Name: "amount", Kind: wire.KindU128},
		wire.Spec{Name: "now_slot", Kind: wire.KindU64},
	)
	WithdrawLayout = wire.Sequential(1,
		wire.Spec{Name: "account_index", Kind: wire.KindU64},
		wire.Spec{Name: "amount", Kind: wire.KindU128},
		wire.Spec{Name: "now_slot", Kind: wire.KindU64},
		wire.Spec{Name: "oracle_price", Kind: wire.KindU64},
	)
	ExecuteTradeLayout = wire.Sequential(1,
		wire.Spec{Name: "lp_index", Kind: wire.KindU64},
		wire.Spec{Name: "user_index", Kind: wire.KindU64},
		wire.Spec{Name: "now_slot", Kind: wire.KindU64},
		wire.Spec{Name: "oracle_price", Kind: wire.KindU64},
		wire.Spec{Name: "size", Kind: wire.KindI128},
	)
	KeeperCrankLayout = wire.Sequential(1,
		wire.Spec{Name: "caller_index", Kind: wire.KindU64},
		wire.Spec{Name: "now_slot", Kind: wire.KindU64},
		wire.Spec{Name: "oracle_price", Kind: wire.KindU64},
		wire.Spec{Name: "funding_rate_bps_per_slot", Kind: wire.KindI64},
		wire.Spec{Name: "allow_panic", Kind: wire.KindBool},
	)
)

// LayoutFor returns the field layout for tag, or nil for reserved and
// unknown tags.
func LayoutFor(tag Tag) []wire.Field {
	switch tag {
	case TagDeposit:
		return DepositLayout
	case TagWithdraw:
		return WithdrawLayout
	case TagExecuteTrade:
		return ExecuteTradeLayout
	case TagKeeperCrank:
		return KeeperCrankLayout
	}
	return nil
}

// EncodedLen is the fixed payload length for tag including the
// discriminator: 33, 41, 49 and 34 bytes. Zero for tags with no layout.
func EncodedLen(tag Tag) int {
	fields := LayoutFor(tag)
	if fields == nil {
		return 0
	}
	return wire.Extent(fields)
}
