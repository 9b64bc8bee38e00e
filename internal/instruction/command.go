// Package instruction builds the instruction payloads accepted by the
// wrapper program: one discriminator byte followed by fixed-width
// little-endian fields in a per-command order.
package instruction

import (
	"percolator_go/pkg/wide"
	"percolator_go/pkg/wire"
)

// Tag is the leading discriminator byte of an instruction payload.
type Tag uint8

const (
	TagDeposit      Tag = 0x00
	TagWithdraw     Tag = 0x01
	TagExecuteTrade Tag = 0x02
	TagKeeperCrank  Tag = 0x03
	// Reserved by the wrapper; no encoder here.
	TagAddUser Tag = 0x04
	TagAddLP   Tag = 0x05
)

func (t Tag) String() string {
	switch t {
	case TagDeposit:
		return "deposit"
	case TagWithdraw:
		return "withdraw"
	case TagExecuteTrade:
		return "execute_trade"
	case TagKeeperCrank:
		return "keeper_crank"
	case TagAddUser:
		return "add_user"
	case TagAddLP:
		return "add_lp"
	}
	return "unknown"
}

// Command is one of Deposit, Withdraw, ExecuteTrade or KeeperCrank.
type Command interface {
	Tag() Tag
	// values lists field values in layout order.
	values() []wire.Value
}

// Deposit credits amount to an account. The wrapper moves tokens into the
// vault before forwarding.
type Deposit struct {
	AccountIndex uint64
	Amount       wide.Uint128
	NowSlot      uint64
}

// Withdraw debits amount from an account, checked against oraclePrice.
type Withdraw struct {
	AccountIndex uint64
	Amount       wide.Uint128
	NowSlot      uint64
	OraclePrice  uint64
}

// ExecuteTrade opens or changes a position between an LP and a user.
// Size is signed: positive is long for the user.
type ExecuteTrade struct {
	LPIndex     uint64
	UserIndex   uint64
	NowSlot     uint64
	OraclePrice uint64
	Size        wide.Int128
}

// KeeperCrank advances funding and liquidations to NowSlot. Anyone may send it.
type KeeperCrank struct {
	CallerIndex           uint64
	NowSlot               uint64
	OraclePrice           uint64
	FundingRateBpsPerSlot int64
	AllowPanic            bool
}

func (Deposit) Tag() Tag      { return TagDeposit }
func (Withdraw) Tag() Tag     { return TagWithdraw }
func (ExecuteTrade) Tag() Tag { return TagExecuteTrade }
func (KeeperCrank) Tag() Tag  { return TagKeeperCrank }

func (c Deposit) values() []wire.Value {
	return []wire.Value{wire.U64(c.AccountIndex), wire.U128(c.Amount), wire.U64(c.NowSlot)}
}

func (c Withdraw) values() []wire.Value {
	return []wire.Value{wire.U64(c.AccountIndex), wire.U128(c.Amount), wire.U64(c.NowSlot), wire.U64(c.OraclePrice)}
}

func (c ExecuteTrade) values() []wire.Value {
	return []wire.Value{
		wire.U64(c.LPIndex),
		wire.U64(c.UserIndex),
		wire.U64(c.NowSlot),
		wire.U64(c.OraclePrice),
		wire.I128(c.Size),
	}
}

func (c KeeperCrank) values() []wire.Value {
	return []wire.Value{
		wire.U64(c.CallerIndex),
		wire.U64(c.NowSlot),
		wire.U64(c.OraclePrice),
		wire.I64(c.FundingRateBpsPerSlot),
		wire.Bool(c.AllowPanic),
	}
}
