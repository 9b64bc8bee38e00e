package instruction

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"percolator_go/pkg/wide"
)

// ErrValueOutOfRange means an argument does not fit its field's width or
// sign. It wraps wide.ErrOutOfRange.
var ErrValueOutOfRange = fmt.Errorf("instruction argument: %w", wide.ErrOutOfRange)

// Args carries untyped command arguments as decimal strings, the way they
// arrive from flags, config files and JSON. The builder methods range-check
// every field and return a typed Command; nothing is encoded when a check
// fails. An empty string is zero.
type Args struct {
	AccountIndex string `json:"account_index,omitempty" yaml:"account_index"`
	LPIndex      string `json:"lp_index,omitempty" yaml:"lp_index"`
	UserIndex    string `json:"user_index,omitempty" yaml:"user_index"`
	CallerIndex  string `json:"caller_index,omitempty" yaml:"caller_index"`

	// Amount is in base units unless AmountDecimals is set, in which case it
	// is a human amount such as "12.5".
	Amount         string `json:"amount,omitempty" yaml:"amount"`
	AmountDecimals int32  `json:"amount_decimals,omitempty" yaml:"amount_decimals"`

	NowSlot               string `json:"now_slot,omitempty" yaml:"now_slot"`
	OraclePrice           string `json:"oracle_price,omitempty" yaml:"oracle_price"`
	Size                  string `json:"size,omitempty" yaml:"size"`
	FundingRateBpsPerSlot string `json:"funding_rate_bps_per_slot,omitempty" yaml:"funding_rate_bps_per_slot"`
	AllowPanic            bool   `json:"allow_panic,omitempty" yaml:"allow_panic"`
}

// argParser collects the first error so builders read straight through.
type argParser struct {
	err error
}

func (p *argParser) fail(name, s string, err error) {
	if p.err != nil {
		return
	}
	if errors.Is(err, wide.ErrOutOfRange) {
		p.err = fmt.Errorf("%w: %s=%q", ErrValueOutOfRange, name, s)
		return
	}
	p.err = fmt.Errorf("%s=%q: %w", name, s, err)
}

func (p *argParser) u128(name, s string) wide.Uint128 {
	s = strings.TrimSpace(s)
	if s == "" {
		return wide.Uint128{}
	}
	u, err := wide.ParseUint128(s)
	if err != nil {
		p.fail(name, s, err)
	}
	return u
}

func (p *argParser) u64(name, s string) uint64 {
	u := p.u128(name, s)
	if u.Hi != 0 {
		p.fail(name, s, wide.ErrOutOfRange)
		return 0
	}
	return u.Lo
}

func (p *argParser) i128(name, s string) wide.Int128 {
	s = strings.TrimSpace(s)
	if s == "" {
		return wide.Int128{}
	}
	v, err := wide.ParseInt128(s)
	if err != nil {
		p.fail(name, s, err)
	}
	return v
}

func (p *argParser) i64(name, s string) int64 {
	v := p.i128(name, s)
	if !fitsInt64(v) {
		p.fail(name, s, wide.ErrOutOfRange)
		return 0
	}
	return int64(v.Lo)
}

func (p *argParser) amount(s string, decimals int32) wide.Uint128 {
	if decimals == 0 {
		return p.u128("amount", s)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return wide.Uint128{}
	}
	u, err := wide.ParseScaled(s, decimals)
	if err != nil {
		p.fail("amount", s, err)
	}
	return u
}

func fitsInt64(v wide.Int128) bool {
	switch v.Hi {
	case 0:
		return v.Lo <= math.MaxInt64
	case -1:
		return v.Lo > math.MaxInt64
	}
	return false
}

// Deposit builds a Deposit from AccountIndex, Amount and NowSlot.
func (a Args) Deposit() (Deposit, error) {
	var p argParser
	c := Deposit{
		AccountIndex: p.u64("account_index", a.AccountIndex),
		Amount:       p.amount(a.Amount, a.AmountDecimals),
		NowSlot:      p.u64("now_slot", a.NowSlot),
	}
	if p.err != nil {
		return Deposit{}, p.err
	}
	return c, nil
}

// Withdraw builds a Withdraw; it also needs OraclePrice.
func (a Args) Withdraw() (Withdraw, error) {
	var p argParser
	c := Withdraw{
		AccountIndex: p.u64("account_index", a.AccountIndex),
		Amount:       p.amount(a.Amount, a.AmountDecimals),
		NowSlot:      p.u64("now_slot", a.NowSlot),
		OraclePrice:  p.u64("oracle_price", a.OraclePrice),
	}
	if p.err != nil {
		return Withdraw{}, p.err
	}
	return c, nil
}

func (a Args) ExecuteTrade() (ExecuteTrade, error) {
	var p argParser
	c := ExecuteTrade{
		LPIndex:     p.u64("lp_index", a.LPIndex),
		UserIndex:   p.u64("user_index", a.UserIndex),
		NowSlot:     p.u64("now_slot", a.NowSlot),
		OraclePrice: p.u64("oracle_price", a.OraclePrice),
		Size:        p.i128("size", a.Size),
	}
	if p.err != nil {
		return ExecuteTrade{}, p.err
	}
	return c, nil
}

func (a Args) KeeperCrank() (KeeperCrank, error) {
	var p argParser
	c := KeeperCrank{
		CallerIndex:           p.u64("caller_index", a.CallerIndex),
		NowSlot:               p.u64("now_slot", a.NowSlot),
		OraclePrice:           p.u64("oracle_price", a.OraclePrice),
		FundingRateBpsPerSlot: p.i64("funding_rate_bps_per_slot", a.FundingRateBpsPerSlot),
		AllowPanic:            a.AllowPanic,
	}
	if p.err != nil {
		return KeeperCrank{}, p.err
	}
	return c, nil
}

// Build dispatches on tag and returns the matching Command.
func (a Args) Build(tag Tag) (Command, error) {
	var (
		cmd Command
		err error
	)
	switch tag {
	case TagDeposit:
		cmd, err = a.Deposit()
	case TagWithdraw:
		cmd, err = a.Withdraw()
	case TagExecuteTrade:
		cmd, err = a.ExecuteTrade()
	case TagKeeperCrank:
		cmd, err = a.KeeperCrank()
	default:
		return nil, fmt.Errorf("no builder for %s (0x%02x)", tag, uint8(tag))
	}
	if err != nil {
		return nil, err
	}
	return cmd, nil
}
