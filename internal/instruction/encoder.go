package instruction

import (
	"errors"
	"fmt"

	"percolator_go/pkg/wire"
)

// ErrNilCommand is returned by Encode(nil).
var ErrNilCommand = errors.New("nil command")

// Encode serializes cmd. The result is always EncodedLen(cmd.Tag()) bytes.
func Encode(cmd Command) ([]byte, error) {
	var fields []wire.Field
	switch cmd.(type) {
	case Deposit:
		fields = DepositLayout
	case Withdraw:
		fields = WithdrawLayout
	case ExecuteTrade:
		fields = ExecuteTradeLayout
	case KeeperCrank:
		fields = KeeperCrankLayout
	case nil:
		return nil, ErrNilCommand
	default:
		return nil, fmt.Errorf("unsupported command %T", cmd)
	}

	buf, err := wire.Build(byte(cmd.Tag()), fields, cmd.values())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.Tag(), err)
	}
	return buf, nil
}

// MustEncode panics where Encode would fail. Typed command values always
// encode, so only a nil or foreign command can reach the panic.
func MustEncode(cmd Command) []byte {
	buf, err := Encode(cmd)
	if err != nil {
		panic("INSTRUCTION_ENCODE: " + err.Error())
	}
	return buf
}
