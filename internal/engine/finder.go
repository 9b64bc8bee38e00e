package engine

import (
	"context"
	"errors"
	"fmt"

	"percolator_go/internal/infra/solana"
	"percolator_go/internal/state"
)

var (
	// ErrInvalidState means the account exists but does not decode.
	ErrInvalidState = errors.New("invalid state layout (wrong account or format)")
	// ErrNoStateAccount means no program account decoded as engine state.
	ErrNoStateAccount = errors.New("no engine state account found for this program")
)

// findSliceLen covers the mandatory fields and lifetime liquidations of
// either layout; the account-count field is not needed to identify state.
const findSliceLen = 330

// ProgramLister is the part of the RPC client FindState needs.
type ProgramLister interface {
	GetProgramAccounts(ctx context.Context, program solana.Address, slice *solana.DataSlice) ([]solana.ProgramAccount, error)
}

// LoadState fetches and decodes one engine-state account.
func LoadState(ctx context.Context, reader AccountReader, address solana.Address, layout state.Layout) (solana.AccountResult, state.Record, error) {
	res, err := reader.GetAccount(ctx, address)
	if err != nil {
		return res, state.Record{}, err
	}
	rec, err := state.DecodeErr(res.Data, layout)
	if err != nil {
		return res, state.Record{}, fmt.Errorf("%w: %s: %w", ErrInvalidState, address, err)
	}
	return res, rec, nil
}

// FindState scans program's accounts for the engine state. Only a prefix of
// each account is fetched; entries shorter than the layout minimum are
// skipped and the first one that decodes wins.
func FindState(ctx context.Context, lister ProgramLister, program solana.Address, layout state.Layout) (solana.Address, state.Record, error) {
	accounts, err := lister.GetProgramAccounts(ctx, program, &solana.DataSlice{Offset: 0, Length: findSliceLen})
	if err != nil {
		return solana.Address{}, state.Record{}, err
	}

	for _, acct := range accounts {
		if len(acct.Data) < layout.MinLength() {
			continue
		}
		if rec, ok := state.DecodeWithLayout(acct.Data, layout); ok {
			return acct.Address, rec, nil
		}
	}
	return solana.Address{}, state.Record{}, fmt.Errorf("%w: %s", ErrNoStateAccount, program)
}
