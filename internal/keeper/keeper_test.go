package keeper

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"percolator_go/internal/execution"
	"percolator_go/internal/infra"
	"percolator_go/internal/instruction"
)

type fakeSlots struct {
	mu   sync.Mutex
	slot uint64
	errs []error
}

func (f *fakeSlots) GetSlot(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return 0, err
		}
	}
	f.slot++
	return f.slot, nil
}

func TestKeeper_RunOnce(t *testing.T) {
	mock := execution.NewMockSubmitter()
	args := instruction.Args{
		CallerIndex:           "2",
		OraclePrice:           "1000000",
		FundingRateBpsPerSlot: "-4",
		AllowPanic:            true,
	}
	k := New(&fakeSlots{slot: 41}, mock, "prog", args, time.Second)

	if _, err := k.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	got := mock.Submitted()
	if len(got) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(got))
	}
	data := got[0].Data
	if got[0].ProgramID != "prog" || got[0].Tag != instruction.TagKeeperCrank || len(data) != 34 {
		t.Fatalf("unexpected instruction: %+v", got[0])
	}
	if data[0] != 3 {
		t.Errorf("tag byte = %d", data[0])
	}
	if v := binary.LittleEndian.Uint64(data[1:]); v != 2 {
		t.Errorf("caller = %d", v)
	}
	if v := binary.LittleEndian.Uint64(data[9:]); v != 42 {
		t.Errorf("now slot = %d, want 42", v)
	}
	if v := binary.LittleEndian.Uint64(data[17:]); v != 1_000_000 {
		t.Errorf("oracle = %d", v)
	}
	if v := int64(binary.LittleEndian.Uint64(data[25:])); v != -4 {
		t.Errorf("funding = %d", v)
	}
	if data[33] != 1 {
		t.Errorf("allow panic = %d", data[33])
	}
}

func TestKeeper_RunOnceErrors(t *testing.T) {
	boom := errors.New("boom")

	k := New(&fakeSlots{errs: []error{boom}}, execution.NewMockSubmitter(), "prog", instruction.Args{}, time.Second)
	if _, err := k.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Errorf("slot error: got %v", err)
	}

	mock := execution.NewMockSubmitter()
	mock.Err = boom
	k = New(&fakeSlots{}, mock, "prog", instruction.Args{}, time.Second)
	if _, err := k.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Errorf("submit error: got %v", err)
	}

	k = New(&fakeSlots{}, execution.NewMockSubmitter(), "prog", instruction.Args{OraclePrice: "-1"}, time.Second)
	if _, err := k.RunOnce(context.Background()); !errors.Is(err, instruction.ErrValueOutOfRange) {
		t.Errorf("bad args: got %v", err)
	}
}

func TestKeeper_Validate(t *testing.T) {
	ok := New(&fakeSlots{}, execution.NewMockSubmitter(), "prog", instruction.Args{OraclePrice: "1"}, time.Second)
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	noProgram := New(&fakeSlots{}, execution.NewMockSubmitter(), "", instruction.Args{}, time.Second)
	if err := noProgram.Validate(); err == nil {
		t.Error("expected error for missing program")
	}
	badRate := New(&fakeSlots{}, execution.NewMockSubmitter(), "prog", instruction.Args{FundingRateBpsPerSlot: "9223372036854775808"}, time.Second)
	if err := badRate.Validate(); err == nil {
		t.Error("expected error for funding rate overflow")
	}
}

func TestKeeper_RunKeepsGoingAfterFailure(t *testing.T) {
	mock := execution.NewMockSubmitter()
	slots := &fakeSlots{errs: []error{errors.New("transient")}}
	k := New(slots, mock, "prog", instruction.Args{}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- k.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(mock.Submitted()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	if len(mock.Submitted()) < 2 {
		t.Error("keeper did not recover after a failed tick")
	}
}

func TestArgsFromConfig(t *testing.T) {
	cfg := infra.DefaultConfig()
	cfg.Keeper.CallerIndex = "3"
	cfg.Keeper.AllowPanic = true

	args := ArgsFromConfig(cfg)
	if args.CallerIndex != "3" || args.OraclePrice != "1000000" || !args.AllowPanic {
		t.Errorf("unexpected args: %+v", args)
	}
}
