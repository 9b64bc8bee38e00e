package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"percolator_go/internal/infra/solana"
	"percolator_go/internal/state"
	"percolator_go/internal/storage"
)

var testAddr = solana.MustParseAddress(solana.KnownPercolatorProgram)

// v1Account builds an n-byte V1 account whose current slot is slot and
// whose V1 funding rate word (offset 216) holds rate.
func v1Account(n int, slot uint64, rate int64) []byte {
	buf := make([]byte, n)
	binary.LittleEndian.PutUint64(buf[192:], slot)
	binary.LittleEndian.PutUint64(buf[216:], uint64(rate))
	return buf
}

func openStore(t *testing.T) *storage.SnapshotStore {
	t.Helper()
	store, err := storage.NewSnapshotStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSequencer_Recover_EmptyStore(t *testing.T) {
	seq := NewSequencer(10, state.LayoutV1, openStore(t), nil, nil)
	if err := seq.Recover(context.Background(), testAddr); err != nil {
		t.Fatalf("Recover failed on empty store: %v", err)
	}
	if _, ok := seq.Latest(testAddr); ok {
		t.Error("expected no latest snapshot")
	}
}

func TestSequencer_OrdersBySlot(t *testing.T) {
	var got []uint64
	seq := NewSequencer(10, state.LayoutV1, nil, nil, func(s storage.Snapshot) {
		got = append(got, s.Slot)
	})

	seq.ProcessForTest(solana.AccountUpdate{Address: testAddr, Slot: 10, Data: v1Account(330, 10, 0)})
	seq.ProcessForTest(solana.AccountUpdate{Address: testAddr, Slot: 9, Data: v1Account(330, 9, 0)})   // stale
	seq.ProcessForTest(solana.AccountUpdate{Address: testAddr, Slot: 10, Data: v1Account(330, 10, 0)}) // duplicate
	seq.ProcessForTest(solana.AccountUpdate{Address: testAddr, Slot: 10, Data: v1Account(330, 10, 1)}) // same slot, new bytes
	seq.ProcessForTest(solana.AccountUpdate{Address: testAddr, Slot: 12, Data: v1Account(330, 12, 0)})

	want := []uint64{10, 10, 12}
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("published %v, want %v", got, want)
		}
	}
}

func TestSequencer_RejectsShortAccounts(t *testing.T) {
	seq := NewSequencer(10, state.LayoutV1, nil, nil, nil)
	seq.ProcessForTest(solana.AccountUpdate{Address: testAddr, Slot: 1, Data: make([]byte, 295)})

	accepted, rejected := seq.Stats()
	if accepted != 0 || rejected != 1 {
		t.Errorf("stats = %d/%d, want 0/1", accepted, rejected)
	}
	if _, ok := seq.Latest(testAddr); ok {
		t.Error("undecodable update must not become latest")
	}
}

// TestSequencer_RecoverAfterRestart verifies a restarted sequencer skips
// readings it already stored.
func TestSequencer_RecoverAfterRestart(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	seq1 := NewSequencer(10, state.LayoutV1, store, nil, nil)
	seq1.ProcessForTest(solana.AccountUpdate{Address: testAddr, Slot: 100, Data: v1Account(330, 100, -3)})

	var published int
	seq2 := NewSequencer(10, state.LayoutV1, store, nil, func(storage.Snapshot) { published++ })
	if err := seq2.Recover(ctx, testAddr); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	latest, ok := seq2.Latest(testAddr)
	if !ok || latest.Slot != 100 || latest.Record.FundingRateBpsPerSlot != -3 {
		t.Fatalf("recovered %+v, %v", latest, ok)
	}

	seq2.ProcessForTest(solana.AccountUpdate{Address: testAddr, Slot: 100, Data: v1Account(330, 100, -3)})
	seq2.ProcessForTest(solana.AccountUpdate{Address: testAddr, Slot: 101, Data: v1Account(330, 101, -3)})
	if published != 1 {
		t.Errorf("published %d updates after restart, want 1", published)
	}

	last, err := store.LastSlot(ctx, testAddr.String())
	if err != nil || last != 101 {
		t.Errorf("LastSlot = %d, %v", last, err)
	}
}

// TestReplay_Relayout re-decodes stored V1 bytes under V2, where offset 216
// is the last funding slot instead of the funding rate.
func TestReplay_Relayout(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	live := NewSequencer(10, state.LayoutV1, store, nil, nil)
	for slot := uint64(1); slot <= 3; slot++ {
		live.ProcessForTest(solana.AccountUpdate{Address: testAddr, Slot: slot, Data: v1Account(330, slot, 7)})
	}

	var replayed []storage.Snapshot
	seq := NewSequencer(10, state.LayoutV2, nil, nil, func(s storage.Snapshot) { replayed = append(replayed, s) })
	n, err := Replay(ctx, store, testAddr, 0, seq)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if n != 3 || len(replayed) != 3 {
		t.Fatalf("replayed %d/%d, want 3", n, len(replayed))
	}
	if replayed[0].Slot != 1 || replayed[2].Slot != 3 {
		t.Errorf("replay out of order: %d..%d", replayed[0].Slot, replayed[2].Slot)
	}
	if got := replayed[2].Record.LastFundingSlot; got != 7 {
		t.Errorf("V2 last funding slot = %d, want 7", got)
	}
	if replayed[2].Layout != state.LayoutV2.Name {
		t.Errorf("layout = %s", replayed[2].Layout)
	}
}

type fakeReader struct {
	mu    sync.Mutex
	calls int
	slot  uint64
}

func (f *fakeReader) GetAccount(ctx context.Context, address solana.Address) (solana.AccountResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == 2 {
		return solana.AccountResult{}, errors.New("transient")
	}
	f.slot++
	return solana.AccountResult{Slot: f.slot, Data: v1Account(296, f.slot, 0)}, nil
}

func TestPoll_ForwardsUpdates(t *testing.T) {
	reader := &fakeReader{}
	inbox := make(chan solana.AccountUpdate, 10)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Poll(ctx, reader, testAddr, 5*time.Millisecond, inbox)
		close(done)
	}()

	var got []solana.AccountUpdate
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case u := <-inbox:
			got = append(got, u)
		case <-timeout:
			t.Fatal("poller did not forward updates")
		}
	}
	cancel()
	<-done

	if got[0].Slot != 1 || got[1].Slot != 2 || got[0].Address != testAddr {
		t.Errorf("unexpected updates: %+v", got)
	}
}

func TestSequencer_RunStopsOnCancel(t *testing.T) {
	var mu sync.Mutex
	var slots []uint64
	seq := NewSequencer(10, state.LayoutV1, nil, nil, func(s storage.Snapshot) {
		mu.Lock()
		slots = append(slots, s.Slot)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		seq.Run(ctx)
		close(done)
	}()

	seq.Inbox() <- solana.AccountUpdate{Address: testAddr, Slot: 5, Data: v1Account(296, 5, 0)}
	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(slots)
		mu.Unlock()
		if n == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(slots) != 1 || slots[0] != 5 {
		t.Errorf("slots = %v", slots)
	}
}
