package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"percolator_go/internal/infra/solana"
	"percolator_go/internal/state"
	"percolator_go/internal/storage"
)

// Sequencer is the single-threaded processor for engine-state updates.
// Watchers and pollers push raw account updates into the inbox; the
// sequencer orders them by slot, decodes, persists and publishes.
type Sequencer struct {
	inbox   chan solana.AccountUpdate
	layout  state.Layout
	store   *storage.SnapshotStore
	archive *storage.Archive

	// Boundary: notifies the CLI of each accepted snapshot
	onUpdate func(storage.Snapshot)

	mu       sync.RWMutex // guards the fields below for external reads
	lastSlot map[solana.Address]uint64
	lastRaw  map[solana.Address][]byte
	latest   map[solana.Address]storage.Snapshot
	accepted uint64
	rejected uint64
}

// NewSequencer creates a sequencer. store and archive may be nil.
func NewSequencer(inboxSize int, layout state.Layout, store *storage.SnapshotStore, archive *storage.Archive, onUpdate func(storage.Snapshot)) *Sequencer {
	return &Sequencer{
		inbox:    make(chan solana.AccountUpdate, inboxSize),
		layout:   layout,
		store:    store,
		archive:  archive,
		onUpdate: onUpdate,
		lastSlot: make(map[solana.Address]uint64),
		lastRaw:  make(map[solana.Address][]byte),
		latest:   make(map[solana.Address]storage.Snapshot),
	}
}

// Recover seeds the slot watermark for address from the store so a restart
// does not re-record readings it already has.
func (s *Sequencer) Recover(ctx context.Context, address solana.Address) error {
	if s.store == nil {
		slog.Info("No store configured, starting fresh")
		return nil
	}

	snap, err := s.store.LatestSnapshot(ctx, address.String())
	if err != nil {
		return fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	if snap == nil {
		slog.Info("No stored snapshots, starting fresh", slog.String("address", address.String()))
		return nil
	}

	s.mu.Lock()
	s.lastSlot[address] = snap.Slot
	s.lastRaw[address] = snap.Raw
	s.latest[address] = *snap
	s.mu.Unlock()

	slog.Info("State recovered from store",
		slog.String("address", address.String()),
		slog.Uint64("slot", snap.Slot))
	return nil
}

// Inbox returns the update channel. External workers send updates here.
func (s *Sequencer) Inbox() chan<- solana.AccountUpdate {
	return s.inbox
}

// Run starts the main loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started", slog.String("layout", s.layout.Name))

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState("sequencer_panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case u := <-s.inbox:
			s.process(ctx, u)
		}
	}
}

// accept reports whether u is newer than what we already hold.
func (s *Sequencer) accept(u solana.AccountUpdate) bool {
	s.mu.RLock()
	last, seen := s.lastSlot[u.Address]
	lastRaw := s.lastRaw[u.Address]
	s.mu.RUnlock()

	if !seen {
		return true
	}
	if u.Slot < last {
		slog.Warn("SLOT_STALE_IGNORED", slog.Uint64("last", last), slog.Uint64("got", u.Slot))
		return false
	}
	if u.Slot == last && bytes.Equal(u.Data, lastRaw) {
		slog.Debug("SLOT_DUPLICATE_IGNORED", slog.Uint64("slot", u.Slot))
		return false
	}
	return true
}

func (s *Sequencer) process(ctx context.Context, u solana.AccountUpdate) {
	if !s.accept(u) {
		return
	}

	rec, ok := state.DecodeWithLayout(u.Data, s.layout)
	if !ok {
		s.mu.Lock()
		s.rejected++
		s.mu.Unlock()
		slog.Warn("STATE_UNDECODABLE",
			slog.String("address", u.Address.String()),
			slog.Int("len", len(u.Data)),
			slog.Int("min", s.layout.MinLength()))
		return
	}

	snap := storage.Snapshot{
		Address: u.Address.String(),
		Slot:    u.Slot,
		Layout:  s.layout.Name,
		Record:  rec,
		Raw:     u.Data,
	}

	// store first: an update is only published once it is durable
	if s.store != nil {
		if _, err := s.store.SaveSnapshot(ctx, &snap); err != nil {
			panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
		}
	}
	if s.archive != nil {
		if _, err := s.archive.Save(&snap); err != nil {
			slog.Warn("Archive write failed", slog.Any("error", err))
		}
	}

	s.mu.Lock()
	s.lastSlot[u.Address] = u.Slot
	s.lastRaw[u.Address] = u.Data
	s.latest[u.Address] = snap
	s.accepted++
	s.mu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(snap)
	}
}

// ProcessForTest runs one update synchronously.
func (s *Sequencer) ProcessForTest(u solana.AccountUpdate) {
	s.process(context.Background(), u)
}

// Latest returns the last accepted snapshot for address (external read).
func (s *Sequencer) Latest(address solana.Address) (storage.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.latest[address]
	return snap, ok
}

// Stats reports accepted and undecodable update counts.
func (s *Sequencer) Stats() (accepted, rejected uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accepted, s.rejected
}

// DumpState writes the latest snapshots to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	s.mu.RLock()
	latest := make(map[string]storage.Snapshot, len(s.latest))
	for addr, snap := range s.latest {
		latest[addr.String()] = snap
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(struct {
		Layout string                      `json:"layout"`
		Latest map[string]storage.Snapshot `json:"latest"`
	}{s.layout.Name, latest}, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
