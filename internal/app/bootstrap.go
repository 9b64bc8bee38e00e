package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"percolator_go/internal/infra"
	"percolator_go/internal/infra/solana"
	"percolator_go/internal/state"
	"percolator_go/internal/storage"
)

// Bootstrap orchestrates startup shared by the CLI commands. Pieces that
// touch the network or disk are opened on demand so offline commands such
// as decode and encode never need them.
type Bootstrap struct {
	Config *infra.Config
	Layout state.Layout
	Store  *storage.SnapshotStore

	client  *solana.Client
	unlocks []func()
}

// Options are the global CLI flags.
type Options struct {
	ConfigPath  string
	SecretsPath string
	Layout      string
	LogLevel    string
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration, installs the logger and resolves the
// state layout. A missing config file is only an error when the path was
// given explicitly.
func (b *Bootstrap) Initialize(opts Options) error {
	cfg, err := infra.LoadConfigFiles(infra.ResolveConfigPath(opts.ConfigPath), opts.SecretsPath)
	if errors.Is(err, fs.ErrNotExist) && opts.ConfigPath == "" {
		cfg, err = infra.LoadConfigFiles("", opts.SecretsPath)
	}
	if err != nil {
		return err
	}
	if opts.Layout != "" {
		cfg.State.Layout = opts.Layout
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg))

	layout, err := state.LayoutByName(cfg.State.Layout)
	if err != nil {
		return err
	}
	b.Layout = layout

	slog.Debug("Bootstrapped",
		slog.String("network", cfg.Cluster.Network),
		slog.String("layout", layout.Name))
	return nil
}

// Client returns the RPC client, creating it on first use.
func (b *Bootstrap) Client() (*solana.Client, error) {
	if b.client != nil {
		return b.client, nil
	}
	c, err := solana.NewClientFromConfig(b.Config)
	if err != nil {
		return nil, err
	}
	b.client = c
	slog.Debug("RPC client ready", slog.String("endpoint", redact(c.Endpoint())))
	return c, nil
}

// WSURL returns the pubsub endpoint for the configured cluster.
func (b *Bootstrap) WSURL() (string, error) {
	_, ws, err := solana.Endpoints(b.Config)
	return ws, err
}

// OpenStore opens the snapshot database (WAL mode), creating its directory.
func (b *Bootstrap) OpenStore() (*storage.SnapshotStore, error) {
	if b.Store != nil {
		return b.Store, nil
	}
	dbPath := b.Config.Storage.DBPath
	if dbPath == "" {
		dbPath = infra.DefaultDBPath()
	}
	if err := infra.EnsureDir(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	store, err := storage.NewSnapshotStore(dbPath)
	if err != nil {
		return nil, err
	}
	b.Store = store
	slog.Info("Snapshot store initialized (WAL-mode)", "path", dbPath)
	return store, nil
}

// Lock takes a named workspace lock, released by Close.
func (b *Bootstrap) Lock(name string) error {
	workDir := infra.GetWorkspaceDir()
	if err := infra.EnsureDir(workDir); err != nil {
		return err
	}
	unlock, err := infra.CreateLockFile(workDir, name)
	if err != nil {
		return err
	}
	b.unlocks = append(b.unlocks, unlock)
	return nil
}

// StateAddress returns the configured engine-state account, if any.
func (b *Bootstrap) StateAddress() (solana.Address, bool, error) {
	s := b.Config.Program.EngineStateAddress
	if s == "" {
		return solana.Address{}, false, nil
	}
	a, err := solana.ParseAddress(s)
	if err != nil {
		return solana.Address{}, false, fmt.Errorf("program.engine_state_address: %w", err)
	}
	return a, true, nil
}

// ProgramAddress returns the configured wrapper program, or the known
// Percolator program when none is set.
func (b *Bootstrap) ProgramAddress() (solana.Address, error) {
	s := b.Config.Program.WrapperProgramID
	if s == "" {
		s = solana.KnownPercolatorProgram
	}
	a, err := solana.ParseAddress(s)
	if err != nil {
		return solana.Address{}, fmt.Errorf("program.wrapper_program_id: %w", err)
	}
	return a, nil
}

// ExplorerCluster is the Solscan cluster for links.
func (b *Bootstrap) ExplorerCluster() string {
	return solana.ExplorerCluster(b.Config)
}

// Close releases locks and closes the store.
func (b *Bootstrap) Close() {
	for i := len(b.unlocks) - 1; i >= 0; i-- {
		b.unlocks[i]()
	}
	b.unlocks = nil
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Warn("Failed to close store", slog.Any("error", err))
		}
		b.Store = nil
	}
}

// redact hides API keys passed as query parameters.
func redact(u string) string {
	if i := strings.Index(u, "api-key="); i >= 0 {
		return u[:i+len("api-key=")] + "***"
	}
	return u
}
