package app

import (
	"os"
	"path/filepath"
	"testing"

	"percolator_go/internal/infra/solana"
	"percolator_go/internal/state"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBootstrap_Initialize(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "snapshots.db")
	path := writeConfig(t, `
state:
  layout: v2
storage:
  db_path: "`+dbPath+`"
`)

	b := NewBootstrap()
	if err := b.Initialize(Options{ConfigPath: path}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer b.Close()

	if b.Layout.Name != state.LayoutV2.Name {
		t.Errorf("layout = %s, want v2", b.Layout.Name)
	}

	store, err := b.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	again, _ := b.OpenStore()
	if store != again {
		t.Error("OpenStore should reuse the open store")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestBootstrap_LayoutFlagWins(t *testing.T) {
	b := NewBootstrap()
	if err := b.Initialize(Options{ConfigPath: writeConfig(t, "state:\n  layout: v2\n"), Layout: "v1"}); err != nil {
		t.Fatal(err)
	}
	if b.Layout.Name != state.LayoutV1.Name {
		t.Errorf("layout = %s, want v1", b.Layout.Name)
	}

	if err := NewBootstrap().Initialize(Options{ConfigPath: writeConfig(t, ""), Layout: "v7"}); err == nil {
		t.Error("expected error for unknown layout")
	}
}

func TestBootstrap_MissingExplicitConfig(t *testing.T) {
	err := NewBootstrap().Initialize(Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestBootstrap_Addresses(t *testing.T) {
	b := NewBootstrap()
	if err := b.Initialize(Options{ConfigPath: writeConfig(t, "")}); err != nil {
		t.Fatal(err)
	}

	prog, err := b.ProgramAddress()
	if err != nil || prog.String() != solana.KnownPercolatorProgram {
		t.Errorf("default program = %s, %v", prog, err)
	}
	if _, ok, err := b.StateAddress(); ok || err != nil {
		t.Errorf("unset state address: ok=%v err=%v", ok, err)
	}

	b.Config.Program.EngineStateAddress = "bad"
	if _, _, err := b.StateAddress(); err == nil {
		t.Error("expected error for bad state address")
	}
	if b.ExplorerCluster() != "devnet" {
		t.Errorf("cluster = %q", b.ExplorerCluster())
	}

	c, err := b.Client()
	if err != nil {
		t.Fatal(err)
	}
	if c.Endpoint() != solana.DevnetRPC {
		t.Errorf("endpoint = %s", c.Endpoint())
	}
}

func TestRedact(t *testing.T) {
	if got := redact(solana.HeliusMainnetRPC("secret")); got != "https://mainnet.helius-rpc.com/?api-key=***" {
		t.Errorf("got %s", got)
	}
	if got := redact(solana.DevnetRPC); got != solana.DevnetRPC {
		t.Errorf("got %s", got)
	}
}
