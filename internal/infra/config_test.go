package infra

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
cluster:
  network: mainnet
program:
  wrapper_program_id: "11111111111111111111111111111111"
state:
  layout: v2
keeper:
  interval_sec: 3
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cluster.Network != NetworkMainnet || cfg.State.Layout != "v2" || cfg.Keeper.IntervalSec != 3 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Cluster.RPS != 5 || cfg.Keeper.Mode != "PAPER" {
		t.Errorf("defaults lost: rps=%v mode=%s", cfg.Cluster.RPS, cfg.Keeper.Mode)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("RPC_URL", "http://127.0.0.1:8899")
	t.Setenv("WRAPPER_PROGRAM_ID", "Prog1111111111111111111111111111111111111111")
	t.Setenv("PERCOLATOR_LAYOUT", "v2")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(writeConfig(t, "app:\n  name: test\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cluster.Network != NetworkCustom || cfg.Cluster.RPCURL != "http://127.0.0.1:8899" {
		t.Errorf("RPC_URL not applied: %s %s", cfg.Cluster.Network, cfg.Cluster.RPCURL)
	}
	if cfg.Program.WrapperProgramID == "" || cfg.State.Layout != "v2" || cfg.Logging.Level != "debug" {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errHas string
	}{
		{"Default", func(*Config) {}, ""},
		{"Helius Without Key", func(c *Config) { c.Cluster.Network = NetworkHelius }, "helius_api_key"},
		{"Custom Bad URL", func(c *Config) {
			c.Cluster.Network = NetworkCustom
			c.Cluster.RPCURL = "ftp://x"
		}, "RPC URL"},
		{"Bad WS", func(c *Config) { c.Cluster.WSURL = "http://x" }, "WS URL"},
		{"Unknown Network", func(c *Config) { c.Cluster.Network = "testnet-9" }, "unknown network"},
		{"Zero RPS", func(c *Config) { c.Cluster.RPS = 0 }, "rps"},
		{"Bad Layout", func(c *Config) { c.State.Layout = "v7" }, "layout"},
		{"Zero Interval", func(c *Config) { c.Keeper.IntervalSec = 0 }, "interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errHas == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errHas) {
				t.Errorf("got %v, want error containing %q", err, tt.errHas)
			}
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	t.Setenv("HELIUS_API_KEY", "abc")
	cfg, err := LoadDefaultConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cluster.Network != NetworkDevnet || cfg.Cluster.HeliusAPIKey != "abc" {
		t.Errorf("unexpected config: %+v", cfg.Cluster)
	}

	t.Setenv("PERCOLATOR_LAYOUT", "v9")
	if _, err := LoadDefaultConfig(); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadConfigFiles_Secrets(t *testing.T) {
	path := writeConfig(t, "cluster:\n  network: helius\n")
	secrets := filepath.Join(t.TempDir(), "secrets.yaml")
	if err := os.WriteFile(secrets, []byte("cluster:\n  helius_api_key: from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("helius without a key should fail validation")
	}

	cfg, err := LoadConfigFiles(path, secrets)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cluster.HeliusAPIKey != "from-file" {
		t.Errorf("secret not applied: %q", cfg.Cluster.HeliusAPIKey)
	}

	t.Setenv("HELIUS_API_KEY", "from-env")
	cfg, err = LoadConfigFiles(path, secrets)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cluster.HeliusAPIKey != "from-env" {
		t.Errorf("env should win over secrets file: %q", cfg.Cluster.HeliusAPIKey)
	}

	if _, err := LoadConfigFiles(path, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing secrets file")
	}
}

func TestResolveConfigPath_Explicit(t *testing.T) {
	if got := ResolveConfigPath("/etc/p.yaml"); got != "/etc/p.yaml" {
		t.Errorf("got %s", got)
	}
}

func TestCreateLockFile(t *testing.T) {
	dir := t.TempDir()
	release, err := CreateLockFile(dir, "keeper")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CreateLockFile(dir, "keeper"); err == nil {
		t.Error("second lock should fail")
	}
	release()
	release2, err := CreateLockFile(dir, "keeper")
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	release2()
}

func TestNewLoggerTo_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("level filter broken: %q", out)
	}
	if ParseLevel("bogus") != slog.LevelInfo {
		t.Error("unknown level should be info")
	}
}
