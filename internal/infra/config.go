package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Cluster names accepted in cluster.network.
const (
	NetworkDevnet  = "devnet"
	NetworkMainnet = "mainnet"
	NetworkHelius  = "helius"
	NetworkCustom  = "custom"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 민감 내용을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Cluster struct {
		Network      string  `yaml:"network"` // devnet | mainnet | helius | custom
		RPCURL       string  `yaml:"rpc_url"`
		WSURL        string  `yaml:"ws_url"`
		HeliusAPIKey string  `yaml:"helius_api_key"`
		Commitment   string  `yaml:"commitment"`
		RPS          float64 `yaml:"rps"`
		Burst        int     `yaml:"burst"`
		TimeoutSec   int     `yaml:"timeout_sec"`
	} `yaml:"cluster"`

	Program struct {
		WrapperProgramID   string `yaml:"wrapper_program_id"`
		EngineStateAddress string `yaml:"engine_state_address"`
	} `yaml:"program"`

	State struct {
		Layout string `yaml:"layout"` // v1 | v2
	} `yaml:"state"`

	Keeper struct {
		Mode                  string `yaml:"mode"` // PAPER | PIPE
		IntervalSec           int    `yaml:"interval_sec"`
		CallerIndex           string `yaml:"caller_index"`
		OraclePrice           string `yaml:"oracle_price"`
		FundingRateBpsPerSlot string `yaml:"funding_rate_bps_per_slot"`
		AllowPanic            bool   `yaml:"allow_panic"`
	} `yaml:"keeper"`

	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a devnet configuration usable without a file.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = AppName
	cfg.Cluster.Network = NetworkDevnet
	cfg.Cluster.Commitment = "confirmed"
	cfg.Cluster.RPS = 5
	cfg.Cluster.Burst = 5
	cfg.Cluster.TimeoutSec = 15
	cfg.State.Layout = "v1"
	cfg.Keeper.Mode = "PAPER"
	cfg.Keeper.IntervalSec = 10
	cfg.Keeper.OraclePrice = "1000000"
	cfg.Logging.Level = "info"
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
// Values missing from the file keep their DefaultConfig value.
func LoadConfig(path string) (*Config, error) {
	return LoadConfigFiles(path, "")
}

// LoadDefaultConfig is LoadConfig without a file: defaults plus
// environment overrides.
func LoadDefaultConfig() (*Config, error) {
	return LoadConfigFiles("", "")
}

// LoadConfigFiles layers defaults, the config file, the secrets file and
// the environment, in that order, then validates. An empty path skips
// that layer.
func LoadConfigFiles(path, secretPath string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if secretPath != "" {
		secrets, err := LoadSecretConfig(secretPath)
		if err != nil {
			return nil, err
		}
		secrets.Apply(cfg)
	}

	// 환경 변수 오버라이드
	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	switch c.Cluster.Network {
	case NetworkDevnet, NetworkMainnet:
	case NetworkHelius:
		if c.Cluster.HeliusAPIKey == "" {
			return fmt.Errorf("network helius requires helius_api_key (or HELIUS_API_KEY)")
		}
	case NetworkCustom:
		if !strings.HasPrefix(c.Cluster.RPCURL, "http://") && !strings.HasPrefix(c.Cluster.RPCURL, "https://") {
			return fmt.Errorf("invalid RPC URL: %s", c.Cluster.RPCURL)
		}
	default:
		return fmt.Errorf("unknown network: %s", c.Cluster.Network)
	}

	if c.Cluster.WSURL != "" && !strings.HasPrefix(c.Cluster.WSURL, "ws://") && !strings.HasPrefix(c.Cluster.WSURL, "wss://") {
		return fmt.Errorf("invalid WS URL: %s", c.Cluster.WSURL)
	}
	if c.Cluster.RPS <= 0 || c.Cluster.Burst <= 0 {
		return fmt.Errorf("rps and burst must be positive")
	}

	switch strings.ToLower(c.State.Layout) {
	case "", "v1", "v2":
	default:
		return fmt.Errorf("unknown state layout: %s", c.State.Layout)
	}

	if c.Keeper.IntervalSec <= 0 {
		return fmt.Errorf("keeper interval must be positive")
	}

	return nil
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
// 환경 변수는 설정 파일보다 우선합니다.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.Cluster.RPCURL = v
		if cfg.Cluster.Network == NetworkDevnet {
			cfg.Cluster.Network = NetworkCustom
		}
	}
	if v := os.Getenv("WS_URL"); v != "" {
		cfg.Cluster.WSURL = v
	}
	if v := os.Getenv("HELIUS_API_KEY"); v != "" {
		cfg.Cluster.HeliusAPIKey = v
	}
	if v := os.Getenv("WRAPPER_PROGRAM_ID"); v != "" {
		cfg.Program.WrapperProgramID = v
	}
	if v := os.Getenv("ENGINE_STATE_PDA"); v != "" {
		cfg.Program.EngineStateAddress = v
	}
	if v := os.Getenv("PERCOLATOR_LAYOUT"); v != "" {
		cfg.State.Layout = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
