package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SecretConfig matches the structure of secrets/*.yaml. It holds the
// values that should stay out of the shared config file.
type SecretConfig struct {
	Cluster struct {
		HeliusAPIKey string `yaml:"helius_api_key"`
		RPCURL       string `yaml:"rpc_url"`
	} `yaml:"cluster"`
}

// LoadSecretConfig loads API keys from a separate yaml file.
// It returns error if file is missing (Fail Fast).
func LoadSecretConfig(path string) (*SecretConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret config: %w", err)
	}

	var cfg SecretConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse secret config: %w", err)
	}

	return &cfg, nil
}

// Apply copies non-empty secrets over cfg.
func (s *SecretConfig) Apply(cfg *Config) {
	if s.Cluster.HeliusAPIKey != "" {
		cfg.Cluster.HeliusAPIKey = s.Cluster.HeliusAPIKey
	}
	if s.Cluster.RPCURL != "" {
		cfg.Cluster.RPCURL = s.Cluster.RPCURL
	}
}
