// Package solana is a small JSON-RPC and pubsub client for the calls the
// tools need: account data, program account scans, the current slot and
// account change notifications.
package solana

import (
	"fmt"
	"net/url"
	"strings"

	"percolator_go/internal/infra"
)

const (
	DevnetRPC        = "https://api.devnet.solana.com"
	MainnetPublicRPC = "https://api.mainnet-beta.solana.com"
	heliusMainnetRPC = "https://mainnet.helius-rpc.com/"

	// KnownPercolatorProgram is the default wrapper program for "find".
	KnownPercolatorProgram = "GM8zjJ8LTBMv9xEsverh6H6wLyevgMHEJXcEzyY3rY24"
)

// HeliusMainnetRPC returns the Helius endpoint for apiKey.
func HeliusMainnetRPC(apiKey string) string {
	return heliusMainnetRPC + "?api-key=" + url.QueryEscape(apiKey)
}

// Endpoints resolves the RPC and websocket URLs for cfg.Cluster. Mainnet
// switches to Helius when an API key is configured, since the public
// endpoint rejects heavy calls such as getProgramAccounts.
func Endpoints(cfg *infra.Config) (rpcURL, wsURL string, err error) {
	c := cfg.Cluster
	switch c.Network {
	case infra.NetworkDevnet:
		rpcURL = DevnetRPC
	case infra.NetworkMainnet:
		rpcURL = MainnetPublicRPC
		if key := strings.TrimSpace(c.HeliusAPIKey); key != "" {
			rpcURL = HeliusMainnetRPC(key)
		}
	case infra.NetworkHelius:
		rpcURL = HeliusMainnetRPC(strings.TrimSpace(c.HeliusAPIKey))
	case infra.NetworkCustom:
		rpcURL = c.RPCURL
	default:
		return "", "", fmt.Errorf("unknown network %q", c.Network)
	}
	if c.RPCURL != "" {
		rpcURL = c.RPCURL
	}

	wsURL = c.WSURL
	if wsURL == "" {
		wsURL = DeriveWSURL(rpcURL)
	}
	return rpcURL, wsURL, nil
}

// DeriveWSURL maps http(s) to ws(s); Solana serves pubsub on the same host.
func DeriveWSURL(rpcURL string) string {
	switch {
	case strings.HasPrefix(rpcURL, "https://"):
		return "wss://" + strings.TrimPrefix(rpcURL, "https://")
	case strings.HasPrefix(rpcURL, "http://"):
		return "ws://" + strings.TrimPrefix(rpcURL, "http://")
	}
	return rpcURL
}

// ExplorerCluster is "devnet" for devnet and "" otherwise.
func ExplorerCluster(cfg *infra.Config) string {
	if cfg.Cluster.Network == infra.NetworkDevnet {
		return "devnet"
	}
	return ""
}
