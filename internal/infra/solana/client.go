package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"percolator_go/internal/infra"
)

var (
	// ErrAccountNotFound means the RPC returned a null account value.
	ErrAccountNotFound = errors.New("account not found")
	// ErrRPC wraps JSON-RPC error objects returned by the node.
	ErrRPC = errors.New("rpc error")
)

const maxAttempts = 3

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (e *RPCError) Unwrap() error { return ErrRPC }

// Client calls a Solana JSON-RPC endpoint. Every call waits on the shared
// rate limiter and goes through the circuit breaker; transport failures and
// 429/5xx responses are retried with RequestBackoff.
type Client struct {
	endpoint   string
	commitment string
	httpClient *http.Client
	limiter    *infra.RateLimiter
	breaker    *infra.CircuitBreaker
	backoff    infra.Backoff
	nextID     atomic.Uint64
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (tests inject transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter shares a rate limiter across clients.
func WithLimiter(l *infra.RateLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithBackoff overrides the per-request retry schedule.
func WithBackoff(b infra.Backoff) Option {
	return func(c *Client) { c.backoff = b }
}

// WithCommitment sets the commitment sent with reads.
func WithCommitment(commitment string) Option {
	return func(c *Client) { c.commitment = commitment }
}

// NewClient creates a client for endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		commitment: "confirmed",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    infra.NewRateLimiter(5, 5),
		breaker:    infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("rpc")),
		backoff:    infra.RequestBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig resolves the cluster endpoint and limits from cfg.
func NewClientFromConfig(cfg *infra.Config, opts ...Option) (*Client, error) {
	rpcURL, _, err := Endpoints(cfg)
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithLimiter(infra.NewClusterLimiter(cfg)),
		WithCommitment(cfg.Cluster.Commitment),
	}
	if cfg.Cluster.TimeoutSec > 0 {
		base = append(base, WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Cluster.TimeoutSec) * time.Second}))
	}
	return NewClient(rpcURL, append(base, opts...)...), nil
}

// Endpoint returns the RPC URL.
func (c *Client) Endpoint() string { return c.endpoint }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// retryableError marks failures worth another attempt.
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// call performs one JSON-RPC method and unmarshals result into out.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying rpc call", "method", method, "attempt", attempt, "err", lastErr)
			if err := c.backoff.Sleep(ctx, attempt-1); err != nil {
				return err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var result json.RawMessage
		err := c.breaker.Do(func() error {
			var err error
			result, err = c.post(ctx, method, params)
			return err
		}, isEndpointFailure)
		if err == nil {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(result, out); err != nil {
				return fmt.Errorf("%s: decode result: %w", method, err)
			}
			return nil
		}

		lastErr = err
		var re retryableError
		if !errors.As(err, &re) {
			return fmt.Errorf("%s: %w", method, err)
		}
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", method, maxAttempts, lastErr)
}

func (c *Client) post(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", infra.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retryableError{err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, retryableError{err}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, retryableError{fmt.Errorf("http %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, truncateBody(data))
	}

	var rr rpcResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rr.Error != nil {
		return nil, rr.Error
	}
	return rr.Result, nil
}

// isEndpointFailure decides what counts against the circuit breaker: only
// transport-level trouble, not application answers like a JSON-RPC error.
func isEndpointFailure(err error) bool {
	var re retryableError
	return errors.As(err, &re)
}

func truncateBody(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// DataSlice limits returned account data to [Offset, Offset+Length).
type DataSlice struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

type accountInfo struct {
	Data       [2]string `json:"data"` // [payload, "base64"]
	Owner      string    `json:"owner"`
	Lamports   uint64    `json:"lamports"`
	Executable bool      `json:"executable"`
}

func (a accountInfo) decode() ([]byte, error) {
	if a.Data[1] != "base64" {
		return nil, fmt.Errorf("unexpected data encoding %q", a.Data[1])
	}
	return base64.StdEncoding.DecodeString(a.Data[0])
}

// AccountResult is account data plus the slot it was read at.
type AccountResult struct {
	Slot  uint64
	Owner string
	Data  []byte
}

// GetAccount fetches one account.
func (c *Client) GetAccount(ctx context.Context, address Address) (AccountResult, error) {
	var res struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value *accountInfo `json:"value"`
	}
	params := []any{address.String(), map[string]any{
		"encoding":   "base64",
		"commitment": c.commitment,
	}}
	if err := c.call(ctx, "getAccountInfo", params, &res); err != nil {
		return AccountResult{}, err
	}
	if res.Value == nil {
		return AccountResult{}, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	data, err := res.Value.decode()
	if err != nil {
		return AccountResult{}, fmt.Errorf("getAccountInfo %s: %w", address, err)
	}
	return AccountResult{Slot: res.Context.Slot, Owner: res.Value.Owner, Data: data}, nil
}

// GetAccountData fetches the raw data of one account.
func (c *Client) GetAccountData(ctx context.Context, address Address) ([]byte, error) {
	res, err := c.GetAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// ProgramAccount is one entry of getProgramAccounts.
type ProgramAccount struct {
	Address Address
	Data    []byte
}

// GetProgramAccounts lists accounts owned by program. A non-nil slice asks
// the node to return only that window of each account's data.
func (c *Client) GetProgramAccounts(ctx context.Context, program Address, slice *DataSlice) ([]ProgramAccount, error) {
	opts := map[string]any{
		"encoding":   "base64",
		"commitment": c.commitment,
	}
	if slice != nil {
		opts["dataSlice"] = slice
	}

	var res []struct {
		Pubkey  string      `json:"pubkey"`
		Account accountInfo `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", []any{program.String(), opts}, &res); err != nil {
		return nil, err
	}

	out := make([]ProgramAccount, 0, len(res))
	for _, r := range res {
		addr, err := ParseAddress(r.Pubkey)
		if err != nil {
			slog.Warn("skipping account with bad pubkey", "pubkey", r.Pubkey, "err", err)
			continue
		}
		data, err := r.Account.decode()
		if err != nil {
			slog.Warn("skipping account with bad data", "pubkey", r.Pubkey, "err", err)
			continue
		}
		out = append(out, ProgramAccount{Address: addr, Data: data})
	}
	return out, nil
}

// GetSlot returns the current slot at the client's commitment.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	params := []any{map[string]any{"commitment": c.commitment}}
	if err := c.call(ctx, "getSlot", params, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}
