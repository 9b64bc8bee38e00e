package solana

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"percolator_go/internal/infra"
)

// AccountUpdate is one accountNotification payload.
type AccountUpdate struct {
	Address Address
	Slot    uint64
	Data    []byte
}

// AccountWatcher subscribes to changes of a single account over the pubsub
// websocket. It implements infra.WebSocketHandler; run it with
// infra.NewBaseWSWorker.
type AccountWatcher struct {
	wsURL      string
	address    Address
	commitment string
	onUpdate   func(AccountUpdate)

	mu    sync.Mutex
	subID *uint64
}

// NewAccountWatcher creates a watcher that calls onUpdate from the worker's
// read goroutine for every notification.
func NewAccountWatcher(wsURL string, address Address, commitment string, onUpdate func(AccountUpdate)) *AccountWatcher {
	if commitment == "" {
		commitment = "confirmed"
	}
	return &AccountWatcher{
		wsURL:      wsURL,
		address:    address,
		commitment: commitment,
		onUpdate:   onUpdate,
	}
}

func (a *AccountWatcher) ID() string  { return "ACCOUNT:" + TruncateAddress(a.address.String()) }
func (a *AccountWatcher) URL() string { return a.wsURL }

const subscribeRequestID = 1

func (a *AccountWatcher) OnConnect(ctx context.Context, w *infra.BaseWSWorker) error {
	return w.WriteJSON(rpcRequest{
		JSONRPC: "2.0",
		ID:      subscribeRequestID,
		Method:  "accountSubscribe",
		Params: []any{a.address.String(), map[string]any{
			"encoding":   "base64",
			"commitment": a.commitment,
		}},
	})
}

// OnDisconnect forgets the subscription; ids do not survive a reconnect.
func (a *AccountWatcher) OnDisconnect() {
	a.mu.Lock()
	a.subID = nil
	a.mu.Unlock()
}

// SubscriptionID reports the current subscription, if confirmed.
func (a *AccountWatcher) SubscriptionID() (uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.subID == nil {
		return 0, false
	}
	return *a.subID, true
}

type wsMessage struct {
	ID     *uint64         `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	Params *struct {
		Subscription uint64 `json:"subscription"`
		Result       struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value *accountInfo `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

func (a *AccountWatcher) OnMessage(ctx context.Context, msg []byte) {
	var m wsMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		slog.Warn("unparseable pubsub message", "watcher", a.ID(), "err", err)
		return
	}

	switch {
	case m.ID != nil && *m.ID == subscribeRequestID:
		if m.Error != nil {
			slog.Error("accountSubscribe rejected", "watcher", a.ID(), "err", m.Error)
			return
		}
		var id uint64
		if err := json.Unmarshal(m.Result, &id); err != nil {
			slog.Warn("bad subscription id", "watcher", a.ID(), "err", err)
			return
		}
		a.mu.Lock()
		a.subID = &id
		a.mu.Unlock()
		slog.Info("account subscribed", "watcher", a.ID(), "subscription", id)

	case m.Method == "accountNotification" && m.Params != nil:
		if cur, ok := a.SubscriptionID(); ok && cur != m.Params.Subscription {
			return
		}
		v := m.Params.Result.Value
		if v == nil {
			slog.Warn("account closed", "watcher", a.ID())
			return
		}
		data, err := v.decode()
		if err != nil {
			slog.Warn("bad account data", "watcher", a.ID(), "err", err)
			return
		}
		if a.onUpdate != nil {
			a.onUpdate(AccountUpdate{
				Address: a.address,
				Slot:    m.Params.Result.Context.Slot,
				Data:    data,
			})
		}
	}
}
