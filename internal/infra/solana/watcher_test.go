package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"percolator_go/internal/infra"
)

func TestAccountWatcher_SubscribeAndNotify(t *testing.T) {
	addr := MustParseAddress(KnownPercolatorProgram)
	payload := []byte{9, 8, 7}
	gotSub := make(chan rpcRequest, 1)

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		gotSub <- req

		conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","result":77,"id":1}`))
		// a notification for a different subscription is ignored
		conn.WriteMessage(websocket.TextMessage, []byte(notification(78, 1, []byte{0})))
		conn.WriteMessage(websocket.TextMessage, []byte(notification(77, 500, payload)))
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	updates := make(chan AccountUpdate, 4)
	watcher := NewAccountWatcher(strings.Replace(server.URL, "http://", "ws://", 1), addr, "", func(u AccountUpdate) {
		updates <- u
	})
	worker := infra.NewBaseWSWorker(watcher)
	worker.Start(context.Background())
	defer worker.Stop()

	select {
	case req := <-gotSub:
		if req.Method != "accountSubscribe" || req.Params[0] != addr.String() {
			t.Errorf("unexpected subscribe: %+v", req)
		}
		opts, _ := req.Params[1].(map[string]any)
		if opts["encoding"] != "base64" || opts["commitment"] != "confirmed" {
			t.Errorf("unexpected options: %v", opts)
		}
	case <-time.After(time.Second):
		t.Fatal("no subscription received")
	}

	select {
	case u := <-updates:
		if u.Slot != 500 || !bytes.Equal(u.Data, payload) || u.Address != addr {
			t.Errorf("unexpected update: %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}

	if id, ok := watcher.SubscriptionID(); !ok || id != 77 {
		t.Errorf("subscription id = %d, %v", id, ok)
	}
}

func TestAccountWatcher_OnDisconnectClearsSubscription(t *testing.T) {
	w := NewAccountWatcher("ws://unused", Address{}, "finalized", nil)
	w.OnMessage(context.Background(), []byte(`{"jsonrpc":"2.0","result":5,"id":1}`))
	if _, ok := w.SubscriptionID(); !ok {
		t.Fatal("expected subscription")
	}
	w.OnDisconnect()
	if _, ok := w.SubscriptionID(); ok {
		t.Error("subscription should be cleared")
	}
}

func TestAccountWatcher_IgnoresGarbage(t *testing.T) {
	called := false
	w := NewAccountWatcher("ws://unused", Address{}, "", func(AccountUpdate) { called = true })
	for _, msg := range []string{
		`not json`,
		`{"jsonrpc":"2.0","error":{"code":-1,"message":"nope"},"id":1}`,
		`{"jsonrpc":"2.0","method":"accountNotification","params":{"subscription":1,"result":{"context":{"slot":1},"value":null}}}`,
		`{"jsonrpc":"2.0","method":"accountNotification","params":{"subscription":1,"result":{"context":{"slot":1},"value":{"data":["AA==","jsonParsed"]}}}}`,
	} {
		w.OnMessage(context.Background(), []byte(msg))
	}
	if called {
		t.Error("callback should not run for invalid messages")
	}
}

func notification(sub, slot uint64, data []byte) string {
	value := map[string]any{
		"data":     []string{base64.StdEncoding.EncodeToString(data), "base64"},
		"owner":    KnownPercolatorProgram,
		"lamports": 1,
	}
	b, _ := json.Marshal(value)
	return fmt.Sprintf(`{"jsonrpc":"2.0","method":"accountNotification","params":{"subscription":%d,"result":{"context":{"slot":%d},"value":%s}}}`, sub, slot, b)
}
