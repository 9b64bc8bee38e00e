package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by writes while no connection is up.
var ErrNotConnected = errors.New("ws not connected")

// WebSocketHandler supplies the subscription logic for a BaseWSWorker.
type WebSocketHandler interface {
	ID() string
	URL() string
	// OnConnect runs after every (re)connect, before the read loop starts.
	// Subscriptions are sent from here through the worker.
	OnConnect(ctx context.Context, w *BaseWSWorker) error
	OnMessage(ctx context.Context, msg []byte)
}

// DisconnectHandler is optionally implemented by handlers that keep
// per-connection state, such as subscription ids.
type DisconnectHandler interface {
	OnDisconnect()
}

// BaseWSWorker keeps one websocket connection alive: reconnect with
// backoff, read deadline, ping frames, serialized writes.
type BaseWSWorker struct {
	handler WebSocketHandler
	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	ReadTimeout  time.Duration
	PingInterval time.Duration
	Backoff      Backoff
}

// NewBaseWSWorker creates a worker for handler.
func NewBaseWSWorker(handler WebSocketHandler) *BaseWSWorker {
	return &BaseWSWorker{
		handler:      handler,
		ReadTimeout:  60 * time.Second,
		PingInterval: 20 * time.Second,
		Backoff:      ReconnectBackoff,
	}
}

// Start initiates the connection loop.
func (w *BaseWSWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(2)
	go w.runLoop(ctx)
	go func() {
		defer w.wg.Done()
		<-ctx.Done()
		w.close()
	}()
}

// Stop terminates the worker and waits for its goroutines.
func (w *BaseWSWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.close()
	w.wg.Wait()
}

func (w *BaseWSWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()
	retry := 0

	for ctx.Err() == nil {
		conn, err := w.connect(ctx)
		if err != nil {
			slog.Warn("ws connect failed", "id", w.handler.ID(), "err", err, "retry", retry)
			if w.Backoff.Sleep(ctx, retry) != nil {
				return
			}
			retry++
			continue
		}

		retry = 0
		w.process(ctx, conn)
		if dh, ok := w.handler.(DisconnectHandler); ok {
			dh.OnDisconnect()
		}
	}
}

func (w *BaseWSWorker) connect(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := make(http.Header)
	header.Set("User-Agent", UserAgent)

	conn, _, err := dialer.DialContext(ctx, w.handler.URL(), header)
	if err != nil {
		return nil, err
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
	})

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	if ctx.Err() != nil {
		w.closeIf(conn)
		return nil, ctx.Err()
	}

	if err := w.handler.OnConnect(ctx, w); err != nil {
		w.close()
		return nil, fmt.Errorf("OnConnect failed: %w", err)
	}

	if w.PingInterval > 0 {
		w.wg.Add(1)
		go w.pingLoop(ctx, conn)
	}

	slog.Info("ws connected", "id", w.handler.ID())
	return conn, nil
}

func (w *BaseWSWorker) process(ctx context.Context, conn *websocket.Conn) {
	for {
		conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("ws read error", "id", w.handler.ID(), "err", err)
			}
			w.closeIf(conn)
			return
		}
		w.handler.OnMessage(ctx, msg)
	}
}

// pingLoop exits when ctx ends or conn is no longer current.
func (w *BaseWSWorker) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.RLock()
			current := w.conn == conn
			w.mu.RUnlock()
			if !current {
				return
			}
			w.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			w.writeMu.Unlock()
			if err != nil {
				slog.Warn("ws ping error", "id", w.handler.ID(), "err", err)
				w.closeIf(conn)
				return
			}
		}
	}
}

// Write sends one message on the current connection.
func (w *BaseWSWorker) Write(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.RLock()
	c := w.conn
	w.mu.RUnlock()

	if c == nil {
		return ErrNotConnected
	}
	return c.WriteMessage(msgType, data)
}

// WriteJSON marshals v and sends it as a text message.
func (w *BaseWSWorker) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.Write(websocket.TextMessage, data)
}

func (w *BaseWSWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}

func (w *BaseWSWorker) closeIf(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	conn.Close()
	if w.conn == conn {
		w.conn = nil
	}
}
