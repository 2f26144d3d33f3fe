package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	wsReadLimit    = 4096
	wsWriteTimeout = 10 * time.Second
)

// Frame types written to WebSocket clients.
const (
	FrameMessage = "message"
	FrameTyping  = "typing"
)

// Frame is the JSON payload exchanged with WebSocket clients. Clients send
// {"text": "..."}; the server replies with typed frames.
type Frame struct {
	Type      string   `json:"type,omitempty"`
	Text      string   `json:"text,omitempty"`
	ParseMode string   `json:"parse_mode,omitempty"`
	Choices   []Choice `json:"choices,omitempty"`
}

// WebSocketChannel implements Channel for browser and terminal clients. It
// is also the http.Handler that upgrades connections; each client identifies
// itself with the user_id query parameter and holds one live connection.
type WebSocketChannel struct {
	originPatterns []string

	mu      sync.RWMutex
	conns   map[string]*websocket.Conn
	handler func(InboundMessage)
	stopped bool
}

// NewWebSocketChannel creates a WebSocket channel. originPatterns lists
// extra hosts allowed for cross-origin upgrades.
func NewWebSocketChannel(originPatterns ...string) *WebSocketChannel {
	return &WebSocketChannel{
		originPatterns: originPatterns,
		conns:          make(map[string]*websocket.Conn),
	}
}

func (w *WebSocketChannel) Start(_ context.Context, handler func(InboundMessage)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handler = handler
	w.stopped = false
	return nil
}

func (w *WebSocketChannel) Stop() error {
	w.mu.Lock()
	conns := w.conns
	w.conns = make(map[string]*websocket.Conn)
	w.stopped = true
	w.mu.Unlock()

	for _, c := range conns {
		_ = c.Close(websocket.StatusGoingAway, "server shutting down")
	}
	return nil
}

func (w *WebSocketChannel) SendMessage(ctx context.Context, userID string, msg OutboundMessage) error {
	return w.write(ctx, userID, Frame{
		Type:      FrameMessage,
		Text:      msg.Text,
		ParseMode: msg.ParseMode,
		Choices:   msg.Choices,
	})
}

func (w *WebSocketChannel) SendTyping(ctx context.Context, userID string) error {
	return w.write(ctx, userID, Frame{Type: FrameTyping})
}

// Connected reports whether userID has a live connection.
func (w *WebSocketChannel) Connected(userID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.conns[userID]
	return ok
}

func (w *WebSocketChannel) write(ctx context.Context, userID string, frame Frame) error {
	w.mu.RLock()
	conn, ok := w.conns[userID]
	w.mu.RUnlock()
	if !ok {
		return fmt.Errorf("websocket user %s is not connected", userID)
	}

	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, frame); err != nil {
		return fmt.Errorf("writing websocket frame: %w", err)
	}
	return nil
}

func (w *WebSocketChannel) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		http.Error(rw, "user_id is required", http.StatusBadRequest)
		return
	}

	w.mu.RLock()
	handler, stopped := w.handler, w.stopped
	w.mu.RUnlock()
	if handler == nil || stopped {
		http.Error(rw, "channel not started", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(rw, r, &websocket.AcceptOptions{OriginPatterns: w.originPatterns})
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(wsReadLimit)

	w.register(userID, conn)
	defer w.unregister(userID, conn)
	slog.Info("websocket client connected", "user_id", userID)

	name := r.URL.Query().Get("name")
	ctx := r.Context()
	for {
		var frame Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if !errors.Is(err, context.Canceled) {
					slog.Debug("websocket read ended", "user_id", userID, "error", err)
				}
			}
			return
		}

		text := strings.TrimSpace(frame.Text)
		if text == "" {
			continue
		}
		handler(InboundMessage{
			Channel:    "websocket",
			UserID:     userID,
			ExternalID: userID,
			Text:       text,
			Username:   name,
			FirstName:  name,
		})
	}
}

// register makes conn the user's live connection, closing any previous one.
func (w *WebSocketChannel) register(userID string, conn *websocket.Conn) {
	w.mu.Lock()
	prev := w.conns[userID]
	w.conns[userID] = conn
	w.mu.Unlock()

	if prev != nil {
		// Close waits for the peer's handshake; don't hold up the new client.
		go func() { _ = prev.Close(websocket.StatusPolicyViolation, "replaced by a newer connection") }()
	}
}

func (w *WebSocketChannel) unregister(userID string, conn *websocket.Conn) {
	w.mu.Lock()
	if w.conns[userID] == conn {
		delete(w.conns, userID)
	}
	w.mu.Unlock()
	_ = conn.CloseNow()
	slog.Info("websocket client disconnected", "user_id", userID)
}
