package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/streetiz/messaging/internal/backend"
	"github.com/streetiz/messaging/internal/logger"
	"github.com/streetiz/messaging/internal/models"
)

const (
	writeWait         = 10 * time.Second
	heartbeatInterval = 25 * time.Second
)

// frame is the channel protocol envelope.
type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

// insertPayload is the body of an insert event.
type insertPayload struct {
	Record models.Message `json:"record"`
}

type channelSub struct {
	conn  *websocket.Conn
	topic string
	done  chan struct{}

	writeMu sync.Mutex

	mu      sync.Mutex
	closed  bool
	handler func(models.Message)
}

// Subscribe opens a dedicated socket for one conversation's message inserts.
// One socket per subscription keeps teardown trivial: closing the connection
// is the whole cleanup.
func (c *Client) Subscribe(ctx context.Context, conversationID string, handler func(models.Message)) (backend.Subscription, error) {
	wsURL, err := c.realtimeURL()
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("realtime dial: %w", err)
	}

	sub := &channelSub{
		conn:    conn,
		topic:   "realtime:public:messages:conversation_id=eq." + conversationID,
		done:    make(chan struct{}),
		handler: handler,
	}

	if err := sub.write(frame{Topic: sub.topic, Event: "phx_join", Payload: json.RawMessage(`{}`), Ref: "1"}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("realtime join: %w", err)
	}

	go sub.readPump()
	go sub.heartbeat()

	return sub, nil
}

func (c *Client) realtimeURL() (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("realtime url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/realtime/v1/websocket"
	u.RawQuery = url.Values{"apikey": {c.cfg.APIKey}, "vsn": {"1.0.0"}}.Encode()
	return u.String(), nil
}

func (s *channelSub) write(f frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(f)
}

func (s *channelSub) readPump() {
	for {
		var f frame
		if err := s.conn.ReadJSON(&f); err != nil {
			select {
			case <-s.done:
				// torn down on purpose
			default:
				logger.Log.Debug("realtime read failed", zap.String("topic", s.topic), zap.Error(err))
			}
			return
		}

		if f.Topic != s.topic || f.Event != "INSERT" {
			continue
		}

		var payload insertPayload
		if err := json.Unmarshal(f.Payload, &payload); err != nil {
			logger.Log.Debug("realtime payload decode failed", zap.Error(err))
			continue
		}
		s.deliver(payload.Record)
	}
}

func (s *channelSub) heartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.write(frame{Topic: "phoenix", Event: "heartbeat", Payload: json.RawMessage(`{}`)}); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *channelSub) deliver(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.handler(msg)
}

// Unsubscribe leaves the channel and closes the socket. Once it returns, the
// handler is guaranteed not to be invoked again.
func (s *channelSub) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	// Best effort; the connection close is the teardown that matters.
	_ = s.write(frame{Topic: s.topic, Event: "phx_leave", Payload: json.RawMessage(`{}`), Ref: "2"})
	s.conn.Close()
}
