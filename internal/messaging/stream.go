package messaging

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/streetiz/messaging/internal/backend"
	"github.com/streetiz/messaging/internal/logger"
	"github.com/streetiz/messaging/internal/models"
)

// MessageStream owns the message history of the one open conversation,
// oldest first. Opening a conversation replaces whatever was open before;
// each Open carries a generation token so the result of an Open the user has
// already navigated away from is discarded instead of clobbering the new
// conversation.
type MessageStream struct {
	backend backend.Backend

	mu             sync.RWMutex
	gen            uint64
	conversationID string
	messages       []models.Message
	known          map[string]bool
}

func NewMessageStream(b backend.Backend) *MessageStream {
	return &MessageStream{backend: b, known: map[string]bool{}}
}

// Open loads conversationID's history and marks its unread messages as read.
// Read-marking is best effort and happens once per open; failures are logged
// and ignored. On load failure the stream is left empty.
func (s *MessageStream) Open(ctx context.Context, sess Session, conversationID string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.conversationID = conversationID
	s.messages = nil
	s.known = map[string]bool{}
	s.mu.Unlock()

	messages, err := s.backend.ListMessages(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("open conversation: %w", err)
	}

	// Once per open, not repeated while the stream stays open. A message
	// arriving later over the live channel is not marked through this path.
	for i := range messages {
		m := &messages[i]
		if !sess.SignedIn() || m.ReadByUser(sess.UserID) {
			continue
		}
		if err := s.backend.MarkRead(ctx, m.ID, sess.UserID); err != nil {
			logger.Log.Debug("mark read failed",
				zap.String("message_id", m.ID), zap.Error(err))
			continue
		}
		m.ReadBy = append(m.ReadBy, sess.UserID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// A newer Open replaced this one while the load was in flight.
		return nil
	}
	s.messages = messages
	for _, m := range messages {
		s.known[m.ID] = true
	}
	return nil
}

// Append adds a newly arrived or just-sent message to the tail. Duplicates
// are dropped by message id, so a live event for a message that was already
// appended optimistically is a no-op. Messages for a conversation that is no
// longer open are ignored.
func (s *MessageStream) Append(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ConversationID != s.conversationID || s.known[msg.ID] {
		return
	}
	s.known[msg.ID] = true
	s.messages = append(s.messages, msg)
}

// Messages returns the open conversation's messages, oldest first.
func (s *MessageStream) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// ConversationID returns the id of the open conversation, or "" if none.
func (s *MessageStream) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}
