package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/streetiz/messaging/internal/backend"
	"github.com/streetiz/messaging/internal/models"
)

// Subscriber keeps exactly one live subscription for the whole session,
// following the open conversation. Switching tears the previous handle down
// before the new channel is established, so a stale callback can never
// deliver a message from the old conversation into the new view.
type Subscriber struct {
	realtime backend.Realtime

	mu      sync.Mutex
	current backend.Subscription
}

func NewSubscriber(r backend.Realtime) *Subscriber {
	return &Subscriber{realtime: r}
}

// Switch subscribes to conversationID, replacing any active subscription.
// If the new subscribe fails the previous one is already gone; the caller is
// left unsubscribed either way.
func (s *Subscriber) Switch(ctx context.Context, conversationID string, handler func(models.Message)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.Unsubscribe()
		s.current = nil
	}

	sub, err := s.realtime.Subscribe(ctx, conversationID, handler)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", conversationID, err)
	}
	s.current = sub
	return nil
}

// Close tears down the active subscription, if any.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Unsubscribe()
		s.current = nil
	}
}
