package local

import (
	"context"
	"sync"

	"github.com/streetiz/messaging/internal/backend"
	"github.com/streetiz/messaging/internal/models"
)

type subscription struct {
	store          *Store
	conversationID string

	mu      sync.Mutex
	closed  bool
	handler func(models.Message)
}

// Subscribe registers handler for inserts in one conversation. Delivery is
// synchronous with the insert, so an event is never observed before the row
// exists.
func (s *Store) Subscribe(_ context.Context, conversationID string, handler func(models.Message)) (backend.Subscription, error) {
	sub := &subscription{store: s, conversationID: conversationID, handler: handler}

	s.mu.Lock()
	if s.subs[conversationID] == nil {
		s.subs[conversationID] = make(map[*subscription]bool)
	}
	s.subs[conversationID][sub] = true
	s.mu.Unlock()

	return sub, nil
}

// Unsubscribe removes the subscription. Once it returns, the handler is
// guaranteed not to be invoked again.
func (sub *subscription) Unsubscribe() {
	sub.store.mu.Lock()
	if set, ok := sub.store.subs[sub.conversationID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(sub.store.subs, sub.conversationID)
		}
	}
	sub.store.mu.Unlock()

	sub.mu.Lock()
	sub.closed = true
	sub.mu.Unlock()
}

func (s *Store) dispatch(msg models.Message) {
	s.mu.RLock()
	targets := make([]*subscription, 0, len(s.subs[msg.ConversationID]))
	for sub := range s.subs[msg.ConversationID] {
		targets = append(targets, sub)
	}
	s.mu.RUnlock()

	for _, sub := range targets {
		sub.deliver(msg)
	}
}

func (sub *subscription) deliver(msg models.Message) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	sub.handler(msg)
}
