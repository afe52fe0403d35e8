// Package backend defines the client-side view of the managed service that
// owns all messaging data: a table-style query interface plus a realtime
// push channel. Everything in this module is a consumer of it.
package backend

import (
	"context"
	"time"

	"github.com/streetiz/messaging/internal/models"
)

// Backend is the table query surface.
type Backend interface {
	// ListConversations returns the conversations that include userID as a
	// participant, ordered by last activity, most recent first. The ordering
	// is a contract of the backend query, not recomputed by callers.
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)

	// ListMessages returns the messages of one conversation, oldest first.
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)

	// ListConversationMessages is the batched variant across several
	// conversations, used to derive previews and unread counts in one read.
	ListConversationMessages(ctx context.Context, conversationIDs []string) ([]models.Message, error)

	// GetProfiles fetches participant summaries for a set of user ids.
	GetProfiles(ctx context.Context, userIDs []string) ([]models.Profile, error)

	// GetPresence fetches online flags for a set of user ids. Ids with no
	// presence row are simply absent from the result.
	GetPresence(ctx context.Context, userIDs []string) (map[string]bool, error)

	// MarkRead adds userID to a message's read-by set. The union is applied
	// server-side, so the set only ever grows.
	MarkRead(ctx context.Context, messageID, userID string) error

	// InsertMessage creates a message row and returns it as stored.
	InsertMessage(ctx context.Context, msg models.Message) (models.Message, error)

	// TouchConversation updates a conversation's last-activity timestamp.
	TouchConversation(ctx context.Context, conversationID string, at time.Time) error
}

// Realtime is the push channel surface. Events are message inserts scoped to
// one conversation.
type Realtime interface {
	// Subscribe opens a channel for conversationID and delivers every newly
	// inserted message to handler until the subscription is closed.
	Subscribe(ctx context.Context, conversationID string, handler func(models.Message)) (Subscription, error)
}

// Subscription is the handle returned by Subscribe. Unsubscribe must be
// unconditionally called when the conversation is closed or switched; after
// it returns the handler will not be invoked again.
type Subscription interface {
	Unsubscribe()
}

// Client bundles the two surfaces most consumers need together.
type Client interface {
	Backend
	Realtime
}
