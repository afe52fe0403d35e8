package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streetiz/messaging/internal/backend"
	"github.com/streetiz/messaging/internal/logger"
	"github.com/streetiz/messaging/internal/models"
)

// Composer sends messages into the open conversation and runs the follow-on
// effects: optimistic append to the stream, conversation activity touch, and
// a full inbox refresh so the conversation moves to the top.
type Composer struct {
	backend backend.Backend
	stream  *MessageStream
	store   *ConversationStore
}

func NewComposer(b backend.Backend, stream *MessageStream, store *ConversationStore) *Composer {
	return &Composer{backend: b, stream: stream, store: store}
}

// Send creates the message with the sender pre-marked as having read it. The
// id is generated client-side so a live event for this same send deduplicates
// against the optimistic append.
//
// Empty-after-trim text, a missing conversation or a signed-out session is a
// no-op: nothing is sent, (nil, nil) is returned. On backend failure nothing
// is appended and the error is returned so the caller can keep the draft.
func (c *Composer) Send(ctx context.Context, sess Session, conversationID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" || conversationID == "" || !sess.SignedIn() {
		return nil, nil
	}

	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       sess.UserID,
		Content:        text,
		CreatedAt:      time.Now().UTC(),
		ReadBy:         []string{sess.UserID},
	}

	inserted, err := c.backend.InsertMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}

	c.stream.Append(inserted)

	// Both follow-on effects are best effort: the message is already sent.
	if err := c.backend.TouchConversation(ctx, conversationID, inserted.CreatedAt); err != nil {
		logger.Log.Debug("touch conversation failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}
	if err := c.store.Load(ctx, sess); err != nil {
		logger.Log.Debug("inbox refresh after send failed", zap.Error(err))
	}

	return &inserted, nil
}
