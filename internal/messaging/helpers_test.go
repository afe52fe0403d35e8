package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streetiz/messaging/internal/backend"
	"github.com/streetiz/messaging/internal/backend/local"
	"github.com/streetiz/messaging/internal/models"
)

var (
	me   = models.Profile{ID: "u-me", Username: "me"}
	nora = models.Profile{ID: "u-nora", Username: "nora", DisplayName: "Nora", Online: true}
	theo = models.Profile{ID: "u-theo", Username: "theo"}
)

func testSession() Session {
	return Session{UserID: me.ID, Username: me.Username}
}

func newTestStore(t *testing.T) *local.Store {
	t.Helper()
	store, err := local.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for _, p := range []models.Profile{me, nora, theo} {
		require.NoError(t, store.CreateProfile(p))
	}
	return store
}

func seedMessage(t *testing.T, store *local.Store, convID, senderID, content string, at time.Time) models.Message {
	t.Helper()
	msg, err := store.InsertMessage(context.Background(), models.Message{
		ConversationID: convID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      at,
		ReadBy:         []string{senderID},
	})
	require.NoError(t, err)
	require.NoError(t, store.TouchConversation(context.Background(), convID, at))
	return msg
}

// hookBackend passes through to a real store but lets a test intercept
// single operations.
type hookBackend struct {
	backend.Client

	listMessages  func(ctx context.Context, conversationID string) ([]models.Message, error)
	getProfiles   func(ctx context.Context, userIDs []string) ([]models.Profile, error)
	markRead      func(ctx context.Context, messageID, userID string) error
	insertMessage func(ctx context.Context, msg models.Message) (models.Message, error)
}

func (h *hookBackend) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	if h.listMessages != nil {
		return h.listMessages(ctx, conversationID)
	}
	return h.Client.ListMessages(ctx, conversationID)
}

func (h *hookBackend) GetProfiles(ctx context.Context, userIDs []string) ([]models.Profile, error) {
	if h.getProfiles != nil {
		return h.getProfiles(ctx, userIDs)
	}
	return h.Client.GetProfiles(ctx, userIDs)
}

func (h *hookBackend) MarkRead(ctx context.Context, messageID, userID string) error {
	if h.markRead != nil {
		return h.markRead(ctx, messageID, userID)
	}
	return h.Client.MarkRead(ctx, messageID, userID)
}

func (h *hookBackend) InsertMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if h.insertMessage != nil {
		return h.insertMessage(ctx, msg)
	}
	return h.Client.InsertMessage(ctx, msg)
}
