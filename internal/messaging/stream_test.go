package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetiz/messaging/internal/models"
)

func TestOpenLoadsOldestFirst(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	convID, err := store.CreateConversation("", me.ID, nora.ID)
	require.NoError(t, err)
	seedMessage(t, store, convID, nora.ID, "first", now.Add(-2*time.Minute))
	seedMessage(t, store, convID, me.ID, "second", now.Add(-time.Minute))
	seedMessage(t, store, convID, nora.ID, "third", now)

	stream := NewMessageStream(store)
	require.NoError(t, stream.Open(context.Background(), testSession(), convID))

	msgs := stream.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "third", msgs[2].Content)
}

func TestOpenMarksUnreadAsRead(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	convID, err := store.CreateConversation("", me.ID, nora.ID)
	require.NoError(t, err)
	for i, content := range []string{"one", "two", "three"} {
		seedMessage(t, store, convID, nora.ID, content, now.Add(time.Duration(i)*time.Second))
	}

	markReads := 0
	hooked := &hookBackend{Client: store}
	hooked.markRead = func(ctx context.Context, messageID, userID string) error {
		markReads++
		return store.MarkRead(ctx, messageID, userID)
	}

	stream := NewMessageStream(hooked)
	require.NoError(t, stream.Open(context.Background(), testSession(), convID))

	// One read-mark mutation per unread message, issued once per open.
	assert.Equal(t, 3, markReads)

	msgs, err := store.ListMessages(context.Background(), convID)
	require.NoError(t, err)
	assert.Zero(t, UnreadCount(msgs, me.ID))

	// Re-opening finds nothing left to mark.
	markReads = 0
	require.NoError(t, stream.Open(context.Background(), testSession(), convID))
	assert.Zero(t, markReads)
}

func TestOpenMarkReadFailureIsBestEffort(t *testing.T) {
	store := newTestStore(t)
	convID, err := store.CreateConversation("", me.ID, nora.ID)
	require.NoError(t, err)
	seedMessage(t, store, convID, nora.ID, "hi", time.Now().UTC())

	hooked := &hookBackend{Client: store}
	hooked.markRead = func(context.Context, string, string) error {
		return errors.New("backend down")
	}

	stream := NewMessageStream(hooked)
	require.NoError(t, stream.Open(context.Background(), testSession(), convID))
	assert.Len(t, stream.Messages(), 1)
}

func TestOpenFailureLeavesStreamEmpty(t *testing.T) {
	store := newTestStore(t)
	hooked := &hookBackend{Client: store}
	hooked.listMessages = func(context.Context, string) ([]models.Message, error) {
		return nil, errors.New("backend down")
	}

	stream := NewMessageStream(hooked)
	require.Error(t, stream.Open(context.Background(), testSession(), "c-1"))
	assert.Empty(t, stream.Messages())
}

func TestStaleOpenIsDiscarded(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	slow, err := store.CreateConversation("", me.ID, nora.ID)
	require.NoError(t, err)
	fast, err := store.CreateConversation("", me.ID, theo.ID)
	require.NoError(t, err)
	seedMessage(t, store, slow, nora.ID, "from slow", now)
	seedMessage(t, store, fast, theo.ID, "from fast", now)

	started := make(chan struct{})
	release := make(chan struct{})
	hooked := &hookBackend{Client: store}
	hooked.listMessages = func(ctx context.Context, conversationID string) ([]models.Message, error) {
		if conversationID == slow {
			close(started)
			<-release
		}
		return store.ListMessages(ctx, conversationID)
	}

	stream := NewMessageStream(hooked)

	done := make(chan error, 1)
	go func() { done <- stream.Open(context.Background(), testSession(), slow) }()
	<-started

	// The user switched conversations before the first load resolved.
	require.NoError(t, stream.Open(context.Background(), testSession(), fast))
	close(release)
	require.NoError(t, <-done)

	msgs := stream.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "from fast", msgs[0].Content)
}

func TestAppendDeduplicatesByID(t *testing.T) {
	store := newTestStore(t)
	convID, err := store.CreateConversation("", me.ID, nora.ID)
	require.NoError(t, err)

	stream := NewMessageStream(store)
	require.NoError(t, stream.Open(context.Background(), testSession(), convID))

	msg := models.Message{ID: "m-1", ConversationID: convID, SenderID: nora.ID, Content: "hey"}
	stream.Append(msg)
	stream.Append(msg)

	assert.Len(t, stream.Messages(), 1)
}

func TestAppendIgnoresOtherConversations(t *testing.T) {
	store := newTestStore(t)
	convID, err := store.CreateConversation("", me.ID, nora.ID)
	require.NoError(t, err)

	stream := NewMessageStream(store)
	require.NoError(t, stream.Open(context.Background(), testSession(), convID))

	stream.Append(models.Message{ID: "m-2", ConversationID: "somewhere-else", SenderID: nora.ID, Content: "stray"})
	assert.Empty(t, stream.Messages())
}
