package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetiz/messaging/internal/models"
)

func TestSwitchTearsDownPreviousSubscription(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	convA, err := store.CreateConversation("", me.ID, nora.ID)
	require.NoError(t, err)
	convB, err := store.CreateConversation("", me.ID, theo.ID)
	require.NoError(t, err)

	var fromA, fromB []models.Message
	sub := NewSubscriber(store)
	defer sub.Close()

	require.NoError(t, sub.Switch(ctx, convA, func(m models.Message) { fromA = append(fromA, m) }))
	require.NoError(t, sub.Switch(ctx, convB, func(m models.Message) { fromB = append(fromB, m) }))

	// A's handle was unsubscribed before B's channel went live: a message in
	// A must not leak into the view now showing B.
	_, err = store.InsertMessage(ctx, models.Message{ConversationID: convA, SenderID: nora.ID, Content: "stale"})
	require.NoError(t, err)
	_, err = store.InsertMessage(ctx, models.Message{ConversationID: convB, SenderID: theo.ID, Content: "live"})
	require.NoError(t, err)

	assert.Empty(t, fromA)
	require.Len(t, fromB, 1)
	assert.Equal(t, "live", fromB[0].Content)
}

func TestCloseStopsDelivery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	convID, err := store.CreateConversation("", me.ID, nora.ID)
	require.NoError(t, err)

	delivered := 0
	sub := NewSubscriber(store)
	require.NoError(t, sub.Switch(ctx, convID, func(models.Message) { delivered++ }))
	sub.Close()

	_, err = store.InsertMessage(ctx, models.Message{ConversationID: convID, SenderID: nora.ID, Content: "after close"})
	require.NoError(t, err)
	assert.Zero(t, delivered)

	// Closing twice is fine.
	sub.Close()
}

func TestSubscriptionFeedsStream(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	convID, err := store.CreateConversation("", me.ID, nora.ID)
	require.NoError(t, err)
	seedMessage(t, store, convID, nora.ID, "earlier", time.Now().UTC().Add(-time.Minute))

	stream := NewMessageStream(store)
	require.NoError(t, stream.Open(ctx, testSession(), convID))

	sub := NewSubscriber(store)
	defer sub.Close()
	require.NoError(t, sub.Switch(ctx, convID, stream.Append))

	_, err = store.InsertMessage(ctx, models.Message{ConversationID: convID, SenderID: nora.ID, Content: "fresh"})
	require.NoError(t, err)

	msgs := stream.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "fresh", msgs[1].Content)
}
