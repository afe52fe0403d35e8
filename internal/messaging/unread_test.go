package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/streetiz/messaging/internal/models"
)

func TestUnreadCount(t *testing.T) {
	messages := []models.Message{
		{SenderID: nora.ID, ReadBy: []string{nora.ID}},              // unread
		{SenderID: nora.ID, ReadBy: []string{nora.ID, me.ID}},       // read
		{SenderID: me.ID, ReadBy: []string{me.ID}},                  // own message, never unread
		{SenderID: theo.ID, ReadBy: []string{theo.ID, nora.ID}},     // unread
		{SenderID: me.ID, ReadBy: nil},                              // own, implicit read
	}

	assert.Equal(t, 2, UnreadCount(messages, me.ID))
	assert.Equal(t, 2, UnreadCount(messages, theo.ID))
	assert.Zero(t, UnreadCount(nil, me.ID))
}

func TestTotalUnread(t *testing.T) {
	views := []ConversationView{{Unread: 3}, {Unread: 0}, {Unread: 1}}
	assert.Equal(t, 4, TotalUnread(views))
	assert.Zero(t, TotalUnread(nil))
}
