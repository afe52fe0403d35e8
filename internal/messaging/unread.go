package messaging

import "github.com/streetiz/messaging/internal/models"

// UnreadCount counts the messages not yet read by userID: sender is someone
// else and userID is not in the read-by set. Derived on every recompute,
// never stored.
func UnreadCount(messages []models.Message, userID string) int {
	count := 0
	for _, m := range messages {
		if m.SenderID != userID && !m.ReadByUser(userID) {
			count++
		}
	}
	return count
}

// TotalUnread sums the per-conversation badges into the session-wide badge.
func TotalUnread(views []ConversationView) int {
	total := 0
	for _, v := range views {
		total += v.Unread
	}
	return total
}
