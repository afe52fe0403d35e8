package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/streetiz/messaging/internal/backend"
	"github.com/streetiz/messaging/internal/models"
)

// ConversationView is one inbox row: the conversation enriched with the
// other participant's profile, the latest message preview and the unread
// badge.
type ConversationView struct {
	Conversation models.Conversation
	Other        models.Profile
	LastMessage  *models.Message
	Unread       int
}

// Title returns what the inbox row is labelled with.
func (v ConversationView) Title() string {
	if v.Conversation.Name != "" {
		return v.Conversation.Name
	}
	return v.Other.Name()
}

// ConversationStore owns the signed-in user's conversation list for the
// session. Load replaces the list atomically: if any dependent read fails,
// the previous list stays in place and no partial enrichment is committed.
type ConversationStore struct {
	backend backend.Backend

	mu    sync.RWMutex
	views []ConversationView
}

func NewConversationStore(b backend.Backend) *ConversationStore {
	return &ConversationStore{backend: b}
}

// Load fetches the conversation list ordered most-recently-active first and
// enriches it with three dependent batched reads: profiles, presence and the
// messages of all listed conversations. A signed-out session yields an empty
// list without touching the backend.
func (s *ConversationStore) Load(ctx context.Context, sess Session) error {
	if !sess.SignedIn() {
		s.commit(nil)
		return nil
	}

	conversations, err := s.backend.ListConversations(ctx, sess.UserID)
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}

	otherIDs := make([]string, 0, len(conversations))
	convIDs := make([]string, 0, len(conversations))
	seen := map[string]bool{}
	for _, c := range conversations {
		convIDs = append(convIDs, c.ID)
		if other := c.OtherParticipant(sess.UserID); other != "" && !seen[other] {
			seen[other] = true
			otherIDs = append(otherIDs, other)
		}
	}

	profiles, err := s.backend.GetProfiles(ctx, otherIDs)
	if err != nil {
		return fmt.Errorf("load participant profiles: %w", err)
	}
	presence, err := s.backend.GetPresence(ctx, otherIDs)
	if err != nil {
		return fmt.Errorf("load presence: %w", err)
	}
	messages, err := s.backend.ListConversationMessages(ctx, convIDs)
	if err != nil {
		return fmt.Errorf("load previews: %w", err)
	}

	profileByID := make(map[string]models.Profile, len(profiles))
	for _, p := range profiles {
		p.Online = presence[p.ID]
		profileByID[p.ID] = p
	}

	byConversation := make(map[string][]models.Message)
	for _, m := range messages {
		byConversation[m.ConversationID] = append(byConversation[m.ConversationID], m)
	}

	views := make([]ConversationView, 0, len(conversations))
	for _, c := range conversations {
		view := ConversationView{
			Conversation: c,
			Other:        profileByID[c.OtherParticipant(sess.UserID)],
		}
		// Messages arrive oldest first, so the preview is the last one.
		if msgs := byConversation[c.ID]; len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			view.LastMessage = &last
			view.Unread = UnreadCount(msgs, sess.UserID)
		}
		views = append(views, view)
	}

	s.commit(views)
	return nil
}

func (s *ConversationStore) commit(views []ConversationView) {
	s.mu.Lock()
	s.views = views
	s.mu.Unlock()
}

// Conversations returns the current list, most recently active first.
func (s *ConversationStore) Conversations() []ConversationView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ConversationView, len(s.views))
	copy(out, s.views)
	return out
}

// TotalUnread is the session-wide badge over the current list.
func (s *ConversationStore) TotalUnread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TotalUnread(s.views)
}
