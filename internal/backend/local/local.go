// Package local is an in-process, sqlite-backed implementation of the
// backend interfaces. It exists for tests and for the CLI's offline demo
// mode; the production path talks to the managed service (see backend/rest).
package local

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/streetiz/messaging/internal/models"
)

type Store struct {
	db *sql.DB

	mu   sync.RWMutex
	subs map[string]map[*subscription]bool
}

func New(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	s := &Store{db: db, subs: make(map[string]map[*subscription]bool)}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		display_name TEXT DEFAULT '',
		avatar_url TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS presence (
		user_id TEXT PRIMARY KEY,
		online BOOLEAN NOT NULL DEFAULT FALSE,
		FOREIGN KEY (user_id) REFERENCES profiles(id)
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		name TEXT DEFAULT '',
		last_message_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS participants (
		conversation_id TEXT,
		user_id TEXT,
		PRIMARY KEY (conversation_id, user_id),
		FOREIGN KEY (conversation_id) REFERENCES conversations(id),
		FOREIGN KEY (user_id) REFERENCES profiles(id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT,
		sender_id TEXT,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id),
		FOREIGN KEY (sender_id) REFERENCES profiles(id)
	);

	CREATE TABLE IF NOT EXISTS message_reads (
		message_id TEXT,
		user_id TEXT,
		PRIMARY KEY (message_id, user_id),
		FOREIGN KEY (message_id) REFERENCES messages(id),
		FOREIGN KEY (user_id) REFERENCES profiles(id)
	);
	`

	_, err := s.db.Exec(query)
	return err
}

// Helper to build an IN (?, ?, ...) clause.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// CreateProfile is a fixture helper for tests and the demo seed.
func (s *Store) CreateProfile(p models.Profile) error {
	_, err := s.db.Exec(
		"INSERT INTO profiles (id, username, display_name, avatar_url) VALUES (?, ?, ?, ?)",
		p.ID, p.Username, p.DisplayName, p.AvatarURL)
	if err != nil {
		return err
	}
	return s.SetPresence(p.ID, p.Online)
}

func (s *Store) SetPresence(userID string, online bool) error {
	_, err := s.db.Exec(
		"INSERT INTO presence (user_id, online) VALUES (?, ?) ON CONFLICT(user_id) DO UPDATE SET online = excluded.online",
		userID, online)
	return err
}

// CreateConversation creates a conversation with the given participants and
// returns its id.
func (s *Store) CreateConversation(name string, participantIDs ...string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec("INSERT INTO conversations (id, name) VALUES (?, ?)", id, name)
	if err != nil {
		return "", err
	}
	for _, userID := range participantIDs {
		_, err := s.db.Exec("INSERT INTO participants (conversation_id, user_id) VALUES (?, ?)", id, userID)
		if err != nil {
			return "", err
		}
	}
	return id, nil
}

func (s *Store) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.last_message_at
		FROM conversations c
		JOIN participants p ON c.id = p.conversation_id
		WHERE p.user_id = ?
		ORDER BY c.last_message_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.Name, &c.LastMessageAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range conversations {
		ids, err := s.participantIDs(ctx, conversations[i].ID)
		if err != nil {
			return nil, err
		}
		conversations[i].ParticipantIDs = ids
	}
	return conversations, nil
}

func (s *Store) participantIDs(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM participants WHERE conversation_id = ? ORDER BY user_id", conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	return s.queryMessages(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`, conversationID)
}

func (s *Store) ListConversationMessages(ctx context.Context, conversationIDs []string) ([]models.Message, error) {
	if len(conversationIDs) == 0 {
		return nil, nil
	}

	args := make([]interface{}, len(conversationIDs))
	for i, id := range conversationIDs {
		args[i] = id
	}
	return s.queryMessages(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at
		FROM messages
		WHERE conversation_id IN (`+placeholders(len(args))+`)
		ORDER BY created_at ASC, id ASC
	`, args...)
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...interface{}) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range messages {
		readBy, err := s.readBy(ctx, messages[i].ID)
		if err != nil {
			return nil, err
		}
		messages[i].ReadBy = readBy
	}
	return messages, nil
}

func (s *Store) readBy(ctx context.Context, messageID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM message_reads WHERE message_id = ? ORDER BY user_id", messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) GetProfiles(ctx context.Context, userIDs []string) ([]models.Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, display_name, avatar_url
		FROM profiles
		WHERE id IN (`+placeholders(len(args))+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.DisplayName, &p.AvatarURL); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *Store) GetPresence(ctx context.Context, userIDs []string) (map[string]bool, error) {
	if len(userIDs) == 0 {
		return map[string]bool{}, nil
	}

	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, online FROM presence WHERE user_id IN ("+placeholders(len(args))+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	presence := make(map[string]bool, len(userIDs))
	for rows.Next() {
		var id string
		var online bool
		if err := rows.Scan(&id, &online); err != nil {
			return nil, err
		}
		presence[id] = online
	}
	return presence, rows.Err()
}

// MarkRead adds userID to the message's read-by set. INSERT OR IGNORE keeps
// the set monotonic: re-marking is a no-op, nothing ever removes a row.
func (s *Store) MarkRead(ctx context.Context, messageID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO message_reads (message_id, user_id) VALUES (?, ?)", messageID, userID)
	return err
}

func (s *Store) InsertMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, conversation_id, sender_id, content, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.CreatedAt)
	if err != nil {
		return models.Message{}, err
	}

	for _, userID := range msg.ReadBy {
		if err := s.MarkRead(ctx, msg.ID, userID); err != nil {
			return models.Message{}, err
		}
	}

	s.dispatch(msg)
	return msg, nil
}

func (s *Store) TouchConversation(ctx context.Context, conversationID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE conversations SET last_message_at = ? WHERE id = ?", at, conversationID)
	return err
}
