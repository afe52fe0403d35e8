// Package rest talks to the managed backend service: table reads and writes
// over its PostgREST-style query API, realtime inserts over its websocket
// channel. This module owns no server; it is purely a consumer.
package rest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/streetiz/messaging/internal/models"
)

type Config struct {
	// BaseURL is the project root, e.g. https://abc.backend.example.com.
	BaseURL string
	// APIKey is the project key sent with every request.
	APIKey string
	// AccessToken is the signed-in user's token, supplied by the auth
	// collaborator. Opaque here.
	AccessToken string
}

type Client struct {
	cfg  Config
	http *resty.Client
}

func New(cfg Config) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("apikey", cfg.APIKey).
		SetAuthToken(cfg.AccessToken).
		SetTimeout(10 * time.Second)

	return &Client{cfg: cfg, http: httpClient}
}

func apiErr(op string, resp *resty.Response) error {
	return fmt.Errorf("%s: backend returned %s: %s", op, resp.Status(), resp.String())
}

// inList renders an in.(a,b,c) filter value.
func inList(ids []string) string {
	return "in.(" + strings.Join(ids, ",") + ")"
}

func (c *Client) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	var conversations []models.Conversation
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select":          "*",
			"participant_ids": fmt.Sprintf("cs.{%s}", userID),
			"order":           "last_message_at.desc",
		}).
		SetResult(&conversations).
		Get("/rest/v1/conversations")
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if resp.IsError() {
		return nil, apiErr("list conversations", resp)
	}
	return conversations, nil
}

func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var messages []models.Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select":          "*",
			"conversation_id": "eq." + conversationID,
			"order":           "created_at.asc",
		}).
		SetResult(&messages).
		Get("/rest/v1/messages")
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if resp.IsError() {
		return nil, apiErr("list messages", resp)
	}
	return messages, nil
}

func (c *Client) ListConversationMessages(ctx context.Context, conversationIDs []string) ([]models.Message, error) {
	if len(conversationIDs) == 0 {
		return nil, nil
	}

	var messages []models.Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select":          "*",
			"conversation_id": inList(conversationIDs),
			"order":           "created_at.asc",
		}).
		SetResult(&messages).
		Get("/rest/v1/messages")
	if err != nil {
		return nil, fmt.Errorf("list conversation messages: %w", err)
	}
	if resp.IsError() {
		return nil, apiErr("list conversation messages", resp)
	}
	return messages, nil
}

func (c *Client) GetProfiles(ctx context.Context, userIDs []string) ([]models.Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var profiles []models.Profile
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select": "id,username,display_name,avatar_url",
			"id":     inList(userIDs),
		}).
		SetResult(&profiles).
		Get("/rest/v1/profiles")
	if err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}
	if resp.IsError() {
		return nil, apiErr("get profiles", resp)
	}
	return profiles, nil
}

type presenceRow struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

func (c *Client) GetPresence(ctx context.Context, userIDs []string) (map[string]bool, error) {
	if len(userIDs) == 0 {
		return map[string]bool{}, nil
	}

	var rows []presenceRow
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select":  "user_id,online",
			"user_id": inList(userIDs),
		}).
		SetResult(&rows).
		Get("/rest/v1/presence")
	if err != nil {
		return nil, fmt.Errorf("get presence: %w", err)
	}
	if resp.IsError() {
		return nil, apiErr("get presence", resp)
	}

	presence := make(map[string]bool, len(rows))
	for _, row := range rows {
		presence[row.UserID] = row.Online
	}
	return presence, nil
}

// MarkRead calls the mark_message_read RPC. The union with the existing
// read-by set happens server-side, which is what keeps the set grow-only
// under concurrent readers.
func (c *Client) MarkRead(ctx context.Context, messageID, userID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"message_id": messageID, "user_id": userID}).
		Post("/rest/v1/rpc/mark_message_read")
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if resp.IsError() {
		return apiErr("mark read", resp)
	}
	return nil
}

func (c *Client) InsertMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	var inserted []models.Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(msg).
		SetResult(&inserted).
		Post("/rest/v1/messages")
	if err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}
	if resp.IsError() {
		return models.Message{}, apiErr("insert message", resp)
	}
	if len(inserted) != 1 {
		return models.Message{}, fmt.Errorf("insert message: expected 1 row back, got %d", len(inserted))
	}
	return inserted[0], nil
}

func (c *Client) TouchConversation(ctx context.Context, conversationID string, at time.Time) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("id", "eq."+conversationID).
		SetBody(map[string]string{"last_message_at": at.UTC().Format(time.RFC3339Nano)}).
		Patch("/rest/v1/conversations")
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if resp.IsError() {
		return apiErr("touch conversation", resp)
	}
	return nil
}
