// Command streetiz-messaging is a terminal inbox for Streetiz direct
// messages: list conversations, open one, watch it live, send.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/streetiz/messaging/internal/backend"
	"github.com/streetiz/messaging/internal/backend/local"
	"github.com/streetiz/messaging/internal/backend/rest"
	"github.com/streetiz/messaging/internal/logger"
	"github.com/streetiz/messaging/internal/messaging"
	"github.com/streetiz/messaging/internal/models"
)

func main() {
	parseFlags()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := logger.Initialize(flagLogLevel); err != nil {
		return err
	}

	var client backend.Client
	sess := messaging.Session{UserID: flagUserID}

	if flagDemo {
		store, demoSess, err := seedDemo()
		if err != nil {
			return err
		}
		defer store.Close()
		client = store
		sess = demoSess
	} else {
		if flagBackendURL == "" || flagUserID == "" {
			return fmt.Errorf("need -b and -u (or -demo)")
		}
		client = rest.New(rest.Config{
			BaseURL:     flagBackendURL,
			APIKey:      flagAPIKey,
			AccessToken: flagAccessToken,
		})
	}

	ctx := context.Background()
	store := messaging.NewConversationStore(client)
	stream := messaging.NewMessageStream(client)
	subscriber := messaging.NewSubscriber(client)
	composer := messaging.NewComposer(client, stream, store)
	defer subscriber.Close()

	if err := store.Load(ctx, sess); err != nil {
		return err
	}
	printInbox(store)

	fmt.Println(`type a number to open a conversation, text to send, "/i" for the inbox, "/q" to quit`)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/q":
			return nil
		case line == "/i":
			if err := store.Load(ctx, sess); err != nil {
				fmt.Println("could not refresh the inbox")
			}
			printInbox(store)
		case isIndex(line):
			n, _ := strconv.Atoi(line)
			if err := openConversation(ctx, sess, store, stream, subscriber, n-1); err != nil {
				fmt.Println("could not open that conversation")
			}
		case stream.ConversationID() != "":
			if _, err := composer.Send(ctx, sess, stream.ConversationID(), line); err != nil {
				// Draft stays on screen; the user just sends it again.
				fmt.Println("send failed, try again")
			}
		default:
			fmt.Println("open a conversation first")
		}
	}
	return scanner.Err()
}

func isIndex(line string) bool {
	n, err := strconv.Atoi(line)
	return err == nil && n > 0
}

func openConversation(ctx context.Context, sess messaging.Session, store *messaging.ConversationStore,
	stream *messaging.MessageStream, subscriber *messaging.Subscriber, idx int) error {

	views := store.Conversations()
	if idx < 0 || idx >= len(views) {
		return fmt.Errorf("no such conversation")
	}
	view := views[idx]

	if err := stream.Open(ctx, sess, view.Conversation.ID); err != nil {
		return err
	}
	if err := subscriber.Switch(ctx, view.Conversation.ID, func(msg models.Message) {
		stream.Append(msg)
		if msg.SenderID != sess.UserID {
			printMessage(view, sess, msg)
		}
	}); err != nil {
		return err
	}

	fmt.Printf("--- %s ---\n", view.Title())
	for _, msg := range stream.Messages() {
		printMessage(view, sess, msg)
	}
	return nil
}

func printMessage(view messaging.ConversationView, sess messaging.Session, msg models.Message) {
	who := view.Other.Name()
	if msg.SenderID == sess.UserID {
		who = "me"
	}
	fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Local().Format("15:04"), who, msg.Content)
}

func printInbox(store *messaging.ConversationStore) {
	views := store.Conversations()
	if len(views) == 0 {
		fmt.Println("no conversations yet")
		return
	}
	for i, v := range views {
		preview := ""
		if v.LastMessage != nil {
			preview = v.LastMessage.Content
		}
		badge := ""
		if v.Unread > 0 {
			badge = fmt.Sprintf(" (%d)", v.Unread)
		}
		status := " "
		if v.Other.Online {
			status = "*"
		}
		fmt.Printf("%2d. %s %-20s%s  %s\n", i+1, status, v.Title(), badge, preview)
	}
	if total := store.TotalUnread(); total > 0 {
		fmt.Printf("%d unread\n", total)
	}
}

// seedDemo builds an in-process backend with a couple of conversations so
// the CLI can be tried without a backend project.
func seedDemo() (*local.Store, messaging.Session, error) {
	store, err := local.New(":memory:")
	if err != nil {
		return nil, messaging.Session{}, err
	}

	me := models.Profile{ID: "u-me", Username: "me"}
	nora := models.Profile{ID: "u-nora", Username: "nora", DisplayName: "Nora", Online: true}
	dj := models.Profile{ID: "u-kaito", Username: "kaito", DisplayName: "DJ Kaito"}
	for _, p := range []models.Profile{me, nora, dj} {
		if err := store.CreateProfile(p); err != nil {
			return nil, messaging.Session{}, err
		}
	}

	ctx := context.Background()
	convNora, err := store.CreateConversation("", me.ID, nora.ID)
	if err != nil {
		return nil, messaging.Session{}, err
	}
	convDJ, err := store.CreateConversation("", me.ID, dj.ID)
	if err != nil {
		return nil, messaging.Session{}, err
	}

	now := time.Now().UTC()
	seed := []models.Message{
		{ConversationID: convDJ, SenderID: dj.ID, Content: "set starts at midnight", CreatedAt: now.Add(-2 * time.Hour)},
		{ConversationID: convNora, SenderID: nora.ID, Content: "you coming tonight?", CreatedAt: now.Add(-30 * time.Minute)},
		{ConversationID: convNora, SenderID: nora.ID, Content: "doors at 11", CreatedAt: now.Add(-29 * time.Minute)},
	}
	for _, msg := range seed {
		if _, err := store.InsertMessage(ctx, msg); err != nil {
			return nil, messaging.Session{}, err
		}
		if err := store.TouchConversation(ctx, msg.ConversationID, msg.CreatedAt); err != nil {
			return nil, messaging.Session{}, err
		}
	}

	return store, messaging.Session{UserID: me.ID, Username: me.Username}, nil
}
