package chat_test

import (
	"context"
	"testing"

	"github.com/myrjola/pelocoach/internal/chat"
	"github.com/myrjola/pelocoach/internal/contexthelpers"
	"github.com/myrjola/pelocoach/internal/errors"
	"github.com/myrjola/pelocoach/internal/ptr"
	"github.com/myrjola/pelocoach/internal/sqlite"
	"github.com/myrjola/pelocoach/internal/testhelpers"
)

func newService(t *testing.T) *chat.Service {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(t.Context(), ":memory:", logger)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	return chat.NewService(db, logger)
}

func userContext(t *testing.T, userID string) context.Context {
	t.Helper()
	return context.WithValue(t.Context(), contexthelpers.PlatformUserIDContextKey, userID)
}

func TestConversationLifecycle(t *testing.T) {
	t.Parallel()

	service := newService(t)
	ctx := userContext(t, "user-1")

	conv, err := service.CreateConversation(ctx, "Pick me a workout")
	if err != nil {
		t.Fatalf("CreateConversation() unexpected error: %v", err)
	}

	if _, err = service.AppendMessage(ctx, chat.Message{
		ConversationID: conv.ID,
		MessageType:    chat.MessageTypeUser,
		Content:        "I have 45 minutes today.",
	}); err != nil {
		t.Fatalf("AppendMessage() user message: %v", err)
	}
	if _, err = service.AppendMessage(ctx, chat.Message{
		ConversationID: conv.ID,
		MessageType:    chat.MessageTypeAssistant,
		Content:        "Sorry, the catalog is unavailable.",
		ErrorMessage:   ptr.Ref("catalog fetch failed"),
	}); err != nil {
		t.Fatalf("AppendMessage() assistant message: %v", err)
	}

	messages, err := service.Messages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Messages() unexpected error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].MessageType != chat.MessageTypeUser || messages[1].MessageType != chat.MessageTypeAssistant {
		t.Errorf("messages out of order: %+v", messages)
	}
	if messages[1].ErrorMessage == nil || *messages[1].ErrorMessage != "catalog fetch failed" {
		t.Errorf("error message not persisted: %+v", messages[1])
	}

	conversations, err := service.Conversations(ctx)
	if err != nil {
		t.Fatalf("Conversations() unexpected error: %v", err)
	}
	if len(conversations) != 1 || conversations[0].Title != "Pick me a workout" {
		t.Errorf("Conversations() = %+v, want the created conversation", conversations)
	}
}

func TestConversationOwnership(t *testing.T) {
	t.Parallel()

	service := newService(t)
	owner := userContext(t, "user-1")
	other := userContext(t, "user-2")

	conv, err := service.CreateConversation(owner, "Mine")
	if err != nil {
		t.Fatalf("CreateConversation() unexpected error: %v", err)
	}

	if _, err = service.Conversation(other, conv.ID); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("Conversation() for other user error = %v, want ErrNotFound", err)
	}
	if _, err = service.Messages(other, conv.ID); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("Messages() for other user error = %v, want ErrNotFound", err)
	}
	if _, err = service.AppendMessage(other, chat.Message{
		ConversationID: conv.ID,
		MessageType:    chat.MessageTypeUser,
		Content:        "hijack",
	}); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("AppendMessage() for other user error = %v, want ErrNotFound", err)
	}
}

func TestBeginTurnCancelsPriorTurn(t *testing.T) {
	t.Parallel()

	service := newService(t)
	ctx := userContext(t, "user-1")

	firstCtx, firstDone := service.BeginTurn(ctx)
	defer firstDone()

	secondCtx, secondDone := service.BeginTurn(ctx)
	defer secondDone()

	select {
	case <-firstCtx.Done():
	default:
		t.Error("first turn not cancelled by second turn")
	}
	select {
	case <-secondCtx.Done():
		t.Error("second turn cancelled prematurely")
	default:
	}

	// Turns of different users never interfere.
	otherCtx, otherDone := service.BeginTurn(userContext(t, "user-2"))
	defer otherDone()
	select {
	case <-secondCtx.Done():
		t.Error("second turn cancelled by another user's turn")
	case <-otherCtx.Done():
		t.Error("other user's turn cancelled at start")
	default:
	}
}
