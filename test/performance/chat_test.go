package performance

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/myrjola/pelocoach/internal/chat"
	"github.com/myrjola/pelocoach/internal/contexthelpers"
	"github.com/myrjola/pelocoach/internal/sqlite"
	"github.com/myrjola/pelocoach/internal/testhelpers"
)

// Performance test for 100 concurrent conversations.
// Tests that the repository handles many chat sessions writing at once
// without blocking on the single write connection.
func TestChat_ConcurrentConversations(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	ctx := context.Background()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))

	db, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	service := chat.NewService(db, logger)

	const (
		numConcurrentConversations = 100
		messagesPerConversation    = 5
		maxTestDuration            = 30 * time.Second
	)

	ctx, cancel := context.WithTimeout(ctx, maxTestDuration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	errs := make(chan error, numConcurrentConversations)

	for i := range numConcurrentConversations {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each conversation belongs to its own user.
			userCtx := context.WithValue(ctx, contexthelpers.PlatformUserIDContextKey,
				fmt.Sprintf("user-%d", i))

			conversation, convErr := service.CreateConversation(userCtx, fmt.Sprintf("Conversation %d", i))
			if convErr != nil {
				errs <- fmt.Errorf("create conversation %d: %w", i, convErr)
				return
			}

			for j := range messagesPerConversation {
				msgType := chat.MessageTypeUser
				if j%2 == 1 {
					msgType = chat.MessageTypeAssistant
				}
				if _, msgErr := service.AppendMessage(userCtx, chat.Message{
					ID:             0,
					ConversationID: conversation.ID,
					MessageType:    msgType,
					Content:        fmt.Sprintf("Message %d in conversation %d", j, i),
					ErrorMessage:   nil,
					CreatedAt:      time.Time{},
				}); msgErr != nil {
					errs <- fmt.Errorf("append message %d to conversation %d: %w", j, i, msgErr)
					return
				}
			}

			messages, listErr := service.Messages(userCtx, conversation.ID)
			if listErr != nil {
				errs <- fmt.Errorf("list messages for conversation %d: %w", i, listErr)
				return
			}
			if len(messages) != messagesPerConversation {
				errs <- fmt.Errorf("conversation %d: expected %d messages, got %d",
					i, messagesPerConversation, len(messages))
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	elapsed := time.Since(start)
	t.Logf("Completed %d conversations with %d messages each in %v",
		numConcurrentConversations, messagesPerConversation, elapsed)
	if elapsed >= maxTestDuration {
		t.Errorf("Test took too long: %v", elapsed)
	}
}
