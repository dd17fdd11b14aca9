package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/pelocoach/internal/contexthelpers"
	"github.com/myrjola/pelocoach/internal/sqlite"
)

// ErrNotFound is returned when a conversation does not exist or belongs to a
// different user.
var ErrNotFound = errors.New("conversation not found")

const timestampFormat = "2006-01-02 15:04:05"

// Service persists conversations and messages. The platform user id comes
// from the request context; every query is scoped to it.
type Service struct {
	db     *sqlite.Database
	logger *slog.Logger
	turns  *turnGuard
}

func NewService(db *sqlite.Database, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
		turns:  newTurnGuard(),
	}
}

// CreateConversation starts a new conversation titled after the first user
// message.
func (s *Service) CreateConversation(ctx context.Context, title string) (Conversation, error) {
	userID := contexthelpers.PlatformUserID(ctx)

	var (
		conv         Conversation
		createdAtStr string
		updatedAtStr string
	)
	err := s.db.ReadWrite.QueryRowContext(ctx, `
		INSERT INTO conversations (platform_user_id, title)
		VALUES (?, ?)
		RETURNING id, platform_user_id, title, created_at, updated_at`,
		userID, title).Scan(
		&conv.ID, &conv.PlatformUserID, &conv.Title, &createdAtStr, &updatedAtStr)
	if err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	if err = parseTimestamps(&conv, createdAtStr, updatedAtStr); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// Conversation retrieves one conversation owned by the current user.
func (s *Service) Conversation(ctx context.Context, id int) (Conversation, error) {
	userID := contexthelpers.PlatformUserID(ctx)

	var (
		conv         Conversation
		createdAtStr string
		updatedAtStr string
	)
	err := s.db.ReadOnly.QueryRowContext(ctx, `
		SELECT id, platform_user_id, title, created_at, updated_at
		FROM conversations
		WHERE id = ? AND platform_user_id = ?`, id, userID).Scan(
		&conv.ID, &conv.PlatformUserID, &conv.Title, &createdAtStr, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	if err = parseTimestamps(&conv, createdAtStr, updatedAtStr); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// Conversations lists the current user's conversations, most recently active
// first.
func (s *Service) Conversations(ctx context.Context) ([]Conversation, error) {
	userID := contexthelpers.PlatformUserID(ctx)

	rows, err := s.db.ReadOnly.QueryContext(ctx, `
		SELECT id, platform_user_id, title, created_at, updated_at
		FROM conversations
		WHERE platform_user_id = ?
		ORDER BY updated_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var (
			conv         Conversation
			createdAtStr string
			updatedAtStr string
		)
		if err = rows.Scan(&conv.ID, &conv.PlatformUserID, &conv.Title, &createdAtStr, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if err = parseTimestamps(&conv, createdAtStr, updatedAtStr); err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return conversations, nil
}

// AppendMessage stores a message and bumps the conversation's activity
// timestamp. The conversation must belong to the current user.
func (s *Service) AppendMessage(ctx context.Context, msg Message) (Message, error) {
	if !msg.MessageType.IsValid() {
		return Message{}, fmt.Errorf("invalid message type %q", msg.MessageType)
	}
	if _, err := s.Conversation(ctx, msg.ConversationID); err != nil {
		return Message{}, err
	}

	tx, err := s.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.LogAttrs(ctx, slog.LevelError, "rollback transaction", slog.Any("error", rollbackErr))
		}
	}(tx)

	var (
		result       Message
		createdAtStr string
	)
	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, message_type, content, error_message)
		VALUES (?, ?, ?, ?)
		RETURNING id, conversation_id, message_type, content, error_message, created_at`,
		msg.ConversationID, msg.MessageType, msg.Content, msg.ErrorMessage).Scan(
		&result.ID, &result.ConversationID, &result.MessageType,
		&result.Content, &result.ErrorMessage, &createdAtStr)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	if result.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
		return Message{}, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE conversations
		SET updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, msg.ConversationID)
	if err != nil {
		return Message{}, fmt.Errorf("touch conversation: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return Message{}, fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}

// Messages returns a conversation's messages oldest first.
func (s *Service) Messages(ctx context.Context, conversationID int) ([]Message, error) {
	if _, err := s.Conversation(ctx, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.db.ReadOnly.QueryContext(ctx, `
		SELECT id, conversation_id, message_type, content, error_message, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			msg          Message
			createdAtStr string
		)
		if err = rows.Scan(&msg.ID, &msg.ConversationID, &msg.MessageType,
			&msg.Content, &msg.ErrorMessage, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if msg.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// BeginTurn derives the context a new turn runs under, cancelling any prior
// in-flight turn for the same user. The returned cancel must be called when
// the turn finishes.
func (s *Service) BeginTurn(ctx context.Context) (context.Context, context.CancelFunc) {
	return s.turns.begin(ctx, contexthelpers.PlatformUserID(ctx))
}

func parseTimestamps(conv *Conversation, createdAtStr, updatedAtStr string) error {
	var err error
	if conv.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
		return err
	}
	if conv.UpdatedAt, err = parseTimestamp(updatedAtStr); err != nil {
		return err
	}
	return nil
}

func parseTimestamp(value string) (time.Time, error) {
	parsed, err := time.Parse(timestampFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return parsed, nil
}
