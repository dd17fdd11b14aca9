package trainer

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/openai/openai-go/v3"

	"github.com/myrjola/pelocoach/internal/chat"
	"github.com/myrjola/pelocoach/internal/errors"
	"github.com/myrjola/pelocoach/internal/platform"
	"github.com/myrjola/pelocoach/internal/ptr"
)

const conversationSystemPrompt = trainerSystemPrompt + `

You can call tools to look at the catalog and the member's recent workouts.
Answer conversationally; when you recommend classes, name them with their
durations and instructors.`

const maxTitleLength = 60

// Respond runs one conversational turn: it records the user message, lets
// the model call tools for up to a few rounds, and records the assistant
// reply. A failed turn is recorded in the transcript with its error message
// rather than losing the exchange. Starting a turn cancels any prior
// in-flight turn for the same user.
func (s *Service) Respond(
	ctx context.Context,
	sess platform.Session,
	conversationID int,
	userMessage string,
) (chat.Message, error) {
	turnCtx, endTurn := s.chats.BeginTurn(ctx)
	defer endTurn()

	if conversationID == 0 {
		conv, err := s.chats.CreateConversation(turnCtx, titleFrom(userMessage))
		if err != nil {
			return chat.Message{}, errors.Wrap(err, "create conversation")
		}
		conversationID = conv.ID
	}

	if _, err := s.chats.AppendMessage(turnCtx, chat.Message{
		ConversationID: conversationID,
		MessageType:    chat.MessageTypeUser,
		Content:        userMessage,
	}); err != nil {
		return chat.Message{}, errors.Wrap(err, "record user message")
	}

	history, err := s.chats.Messages(turnCtx, conversationID)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "load conversation history")
	}

	reply, turnErr := s.runTurn(turnCtx, sess, history)
	assistantMessage := chat.Message{
		ConversationID: conversationID,
		MessageType:    chat.MessageTypeAssistant,
		Content:        reply,
	}
	if turnErr != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "conversation turn failed",
			slog.Int("conversation_id", conversationID), slog.Any("error", turnErr))
		assistantMessage.Content = "Sorry, I could not finish that. Please try again."
		assistantMessage.ErrorMessage = ptr.Ref(turnErr.Error())
	}

	// Record on the request context so a turn cancelled by a newer one can
	// still write its outcome.
	recorded, err := s.chats.AppendMessage(ctx, assistantMessage)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "record assistant message")
	}
	return recorded, nil
}

// runTurn drives the tool-calling loop until the model produces a text
// reply.
func (s *Service) runTurn(
	ctx context.Context,
	sess platform.Session,
	history []chat.Message,
) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(conversationSystemPrompt),
	}
	for _, msg := range history {
		switch msg.MessageType {
		case chat.MessageTypeUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case chat.MessageTypeAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}

	for range maxToolRounds {
		completion, err := s.llm.completions.New(ctx, openai.ChatCompletionNewParams{
			Model:       openai.ChatModelGPT4o,
			Messages:    messages,
			Tools:       s.registry.params(),
			Temperature: openai.Float(0),
		})
		if err != nil {
			return "", errors.Wrap(err, "chat completion")
		}
		if len(completion.Choices) == 0 {
			return "", errors.New("chat completion returned no choices")
		}

		message := completion.Choices[0].Message
		if len(message.ToolCalls) == 0 {
			return message.Content, nil
		}

		messages = append(messages, message.ToParam())
		for _, call := range message.ToolCalls {
			result, toolErr := s.registry.dispatch(ctx, sess, call.Function.Name, call.Function.Arguments)
			if toolErr != nil {
				s.logger.LogAttrs(ctx, slog.LevelWarn, "tool call failed",
					slog.String("tool", call.Function.Name), slog.Any("error", toolErr))
				result = "tool error: " + toolErr.Error()
			}
			messages = append(messages, openai.ToolMessage(result, call.ID))
		}
	}

	return "", errors.New("tool loop exceeded round limit")
}

// titleFrom derives a conversation title from the first user message.
func titleFrom(userMessage string) string {
	if utf8.RuneCountInString(userMessage) <= maxTitleLength {
		return userMessage
	}
	runes := []rune(userMessage)
	return string(runes[:maxTitleLength-1]) + "…"
}
