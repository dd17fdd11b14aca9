package trainer

import (
	"context"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/myrjola/pelocoach/internal/errors"
)

// completions is the slice of the OpenAI client the trainer needs. Tests
// substitute a scripted fake.
type completions interface {
	New(
		ctx context.Context,
		body openai.ChatCompletionNewParams,
		opts ...option.RequestOption,
	) (*openai.ChatCompletion, error)
}

// llmClient wraps chat completions with the trainer's defaults: GPT-4o at
// temperature zero so replies stay deterministic enough to parse.
type llmClient struct {
	completions completions
	logger      *slog.Logger
}

func newLLMClient(apiKey string, logger *slog.Logger) *llmClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &llmClient{
		completions: &client.Chat.Completions,
		logger:      logger,
	}
}

// complete runs a single system+user exchange and returns the reply text.
func (c *llmClient) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModelGPT4o,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0),
	}
	return c.send(ctx, params)
}

// continueExchange re-prompts within an existing exchange, keeping the
// model's earlier reply in context.
func (c *llmClient) continueExchange(
	ctx context.Context,
	systemPrompt, userPrompt, priorReply, followUp string,
) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModelGPT4o,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
			openai.AssistantMessage(priorReply),
			openai.UserMessage(followUp),
		},
		Temperature: openai.Float(0),
	}
	return c.send(ctx, params)
}

func (c *llmClient) send(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	c.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion request",
		slog.String("model", string(params.Model)),
		slog.Int("message_count", len(params.Messages)))

	completion, err := c.completions.New(ctx, params)
	if err != nil {
		return "", errors.Wrap(err, "chat completion")
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	c.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion response",
		slog.Int64("total_tokens", completion.Usage.TotalTokens))
	return completion.Choices[0].Message.Content, nil
}
