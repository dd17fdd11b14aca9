package trainer

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go/v3"

	"github.com/myrjola/pelocoach/internal/errors"
	"github.com/myrjola/pelocoach/internal/platform"
)

// toolFunc executes one tool call. The arguments arrive as the raw JSON the
// model produced; each tool decodes its own parameter struct.
type toolFunc func(ctx context.Context, sess platform.Session, args json.RawMessage) (string, error)

type toolSpec struct {
	definition openai.FunctionDefinitionParam
	run        toolFunc
}

// toolRegistry maps tool names to their definitions and handlers. Tools are
// registered explicitly at service construction; there is no implicit
// discovery.
type toolRegistry struct {
	specs map[string]toolSpec
	order []string
}

func newToolRegistry() *toolRegistry {
	return &toolRegistry{
		specs: make(map[string]toolSpec),
	}
}

// register adds a tool. Registering the same name twice is a programming
// error.
func (r *toolRegistry) register(definition openai.FunctionDefinitionParam, run toolFunc) {
	if _, ok := r.specs[definition.Name]; ok {
		panic("tool registered twice: " + definition.Name)
	}
	r.specs[definition.Name] = toolSpec{definition: definition, run: run}
	r.order = append(r.order, definition.Name)
}

// params returns the tool definitions in registration order for a chat
// completion request.
func (r *toolRegistry) params() []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, openai.ChatCompletionFunctionTool(r.specs[name].definition))
	}
	return out
}

// dispatch runs the named tool with the model-provided arguments.
func (r *toolRegistry) dispatch(
	ctx context.Context,
	sess platform.Session,
	name string,
	args string,
) (string, error) {
	spec, ok := r.specs[name]
	if !ok {
		return "", errors.New("unknown tool: " + name)
	}
	return spec.run(ctx, sess, json.RawMessage(args))
}
