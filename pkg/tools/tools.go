// Package tools exposes the calendar subsystem as schema-declared tools
// the agent runtime can invoke mid-conversation.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/ryanlzh/calendar-agent-go/pkg/gcal"
	loggerpkg "github.com/ryanlzh/calendar-agent-go/pkg/logger"
)

type tool interface {
	definition() openai.ChatCompletionToolParam
	execute(argText string) (string, error)
	name() string
}

// EventCreator is the calendar capability a tool invocation needs.
// *gcal.Client satisfies it; tests substitute fakes.
type EventCreator interface {
	CreateEvent(ctx context.Context, ev gcal.Event) (gcal.EventResult, error)
}

var _ EventCreator = (*gcal.Client)(nil)

// SessionProvider obtains an authenticated calendar session. It is called
// once per tool invocation, so credential refresh happens lazily inline.
type SessionProvider func(ctx context.Context) (EventCreator, error)

// Context carries shared dependencies into tool implementations.
type Context struct {
	Timezone string
	Verbose  bool
	Ctx      context.Context
	Logger   loggerpkg.Logger
	Sessions SessionProvider
}

func (c Context) debugf(format string, args ...any) {
	loggerpkg.Debugf(c.Verbose, c.Logger, format, args...)
}

// Registry holds registered tools and handles execution.
type Registry struct {
	registry map[string]tool
	ctx      Context
	params   []openai.ChatCompletionToolParam
}

// New builds a registry with the built-in calendar tools.
func New(ctx Context) *Registry {
	if ctx.Logger == nil {
		ctx.Logger = loggerpkg.NopLogger{}
	}
	r := &Registry{
		registry: make(map[string]tool),
		ctx:      ctx,
	}

	r.register(&createEventTool{ctx: ctx})
	return r
}

func (r *Registry) register(toolImpl tool) {
	r.registry[toolImpl.name()] = toolImpl
	r.params = append(r.params, toolImpl.definition())
	r.ctx.debugf("[verbose] registered tool: %s", toolImpl.name())
}

// Definitions returns the tool schemas advertised to the model.
func (r *Registry) Definitions() []openai.ChatCompletionToolParam {
	return r.params
}

// Execute dispatches a tool call. The returned string is always a flat
// JSON payload the agent runtime can relay back into the conversation;
// failures become {"error": ...} rather than faults.
func (r *Registry) Execute(call openai.ChatCompletionMessageToolCall) (string, error) {
	if r.ctx.Ctx != nil {
		select {
		case <-r.ctx.Ctx.Done():
			return errorPayload(r.ctx.Ctx.Err()), nil
		default:
		}
	}

	toolImpl, ok := r.registry[call.Function.Name]
	if !ok {
		return errorPayload(fmt.Errorf("unknown tool: %s", call.Function.Name)), nil
	}

	return toolImpl.execute(call.Function.Arguments)
}

type successResult struct {
	Status   string `json:"status"`
	Summary  string `json:"summary"`
	HTMLLink string `json:"htmlLink"`
}

type errorResult struct {
	Error string `json:"error"`
}

func successPayload(result gcal.EventResult) string {
	b, err := json.Marshal(successResult{
		Status:   "success",
		Summary:  result.Summary,
		HTMLLink: result.HTMLLink,
	})
	if err != nil {
		return errorPayload(err)
	}
	return string(b)
}

func errorPayload(err error) string {
	b, merr := json.Marshal(errorResult{Error: err.Error()})
	if merr != nil {
		return fmt.Sprintf(`{"error":%q}`, merr.Error())
	}
	return string(b)
}
