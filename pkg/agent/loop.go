// Package agent runs the conversational loop against an OpenAI-compatible
// chat completions API, executing calendar tool calls between turns.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	configpkg "github.com/ryanlzh/calendar-agent-go/pkg/config"
	loggerpkg "github.com/ryanlzh/calendar-agent-go/pkg/logger"
	"github.com/ryanlzh/calendar-agent-go/pkg/tools"
)

// AgentLoop holds agent runtime state. Conversation history lives here,
// owned by the loop, and grows for the life of the process.
type AgentLoop struct {
	config       configpkg.Config
	client       openai.Client
	tools        *tools.Registry
	SystemPrompt string
	history      []openai.ChatCompletionMessageParamUnion

	ctx     context.Context
	logger  loggerpkg.Logger
	verbose bool
}

// New initializes an AgentLoop with the provided context, config, and
// tool registry.
func New(ctx context.Context, cfg configpkg.Config, registry *tools.Registry, opts ...AgentOption) (*AgentLoop, error) {
	cfg = configpkg.Normalize(cfg)
	deps := agentDeps{logger: loggerpkg.NopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}

	if cfg.APIKey == "" {
		return nil, errors.New("APIKey is not set")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("Model is not set")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	loggerpkg.Debug(cfg.Verbose, deps.logger, "agent_loop init", map[string]any{
		"model":     cfg.Model,
		"base_url":  cfg.BaseURL,
		"max_turns": cfg.MaxTurns,
		"timezone":  cfg.Timezone,
	})

	systemPrompt := buildSystemPrompt(time.Now())

	return &AgentLoop{
		config:       cfg,
		client:       newOpenAIClient(cfg),
		tools:        registry,
		SystemPrompt: systemPrompt,
		history:      []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)},

		ctx:     ctx,
		logger:  deps.logger,
		verbose: cfg.Verbose,
	}, nil
}

// buildSystemPrompt anchors the assistant role and the current date so the
// model can resolve relative expressions like "tomorrow at 6pm".
func buildSystemPrompt(now time.Time) string {
	return fmt.Sprintf(
		"You are a helpful personal assistant that can create events on Google Calendar. Today is %s.",
		now.Format("Monday Jan 2, 2006"),
	)
}

func newOpenAIClient(cfg configpkg.Config) openai.Client {
	opts := []option.RequestOption{}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return openai.NewClient(opts...)
}

// runOnce performs one model completion request.
func (a *AgentLoop) runOnce(params openai.ChatCompletionNewParams) (openai.ChatCompletionMessage, error) {
	a.debugf("[verbose] iteration: sending request")
	completion, err := a.client.Chat.Completions.New(a.ctx, params)
	if err != nil {
		return openai.ChatCompletionMessage{}, err
	}
	if len(completion.Choices) == 0 {
		return openai.ChatCompletionMessage{}, errors.New("empty completion choices")
	}
	return completion.Choices[0].Message, nil
}

// runIteration executes iterative model/tool turns for one user interaction.
func (a *AgentLoop) runIteration(
	messages []openai.ChatCompletionMessageParamUnion,
	maxTurns int,
) (openai.ChatCompletionMessage, error) {
	currentMessages := append([]openai.ChatCompletionMessageParamUnion{}, messages...)

	for turn := 0; turn < maxTurns; turn++ {
		a.debugf("[verbose] iteration: %d/%d", turn+1, maxTurns)
		message, err := a.runOnce(a.newChatParams(currentMessages))
		if err != nil {
			return openai.ChatCompletionMessage{}, err
		}

		if len(message.ToolCalls) == 0 {
			return message, nil
		}

		// Persist the assistant tool-call turn before appending tool responses.
		currentMessages = append(currentMessages, message.ToParam())
		a.debugf("[verbose] iteration: assistant requested %d tool call(s)", len(message.ToolCalls))
		currentMessages = a.appendToolResponses(currentMessages, message.ToolCalls)
	}

	return openai.ChatCompletionMessage{}, errors.New("max turns reached before assistant produced a final response")
}

// Run processes one user input and returns a single final assistant message.
// On error the user message is rolled back so history stays consistent.
func (a *AgentLoop) Run(userInput string) (openai.ChatCompletionMessage, error) {
	userInput = strings.TrimSpace(userInput)
	if userInput == "" {
		return openai.ChatCompletionMessage{}, errors.New("user input is required")
	}
	previousLen := len(a.history)
	a.history = append(a.history, openai.UserMessage(userInput))

	finalMessage, err := a.runIteration(a.history, a.config.MaxTurns)
	if err != nil {
		a.history = a.history[:previousLen]
		return openai.ChatCompletionMessage{}, err
	}

	a.history = append(a.history, finalMessage.ToParam())
	return finalMessage, nil
}

// Reset clears conversation history and keeps only the system prompt.
func (a *AgentLoop) Reset() {
	a.history = []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(a.SystemPrompt)}
}

// HistoryLen reports the number of messages held, system prompt included.
func (a *AgentLoop) HistoryLen() int {
	return len(a.history)
}

func (a *AgentLoop) debugf(format string, args ...any) {
	loggerpkg.Debugf(a.verbose, a.logger, format, args...)
}

func (a *AgentLoop) newChatParams(messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.config.Model),
		Messages: messages,
		Tools:    a.tools.Definitions(),
	}
}

func (a *AgentLoop) appendToolResponses(
	messages []openai.ChatCompletionMessageParamUnion,
	toolCalls []openai.ChatCompletionMessageToolCall,
) []openai.ChatCompletionMessageParamUnion {
	updated := messages
	for _, call := range toolCalls {
		output, err := a.tools.Execute(call)
		if err != nil {
			output = fmt.Sprintf(`{"error":%q}`, err.Error())
		}
		updated = append(updated, openai.ToolMessage(output, call.ID))
	}
	return updated
}
