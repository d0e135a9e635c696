package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/ryanlzh/calendar-agent-go/pkg/gcal"
)

// fallbackTimezone applies when neither the model nor the config set one.
const fallbackTimezone = "Asia/Singapore"

type createEventTool struct {
	ctx Context
}

func (t *createEventTool) name() string {
	return "create_calendar_event"
}

func (t *createEventTool) definition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        "create_calendar_event",
			Description: openai.String("Create an event on the user's primary Google Calendar"),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"summary": map[string]any{
						"type":        "string",
						"description": "The title or summary of the event.",
					},
					"start_time": map[string]any{
						"type":        "string",
						"description": "The start time in ISO format (e.g., '2025-11-03T10:00:00').",
					},
					"end_time": map[string]any{
						"type":        "string",
						"description": "The end time in ISO format (e.g., '2025-11-03T11:00:00').",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "Optional description for the event.",
					},
					"location": map[string]any{
						"type":        "string",
						"description": "Optional location for the event.",
					},
					"timezone": map[string]any{
						"type":        "string",
						"description": "IANA timezone for the event, defaults to 'Asia/Singapore'.",
					},
				},
				"required": []string{"summary", "start_time", "end_time"},
			},
		},
	}
}

func (t *createEventTool) execute(argText string) (string, error) {
	var args struct {
		Summary     string `json:"summary"`
		StartTime   string `json:"start_time"`
		EndTime     string `json:"end_time"`
		Description string `json:"description"`
		Location    string `json:"location"`
		Timezone    string `json:"timezone"`
	}
	if err := json.Unmarshal([]byte(argText), &args); err != nil {
		t.ctx.debugf("[verbose] create_calendar_event: failed to parse arguments: %v", err)
		return errorPayload(fmt.Errorf("invalid tool arguments: %w", err)), nil
	}

	if strings.TrimSpace(args.Summary) == "" {
		return errorPayload(errors.New("summary is required")), nil
	}
	if strings.TrimSpace(args.StartTime) == "" {
		return errorPayload(errors.New("start_time is required")), nil
	}
	if strings.TrimSpace(args.EndTime) == "" {
		return errorPayload(errors.New("end_time is required")), nil
	}

	timezone := strings.TrimSpace(args.Timezone)
	if timezone == "" {
		timezone = t.ctx.Timezone
	}
	if timezone == "" {
		timezone = fallbackTimezone
	}

	t.ctx.debugf("[verbose] create_calendar_event: summary=%q start=%s end=%s tz=%s",
		args.Summary, args.StartTime, args.EndTime, timezone)

	creator, err := t.ctx.Sessions(t.ctx.Ctx)
	if err != nil {
		t.ctx.debugf("[verbose] create_calendar_event: session acquisition failed: %v", err)
		return errorPayload(fmt.Errorf("failed to get Google Calendar service, check authentication: %w", err)), nil
	}

	result, err := creator.CreateEvent(t.ctx.Ctx, gcal.Event{
		Summary:     args.Summary,
		Start:       args.StartTime,
		End:         args.EndTime,
		Description: args.Description,
		Location:    args.Location,
		TimeZone:    timezone,
	})
	if err != nil {
		t.ctx.debugf("[verbose] create_calendar_event: insert failed: %v", err)
		return errorPayload(err), nil
	}

	t.ctx.debugf("[verbose] create_calendar_event: created %q", result.Summary)
	return successPayload(result), nil
}
