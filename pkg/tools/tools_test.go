package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/ryanlzh/calendar-agent-go/pkg/gcal"
)

// fakeCreator records the event it received and returns canned results.
type fakeCreator struct {
	got    gcal.Event
	result gcal.EventResult
	err    error
}

func (f *fakeCreator) CreateEvent(_ context.Context, ev gcal.Event) (gcal.EventResult, error) {
	f.got = ev
	return f.result, f.err
}

func newTestRegistry(creator EventCreator, sessionErr error) (*Registry, *fakeCreator) {
	fake, _ := creator.(*fakeCreator)
	reg := New(Context{
		Timezone: "Asia/Singapore",
		Ctx:      context.Background(),
		Sessions: func(context.Context) (EventCreator, error) {
			if sessionErr != nil {
				return nil, sessionErr
			}
			return creator, nil
		},
	})
	return reg, fake
}

func toolCall(args string) openai.ChatCompletionMessageToolCall {
	call := openai.ChatCompletionMessageToolCall{}
	call.Function.Name = "create_calendar_event"
	call.Function.Arguments = args
	return call
}

func TestCreateEventToolSuccess(t *testing.T) {
	fake := &fakeCreator{result: gcal.EventResult{Summary: "Gym", HTMLLink: "https://calendar.google.com/x"}}
	reg, _ := newTestRegistry(fake, nil)

	out, err := reg.Execute(toolCall(`{"summary":"Gym","start_time":"2025-11-05T18:00:00","end_time":"2025-11-05T19:00:00"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := `{"status":"success","summary":"Gym","htmlLink":"https://calendar.google.com/x"}`
	if out != want {
		t.Fatalf("unexpected payload:\n got %s\nwant %s", out, want)
	}

	if fake.got.Summary != "Gym" {
		t.Fatalf("unexpected event summary: %q", fake.got.Summary)
	}
	if fake.got.Start != "2025-11-05T18:00:00" || fake.got.End != "2025-11-05T19:00:00" {
		t.Fatalf("unexpected event times: %+v", fake.got)
	}
	if fake.got.Description != "" || fake.got.Location != "" {
		t.Fatalf("expected optional fields to stay empty: %+v", fake.got)
	}
}

func TestCreateEventToolDefaultTimezone(t *testing.T) {
	fake := &fakeCreator{}
	reg, _ := newTestRegistry(fake, nil)

	if _, err := reg.Execute(toolCall(`{"summary":"Gym","start_time":"a","end_time":"b"}`)); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fake.got.TimeZone != "Asia/Singapore" {
		t.Fatalf("expected default timezone, got %q", fake.got.TimeZone)
	}

	if _, err := reg.Execute(toolCall(`{"summary":"Gym","start_time":"a","end_time":"b","timezone":"Europe/Berlin"}`)); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fake.got.TimeZone != "Europe/Berlin" {
		t.Fatalf("expected explicit timezone, got %q", fake.got.TimeZone)
	}
}

func TestCreateEventToolMissingRequired(t *testing.T) {
	reg, _ := newTestRegistry(&fakeCreator{}, nil)

	for _, args := range []string{
		`{"start_time":"a","end_time":"b"}`,
		`{"summary":"Gym","end_time":"b"}`,
		`{"summary":"Gym","start_time":"a"}`,
	} {
		out, err := reg.Execute(toolCall(args))
		if err != nil {
			t.Fatalf("Execute(%s): %v", args, err)
		}
		var payload struct {
			Error string `json:"error"`
		}
		if uerr := json.Unmarshal([]byte(out), &payload); uerr != nil {
			t.Fatalf("unmarshal payload: %v", uerr)
		}
		if payload.Error == "" {
			t.Fatalf("expected error payload for %s, got %s", args, out)
		}
	}
}

func TestCreateEventToolMalformedArguments(t *testing.T) {
	reg, _ := newTestRegistry(&fakeCreator{}, nil)

	out, err := reg.Execute(toolCall(`{"summary":`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, `"error"`) {
		t.Fatalf("expected error payload, got %s", out)
	}
}

// Provider rejections come back as error payloads, never as faults.
func TestCreateEventToolProviderError(t *testing.T) {
	fake := &fakeCreator{err: &gcal.ProviderError{Code: 403, Message: "Forbidden"}}
	reg, _ := newTestRegistry(fake, nil)

	out, err := reg.Execute(toolCall(`{"summary":"Gym","start_time":"a","end_time":"b"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var payload struct {
		Error string `json:"error"`
	}
	if uerr := json.Unmarshal([]byte(out), &payload); uerr != nil {
		t.Fatalf("unmarshal payload: %v", uerr)
	}
	if !strings.Contains(payload.Error, "403") || !strings.Contains(payload.Error, "Forbidden") {
		t.Fatalf("unexpected error payload: %s", out)
	}
}

// Auth failures mid-session surface as tool errors instead of crashing.
func TestCreateEventToolSessionFailure(t *testing.T) {
	reg, _ := newTestRegistry(nil, errors.New("token refresh failed"))

	out, err := reg.Execute(toolCall(`{"summary":"Gym","start_time":"a","end_time":"b"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "check authentication") {
		t.Fatalf("unexpected payload: %s", out)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	reg, _ := newTestRegistry(&fakeCreator{}, nil)

	call := openai.ChatCompletionMessageToolCall{}
	call.Function.Name = "delete_everything"
	out, err := reg.Execute(call)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "unknown tool") {
		t.Fatalf("unexpected payload: %s", out)
	}
}

func TestDefinitionsDeclareSchema(t *testing.T) {
	reg, _ := newTestRegistry(&fakeCreator{}, nil)

	defs := reg.Definitions()
	if len(defs) != 1 {
		t.Fatalf("expected one tool definition, got %d", len(defs))
	}
	if defs[0].Function.Name != "create_calendar_event" {
		t.Fatalf("unexpected tool name: %q", defs[0].Function.Name)
	}
	required, ok := defs[0].Function.Parameters["required"].([]string)
	if !ok || len(required) != 3 {
		t.Fatalf("unexpected required fields: %v", defs[0].Function.Parameters["required"])
	}
}
