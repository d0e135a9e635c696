// Package gcal wraps the Google Calendar API for event creation.
package gcal

import (
	"context"
	"errors"
	"fmt"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// primaryCalendar refers to the authenticated user's main calendar.
const primaryCalendar = "primary"

// Client wraps an authenticated Google Calendar service.
type Client struct {
	svc *calendar.Service
}

// NewClient builds a calendar client. Callers pass option.WithTokenSource
// for authenticated use; tests pass option.WithEndpoint plus
// option.WithoutAuthentication to target a fake provider.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// CreateEvent inserts an event into the primary calendar. Failures are
// always returned as values: provider-reported HTTP errors become
// *ProviderError, everything else *UnexpectedError. No retries, and no
// local validation of the event times.
func (c *Client) CreateEvent(ctx context.Context, ev Event) (EventResult, error) {
	body := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start,
			TimeZone: ev.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End,
			TimeZone: ev.TimeZone,
		},
	}

	created, err := c.svc.Events.Insert(primaryCalendar, body).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			msg := gerr.Message
			if msg == "" {
				msg = gerr.Error()
			}
			return EventResult{}, &ProviderError{Code: gerr.Code, Message: msg}
		}
		return EventResult{}, &UnexpectedError{Message: err.Error()}
	}

	return EventResult{
		Summary:  created.Summary,
		HTMLLink: created.HtmlLink,
	}, nil
}
