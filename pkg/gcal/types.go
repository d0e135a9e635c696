package gcal

import "fmt"

// Event describes a calendar event to create. Start and End are ISO-8601
// local datetimes (e.g. "2025-11-03T10:00:00") and are forwarded to the
// provider as given; the provider is the one that validates them.
type Event struct {
	Summary     string
	Start       string
	End         string
	Description string
	Location    string
	TimeZone    string
}

// EventResult is the successful outcome of an event insert.
type EventResult struct {
	Summary  string
	HTMLLink string
}

// ProviderError is an error the calendar provider reported over HTTP,
// such as a rejected payload, an auth failure, or an exhausted quota.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("calendar provider error %d: %s", e.Code, e.Message)
}

// UnexpectedError covers transport and other non-provider failures.
type UnexpectedError struct {
	Message string
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected calendar error: %s", e.Message)
}
