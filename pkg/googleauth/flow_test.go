package googleauth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func callbackRequest(query string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/callback?"+query, nil)
}

func TestCallbackHandlerDeliversCode(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	handler := callbackHandler("st", codeCh, errCh)

	rec := httptest.NewRecorder()
	handler(rec, callbackRequest("state=st&code=abc"))

	select {
	case code := <-codeCh:
		if code != "abc" {
			t.Fatalf("unexpected code: %q", code)
		}
	default:
		t.Fatal("expected code to be delivered")
	}
	if !strings.Contains(rec.Body.String(), "Authorization complete") {
		t.Fatalf("unexpected response body: %q", rec.Body.String())
	}
}

// A second callback hit (double-submit, browser retry) must respond
// without blocking and without delivering a second result.
func TestCallbackHandlerIgnoresDuplicateHits(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	handler := callbackHandler("st", codeCh, errCh)

	handler(httptest.NewRecorder(), callbackRequest("state=st&code=abc"))

	rec := httptest.NewRecorder()
	handler(rec, callbackRequest("state=st&code=abc"))
	if !strings.Contains(rec.Body.String(), "already completed") {
		t.Fatalf("unexpected response body: %q", rec.Body.String())
	}

	<-codeCh
	select {
	case code := <-codeCh:
		t.Fatalf("unexpected second delivery: %q", code)
	case err := <-errCh:
		t.Fatalf("unexpected error delivery: %v", err)
	default:
	}
}

func TestCallbackHandlerStateMismatch(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	handler := callbackHandler("st", codeCh, errCh)

	rec := httptest.NewRecorder()
	handler(rec, callbackRequest("state=other&code=abc"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	select {
	case err := <-errCh:
		if !strings.Contains(err.Error(), "state mismatch") {
			t.Fatalf("unexpected error: %v", err)
		}
	default:
		t.Fatal("expected error to be delivered")
	}
}

func TestCallbackHandlerDeclined(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	handler := callbackHandler("st", codeCh, errCh)

	rec := httptest.NewRecorder()
	handler(rec, callbackRequest("state=st&error=access_denied"))

	if !strings.Contains(rec.Body.String(), "declined") {
		t.Fatalf("unexpected response body: %q", rec.Body.String())
	}
	select {
	case err := <-errCh:
		if !strings.Contains(err.Error(), "access_denied") {
			t.Fatalf("unexpected error: %v", err)
		}
	default:
		t.Fatal("expected error to be delivered")
	}
}
