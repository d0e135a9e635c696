// Package googleauth manages the OAuth2 credential lifecycle for the
// Google Calendar API: loading the cached token, refreshing it in place,
// and running the interactive consent flow when nothing usable exists.
package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"

	loggerpkg "github.com/ryanlzh/calendar-agent-go/pkg/logger"
)

// ErrMissingClientSecret indicates the OAuth client secret file downloaded
// from the Google Cloud Console is not present.
var ErrMissingClientSecret = errors.New("client secret file not found")

// Store persists and refreshes an OAuth2 token on local storage.
type Store struct {
	tokenFile        string
	clientSecretFile string
	scopes           []string
	logger           loggerpkg.Logger
}

// storedToken is the on-disk shape of the cached credential. Scopes are
// recorded so a token issued under different scopes can be discarded.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// NewStore builds a credential store for the calendar read/write scope.
func NewStore(tokenFile, clientSecretFile string, log loggerpkg.Logger) *Store {
	if log == nil {
		log = loggerpkg.NopLogger{}
	}
	return &Store{
		tokenFile:        tokenFile,
		clientSecretFile: clientSecretFile,
		scopes:           []string{calendar.CalendarScope},
		logger:           log,
	}
}

// Token returns a usable OAuth2 token. A valid cached token is returned
// without any network call; an expired one with a refresh token is
// refreshed inline; otherwise the interactive authorization flow runs.
// Every creation or refresh is persisted to the token file.
func (s *Store) Token(ctx context.Context) (*oauth2.Token, error) {
	tok := s.loadToken()
	if tok != nil && tok.Valid() {
		return tok, nil
	}

	if tok != nil && tok.RefreshToken != "" {
		if conf, err := s.oauthConfig(); err == nil {
			refreshed, rerr := conf.TokenSource(ctx, tok).Token()
			if rerr == nil {
				s.saveToken(refreshed)
				return refreshed, nil
			}
			s.logger.Warn("token refresh failed, re-authenticating", map[string]any{
				"error": rerr.Error(),
			})
		}
	}

	conf, err := s.oauthConfig()
	if err != nil {
		return nil, err
	}
	tok, err = s.authorize(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("authorization flow: %w", err)
	}
	s.saveToken(tok)
	return tok, nil
}

// TokenSource returns a session handle for authenticated requests. Tokens
// refreshed by the source are persisted back to the token file.
func (s *Store) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	conf, err := s.oauthConfig()
	if err != nil {
		// No client secret on disk, but the cached token is still
		// usable for the current process.
		return oauth2.StaticTokenSource(tok), nil
	}
	return &savingTokenSource{
		store: s,
		src:   conf.TokenSource(ctx, tok),
		last:  tok.AccessToken,
	}, nil
}

// savingTokenSource persists tokens back to the store whenever the
// underlying source hands out a new access token.
type savingTokenSource struct {
	store *Store
	src   oauth2.TokenSource
	last  string
}

func (ts *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := ts.src.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != ts.last {
		ts.last = tok.AccessToken
		ts.store.saveToken(tok)
	}
	return tok, nil
}

// loadToken reads the cached token. Absent, malformed, or wrongly scoped
// files are treated as no token at all.
func (s *Store) loadToken() *oauth2.Token {
	b, err := os.ReadFile(s.tokenFile)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not read token file", map[string]any{
				"path": s.tokenFile, "error": err.Error(),
			})
		}
		return nil
	}

	var st storedToken
	if err := json.Unmarshal(b, &st); err != nil {
		s.logger.Warn("could not parse token file, re-authenticating", map[string]any{
			"path": s.tokenFile, "error": err.Error(),
		})
		return nil
	}
	if !hasScopes(st.Scopes, s.scopes) {
		s.logger.Warn("stored token is missing required scopes, discarding", map[string]any{
			"have": st.Scopes, "want": s.scopes,
		})
		return nil
	}

	return &oauth2.Token{
		AccessToken:  st.AccessToken,
		TokenType:    st.TokenType,
		RefreshToken: st.RefreshToken,
		Expiry:       st.Expiry,
	}
}

// saveToken writes the token to local storage. Failures are logged but
// non-fatal; the in-memory token still serves the current process.
func (s *Store) saveToken(tok *oauth2.Token) {
	st := storedToken{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		Scopes:       s.scopes,
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		s.logger.Error("could not encode token", map[string]any{"error": err.Error()})
		return
	}
	if err := os.WriteFile(s.tokenFile, b, 0o600); err != nil {
		s.logger.Error("could not save token file", map[string]any{
			"path": s.tokenFile, "error": err.Error(),
		})
		return
	}
	s.logger.Info("credentials saved", map[string]any{"path": s.tokenFile})
}

// oauthConfig reads the client secret file into an OAuth2 config.
func (s *Store) oauthConfig() (*oauth2.Config, error) {
	b, err := os.ReadFile(s.clientSecretFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (download it from the Google Cloud Console)",
				ErrMissingClientSecret, s.clientSecretFile)
		}
		return nil, fmt.Errorf("read client secret file: %w", err)
	}
	conf, err := google.ConfigFromJSON(b, s.scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secret file: %w", err)
	}
	return conf, nil
}

// hasScopes reports whether have is a superset of want.
func hasScopes(have, want []string) bool {
	granted := make(map[string]bool, len(have))
	for _, s := range have {
		granted[s] = true
	}
	for _, s := range want {
		if !granted[s] {
			return false
		}
	}
	return true
}
