package googleauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// authorize runs the interactive consent flow: a callback listener is
// opened on a random local port, the consent URL is printed for the user,
// and the returned code is exchanged for a token.
func (s *Store) authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("start callback listener: %w", err)
	}

	flowConf := *conf
	flowConf.RedirectURL = fmt.Sprintf("http://%s/callback", ln.Addr().String())

	state, err := randomState()
	if err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("generate state: %w", err)
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", callbackHandler(state, codeCh, errCh))

	srv := &http.Server{Handler: mux}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			select {
			case errCh <- serveErr:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := flowConf.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Printf("Open this link in your browser to authorize calendar access:\n%s\n", authURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := flowConf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

// callbackHandler accepts the first redirect from the consent page and
// delivers exactly one result. Duplicate hits (double-submit, browser
// retry) get a friendly page and never block on the channels.
func callbackHandler(state string, codeCh chan<- string, errCh chan<- error) http.HandlerFunc {
	var once sync.Once
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var code string
		var cbErr error
		declined := false
		switch {
		case q.Get("state") != state:
			cbErr = errors.New("state mismatch in callback")
		case q.Get("error") != "":
			declined = true
			cbErr = fmt.Errorf("authorization declined: %s", q.Get("error"))
		case q.Get("code") == "":
			cbErr = errors.New("callback missing authorization code")
		default:
			code = q.Get("code")
		}

		delivered := false
		once.Do(func() {
			delivered = true
			if cbErr != nil {
				errCh <- cbErr
			} else {
				codeCh <- code
			}
		})
		if !delivered {
			_, _ = fmt.Fprintln(w, "Authorization already completed. You can close this window.")
			return
		}

		switch {
		case declined:
			_, _ = fmt.Fprintln(w, "Authorization was declined. You can close this window.")
		case cbErr != nil:
			http.Error(w, cbErr.Error(), http.StatusBadRequest)
		default:
			_, _ = fmt.Fprintln(w, "Authorization complete. You can close this window.")
		}
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
