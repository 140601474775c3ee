package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/opium/internal/models"
	"github.com/desertthunder/opium/internal/shared"
)

// tokenServer is a fake accounts service counting token requests.
type tokenServer struct {
	*httptest.Server
	hits    atomic.Int32
	release chan struct{}
	respond func(w http.ResponseWriter, r *http.Request)
	mu      sync.Mutex
	forms   []map[string]string
}

func newTokenServer(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) *tokenServer {
	t.Helper()
	ts := &tokenServer{respond: respond}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)

		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			t.Errorf("expected basic auth client:secret, got %q:%q (%v)", user, pass, ok)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("expected form content type, got %s", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		ts.mu.Lock()
		ts.forms = append(ts.forms, form)
		ts.mu.Unlock()

		if ts.release != nil {
			<-ts.release
		}
		ts.respond(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) lastForm() map[string]string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.forms) == 0 {
		return nil
	}
	return ts.forms[len(ts.forms)-1]
}

func jsonToken(access, refresh string, expiresIn int) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := fmt.Sprintf(`{"access_token":%q,"token_type":"Bearer","expires_in":%d,"scope":"user-read-private"`, access, expiresIn)
		if refresh != "" {
			body += fmt.Sprintf(`,"refresh_token":%q`, refresh)
		}
		io.WriteString(w, body+"}")
	}
}

func newTestManager(t *testing.T, tokenURL string, initial models.Token) (*Manager, *StateTokenStore) {
	t.Helper()
	state, err := shared.NewStateStore(shared.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create state store: %v", err)
	}
	store := NewStateTokenStore(state)
	if initial.Issued() {
		if err := store.SaveToken(initial); err != nil {
			t.Fatalf("failed to seed token: %v", err)
		}
	}

	m, err := NewManager(ManagerOpts{
		Credentials: shared.SpotifyConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURI:  "http://127.0.0.1:3000/callback",
			Scopes:       []string{"user-read-private", "streaming"},
		},
		TokenURL: tokenURL,
		Store:    store,
		Logger:   shared.NewLogger(io.Discard),
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return m, store
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("Missing Credentials", func(t *testing.T) {
		state, _ := shared.NewStateStore(shared.MemoryPath)
		_, err := NewManager(ManagerOpts{Store: NewStateTokenStore(state)})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Missing Store", func(t *testing.T) {
		_, err := NewManager(ManagerOpts{Credentials: shared.SpotifyConfig{ClientID: "a", ClientSecret: "b"}})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Loads Persisted Token", func(t *testing.T) {
		m, _ := newTestManager(t, "http://unused", models.Token{AccessToken: "a", ExpiresAt: time.Now().Add(time.Hour)})
		if m.Status() != StateAuthenticated {
			t.Errorf("expected authenticated, got %v", m.Status())
		}
	})
}

func TestAuthCodeURL(t *testing.T) {
	m, _ := newTestManager(t, "http://unused", models.Token{})
	authURL := m.AuthCodeURL("state-123")

	for _, want := range []string{"accounts.spotify.com/authorize", "response_type=code", "client_id=client", "state=state-123", "show_dialog=true", "redirect_uri="} {
		if !strings.Contains(authURL, want) {
			t.Errorf("auth URL %s should contain %s", authURL, want)
		}
	}
}

func TestValidToken(t *testing.T) {
	t.Run("Fresh Token Skips Refresh", func(t *testing.T) {
		ts := newTokenServer(t, jsonToken("new", "", 3600))
		m, _ := newTestManager(t, ts.URL, models.Token{AccessToken: "cached", RefreshToken: "r", ExpiresAt: time.Now().Add(10 * time.Minute)})

		for range 3 {
			token, err := m.ValidToken(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token != "cached" {
				t.Errorf("expected cached token, got %s", token)
			}
		}
		if ts.hits.Load() != 0 {
			t.Errorf("expected no refresh calls, got %d", ts.hits.Load())
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		m, _ := newTestManager(t, "http://unused", models.Token{})
		if _, err := m.ValidToken(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Concurrent Callers Share One Refresh", func(t *testing.T) {
		ts := newTokenServer(t, jsonToken("refreshed", "", 3600))
		ts.release = make(chan struct{})
		m, store := newTestManager(t, ts.URL, models.Token{AccessToken: "stale", RefreshToken: "r1", ExpiresAt: time.Now().Add(2 * time.Minute)})

		const callers = 8
		var wg sync.WaitGroup
		tokens := make([]string, callers)
		errs := make([]error, callers)
		for i := range callers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tokens[i], errs[i] = m.ValidToken(context.Background())
			}(i)
		}

		waitFor(t, func() bool { return m.pending() == callers })
		if m.Status() != StateRefreshing {
			t.Errorf("expected refreshing state, got %v", m.Status())
		}
		close(ts.release)
		wg.Wait()

		for i := range callers {
			if errs[i] != nil {
				t.Errorf("caller %d: unexpected error %v", i, errs[i])
			}
			if tokens[i] != "refreshed" {
				t.Errorf("caller %d: expected refreshed token, got %s", i, tokens[i])
			}
		}
		if ts.hits.Load() != 1 {
			t.Errorf("expected exactly one refresh call, got %d", ts.hits.Load())
		}

		form := ts.lastForm()
		if form["grant_type"] != "refresh_token" || form["refresh_token"] != "r1" {
			t.Errorf("unexpected refresh form %v", form)
		}

		stored, _ := store.LoadToken()
		if stored.AccessToken != "refreshed" {
			t.Errorf("expected refreshed token persisted, got %s", stored.AccessToken)
		}
		if stored.RefreshToken != "r1" {
			t.Errorf("expected refresh token preserved, got %s", stored.RefreshToken)
		}
		if m.Status() != StateAuthenticated {
			t.Errorf("expected authenticated after refresh, got %v", m.Status())
		}
	})

	t.Run("New Refresh Token Replaces Old", func(t *testing.T) {
		ts := newTokenServer(t, jsonToken("refreshed", "r2", 3600))
		m, store := newTestManager(t, ts.URL, models.Token{AccessToken: "stale", RefreshToken: "r1", ExpiresAt: time.Now().Add(-time.Minute)})

		if _, err := m.ValidToken(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		stored, _ := store.LoadToken()
		if stored.RefreshToken != "r2" {
			t.Errorf("expected new refresh token, got %s", stored.RefreshToken)
		}
		if time.Until(stored.ExpiresAt) < 50*time.Minute {
			t.Errorf("expected expiry about an hour out, got %v", stored.ExpiresAt)
		}
	})

	failures := []struct {
		name    string
		respond func(w http.ResponseWriter, r *http.Request)
	}{
		{
			name: "Server Error",
			respond: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
			},
		},
		{
			name: "Undecodable Body",
			respond: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, "{not json")
			},
		},
		{
			name: "Missing Expiry",
			respond: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, `{"access_token":"x","token_type":"Bearer"}`)
			},
		},
	}

	for _, tc := range failures {
		t.Run("Refresh Failure Releases All Waiters/"+tc.name, func(t *testing.T) {
			ts := newTokenServer(t, tc.respond)
			ts.release = make(chan struct{})
			m, store := newTestManager(t, ts.URL, models.Token{AccessToken: "stale", RefreshToken: "r1", ExpiresAt: time.Now().Add(time.Minute)})

			const callers = 4
			var wg sync.WaitGroup
			errs := make([]error, callers)
			for i := range callers {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = m.ValidToken(context.Background())
				}(i)
			}

			waitFor(t, func() bool { return m.pending() == callers })
			close(ts.release)
			wg.Wait()

			for i, err := range errs {
				if !errors.Is(err, shared.ErrRefreshFailed) {
					t.Errorf("caller %d: expected ErrRefreshFailed, got %v", i, err)
				}
			}
			if ts.hits.Load() != 1 {
				t.Errorf("expected one refresh call, got %d", ts.hits.Load())
			}
			if m.Status() != StateUnauthenticated {
				t.Errorf("expected unauthenticated after failure, got %v", m.Status())
			}
			if stored, _ := store.LoadToken(); stored.Issued() {
				t.Error("expected stored token to be cleared")
			}
			if _, err := m.ValidToken(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated afterwards, got %v", err)
			}
		})
	}

	t.Run("Waiter May Reenter On Release", func(t *testing.T) {
		ts := newTokenServer(t, jsonToken("refreshed", "", 3600))
		m, _ := newTestManager(t, ts.URL, models.Token{AccessToken: "stale", RefreshToken: "r1", ExpiresAt: time.Now().Add(time.Minute)})

		done := make(chan error, 1)
		go func() {
			if _, err := m.ValidToken(context.Background()); err != nil {
				done <- err
				return
			}
			_, err := m.ValidToken(context.Background())
			done <- err
		}()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("reentrant caller deadlocked")
		}
	})

	t.Run("Cancelled Caller Stops Waiting", func(t *testing.T) {
		ts := newTokenServer(t, jsonToken("refreshed", "", 3600))
		ts.release = make(chan struct{})
		defer close(ts.release)
		m, _ := newTestManager(t, ts.URL, models.Token{AccessToken: "stale", RefreshToken: "r1", ExpiresAt: time.Now().Add(time.Minute)})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := m.ValidToken(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("Expired Without Refresh Token", func(t *testing.T) {
		m, _ := newTestManager(t, "http://unused", models.Token{AccessToken: "old", ExpiresAt: time.Now().Add(-time.Minute)})
		_, err := m.ValidToken(context.Background())
		if !errors.Is(err, shared.ErrNoRefreshToken) || !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
		if m.SignedIn() {
			t.Error("expected to be signed out")
		}
	})

	t.Run("Unexpired Without Refresh Token Is Still Served", func(t *testing.T) {
		m, _ := newTestManager(t, "http://unused", models.Token{AccessToken: "short", ExpiresAt: time.Now().Add(time.Minute)})
		token, err := m.ValidToken(context.Background())
		if err != nil || token != "short" {
			t.Errorf("expected short-lived token, got %q (%v)", token, err)
		}
		if m.Status() != StateAuthenticated {
			t.Errorf("expected authenticated, got %s", m.Status())
		}
	})
}

func TestSignOut(t *testing.T) {
	t.Run("Clears Cached Token", func(t *testing.T) {
		m, store := newTestManager(t, "http://unused", models.Token{AccessToken: "cached", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)})

		if err := m.SignOut(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		token, err := m.ValidToken(context.Background())
		if token == "cached" {
			t.Error("sign out must never yield the cached token")
		}
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if stored, _ := store.LoadToken(); stored.Issued() || stored.AccessToken != "" || stored.RefreshToken != "" {
			t.Errorf("expected all stored fields cleared, got %+v", stored)
		}
	})

	t.Run("Discards In-Flight Refresh", func(t *testing.T) {
		ts := newTokenServer(t, jsonToken("refreshed", "", 3600))
		ts.release = make(chan struct{})
		m, store := newTestManager(t, ts.URL, models.Token{AccessToken: "stale", RefreshToken: "r1", ExpiresAt: time.Now().Add(time.Minute)})

		errc := make(chan error, 1)
		go func() {
			_, err := m.ValidToken(context.Background())
			errc <- err
		}()
		waitFor(t, func() bool { return m.pending() == 1 })

		if err := m.SignOut(); err != nil {
			t.Fatalf("sign out failed: %v", err)
		}
		close(ts.release)

		if err := <-errc; !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if stored, _ := store.LoadToken(); stored.Issued() {
			t.Error("refresh result must not be stored after sign out")
		}
	})
}

func TestExchange(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ts := newTokenServer(t, jsonToken("initial", "r0", 3600))
		m, store := newTestManager(t, ts.URL, models.Token{})

		if err := m.Exchange(context.Background(), "auth-code"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		form := ts.lastForm()
		if form["grant_type"] != "authorization_code" || form["code"] != "auth-code" {
			t.Errorf("unexpected exchange form %v", form)
		}
		if form["redirect_uri"] != "http://127.0.0.1:3000/callback" {
			t.Errorf("expected redirect_uri in form, got %q", form["redirect_uri"])
		}

		stored, _ := store.LoadToken()
		if stored.AccessToken != "initial" || stored.RefreshToken != "r0" || !stored.Issued() {
			t.Errorf("unexpected stored token %+v", stored)
		}

		token, err := m.ValidToken(context.Background())
		if err != nil || token != "initial" {
			t.Errorf("expected initial token, got %q (%v)", token, err)
		}
	})

	t.Run("Failure Stores Nothing", func(t *testing.T) {
		ts := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant"}`)
		})
		m, store := newTestManager(t, ts.URL, models.Token{})

		err := m.Exchange(context.Background(), "bad-code")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if stored, _ := store.LoadToken(); stored.Issued() {
			t.Error("failed exchange must not store a token")
		}
		if m.SignedIn() {
			t.Error("expected unauthenticated")
		}
	})

	t.Run("Undecodable Stores Nothing", func(t *testing.T) {
		ts := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, "<html>")
		})
		m, _ := newTestManager(t, ts.URL, models.Token{})

		if err := m.Exchange(context.Background(), "code"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if m.SignedIn() {
			t.Error("expected unauthenticated")
		}
	})

	t.Run("Empty Code", func(t *testing.T) {
		m, _ := newTestManager(t, "http://unused", models.Token{})
		if err := m.Exchange(context.Background(), ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}
