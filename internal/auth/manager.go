package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/opium/internal/models"
	"github.com/desertthunder/opium/internal/shared"
	"golang.org/x/oauth2"
)

const (
	DefaultAuthURL        = "https://accounts.spotify.com/authorize"
	DefaultTokenURL       = "https://accounts.spotify.com/api/token"
	DefaultRefreshWindow  = 5 * time.Minute
	DefaultRefreshTimeout = 20 * time.Second
)

// State is the externally visible phase of the token lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unauthenticated"
	}
}

// ManagerOpts contains configuration options for creating a [Manager].
type ManagerOpts struct {
	Credentials    shared.SpotifyConfig
	AuthURL        string
	TokenURL       string
	Store          TokenStore
	HTTPClient     *http.Client
	RefreshWindow  time.Duration
	RefreshTimeout time.Duration
	Logger         *log.Logger
}

type tokenResult struct {
	token string
	err   error
}

// Manager owns the access/refresh token pair and hands out valid bearer tokens.
type Manager struct {
	config     *oauth2.Config
	store      TokenStore
	httpClient *http.Client
	window     time.Duration
	timeout    time.Duration
	logger     *log.Logger
	now        func() time.Time

	mu         sync.Mutex
	token      models.Token
	refreshing bool
	waiters    []chan tokenResult
	generation uint64
}

// NewManager creates a [Manager] and loads any previously persisted token from the store.
func NewManager(opts ManagerOpts) (*Manager, error) {
	if !opts.Credentials.Configured() {
		return nil, fmt.Errorf("%w: client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: token store is required", shared.ErrInvalidArgument)
	}
	if opts.AuthURL == "" {
		opts.AuthURL = DefaultAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = DefaultTokenURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.RefreshWindow <= 0 {
		opts.RefreshWindow = DefaultRefreshWindow
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	token, err := opts.Store.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	return &Manager{
		config: &oauth2.Config{
			ClientID:     opts.Credentials.ClientID,
			ClientSecret: opts.Credentials.ClientSecret,
			RedirectURL:  opts.Credentials.RedirectURI,
			Scopes:       opts.Credentials.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		store:      opts.Store,
		httpClient: opts.HTTPClient,
		window:     opts.RefreshWindow,
		timeout:    opts.RefreshTimeout,
		logger:     shared.WithLogger(opts.Logger, "component", "auth"),
		now:        time.Now,
		token:      token,
	}, nil
}

// AuthCodeURL returns the authorization-code grant URL the user signs in at.
func (m *Manager) AuthCodeURL(state string) string {
	return m.config.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// Status reports the current lifecycle state.
func (m *Manager) Status() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.refreshing:
		return StateRefreshing
	case m.token.Issued():
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

// SignedIn reports whether a token has been issued and not cleared.
func (m *Manager) SignedIn() bool {
	return m.Status() != StateUnauthenticated
}

// ExpiresAt returns the expiry of the current token, zero when signed out.
func (m *Manager) ExpiresAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token.ExpiresAt
}

// ValidToken returns an access token that is outside the refresh window.
//
// Callers arriving while a refresh is in flight, or finding the token inside the window, wait for
// that single refresh. A failed refresh releases every waiter with an error wrapping
// [shared.ErrRefreshFailed] and signs the user out. Cancelling ctx only abandons the wait.
func (m *Manager) ValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	if !m.refreshing {
		if !m.token.Issued() {
			m.mu.Unlock()
			return "", shared.ErrNotAuthenticated
		}

		now := m.now()
		if !m.token.NeedsRefresh(now, m.window) {
			token := m.token.AccessToken
			m.mu.Unlock()
			return token, nil
		}

		if m.token.RefreshToken == "" {
			if now.Before(m.token.ExpiresAt) {
				token := m.token.AccessToken
				m.mu.Unlock()
				return token, nil
			}
			m.clearLocked()
			m.mu.Unlock()
			return "", fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, shared.ErrNoRefreshToken)
		}
	}

	waiter := make(chan tokenResult, 1)
	m.waiters = append(m.waiters, waiter)
	if !m.refreshing {
		m.refreshing = true
		m.logger.Debug("refreshing access token", "expires_at", m.token.ExpiresAt)
		go m.refresh(m.generation, m.token.RefreshToken)
	}
	m.mu.Unlock()

	select {
	case res := <-waiter:
		return res.token, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Exchange trades an authorization code for the initial token pair.
//
// The token is stored only when the whole exchange succeeds.
func (m *Manager) Exchange(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	tok, err := m.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)
	}

	next, err := fromOAuthToken(tok, "")
	if err != nil {
		return fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SaveToken(next); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	m.token = next
	m.generation++
	m.logger.Info("signed in", "expires_at", next.ExpiresAt)
	return nil
}

// SignOut clears the token from memory and from the store.
//
// A refresh still in flight is discarded when it completes.
func (m *Manager) SignOut() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.token = models.Token{}
	if err := m.store.ClearToken(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	m.logger.Info("signed out")
	return nil
}

func (m *Manager) refresh(generation uint64, refreshToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	var next models.Token
	tok, err := m.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err == nil {
		next, err = fromOAuthToken(tok, refreshToken)
	}

	m.finishRefresh(generation, next, err)
}

// finishRefresh records the outcome and drains the waiters in arrival order.
//
// refreshing is cleared before any waiter is released so a waiter may call ValidToken again.
func (m *Manager) finishRefresh(generation uint64, next models.Token, err error) {
	var res tokenResult

	m.mu.Lock()
	switch {
	case generation != m.generation:
		if m.token.Issued() {
			res.token = m.token.AccessToken
		} else {
			res.err = shared.ErrNotAuthenticated
		}
	case err != nil:
		m.logger.Error("token refresh failed", "err", err)
		m.clearLocked()
		res.err = fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	default:
		if saveErr := m.store.SaveToken(next); saveErr != nil {
			m.logger.Warn("failed to persist refreshed token", "err", saveErr)
		}
		m.token = next
		res.token = next.AccessToken
		m.logger.Debug("access token refreshed", "expires_at", next.ExpiresAt)
	}

	m.refreshing = false
	waiters := m.waiters
	m.waiters = nil
	m.mu.Unlock()

	for _, w := range waiters {
		w <- res
	}
}

func (m *Manager) clearLocked() {
	m.generation++
	m.token = models.Token{}
	if err := m.store.ClearToken(); err != nil {
		m.logger.Warn("failed to clear stored token", "err", err)
	}
}

// pending returns the number of queued waiters.
func (m *Manager) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

func fromOAuthToken(tok *oauth2.Token, previousRefresh string) (models.Token, error) {
	if tok == nil || tok.AccessToken == "" {
		return models.Token{}, errors.New("response missing access_token")
	}
	if tok.Expiry.IsZero() {
		return models.Token{}, errors.New("response missing expires_in")
	}

	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}

	return models.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    tok.Expiry,
	}, nil
}
