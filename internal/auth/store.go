package auth

import (
	"time"

	"github.com/desertthunder/opium/internal/models"
	"github.com/desertthunder/opium/internal/shared"
)

// TokenStore persists the token triple between runs.
type TokenStore interface {
	LoadToken() (models.Token, error)
	SaveToken(token models.Token) error
	ClearToken() error
}

// StateTokenStore implements [TokenStore] on top of [shared.StateStore].
type StateTokenStore struct {
	state *shared.StateStore
}

// NewStateTokenStore creates a [StateTokenStore] over the given state file.
func NewStateTokenStore(state *shared.StateStore) *StateTokenStore {
	return &StateTokenStore{state: state}
}

func (s *StateTokenStore) LoadToken() (models.Token, error) {
	st := s.state.Snapshot()
	return models.Token{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		ExpiresAt:    st.ExpiresAt,
	}, nil
}

func (s *StateTokenStore) SaveToken(token models.Token) error {
	return s.state.Update(func(st *shared.State) {
		st.AccessToken = token.AccessToken
		st.RefreshToken = token.RefreshToken
		st.ExpiresAt = token.ExpiresAt
	})
}

func (s *StateTokenStore) ClearToken() error {
	return s.state.Update(func(st *shared.State) {
		st.AccessToken = ""
		st.RefreshToken = ""
		st.ExpiresAt = time.Time{}
	})
}
