package auth

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNotAuthenticated is returned when an operation needs a session token and
// there is none.
var ErrNotAuthenticated = errors.New("not authenticated")

// Backend is the part of Service the Store depends on.
type Backend interface {
	Authenticate(ctx context.Context, username, password string) (Result, error)
	GetUser(ctx context.Context) (*User, error)
}

// State is a snapshot of the authentication state.
type State struct {
	User              *User
	Token             string
	IsAuthenticated   bool
	AuthCheckComplete bool
}

// Store holds the authentication state for one session scope. Only a check
// or a clear mutates it.
type Store struct {
	backend Backend
	tokens  TokenStore
	log     zerolog.Logger

	mu        sync.RWMutex
	user      *User
	token     string
	complete  bool
	listeners []func(State)
}

// NewStore returns a Store with no user, no token and no completed check.
func NewStore(backend Backend, tokens TokenStore, log zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		tokens:  tokens,
		log:     log.With().Str("component", "auth").Logger(),
	}
}

// OnChange registers fn to run after every state replacement. Listeners run
// on the goroutine that changed the state, outside the Store's lock.
func (s *Store) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// CheckAuthState asks the device who the current user is. Any failure is
// treated as signed out: the token is removed and no error surfaces.
func (s *Store) CheckAuthState(ctx context.Context) {
	token := s.tokens.Token()
	user, err := s.backend.GetUser(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("auth check failed")
		s.ClearAuthState()
		return
	}
	if p, ok := s.tokens.(Persister); ok && user != nil && token != "" {
		if err := p.Persist(); err != nil {
			s.log.Warn().Err(err).Msg("persist session")
		}
	}
	s.set(user, token)
	s.log.Debug().Bool("authenticated", user != nil && token != "").Msg("auth check complete")
}

// ClearAuthState removes the token and marks the check complete with no
// user.
func (s *Store) ClearAuthState() {
	if err := s.tokens.Remove(); err != nil {
		s.log.Warn().Err(err).Msg("remove token")
	}
	s.set(nil, "")
}

// OnLogout signs the user out locally.
func (s *Store) OnLogout() {
	s.ClearAuthState()
}

// HandleLogin submits credentials and reconciles the state with
// CheckAuthState whatever the outcome. A failed request still propagates
// after the check.
func (s *Store) HandleLogin(ctx context.Context, username, password string) (Result, error) {
	res, err := s.backend.Authenticate(ctx, username, password)
	s.CheckAuthState(ctx)
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// GetAuthState returns the current snapshot with the derived flag.
func (s *Store) GetAuthState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Ready reports whether the check has completed and found a user. It is the
// readiness predicate for auth-gated streams.
func (s *Store) Ready() bool {
	st := s.GetAuthState()
	return st.AuthCheckComplete && st.IsAuthenticated
}

// Claims decodes the payload of the current token.
func (s *Store) Claims() (map[string]any, error) {
	claims, err := DecodeClaims(s.tokens.Token())
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Store) set(user *User, token string) {
	s.mu.Lock()
	s.user = user
	s.token = token
	s.complete = true
	st := s.stateLocked()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

func (s *Store) stateLocked() State {
	return State{
		User:              s.user,
		Token:             s.token,
		IsAuthenticated:   s.user != nil && s.token != "",
		AuthCheckComplete: s.complete,
	}
}
