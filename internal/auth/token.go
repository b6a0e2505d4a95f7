package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

// TokenCookie is the name of the cookie holding the session JWT.
const TokenCookie = "jwt"

// TokenStore is the local storage of the opaque session token.
type TokenStore interface {
	// Token returns the stored token, or "" when there is none.
	Token() string
	// Remove deletes the stored token.
	Remove() error
}

// Persister is implemented by token stores that can save the current token
// so a later run starts signed in.
type Persister interface {
	Persist() error
}

// CookieTokenStore reads the token from the HTTP cookie jar and mirrors it
// to a session file.
type CookieTokenStore struct {
	jar         http.CookieJar
	site        *url.URL
	sessionPath string
	log         zerolog.Logger
}

type sessionFile struct {
	Token   string    `toml:"token"`
	SavedAt time.Time `toml:"saved_at"`
}

// NewCookieTokenStore returns a store over jar for cookies scoped to site.
// An empty sessionPath disables persistence.
func NewCookieTokenStore(jar http.CookieJar, site *url.URL, sessionPath string, log zerolog.Logger) *CookieTokenStore {
	root := *site
	root.Path = "/"
	return &CookieTokenStore{
		jar:         jar,
		site:        &root,
		sessionPath: sessionPath,
		log:         log.With().Str("component", "tokens").Logger(),
	}
}

// Token returns the session cookie value.
func (s *CookieTokenStore) Token() string {
	for _, c := range s.jar.Cookies(s.site) {
		if c.Name == TokenCookie {
			return c.Value
		}
	}
	return ""
}

// Remove expires the session cookie and deletes the session file.
func (s *CookieTokenStore) Remove() error {
	s.jar.SetCookies(s.site, []*http.Cookie{{
		Name:   TokenCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	}})
	if s.sessionPath == "" {
		return nil
	}
	if err := os.Remove(s.sessionPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// Persist writes the current token to the session file.
func (s *CookieTokenStore) Persist() error {
	token := s.Token()
	if s.sessionPath == "" || token == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.sessionPath), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	bytes, err := toml.Marshal(sessionFile{Token: token, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(s.sessionPath, bytes, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Restore loads a persisted token back into the cookie jar. A missing or
// unreadable session file leaves the jar untouched.
func (s *CookieTokenStore) Restore() {
	if s.sessionPath == "" {
		return
	}
	bytes, err := os.ReadFile(s.sessionPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Msg("read session file")
		}
		return
	}
	var sess sessionFile
	if err := toml.Unmarshal(bytes, &sess); err != nil {
		s.log.Warn().Err(err).Msg("parse session file")
		return
	}
	if sess.Token == "" {
		return
	}
	s.jar.SetCookies(s.site, []*http.Cookie{{Name: TokenCookie, Value: sess.Token, Path: "/"}})
	s.log.Debug().Time("saved_at", sess.SavedAt).Msg("restored session token")
}
