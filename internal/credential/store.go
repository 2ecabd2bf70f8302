// Package credential owns the single authentication credential that every
// outbound API call carries: a session_token cookie mirrored as a bearer
// header. Only the session manager writes to it.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"docwise-client/internal/shared/telemetry"
	"docwise-client/internal/shared/util"
)

const (
	// CookieName is the session cookie the backend reads.
	CookieName = "session_token"
	// CookieMaxAge is the lifetime of a freshly issued session cookie.
	CookieMaxAge = 7 * 24 * time.Hour
)

// Store holds at most one session token and the cookie jar it is mirrored into.
type Store struct {
	mu     sync.RWMutex
	token  *oauth2.Token
	cookie *http.Cookie
	jar    http.CookieJar
	origin *url.URL
	path   string
	now    func() time.Time
}

// Options configures a Store.
type Options struct {
	// BaseURL is the API origin the cookie is scoped to.
	BaseURL string
	// Path persists the token between processes; empty keeps it in memory only.
	Path string
	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewStore builds an empty store with its own cookie jar.
func NewStore(opts Options) (*Store, error) {
	origin, err := url.Parse(opts.BaseURL)
	if err != nil || origin.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, opts.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		jar:    jar,
		origin: &url.URL{Scheme: origin.Scheme, Host: origin.Host, Path: "/"},
		path:   opts.Path,
		now:    now,
	}, nil
}

// Jar is the cookie jar the gateway's http.Client must use.
func (s *Store) Jar() http.CookieJar {
	return s.jar
}

// Set adopts token as the only active credential.
func (s *Store) Set(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	expiry := s.now().Add(CookieMaxAge)
	cookie := sessionCookie(token, int(CookieMaxAge/time.Second), expiry)

	s.mu.Lock()
	s.token = &oauth2.Token{AccessToken: token, TokenType: "Bearer", Expiry: expiry}
	s.cookie = cookie
	s.jar.SetCookies(s.origin, []*http.Cookie{cookie})
	s.mu.Unlock()

	if err := s.persist(token, expiry); err != nil {
		telemetry.Warn("credential.persist_failed", map[string]any{"path": s.path, "error": err})
	}
	return nil
}

// Clear drops the token, expires the cookie and removes the persisted copy.
// Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = nil
	s.cookie = nil
	s.jar.SetCookies(s.origin, []*http.Cookie{sessionCookie("", -1, time.Unix(0, 0))})
	s.mu.Unlock()

	if err := s.removePersisted(); err != nil {
		telemetry.Warn("credential.remove_failed", map[string]any{"path": s.path, "error": err})
		return err
	}
	return nil
}

// Token returns the active bearer token, or "" when none is held.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return ""
	}
	return s.token.AccessToken
}

// Cookie returns a copy of the active session cookie, or nil.
func (s *Store) Cookie() *http.Cookie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cookie == nil || !s.validLocked() {
		return nil
	}
	c := *s.cookie
	return &c
}

// Active reports whether any credential would be sent: a held token or a
// server-issued session cookie in the jar.
func (s *Store) Active() bool {
	if s.Token() != "" {
		return true
	}
	for _, c := range s.jar.Cookies(s.origin) {
		if c.Name == CookieName && c.Value != "" {
			return true
		}
	}
	return false
}

// Apply attaches the bearer header to req. Cookies are attached by the jar.
func (s *Store) Apply(req *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return
	}
	s.token.SetAuthHeader(req)
}

func (s *Store) validLocked() bool {
	return s.token != nil && s.token.AccessToken != "" && s.now().Before(s.token.Expiry)
}

func sessionCookie(value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// persistedFile maps hashed API origins to their tokens so switching
// --api-url never leaks one server's token to another.
type persistedFile struct {
	Sessions map[string]persistedSession `json:"sessions"`
}

type persistedSession struct {
	Token     string    `json:"session_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Load restores a persisted, unexpired token. A missing file is not an error.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	file, err := s.readFile()
	if err != nil {
		return err
	}
	entry, ok := file.Sessions[s.originKey()]
	if !ok || entry.Token == "" || !s.now().Before(entry.ExpiresAt) {
		return nil
	}

	remaining := int(entry.ExpiresAt.Sub(s.now()) / time.Second)
	cookie := sessionCookie(entry.Token, remaining, entry.ExpiresAt)

	s.mu.Lock()
	s.token = &oauth2.Token{AccessToken: entry.Token, TokenType: "Bearer", Expiry: entry.ExpiresAt}
	s.cookie = cookie
	s.jar.SetCookies(s.origin, []*http.Cookie{cookie})
	s.mu.Unlock()
	return nil
}

func (s *Store) originKey() string {
	return util.HashKey(s.origin.String())[:16]
}

func (s *Store) readFile() (persistedFile, error) {
	file := persistedFile{Sessions: map[string]persistedSession{}}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return file, nil
		}
		return file, fmt.Errorf("read credential file: %w", err)
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return persistedFile{Sessions: map[string]persistedSession{}}, fmt.Errorf("decode credential file: %w", err)
	}
	if file.Sessions == nil {
		file.Sessions = map[string]persistedSession{}
	}
	return file, nil
}

func (s *Store) writeFile(file persistedFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *Store) persist(token string, expiry time.Time) error {
	if s.path == "" {
		return nil
	}
	file, err := s.readFile()
	if err != nil {
		file = persistedFile{Sessions: map[string]persistedSession{}}
	}
	file.Sessions[s.originKey()] = persistedSession{Token: token, ExpiresAt: expiry}
	return s.writeFile(file)
}

func (s *Store) removePersisted() error {
	if s.path == "" {
		return nil
	}
	file, err := s.readFile()
	if err != nil {
		return err
	}
	if _, ok := file.Sessions[s.originKey()]; !ok {
		return nil
	}
	delete(file.Sessions, s.originKey())
	return s.writeFile(file)
}
