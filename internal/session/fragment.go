package session

import (
	"net/url"
	"strings"
	"sync"
)

// FragmentKey is the fragment parameter the identity provider redirects with.
const FragmentKey = "session_id"

// ParseSessionFragment extracts the one-time session id from a URL fragment
// such as "#session_id=abc123". The leading '#' is optional.
func ParseSessionFragment(fragment string) (string, bool) {
	fragment = strings.TrimPrefix(strings.TrimSpace(fragment), "#")
	if fragment == "" {
		return "", false
	}
	for _, pair := range strings.Split(fragment, "&") {
		key, value, _ := strings.Cut(pair, "=")
		if key != FragmentKey {
			continue
		}
		// PathUnescape leaves '+' alone; session ids are opaque.
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
		if id := strings.TrimSpace(value); id != "" {
			return id, true
		}
		return "", false
	}
	return "", false
}

// Location is the visible address the federated redirect landed on.
// ReplaceFragment must rewrite the current entry in place, never add one.
type Location interface {
	Fragment() string
	ReplaceFragment(fragment string)
}

// MemoryLocation is a Location backed by a parsed URL. It counts replaces so
// callers can check the fragment was stripped exactly once.
type MemoryLocation struct {
	mu       sync.Mutex
	url      url.URL
	replaces int
}

// NewMemoryLocation parses rawURL. A bare fragment such as
// "#session_id=abc" is accepted too.
func NewMemoryLocation(rawURL string) (*MemoryLocation, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, err
	}
	return &MemoryLocation{url: *u}, nil
}

func (l *MemoryLocation) Fragment() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.url.Fragment
}

func (l *MemoryLocation) ReplaceFragment(fragment string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.url.Fragment = fragment
	l.url.RawFragment = ""
	l.replaces++
}

// Replaces reports how many times the fragment was rewritten.
func (l *MemoryLocation) Replaces() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.replaces
}

// String returns the current address.
func (l *MemoryLocation) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.url.String()
}
