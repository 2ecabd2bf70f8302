// Package fakeapi is an in-memory implementation of the DocWise HTTP API. It
// reproduces the response and error shapes of the real service for tests and
// local development. It performs no real authentication and no AI calls.
package fakeapi

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	sessionTTL = 7 * 24 * time.Hour

	ModelGPT5    = "gpt-5"
	ModelClaude4 = "claude-4"
)

// Options configures a Server.
type Options struct {
	// AdminEmail restricts prompt creation to one account. Empty allows all.
	AdminEmail string
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Server holds the in-memory state behind the router.
type Server struct {
	mu         sync.Mutex
	adminEmail string
	now        func() time.Time

	users     map[string]*user
	byEmail   map[string]string
	sessions  map[string]session
	federated map[string]Identity
	prompts   map[string]*prompt
	analyses  []*analysis

	calls    map[string]int
	failures map[string]injectedFailure
	hold     map[string]chan struct{}
}

type injectedFailure struct {
	status int
	detail string
}

// NewServer builds an empty Server.
func NewServer(opts Options) *Server {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		adminEmail: strings.ToLower(strings.TrimSpace(opts.AdminEmail)),
		now:        now,
		users:      make(map[string]*user),
		byEmail:    make(map[string]string),
		sessions:   make(map[string]session),
		federated:  make(map[string]Identity),
		prompts:    make(map[string]*prompt),
		calls:      make(map[string]int),
		failures:   make(map[string]injectedFailure),
		hold:       make(map[string]chan struct{}),
	}
}

// SeedUser creates an account and returns its id.
func (s *Server) SeedUser(email, password, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUserLocked(email, password, name, "").ID
}

// SeedSession issues a session token for userID.
func (s *Server) SeedSession(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueSessionLocked(userID)
}

// SeedPrompt stores a prompt owned by userID and returns its id.
func (s *Server) SeedPrompt(userID, title, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createPromptLocked(userID, title, content).ID
}

// IssueSessionID registers a one-time federated session id for identity.
func (s *Server) IssueSessionID(identity Identity) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.federated[id] = identity
	return id
}

// FailNext makes the next call to method+path (a route pattern such as
// "/api/auth/logout") fail with status and detail.
func (s *Server) FailNext(method, path string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[routeKey(method, path)] = injectedFailure{status: status, detail: detail}
}

// Hold blocks calls to method+path until the returned release func runs.
func (s *Server) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.hold[routeKey(method, path)] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.hold, routeKey(method, path))
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Calls reports how many requests reached method+path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[routeKey(method, path)]
}

// SessionCount reports how many sessions are live.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// lookupSession implements middleware.SessionLookup.
func (s *Server) lookupSession(token string) (string, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return "", false, false
	}
	if _, exists := s.users[sess.userID]; !exists {
		return "", false, false
	}
	return sess.userID, !s.now().Before(sess.expiresAt), true
}

func (s *Server) createUserLocked(email, password, name, picture string) *user {
	u := &user{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Picture:   picture,
		CreatedAt: naiveTime(s.now()),
		password:  password,
	}
	s.users[u.ID] = u
	s.byEmail[strings.ToLower(email)] = u.ID
	return u
}

func (s *Server) issueSessionLocked(userID string) string {
	token := uuid.NewString()
	s.sessions[token] = session{userID: userID, expiresAt: s.now().Add(sessionTTL)}
	return token
}

func (s *Server) createPromptLocked(userID, title, content string) *prompt {
	now := naiveTime(s.now())
	p := &prompt{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.prompts[p.ID] = p
	return p
}

func (s *Server) promptsForLocked(userID string) []prompt {
	out := make([]prompt, 0)
	for _, p := range s.prompts {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return time.Time(out[i].CreatedAt).Before(time.Time(out[j].CreatedAt)) ||
			(time.Time(out[i].CreatedAt).Equal(time.Time(out[j].CreatedAt)) && out[i].ID < out[j].ID)
	})
	return out
}

// analysesForLocked returns userID's analyses newest first.
func (s *Server) analysesForLocked(userID string) []analysis {
	out := make([]analysis, 0)
	for i := len(s.analyses) - 1; i >= 0; i-- {
		if s.analyses[i].UserID == userID {
			out = append(out, *s.analyses[i])
		}
	}
	return out
}

func (s *Server) recordAnalysisLocked(userID string, p *prompt, documentName, model, extracted string) *analysis {
	a := &analysis{
		ID:            uuid.NewString(),
		UserID:        userID,
		DocumentName:  documentName,
		PromptID:      p.ID,
		AIModel:       model,
		ExtractedText: extracted,
		Response:      cannedResponse(p, documentName, model),
		CreatedAt:     naiveTime(s.now()),
	}
	s.analyses = append(s.analyses, a)
	return a
}

// cannedResponse stands in for the model output.
func cannedResponse(p *prompt, documentName, model string) string {
	return fmt.Sprintf("[%s] %s\n\nAnalysis of %q according to: %s", model, p.Title, documentName, p.Content)
}

func reportText(a analysis) string {
	return fmt.Sprintf(`Document Analysis Report
================================

Document: %s
AI Model: %s
Generated: %s

--- Analysis Response ---
%s

--- Extracted Text ---
%s
`, a.DocumentName, a.AIModel, time.Time(a.CreatedAt).UTC().Format("2006-01-02 15:04:05.000000"), a.Response, a.ExtractedText)
}
