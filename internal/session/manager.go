// Package session owns the authentication lifecycle: resolving an existing
// session at startup, password and federated login, and logout. It is the
// only writer of the process-wide credential.
package session

import (
	"context"
	"fmt"
	"sync"

	"docwise-client/internal/gateway"
	"docwise-client/internal/shared/metrics"
	"docwise-client/internal/shared/telemetry"
)

// AuthAPI is the slice of the gateway the manager calls.
type AuthAPI interface {
	Me(ctx context.Context) (gateway.User, error)
	Login(ctx context.Context, email, password string) (gateway.AuthResult, error)
	Register(ctx context.Context, email, password, name string) (gateway.AuthResult, error)
	ExchangeSession(ctx context.Context, sessionID string) (gateway.AuthResult, error)
	Logout(ctx context.Context) error
}

// CredentialWriter is the credential store as seen by its sole writer.
type CredentialWriter interface {
	Set(token string) error
	Clear() error
	Active() bool
}

// LoginForm carries the password-login fields. Name is used only when
// registering.
type LoginForm struct {
	Email    string
	Password string
	Name     string
}

// Manager is the session state machine. It is safe for concurrent use; its
// lock is never held across a network call.
type Manager struct {
	api   AuthAPI
	creds CredentialWriter

	mu       sync.Mutex
	state    State
	user     *gateway.User
	resolved bool
	// seq advances on every transition; responses captured under an older
	// seq are stale.
	seq       uint64
	subs      map[int]func(Snapshot)
	nextSubID int
}

// NewManager returns a Manager in StateUnresolved.
func NewManager(api AuthAPI, creds CredentialWriter) *Manager {
	return &Manager{
		api:   api,
		creds: creds,
		state: StateUnresolved,
		subs:  make(map[int]func(Snapshot)),
	}
}

// Current returns the present snapshot.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every transition. The
// returned func unregisters it.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// ResolveSession probes GET /auth/me once per Manager. Later calls return the
// current snapshot without a network call. Failure is a normal outcome: it
// yields StateUnauthenticated and clears the stored credential.
func (m *Manager) ResolveSession(ctx context.Context) Snapshot {
	m.mu.Lock()
	if m.resolved || m.state != StateUnresolved {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap
	}
	m.resolved = true
	seq := m.seq
	m.mu.Unlock()

	user, err := m.api.Me(ctx)

	m.mu.Lock()
	if seq != m.seq {
		// A login completed while probing; the later transition wins.
		snap := m.snapshotLocked()
		m.mu.Unlock()
		metrics.IncStaleResponse()
		return snap
	}
	if err != nil {
		// A failed /auth/me ends the session whatever the cause, so no
		// credential outlives the Unauthenticated transition.
		m.clearCredentialLocked()
		telemetry.Info("session.probe_failed", map[string]any{
			"error":         err,
			"auth_rejected": gateway.IsAuthRejection(err),
		})
		m.applyLocked(EventProbeFailed, nil)
	} else {
		m.applyLocked(EventProbeSucceeded, &user)
	}
	snap, subs := m.snapshotLocked(), m.subscribersLocked()
	m.mu.Unlock()

	notify(subs, snap)
	return snap
}

// LoginWithCredentials registers or logs in. On success the returned token
// becomes the only active credential. On failure nothing changes and the
// error carries the server's detail.
func (m *Manager) LoginWithCredentials(ctx context.Context, form LoginForm, isRegister bool) (Snapshot, error) {
	m.mu.Lock()
	if _, err := transition(m.state, EventLoggedIn); err != nil {
		m.mu.Unlock()
		return Snapshot{}, err
	}
	seq := m.seq
	m.mu.Unlock()

	var (
		res gateway.AuthResult
		err error
	)
	if isRegister {
		res, err = m.api.Register(ctx, form.Email, form.Password, form.Name)
	} else {
		res, err = m.api.Login(ctx, form.Email, form.Password)
	}
	if err != nil {
		return Snapshot{}, err
	}
	return m.adopt(seq, res)
}

// CompleteFederatedLogin consumes a "#session_id=<id>" fragment left by the
// identity provider. With no id present it behaves like ResolveSession.
// Otherwise the id is exchanged once, the fragment is stripped from loc
// whatever the outcome, and a failed exchange returns ErrFederatedExchange.
func (m *Manager) CompleteFederatedLogin(ctx context.Context, loc Location) (Snapshot, error) {
	sessionID, ok := ParseSessionFragment(loc.Fragment())
	if !ok {
		return m.ResolveSession(ctx), nil
	}

	m.mu.Lock()
	if _, err := transition(m.state, EventLoggedIn); err != nil {
		m.mu.Unlock()
		loc.ReplaceFragment("")
		return Snapshot{}, err
	}
	seq := m.seq
	m.mu.Unlock()

	res, err := m.api.ExchangeSession(ctx, sessionID)
	// The id is single-use; leaving it visible would only invite a replay.
	loc.ReplaceFragment("")

	if err != nil {
		m.mu.Lock()
		var subs []func(Snapshot)
		if m.state == StateUnresolved && seq == m.seq {
			m.resolved = true
			m.clearCredentialLocked()
			m.applyLocked(EventProbeFailed, nil)
			subs = m.subscribersLocked()
		}
		snap := m.snapshotLocked()
		m.mu.Unlock()
		notify(subs, snap)
		return snap, fmt.Errorf("%w: %w", ErrFederatedExchange, err)
	}
	return m.adopt(seq, res)
}

// Logout tears down the session. The server call is best effort and its
// failure is only logged; the credential is cleared regardless. Calling it
// while unauthenticated makes no network call and only drops a leftover
// credential.
func (m *Manager) Logout(ctx context.Context) Snapshot {
	m.mu.Lock()
	if m.state == StateUnauthenticated {
		if m.creds.Active() {
			m.clearCredentialLocked()
		}
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap
	}
	m.resolved = true
	m.applyLocked(EventLoggedOut, nil)
	seq := m.seq
	snap, subs := m.snapshotLocked(), m.subscribersLocked()
	m.mu.Unlock()

	if err := m.api.Logout(ctx); err != nil {
		telemetry.Warn("session.logout_failed", map[string]any{"error": err})
	}

	m.mu.Lock()
	if seq == m.seq {
		m.clearCredentialLocked()
	}
	m.mu.Unlock()

	notify(subs, snap)
	return snap
}

// adopt applies a successful login captured at seq.
func (m *Manager) adopt(seq uint64, res gateway.AuthResult) (Snapshot, error) {
	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		metrics.IncStaleResponse()
		telemetry.Info("session.stale_response", map[string]any{"user_id": res.User.ID})
		return Snapshot{}, ErrStaleResponse
	}
	if _, err := transition(m.state, EventLoggedIn); err != nil {
		m.mu.Unlock()
		return Snapshot{}, err
	}
	if err := m.creds.Set(res.SessionToken); err != nil {
		m.mu.Unlock()
		return Snapshot{}, fmt.Errorf("adopt session: %w", err)
	}
	user := res.User
	m.resolved = true
	m.applyLocked(EventLoggedIn, &user)
	snap, subs := m.snapshotLocked(), m.subscribersLocked()
	m.mu.Unlock()

	notify(subs, snap)
	return snap, nil
}

// applyLocked moves to the state transition picks for ev. Callers have
// already checked that ev is valid.
func (m *Manager) applyLocked(ev Event, user *gateway.User) {
	from := m.state
	to, err := transition(from, ev)
	if err != nil {
		telemetry.Error("session.transition_rejected", map[string]any{"from": from.String(), "event": ev.String()})
		return
	}
	m.state = to
	if to == StateAuthenticated {
		m.user = user
	} else {
		m.user = nil
	}
	m.seq++
	telemetry.Info("session.transition", map[string]any{
		"from":  from.String(),
		"to":    to.String(),
		"event": ev.String(),
	})
}

func (m *Manager) clearCredentialLocked() {
	if err := m.creds.Clear(); err != nil {
		telemetry.Warn("session.credential_clear_failed", map[string]any{"error": err})
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{State: m.state}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

func (m *Manager) subscribersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
