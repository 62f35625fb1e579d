// Package session implements the client-side authentication session manager:
// the single owner of "who is signed in" for a dashboard process. It drives
// the state machine
//
//	Unauthenticated -> Authenticating -> (MFAPending) -> Authenticated -> Unauthenticated
//
// and is the only component that reads or writes the persisted session blob.
// Consumers receive the current identity through Snapshot or Subscribe and
// derive capabilities with the permission resolver; they never keep their own
// copy of the identity across state changes.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/threatpulse/securesoc/internal/client"
	"github.com/threatpulse/securesoc/internal/model"
	"github.com/threatpulse/securesoc/internal/permission"
)

// State is the authentication state of the client process.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	MFAPending
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case MFAPending:
		return "mfa_pending"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// API is the slice of the HTTP client the manager needs. *client.Client
// satisfies it; tests substitute fakes.
type API interface {
	SignIn(ctx context.Context, email, password string) (client.AuthResult, error)
	SignUp(ctx context.Context, email, password, name string) (client.AuthResult, error)
	VerifyMFA(ctx context.Context, challengeToken, code string, isRecovery bool) (client.AuthResult, error)
	SignOut(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (model.Identity, error)
}

// Snapshot is an immutable view of the manager's state handed to consumers.
type Snapshot struct {
	State    State
	Identity *model.Identity
}

// Permissions resolves the capability set for the snapshot's identity. An
// absent identity yields the all-false set.
func (s Snapshot) Permissions() permission.Set {
	if s.State != Authenticated || s.Identity == nil {
		return permission.Set{}
	}
	return permission.Resolve(s.Identity.Role)
}

// Manager owns the identity slot. All mutation goes through the mutex, and
// every asynchronous resolution captures the generation counter when it
// starts: if a sign-out or newer sign-in happens while the call is in flight,
// the stale result is discarded instead of clobbering the newer state.
type Manager struct {
	api   API
	store Store

	mu         sync.Mutex
	state      State
	identity   *model.Identity
	token      string
	challenge  string // MFA challenge token, held in memory only
	generation uint64
	subs       []func(Snapshot)
}

// NewManager returns a manager in the Unauthenticated state. Call
// RestoreSession once at startup to pick up a persisted session.
func NewManager(api API, store Store) *Manager {
	return &Manager{api: api, store: store, state: Unauthenticated}
}

// Snapshot returns the current state and identity.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Token returns the current bearer token, or "" when not authenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Subscribe registers fn to be called with a snapshot after every state
// change. The callback runs outside the manager lock.
func (m *Manager) Subscribe(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// SignIn runs the primary credential exchange. Empty fields fail fast with
// ErrInvalidInput before any network call. On MFARequired the manager parks
// in MFAPending holding only the in-memory challenge; nothing is persisted
// until the second factor verifies.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return client.ErrInvalidInput
	}

	gen := m.begin(Authenticating)

	res, err := m.api.SignIn(ctx, email, password)
	if err != nil {
		m.commit(gen, m.resetLocked)
		return err
	}

	if res.MFARequired {
		m.commit(gen, func() {
			m.state = MFAPending
			m.challenge = res.ChallengeToken
		})
		return nil
	}
	return m.adopt(gen, res)
}

// SignUp registers an account and enters Authenticated with its session.
func (m *Manager) SignUp(ctx context.Context, email, password, name string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" || strings.TrimSpace(name) == "" {
		return client.ErrInvalidInput
	}

	gen := m.begin(Authenticating)

	res, err := m.api.SignUp(ctx, email, password, name)
	if err != nil {
		m.commit(gen, m.resetLocked)
		return err
	}
	return m.adopt(gen, res)
}

// CompleteMFA finishes an MFA-pending sign-in. On an invalid code the state
// stays MFAPending so the user can retry or fall back to a recovery code.
func (m *Manager) CompleteMFA(ctx context.Context, code string, isRecovery bool) error {
	m.mu.Lock()
	if m.state != MFAPending {
		m.mu.Unlock()
		return client.ErrInvalidInput
	}
	challenge := m.challenge
	gen := m.generation
	m.mu.Unlock()

	res, err := m.api.VerifyMFA(ctx, challenge, code, isRecovery)
	if err != nil {
		// Invalid code keeps the pending state; anything else abandons it.
		if err != client.ErrMFAInvalidCode {
			m.commit(gen, m.resetLocked)
		}
		return err
	}
	return m.adopt(gen, res)
}

// CancelMFA abandons a pending second factor and returns to Unauthenticated,
// discarding the challenge.
func (m *Manager) CancelMFA() {
	m.mu.Lock()
	if m.state != MFAPending {
		m.mu.Unlock()
		return
	}
	m.generation++
	m.state = Unauthenticated
	m.challenge = ""
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
}

// RestoreSession is invoked once at process start. A missing or expired
// persisted session lands in Unauthenticated silently. A live token triggers
// a profile re-fetch so role changes made since the last visit apply; the
// persisted identity copy is never trusted beyond the token itself.
func (m *Manager) RestoreSession(ctx context.Context) error {
	gen := m.begin(Authenticating)

	p, ok, err := m.store.Load()
	if err != nil || !ok || time.Now().After(p.ExpiresAt) {
		if ok {
			_ = m.store.Clear()
		}
		m.commit(gen, m.resetLocked)
		return nil
	}

	id, err := m.api.Me(ctx, p.Token)
	if err != nil {
		if err == client.ErrSessionExpired {
			// Silent: clear the dead session and show the sign-in surface.
			_ = m.store.Clear()
			m.commit(gen, m.resetLocked)
			return nil
		}
		m.commit(gen, m.resetLocked)
		return err
	}

	applied := m.commit(gen, func() {
		m.state = Authenticated
		m.identity = &id
		m.token = p.Token
	})
	if applied {
		// Refresh the persisted identity copy for the next first paint.
		_ = m.store.Save(Persisted{Token: p.Token, ExpiresAt: p.ExpiresAt, User: id})
	}
	return nil
}

// SignOut clears all local session state unconditionally and immediately,
// then revokes the session server-side without waiting for the result. The
// UI reflects the signed-out state even under network partition.
func (m *Manager) SignOut() {
	m.mu.Lock()
	token := m.token
	m.generation++ // invalidate any in-flight resolution
	m.state = Unauthenticated
	m.identity = nil
	m.token = ""
	m.challenge = ""
	snap := m.snapshotLocked()
	m.mu.Unlock()

	_ = m.store.Clear()
	m.notify(snap)

	if token != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = m.api.SignOut(ctx, token)
		}()
	}
}

// WatchStore wires cross-tab consistency: when another process of the same
// user changes the persisted session, this manager adopts the change. Returns
// a stop function.
func (m *Manager) WatchStore() (func(), error) {
	return m.store.Watch(func() {
		p, ok, err := m.store.Load()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.generation++
		if !ok || time.Now().After(p.ExpiresAt) {
			m.state = Unauthenticated
			m.identity = nil
			m.token = ""
		} else if p.Token != m.token {
			u := p.User
			m.state = Authenticated
			m.identity = &u
			m.token = p.Token
		} else {
			m.mu.Unlock()
			return
		}
		snap := m.snapshotLocked()
		m.mu.Unlock()
		m.notify(snap)
	})
}

// begin bumps the generation, enters a transient state and returns the new
// generation for the caller to commit against.
func (m *Manager) begin(s State) uint64 {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.state = s
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
	return gen
}

// commit applies f only if no newer operation superseded gen. Reports whether
// the mutation was applied.
func (m *Manager) commit(gen uint64, f func()) bool {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return false
	}
	f()
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
	return true
}

// adopt commits a successful authentication result and persists the session.
func (m *Manager) adopt(gen uint64, res client.AuthResult) error {
	u := res.User
	applied := m.commit(gen, func() {
		m.state = Authenticated
		m.identity = &u
		m.token = res.Token
		m.challenge = ""
	})
	if !applied {
		return nil
	}
	return m.store.Save(Persisted{Token: res.Token, ExpiresAt: res.ExpiresAt, User: u})
}

// resetLocked returns the slot to Unauthenticated. Callers hold the lock via
// commit.
func (m *Manager) resetLocked() {
	m.state = Unauthenticated
	m.identity = nil
	m.token = ""
	m.challenge = ""
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{State: m.state}
	if m.identity != nil {
		id := *m.identity
		snap.Identity = &id
	}
	return snap
}

func (m *Manager) notify(snap Snapshot) {
	m.mu.Lock()
	subs := make([]func(Snapshot), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}
