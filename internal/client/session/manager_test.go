package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatpulse/securesoc/internal/client"
	"github.com/threatpulse/securesoc/internal/model"
	"github.com/threatpulse/securesoc/internal/permission"
)

// fakeAPI lets each test script the server's behavior per call.
type fakeAPI struct {
	signIn    func(email, password string) (client.AuthResult, error)
	signUp    func(email, password, name string) (client.AuthResult, error)
	verifyMFA func(challenge, code string, recovery bool) (client.AuthResult, error)
	signOut   func(token string) error
	me        func(token string) (model.Identity, error)

	signInCalls  int
	signOutCalls chan string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{signOutCalls: make(chan string, 1)}
}

func (f *fakeAPI) SignIn(_ context.Context, email, password string) (client.AuthResult, error) {
	f.signInCalls++
	return f.signIn(email, password)
}

func (f *fakeAPI) SignUp(_ context.Context, email, password, name string) (client.AuthResult, error) {
	return f.signUp(email, password, name)
}

func (f *fakeAPI) VerifyMFA(_ context.Context, challenge, code string, recovery bool) (client.AuthResult, error) {
	return f.verifyMFA(challenge, code, recovery)
}

func (f *fakeAPI) SignOut(_ context.Context, token string) error {
	f.signOutCalls <- token
	if f.signOut != nil {
		return f.signOut(token)
	}
	return nil
}

func (f *fakeAPI) Me(_ context.Context, token string) (model.Identity, error) {
	return f.me(token)
}

func analystIdentity() model.Identity {
	return model.Identity{
		ID:       "acc-1",
		Email:    "analyst@co.test",
		Name:     "Ana",
		Role:     permission.RoleAnalyst,
		IsActive: true,
	}
}

func sessionResult(id model.Identity) client.AuthResult {
	return client.AuthResult{
		User:      id,
		Token:     "tok-" + id.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

func TestSignIn_EmptyFieldsFailFast(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	m := NewManager(api, NewMemoryStore())

	assert.ErrorIs(t, m.SignIn(context.Background(), "", "pw"), client.ErrInvalidInput)
	assert.ErrorIs(t, m.SignIn(context.Background(), "a@b.c", ""), client.ErrInvalidInput)
	assert.Equal(t, 0, api.signInCalls, "local validation must not reach the network")
	assert.Equal(t, Unauthenticated, m.Snapshot().State)
}

func TestSignIn_GenericFailureForBothCauses(t *testing.T) {
	t.Parallel()

	// The server answers the same way for unknown email and wrong password;
	// the manager must surface one indistinguishable kind for both.
	api := newFakeAPI()
	api.signIn = func(email, password string) (client.AuthResult, error) {
		return client.AuthResult{}, client.ErrAuthenticationFailed
	}
	m := NewManager(api, NewMemoryStore())

	errUnknown := m.SignIn(context.Background(), "nobody@co.test", "Passw0rd!")
	errWrongPw := m.SignIn(context.Background(), "analyst@co.test", "wrong")
	assert.ErrorIs(t, errUnknown, client.ErrAuthenticationFailed)
	assert.ErrorIs(t, errWrongPw, client.ErrAuthenticationFailed)
	assert.Equal(t, errUnknown, errWrongPw)
	assert.Equal(t, Unauthenticated, m.Snapshot().State)
}

func TestSignIn_ServiceUnavailableDistinctFromBadCredentials(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.signIn = func(string, string) (client.AuthResult, error) {
		return client.AuthResult{}, client.ErrServiceUnavailable
	}
	m := NewManager(api, NewMemoryStore())

	err := m.SignIn(context.Background(), "analyst@co.test", "Passw0rd!")
	assert.ErrorIs(t, err, client.ErrServiceUnavailable)
	assert.NotErrorIs(t, err, client.ErrAuthenticationFailed)
	assert.Equal(t, Unauthenticated, m.Snapshot().State)
}

func TestSignUp_AnalystGetsAnalystPermissions(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.signUp = func(email, password, name string) (client.AuthResult, error) {
		return sessionResult(analystIdentity()), nil
	}
	m := NewManager(api, NewMemoryStore())

	require.NoError(t, m.SignUp(context.Background(), "analyst@co.test", "Passw0rd!", "Ana"))

	snap := m.Snapshot()
	require.Equal(t, Authenticated, snap.State)
	require.NotNil(t, snap.Identity)
	assert.Equal(t, permission.RoleAnalyst, snap.Identity.Role)

	perms := snap.Permissions()
	assert.False(t, perms.CanManageUsers)
	assert.True(t, perms.CanConfigureAlerts)
}

func TestSignIn_MFAPendingPersistsNothing(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.signIn = func(string, string) (client.AuthResult, error) {
		return client.AuthResult{MFARequired: true, ChallengeToken: "challenge-1"}, nil
	}
	store := NewMemoryStore()
	m := NewManager(api, store)

	require.NoError(t, m.SignIn(context.Background(), "analyst@co.test", "Passw0rd!"))
	assert.Equal(t, MFAPending, m.Snapshot().State)
	assert.Empty(t, m.Token())

	// A fresh process restoring from the same store must come up signed out:
	// no half-authenticated session may persist.
	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	fresh := NewManager(newFakeAPI(), store)
	require.NoError(t, fresh.RestoreSession(context.Background()))
	assert.Equal(t, Unauthenticated, fresh.Snapshot().State)
}

func TestCompleteMFA_SuccessPromotesAndPersists(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.signIn = func(string, string) (client.AuthResult, error) {
		return client.AuthResult{MFARequired: true, ChallengeToken: "challenge-1"}, nil
	}
	api.verifyMFA = func(challenge, code string, recovery bool) (client.AuthResult, error) {
		require.Equal(t, "challenge-1", challenge)
		if code != "123456" {
			return client.AuthResult{}, client.ErrMFAInvalidCode
		}
		return sessionResult(analystIdentity()), nil
	}
	store := NewMemoryStore()
	m := NewManager(api, store)

	require.NoError(t, m.SignIn(context.Background(), "analyst@co.test", "Passw0rd!"))

	// Wrong code: stays pending so the user can retry.
	err := m.CompleteMFA(context.Background(), "000000", false)
	assert.ErrorIs(t, err, client.ErrMFAInvalidCode)
	assert.Equal(t, MFAPending, m.Snapshot().State)

	require.NoError(t, m.CompleteMFA(context.Background(), "123456", false))
	assert.Equal(t, Authenticated, m.Snapshot().State)

	p, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-acc-1", p.Token)
}

func TestCancelMFA_ReturnsToUnauthenticated(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.signIn = func(string, string) (client.AuthResult, error) {
		return client.AuthResult{MFARequired: true, ChallengeToken: "challenge-1"}, nil
	}
	m := NewManager(api, NewMemoryStore())

	require.NoError(t, m.SignIn(context.Background(), "analyst@co.test", "Passw0rd!"))
	m.CancelMFA()
	assert.Equal(t, Unauthenticated, m.Snapshot().State)

	// The discarded challenge is gone; completing now is an input error.
	assert.ErrorIs(t, m.CompleteMFA(context.Background(), "123456", false), client.ErrInvalidInput)
}

func TestRestoreSession_NoPersistedState(t *testing.T) {
	t.Parallel()

	m := NewManager(newFakeAPI(), NewMemoryStore())
	require.NoError(t, m.RestoreSession(context.Background()))
	assert.Equal(t, Unauthenticated, m.Snapshot().State)
}

func TestRestoreSession_ExpiredTokenSilentlyUnauthenticated(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.me = func(string) (model.Identity, error) {
		t.Fatal("expired sessions must be dropped locally, without a network call")
		return model.Identity{}, nil
	}
	store := NewMemoryStore()
	require.NoError(t, store.Save(Persisted{
		Token:     "stale",
		ExpiresAt: time.Now().Add(-time.Hour),
		User:      analystIdentity(),
	}))
	m := NewManager(api, store)

	require.NoError(t, m.RestoreSession(context.Background()))
	assert.Equal(t, Unauthenticated, m.Snapshot().State)

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok, "expired blob must be cleared")
}

func TestRestoreSession_RefetchesProfile(t *testing.T) {
	t.Parallel()

	// The role changed server-side since the session was persisted; the
	// restored identity must reflect the server, not the cached copy.
	promoted := analystIdentity()
	promoted.Role = permission.RoleManager

	api := newFakeAPI()
	api.me = func(token string) (model.Identity, error) {
		require.Equal(t, "tok-acc-1", token)
		return promoted, nil
	}
	store := NewMemoryStore()
	require.NoError(t, store.Save(Persisted{
		Token:     "tok-acc-1",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      analystIdentity(),
	}))
	m := NewManager(api, store)

	require.NoError(t, m.RestoreSession(context.Background()))
	snap := m.Snapshot()
	require.Equal(t, Authenticated, snap.State)
	assert.Equal(t, permission.RoleManager, snap.Identity.Role)
	assert.True(t, snap.Permissions().CanExportData)
	assert.False(t, snap.Permissions().CanConfigureAlerts)
}

func TestRestoreSession_ServerRejectedIsSilent(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.me = func(string) (model.Identity, error) {
		return model.Identity{}, client.ErrSessionExpired
	}
	store := NewMemoryStore()
	require.NoError(t, store.Save(Persisted{
		Token:     "revoked",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      analystIdentity(),
	}))
	m := NewManager(api, store)

	require.NoError(t, m.RestoreSession(context.Background()))
	assert.Equal(t, Unauthenticated, m.Snapshot().State)
}

func TestSignOut_ClearsLocalStateEvenWhenRevokeFails(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.signIn = func(string, string) (client.AuthResult, error) {
		return sessionResult(analystIdentity()), nil
	}
	api.signOut = func(string) error { return client.ErrServiceUnavailable }
	store := NewMemoryStore()
	m := NewManager(api, store)

	require.NoError(t, m.SignIn(context.Background(), "analyst@co.test", "Passw0rd!"))
	require.Equal(t, Authenticated, m.Snapshot().State)

	m.SignOut()

	// Local state is gone immediately, before the revoke outcome is known.
	assert.Equal(t, Unauthenticated, m.Snapshot().State)
	assert.Empty(t, m.Token())
	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	// The best-effort revoke still went out with the old token.
	select {
	case tok := <-api.signOutCalls:
		assert.Equal(t, "tok-acc-1", tok)
	case <-time.After(2 * time.Second):
		t.Fatal("server revoke was never attempted")
	}
}

func TestStaleResolutionDiscardedAfterSignOut(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	api := newFakeAPI()
	api.me = func(string) (model.Identity, error) {
		close(started)
		<-release
		return analystIdentity(), nil
	}
	store := NewMemoryStore()
	require.NoError(t, store.Save(Persisted{
		Token:     "tok-acc-1",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      analystIdentity(),
	}))
	m := NewManager(api, store)

	done := make(chan error, 1)
	go func() { done <- m.RestoreSession(context.Background()) }()

	<-started
	m.SignOut() // bumps the generation while the profile fetch is in flight

	close(release)
	require.NoError(t, <-done)

	// The slow resolution started before the sign-out; its result must not
	// resurrect the session.
	assert.Equal(t, Unauthenticated, m.Snapshot().State)
	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubscribe_NotifiedOnTransitions(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.signIn = func(string, string) (client.AuthResult, error) {
		return sessionResult(analystIdentity()), nil
	}
	m := NewManager(api, NewMemoryStore())

	var states []State
	m.Subscribe(func(s Snapshot) { states = append(states, s.State) })

	require.NoError(t, m.SignIn(context.Background(), "analyst@co.test", "Passw0rd!"))
	assert.Equal(t, []State{Authenticating, Authenticated}, states)
}

func TestSnapshotPermissions_AbsentIdentityAllFalse(t *testing.T) {
	t.Parallel()

	m := NewManager(newFakeAPI(), NewMemoryStore())
	assert.Equal(t, permission.Set{}, m.Snapshot().Permissions())
}
