package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iot-telemetry-api/internal/model"
	"iot-telemetry-api/internal/store"
)

// mockAdmins is an in-memory AdminStore.
type mockAdmins struct {
	mu     sync.Mutex
	admins map[string]model.Admin
}

func newMockAdmins() *mockAdmins {
	return &mockAdmins{admins: make(map[string]model.Admin)}
}

func (m *mockAdmins) CreateAdmin(_ context.Context, username, hash string) (model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[username]; ok {
		return model.Admin{}, store.ErrDuplicate
	}
	a := model.Admin{ID: int64(len(m.admins) + 1), Username: username, PasswordHash: hash}
	m.admins[username] = a
	return a, nil
}

func (m *mockAdmins) AdminByUsername(_ context.Context, username string) (model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[username]
	if !ok {
		return model.Admin{}, store.ErrNotFound
	}
	return a, nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := NewMemoryStore(time.Minute)
	t.Cleanup(sessions.Close)
	m := NewManager(newMockAdmins(), sessions, Options{
		Secret:     []byte("test-secret"),
		TTL:        time.Hour,
		BcryptCost: 4, // bcrypt.MinCost keeps the tests fast
	}, log)
	_, err := m.Register(context.Background(), "a", "pw")
	require.NoError(t, err)
	return m
}

func TestManager_Register(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Register(ctx, "a", "other")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = m.Register(ctx, "", "pw")
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = m.Register(ctx, "b", "")
	assert.ErrorIs(t, err, ErrMissingFields)

	admin, err := m.admins.AdminByUsername(ctx, "a")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", admin.PasswordHash, "passwords are never stored in plaintext")
}

func TestManager_LoginLogoutCycle(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	token, err := m.Login(ctx, "a", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "a", username)

	_, err = m.Login(ctx, "a", "pw")
	assert.ErrorIs(t, err, ErrAlreadyLoggedIn)

	m.Logout("a")
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrUnauthorized, "a logged out session must not validate")

	m.Logout("a") // idempotent

	second, err := m.Login(ctx, "a", "pw")
	require.NoError(t, err)
	_, err = m.Validate(second)
	assert.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrUnauthorized, "a token from an earlier session must not validate")
}

func TestManager_InvalidCredentials(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Login(ctx, "a", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = m.Login(ctx, "nobody", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, ok := m.sessions.Get("a")
	assert.False(t, ok, "failed logins record no session")
}

func TestManager_TokenExpires(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Login(context.Background(), "a", "pw")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(time.Hour + time.Minute) }
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestManager_RejectsForgedTokens(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Login(context.Background(), "a", "pw")
	require.NoError(t, err)
	s, ok := m.sessions.Get("a")
	require.True(t, ok)

	t.Run("Wrong secret", func(t *testing.T) {
		forged, _, err := signToken("a", time.Now(), time.Hour, []byte("other-secret"))
		require.NoError(t, err)
		_, err = m.Validate(forged)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Unsigned token", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a",
			ID:        s.TokenID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Validate(unsigned)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := m.Validate("not-a-token")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Tampered", func(t *testing.T) {
		_, err := m.Validate(token + "x")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestManager_ConcurrentLoginsYieldOneSession(t *testing.T) {
	m := newTestManager(t)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Login(context.Background(), "a", "pw"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}
