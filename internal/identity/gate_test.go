package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"titan/pkg/config"
)

type memStore struct {
	mu sync.Mutex
	kv map[string]string
}

func newMemStore() *memStore { return &memStore{kv: map[string]string{}} }

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	return v, ok, nil
}

func (m *memStore) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.kv, k)
	}
	return nil
}

func remoteConfig() *config.Config {
	cfg := config.Default()
	cfg.Remote.Enabled = true
	cfg.Remote.DB = config.DBConfig{Host: "db", Port: 5432, User: "titan", Name: "titan"}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = time.Hour
	return cfg
}

func TestGate_NotConfigured(t *testing.T) {
	store := newMemStore()
	g := NewGate(config.Default(), store, zap.NewNop())

	assert.False(t, g.Configured())
	_, ok := g.Identity(context.Background())
	assert.False(t, ok)

	_, err := g.SignIn(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrRemoteDisabled)
}

func TestGate_SignInSignOut(t *testing.T) {
	ctx := context.Background()
	g := NewGate(remoteConfig(), newMemStore(), zap.NewNop())

	_, ok := g.Identity(ctx)
	assert.False(t, ok, "no session yet")

	_, err := g.SignIn(ctx, "u1")
	require.NoError(t, err)

	id, ok := g.Identity(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)

	require.NoError(t, g.SignOut(ctx))
	_, ok = g.Identity(ctx)
	assert.False(t, ok)
}

func TestGate_ExpiredSession(t *testing.T) {
	ctx := context.Background()
	g := NewGate(remoteConfig(), newMemStore(), zap.NewNop())
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return start }

	_, err := g.SignIn(ctx, "u1")
	require.NoError(t, err)

	g.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, ok := g.Identity(ctx)
	assert.False(t, ok)
}

func TestGate_WrongSecret(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	token, err := GenerateToken("u1", "other", time.Hour, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, SessionKey, token))

	g := NewGate(remoteConfig(), store, zap.NewNop())
	_, ok := g.Identity(ctx)
	assert.False(t, ok)
}

func TestParseToken(t *testing.T) {
	now := time.Now()
	token, err := GenerateToken("abc", "s", time.Minute, now)
	require.NoError(t, err)

	id, err := ParseToken(token, "s", now)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	_, err = ParseToken(token, "s", now.Add(2*time.Minute))
	assert.Error(t, err)

	_, err = ParseToken("garbage", "s", now)
	assert.Error(t, err)
}
