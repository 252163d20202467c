package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"titan/pkg/config"
)

// SessionKey is the local store key holding the session token.
const SessionKey = "titan_session"

// ErrRemoteDisabled is returned by SignIn when remote credentials are not
// configured.
var ErrRemoteDisabled = errors.New("remote sync is not configured")

// SessionStore persists the session token. The local store implements it.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Gate decides whether remote sync is active: credentials must be configured
// and a valid, unexpired session must be stored.
type Gate struct {
	configured bool
	secret     string
	ttl        time.Duration
	store      SessionStore
	logger     *zap.Logger
	now        func() time.Time
}

func NewGate(cfg *config.Config, store SessionStore, logger *zap.Logger) *Gate {
	return &Gate{
		configured: cfg.RemoteConfigured(),
		secret:     cfg.JWT.Secret,
		ttl:        cfg.JWT.TTL,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

// Configured reports whether remote credentials exist.
func (g *Gate) Configured() bool {
	return g.configured
}

// Identity returns the signed-in user ID. ok is false in local-only mode;
// that is never an error.
func (g *Gate) Identity(ctx context.Context) (string, bool) {
	if !g.configured {
		return "", false
	}
	token, ok, err := g.store.Get(ctx, SessionKey)
	if err != nil {
		g.logger.Warn("Failed to read session", zap.Error(err))
		return "", false
	}
	if !ok || token == "" {
		return "", false
	}
	userID, err := ParseToken(token, g.secret, g.now())
	if err != nil {
		g.logger.Debug("Stored session rejected", zap.Error(err))
		return "", false
	}
	return userID, true
}

// SignIn issues and stores a session for userID.
func (g *Gate) SignIn(ctx context.Context, userID string) (string, error) {
	if !g.configured {
		return "", ErrRemoteDisabled
	}
	token, err := GenerateToken(userID, g.secret, g.ttl, g.now())
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	if err := g.store.Put(ctx, SessionKey, token); err != nil {
		return "", err
	}
	g.logger.Info("Session stored", zap.String("user_id", userID))
	return token, nil
}

// SignOut clears the stored session.
func (g *Gate) SignOut(ctx context.Context) error {
	return g.store.Delete(ctx, SessionKey)
}
