package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/platinummonkey/authgate/pkg/observability"
)

// tokenBytes is the entropy of a session token before hex encoding.
const tokenBytes = 32

// maxCollisionRetries bounds the re-roll loop. With 256-bit tokens a
// single collision is already unobservable; the bound exists so a
// misbehaving store cannot spin the loop forever.
const maxCollisionRetries = 16

// Session describes a live session.
type Session struct {
	Token  string
	UserID int64
}

// Manager issues, resolves, and revokes sessions against a RedisStore.
type Manager struct {
	store   *RedisStore
	ttl     time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics

	// newToken generates candidate tokens; swapped out in tests to
	// force collisions.
	newToken func() (string, error)
}

// NewManager creates a session manager. metrics may be nil.
func NewManager(store *RedisStore, ttl time.Duration, logger *observability.Logger, metrics *observability.Metrics) *Manager {
	return &Manager{
		store:    store,
		ttl:      ttl,
		logger:   logger,
		metrics:  metrics,
		newToken: randomToken,
	}
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// randomToken returns a hex-encoded 256-bit random token
func randomToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create issues a fresh session for the user. Candidate tokens are
// re-rolled while a record with the same token already exists.
func (m *Manager) Create(ctx context.Context, userID int64) (*Session, error) {
	var token string
	for attempt := 0; ; attempt++ {
		if attempt >= maxCollisionRetries {
			m.countOp("create", "error")
			return nil, fmt.Errorf("failed to find an unused session token after %d attempts", attempt)
		}

		candidate, err := m.newToken()
		if err != nil {
			m.countOp("create", "error")
			return nil, err
		}

		exists, err := m.store.Exists(ctx, candidate)
		if err != nil {
			m.countOp("create", "error")
			return nil, fmt.Errorf("failed to check session token: %w", err)
		}
		if !exists {
			token = candidate
			break
		}

		if m.metrics != nil {
			m.metrics.SessionCollisionRetries.Inc()
		}
		m.logger.WithField("attempt", attempt+1).Warn("session token collision, re-rolling")
	}

	if err := m.store.Put(ctx, token, userID, m.ttl); err != nil {
		m.countOp("create", "error")
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	m.countOp("create", "success")
	return &Session{Token: token, UserID: userID}, nil
}

// Resolve maps a token to its user id. A missing or expired token
// resolves to ok=false with no error; only store failures return one.
func (m *Manager) Resolve(ctx context.Context, token string) (int64, bool, error) {
	if token == "" {
		return 0, false, nil
	}

	userID, ok, err := m.store.GetUser(ctx, token)
	if err != nil {
		m.countOp("resolve", "error")
		return 0, false, err
	}
	if !ok {
		m.countOp("resolve", "miss")
		return 0, false, nil
	}

	m.countOp("resolve", "hit")
	return userID, true, nil
}

// Revoke deletes a session. Revoking an absent or already-expired
// token succeeds.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, token); err != nil {
		m.countOp("revoke", "error")
		return err
	}
	m.countOp("revoke", "success")
	return nil
}

func (m *Manager) countOp(operation, outcome string) {
	if m.metrics != nil {
		m.metrics.SessionOperationsTotal.WithLabelValues(operation, outcome).Inc()
	}
}
