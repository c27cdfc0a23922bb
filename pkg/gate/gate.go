package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/authgate/pkg/observability"
	"github.com/platinummonkey/authgate/pkg/session"
	"github.com/platinummonkey/authgate/pkg/storage"
)

// Decision is the verdict handed back to the proxy subrequest.
type Decision int

const (
	// Allow lets the request through to the upstream.
	Allow Decision = iota
	// Unauthenticated means no live session accompanied the request.
	Unauthenticated
	// Malformed means the proxy sent no subdomain to authorize, which
	// points at a proxy configuration error rather than at the caller.
	Malformed
	// Forbidden means the site is registered and the user is neither a
	// member nor an admin.
	Forbidden
)

// String returns the metric label for a decision.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	case Malformed:
		return "malformed"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Engine decides whether a session may reach a subdomain.
type Engine struct {
	store    storage.Storage
	sessions *session.Manager
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewEngine creates a decision engine. metrics may be nil.
func NewEngine(store storage.Storage, sessions *session.Manager, logger *observability.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		store:    store,
		sessions: sessions,
		logger:   logger,
		metrics:  metrics,
	}
}

// Decide evaluates the access rules in order, first match wins:
// a request without a live session is unauthenticated; one without a
// subdomain is malformed; a session whose user is gone is
// unauthenticated; admins pass everywhere; site members pass their
// site; non-members of a registered site are forbidden; and a
// subdomain with no registered site is open to any authenticated user.
// The last rule is deliberate: subdomains nobody registered are not
// gated here.
func (e *Engine) Decide(ctx context.Context, token, subdomain string) (Decision, error) {
	userID, ok, err := e.sessions.Resolve(ctx, token)
	if err != nil {
		return Unauthenticated, e.storeErr("redis", fmt.Errorf("failed to resolve session: %w", err))
	}
	if !ok {
		return e.record(Unauthenticated), nil
	}

	if subdomain == "" {
		return e.record(Malformed), nil
	}

	user, err := e.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		// The user was deleted after the session was issued
		return e.record(Unauthenticated), nil
	}
	if err != nil {
		return Unauthenticated, e.storeErr("postgres", fmt.Errorf("failed to load user: %w", err))
	}

	if user.Admin {
		return e.record(Allow), nil
	}

	member, err := e.store.IsSiteMember(ctx, subdomain, user.ID)
	if err != nil {
		return Unauthenticated, e.storeErr("postgres", fmt.Errorf("failed to check membership: %w", err))
	}
	if member {
		return e.record(Allow), nil
	}

	if _, err := e.store.GetSite(ctx, subdomain); err != nil {
		if errors.Is(err, storage.ErrSiteNotFound) {
			return e.record(Allow), nil
		}
		return Unauthenticated, e.storeErr("postgres", fmt.Errorf("failed to load site: %w", err))
	}

	e.logger.WithUser(user.ID).WithField("site", subdomain).Info("access denied")
	return e.record(Forbidden), nil
}

func (e *Engine) storeErr(backend string, err error) error {
	if e.metrics != nil {
		e.metrics.StoreErrorsTotal.WithLabelValues(backend).Inc()
	}
	return err
}

func (e *Engine) record(d Decision) Decision {
	if e.metrics != nil {
		e.metrics.GateDecisionsTotal.WithLabelValues(d.String()).Inc()
	}
	return d
}
