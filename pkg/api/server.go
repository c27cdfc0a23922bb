package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/authgate/pkg/auth"
	"github.com/platinummonkey/authgate/pkg/gate"
	"github.com/platinummonkey/authgate/pkg/middleware"
	"github.com/platinummonkey/authgate/pkg/observability"
	"github.com/platinummonkey/authgate/pkg/session"
	"github.com/platinummonkey/authgate/pkg/storage"
	"github.com/platinummonkey/authgate/pkg/totp"
)

// Deps bundles everything the API server needs. All stores and
// managers are injected so tests can swap in in-memory fakes.
type Deps struct {
	Store    storage.Storage
	Sessions *session.Manager
	TOTP     *totp.Manager
	Flow     *auth.Flow
	Gate     *gate.Engine
	Logger   *observability.Logger
	Metrics  *observability.Metrics

	CookieName string
	RootDomain string
	SessionTTL time.Duration
}

// Server represents the gateway's HTTP API
type Server struct {
	router *mux.Router
	logger *observability.Logger

	authHandlers *AuthHandlers
	totpHandlers *TOTPHandlers
	userHandlers *UserHandlers
	siteHandlers *SiteHandlers
	gateHandlers *GateHandlers
}

// NewServer creates the API server and wires up all routes
func NewServer(deps Deps) *Server {
	cookies := &cookieWriter{
		name:       deps.CookieName,
		rootDomain: deps.RootDomain,
		ttl:        deps.SessionTTL,
	}

	s := &Server{
		router:       mux.NewRouter(),
		logger:       deps.Logger,
		authHandlers: NewAuthHandlers(deps.Flow, deps.Sessions, deps.Store, deps.TOTP, cookies, deps.Logger),
		totpHandlers: NewTOTPHandlers(deps.TOTP, deps.Store, deps.Logger),
		userHandlers: NewUserHandlers(deps.Store, deps.Logger),
		siteHandlers: NewSiteHandlers(deps.Store, deps.Logger),
		gateHandlers: NewGateHandlers(deps.Gate, deps.CookieName, deps.RootDomain, deps.Logger),
	}

	if deps.Metrics != nil {
		s.router.Use(requestMetrics(deps.Metrics))
	}
	sessionMW := middleware.NewSessionMiddleware(deps.Sessions, deps.CookieName, deps.Logger)
	s.router.Use(sessionMW.Resolve)

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.authHandlers.RegisterRoutes(s.router)
	s.totpHandlers.RegisterRoutes(s.router)
	s.userHandlers.RegisterRoutes(s.router)
	s.siteHandlers.RegisterRoutes(s.router)
	s.gateHandlers.RegisterRoutes(s.router)
}

// requestMetrics records per-route request counts and latencies. The
// matched route template keeps the path label cardinality bounded.
func requestMetrics(m *observability.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					path = tmpl
				}
			}
			m.InstrumentHandler(path, next).ServeHTTP(w, r)
		})
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying router for middleware wrapping
func (s *Server) Router() *mux.Router {
	return s.router
}
