package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/authgate/pkg/gate"
	"github.com/platinummonkey/authgate/pkg/httputil"
	"github.com/platinummonkey/authgate/pkg/observability"
)

// GateHandlers serves the proxy's auth_request subrequest endpoint.
type GateHandlers struct {
	gate       *gate.Engine
	cookieName string
	rootDomain string
	logger     *observability.Logger
}

// NewGateHandlers creates the subrequest handler group
func NewGateHandlers(engine *gate.Engine, cookieName, rootDomain string, logger *observability.Logger) *GateHandlers {
	return &GateHandlers{
		gate:       engine,
		cookieName: cookieName,
		rootDomain: rootDomain,
		logger:     logger,
	}
}

// RegisterRoutes registers the subrequest route
func (h *GateHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/nginxauth", h.handleCheck).Methods("GET")
}

// handleCheck handles GET /nginxauth. The proxy only looks at the
// status; the bodies exist for operators debugging with curl.
func (h *GateHandlers) handleCheck(w http.ResponseWriter, r *http.Request) {
	token := httputil.SessionCookie(r, h.cookieName)
	subdomain := httputil.Subdomain(r, h.rootDomain)

	decision, err := h.gate.Decide(r.Context(), token, subdomain)
	if err != nil {
		h.logger.WithError(err).Error("authorization check failed")
		httputil.WriteInternalError(w)
		return
	}

	switch decision {
	case gate.Allow:
		httputil.WriteOK(w)
	case gate.Unauthenticated:
		httputil.WriteUnauthorized(w, "not logged in")
	case gate.Malformed:
		httputil.WriteBadRequest(w, "no subdomain to authorize")
	case gate.Forbidden:
		httputil.WriteForbidden(w, "access denied")
	default:
		httputil.WriteInternalError(w)
	}
}
