package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/authgate/pkg/contextkeys"
	"github.com/platinummonkey/authgate/pkg/httputil"
	"github.com/platinummonkey/authgate/pkg/middleware"
	"github.com/platinummonkey/authgate/pkg/observability"
	"github.com/platinummonkey/authgate/pkg/storage"
	"github.com/platinummonkey/authgate/pkg/totp"
)

// TOTPHandlers serves second-factor setup, confirmation, and removal.
type TOTPHandlers struct {
	totp   *totp.Manager
	store  storage.Storage
	logger *observability.Logger
}

// NewTOTPHandlers creates the second-factor handler group
func NewTOTPHandlers(totpMgr *totp.Manager, store storage.Storage, logger *observability.Logger) *TOTPHandlers {
	return &TOTPHandlers{
		totp:   totpMgr,
		store:  store,
		logger: logger,
	}
}

// RegisterRoutes registers second-factor routes
func (h *TOTPHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/totp/setup", middleware.RequireSession(h.handleSetup)).Methods("GET")
	router.HandleFunc("/api/totp/enable", middleware.RequireSession(h.handleEnable)).Methods("POST")
	router.HandleFunc("/api/totp/disable", middleware.RequireSession(h.handleDisable)).Methods("POST")
}

// handleSetup handles GET /api/totp/setup
func (h *TOTPHandlers) handleSetup(w http.ResponseWriter, r *http.Request) {
	userID, _ := contextkeys.UserID(r.Context())

	user, err := h.store.GetUser(r.Context(), userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		httputil.WriteUnauthorized(w, "not logged in")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("totp setup failed")
		httputil.WriteInternalError(w)
		return
	}

	setup, err := h.totp.BeginSetup(r.Context(), userID, user.Username)
	if errors.Is(err, totp.ErrAlreadyEnabled) {
		httputil.WriteConflict(w, "second factor already enabled")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("totp setup failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, setup)
}

// handleEnable handles POST /api/totp/enable
func (h *TOTPHandlers) handleEnable(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	userID, _ := contextkeys.UserID(r.Context())
	err := h.totp.ConfirmSetup(r.Context(), userID, req.Code)
	switch {
	case errors.Is(err, totp.ErrNotPending):
		httputil.WriteNotFound(w, "no pending second factor setup")
		return
	case errors.Is(err, totp.ErrInvalidCode):
		httputil.WriteUnauthorized(w, "invalid second factor code")
		return
	case err != nil:
		h.logger.WithError(err).Error("totp enable failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteOK(w)
}

// handleDisable handles POST /api/totp/disable
func (h *TOTPHandlers) handleDisable(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	userID, _ := contextkeys.UserID(r.Context())
	err := h.totp.Disable(r.Context(), userID, req.Code)
	switch {
	case errors.Is(err, totp.ErrNotActive):
		httputil.WriteNotFound(w, "second factor not enabled")
		return
	case errors.Is(err, totp.ErrInvalidCode):
		httputil.WriteUnauthorized(w, "invalid second factor code")
		return
	case err != nil:
		h.logger.WithError(err).Error("totp disable failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteOK(w)
}
