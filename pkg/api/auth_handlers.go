package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/authgate/pkg/auth"
	"github.com/platinummonkey/authgate/pkg/contextkeys"
	"github.com/platinummonkey/authgate/pkg/httputil"
	"github.com/platinummonkey/authgate/pkg/middleware"
	"github.com/platinummonkey/authgate/pkg/observability"
	"github.com/platinummonkey/authgate/pkg/session"
	"github.com/platinummonkey/authgate/pkg/storage"
	"github.com/platinummonkey/authgate/pkg/totp"
)

// AuthHandlers serves login, registration, logout, session info, and
// password resets.
type AuthHandlers struct {
	flow     *auth.Flow
	sessions *session.Manager
	store    storage.Storage
	totp     *totp.Manager
	cookies  *cookieWriter
	logger   *observability.Logger
}

// NewAuthHandlers creates the authentication handler group
func NewAuthHandlers(flow *auth.Flow, sessions *session.Manager, store storage.Storage, totpMgr *totp.Manager, cookies *cookieWriter, logger *observability.Logger) *AuthHandlers {
	return &AuthHandlers{
		flow:     flow,
		sessions: sessions,
		store:    store,
		totp:     totpMgr,
		cookies:  cookies,
		logger:   logger,
	}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/login", h.handleLogin).Methods("POST")
	router.HandleFunc("/api/register", h.handleRegister).Methods("POST")
	router.HandleFunc("/api/logout", middleware.RequireSession(h.handleLogout)).Methods("POST")
	router.HandleFunc("/api/session", middleware.RequireSession(h.handleSession)).Methods("GET")
	router.HandleFunc("/api/passwordreset", middleware.RequireSession(h.handlePasswordReset)).Methods("POST")
}

// handleLogin handles POST /api/login
func (h *AuthHandlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if fieldErrs := auth.ValidateCredentials(req.Username, req.Password); fieldErrs != nil {
		httputil.WriteFieldErrors(w, http.StatusBadRequest, fieldErrs)
		return
	}

	result, err := h.flow.Login(r.Context(), req.Username, req.Password, req.Code)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		httputil.WriteNotFound(w, "user not found")
		return
	case errors.Is(err, auth.ErrInvalidPassword):
		httputil.WriteUnauthorized(w, "invalid password")
		return
	case errors.Is(err, auth.ErrInvalidSecondFactor):
		httputil.WriteUnauthorized(w, "invalid second factor code")
		return
	case err != nil:
		h.logger.WithError(err).Error("login failed")
		httputil.WriteInternalError(w)
		return
	}

	if result.SecondFactorRequired {
		httputil.WriteSuccess(w, loginResponse{TOTP: true})
		return
	}

	h.cookies.set(w, result.Session.Token)
	httputil.WriteSuccess(w, loginResponse{TOTP: false})
}

// handleRegister handles POST /api/register
func (h *AuthHandlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if fieldErrs := auth.ValidateCredentials(req.Username, req.Password); fieldErrs != nil {
		httputil.WriteFieldErrors(w, http.StatusBadRequest, fieldErrs)
		return
	}

	result, err := h.flow.Register(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrUsernameTaken) {
		httputil.WriteConflict(w, "username already taken")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("registration failed")
		httputil.WriteInternalError(w)
		return
	}

	h.cookies.set(w, result.Session.Token)
	httputil.WriteSuccess(w, loginResponse{TOTP: false})
}

// handleLogout handles POST /api/logout
func (h *AuthHandlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := contextkeys.SessionToken(r.Context())
	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		h.logger.WithError(err).Error("logout failed")
		httputil.WriteInternalError(w)
		return
	}

	h.cookies.clear(w)
	httputil.WriteOK(w)
}

// handleSession handles GET /api/session
func (h *AuthHandlers) handleSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := contextkeys.UserID(r.Context())

	user, err := h.store.GetUser(r.Context(), userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		// The session outlived its user
		httputil.WriteUnauthorized(w, "not logged in")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("session info failed")
		httputil.WriteInternalError(w)
		return
	}

	state, err := h.totp.State(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("session info failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, sessionResponse{
		ID:       user.ID,
		Username: user.Username,
		TOTP:     state == totp.StateActive,
		IsAdmin:  user.Admin,
	})
}

// handlePasswordReset handles POST /api/passwordreset
func (h *AuthHandlers) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if fieldErrs := auth.ValidatePassword(req.Password); fieldErrs != nil {
		httputil.WriteFieldErrors(w, http.StatusBadRequest, fieldErrs)
		return
	}

	userID, _ := contextkeys.UserID(r.Context())
	err := h.flow.ResetPassword(r.Context(), userID, req.Password, req.Code)
	switch {
	case errors.Is(err, auth.ErrInvalidSecondFactor):
		httputil.WriteUnauthorized(w, "invalid second factor code")
		return
	case errors.Is(err, auth.ErrUserNotFound):
		httputil.WriteUnauthorized(w, "not logged in")
		return
	case err != nil:
		h.logger.WithError(err).Error("password reset failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteOK(w)
}
