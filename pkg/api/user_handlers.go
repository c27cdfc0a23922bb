package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/authgate/pkg/httputil"
	"github.com/platinummonkey/authgate/pkg/middleware"
	"github.com/platinummonkey/authgate/pkg/observability"
	"github.com/platinummonkey/authgate/pkg/storage"
)

// UserHandlers serves the user administration routes.
type UserHandlers struct {
	store  storage.Storage
	logger *observability.Logger
}

// NewUserHandlers creates the user handler group
func NewUserHandlers(store storage.Storage, logger *observability.Logger) *UserHandlers {
	return &UserHandlers{store: store, logger: logger}
}

// RegisterRoutes registers user administration routes
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/users", middleware.RequireSession(h.handleList)).Methods("GET")
	router.HandleFunc("/api/users", middleware.RequireSession(h.handleDelete)).Methods("DELETE")
}

// handleList handles GET /api/users
func (h *UserHandlers) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("list users failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, users)
}

// handleDelete handles DELETE /api/users. Sessions for the deleted
// user are not swept; they stop resolving on the next lookup.
func (h *UserHandlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	err := h.store.DeleteUser(r.Context(), req.ID)
	if errors.Is(err, storage.ErrUserNotFound) {
		httputil.WriteConflict(w, "user not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("delete user failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteOK(w)
}
