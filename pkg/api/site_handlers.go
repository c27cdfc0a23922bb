package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/authgate/pkg/auth"
	"github.com/platinummonkey/authgate/pkg/httputil"
	"github.com/platinummonkey/authgate/pkg/middleware"
	"github.com/platinummonkey/authgate/pkg/observability"
	"github.com/platinummonkey/authgate/pkg/storage"
)

// SiteHandlers serves site registration and membership routes.
type SiteHandlers struct {
	store  storage.Storage
	logger *observability.Logger
}

// NewSiteHandlers creates the site handler group
func NewSiteHandlers(store storage.Storage, logger *observability.Logger) *SiteHandlers {
	return &SiteHandlers{store: store, logger: logger}
}

// RegisterRoutes registers site administration routes
func (h *SiteHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/sites", middleware.RequireSession(h.handleList)).Methods("GET")
	router.HandleFunc("/api/sites", middleware.RequireSession(h.handleCreate)).Methods("POST")
	router.HandleFunc("/api/sites", middleware.RequireSession(h.handleDelete)).Methods("DELETE")
	router.HandleFunc("/api/sites/user", middleware.RequireSession(h.handleAddMember)).Methods("POST")
	router.HandleFunc("/api/sites/user", middleware.RequireSession(h.handleRemoveMember)).Methods("DELETE")
}

// handleList handles GET /api/sites
func (h *SiteHandlers) handleList(w http.ResponseWriter, r *http.Request) {
	sites, err := h.store.ListSites(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("list sites failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, sites)
}

// handleCreate handles POST /api/sites
func (h *SiteHandlers) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req siteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if fieldErrs := auth.ValidateSiteName(req.Name); fieldErrs != nil {
		httputil.WriteFieldErrors(w, http.StatusBadRequest, fieldErrs)
		return
	}

	site, err := h.store.CreateSite(r.Context(), req.Name)
	if errors.Is(err, storage.ErrSiteExists) {
		httputil.WriteConflict(w, "site already exists")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("create site failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, site)
}

// handleDelete handles DELETE /api/sites
func (h *SiteHandlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req siteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	err := h.store.DeleteSite(r.Context(), req.Name)
	if errors.Is(err, storage.ErrSiteNotFound) {
		httputil.WriteConflict(w, "site not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("delete site failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteOK(w)
}

// handleAddMember handles POST /api/sites/user
func (h *SiteHandlers) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req membershipRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	err := h.store.AddSiteMember(r.Context(), req.SiteName, req.UserID)
	switch {
	case errors.Is(err, storage.ErrSiteNotFound):
		httputil.WriteNotFound(w, "site not found")
		return
	case errors.Is(err, storage.ErrUserNotFound):
		httputil.WriteNotFound(w, "user not found")
		return
	case err != nil:
		h.logger.WithError(err).Error("add site member failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteOK(w)
}

// handleRemoveMember handles DELETE /api/sites/user
func (h *SiteHandlers) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	var req membershipRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	err := h.store.RemoveSiteMember(r.Context(), req.SiteName, req.UserID)
	if errors.Is(err, storage.ErrSiteNotFound) {
		httputil.WriteNotFound(w, "site not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("remove site member failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteOK(w)
}
