package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteLifecycle(t *testing.T) {
	env := newTestEnv(t)
	aliceID, token := env.register(t, "alice", "hunter2")

	// All site routes need a session
	rec := env.do(t, http.MethodGet, "/api/sites", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sites", map[string]string{"name": "billing"}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	// Duplicate name conflicts
	rec = env.do(t, http.MethodPost, "/api/sites", map[string]string{"name": "billing"}, token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Names are restricted to subdomain-label characters
	rec = env.do(t, http.MethodPost, "/api/sites", map[string]string{"name": "bad.name"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sites/user", map[string]interface{}{
		"siteName": "billing", "userId": aliceID,
	}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	// Members show up in the listing under "users"
	rec = env.do(t, http.MethodGet, "/api/sites", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var sites []struct {
		Name  string `json:"name"`
		Users []struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	}
	decodeBody(t, rec, &sites)
	require.Len(t, sites, 1)
	assert.Equal(t, "billing", sites[0].Name)
	require.Len(t, sites[0].Users, 1)
	assert.Equal(t, "alice", sites[0].Users[0].Username)

	rec = env.do(t, http.MethodDelete, "/api/sites/user", map[string]interface{}{
		"siteName": "billing", "userId": aliceID,
	}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/sites", map[string]string{"name": "billing"}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	// Deleting an absent site conflicts
	rec = env.do(t, http.MethodDelete, "/api/sites", map[string]string{"name": "billing"}, token)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSiteMembership_UnknownTargets(t *testing.T) {
	env := newTestEnv(t)
	aliceID, token := env.register(t, "alice", "hunter2")

	rec := env.do(t, http.MethodPost, "/api/sites/user", map[string]interface{}{
		"siteName": "nosuch", "userId": aliceID,
	}, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sites", map[string]string{"name": "billing"}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sites/user", map[string]interface{}{
		"siteName": "billing", "userId": 9999,
	}, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice", "hunter2")
	bobID, _ := env.register(t, "bob", "hunter2")

	rec := env.do(t, http.MethodGet, "/api/users", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Admin    bool   `json:"admin"`
	}
	decodeBody(t, rec, &users)
	require.Len(t, users, 2)

	// Password hashes never serialize
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.do(t, http.MethodDelete, "/api/users", map[string]int64{"id": bobID}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	// Deleting again conflicts
	rec = env.do(t, http.MethodDelete, "/api/users", map[string]int64{"id": bobID}, token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/users", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &users)
	assert.Len(t, users, 1)
}
