package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// check issues a proxy-style subrequest for the given host
func (e *testEnv) check(t *testing.T, host, token string) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "http://"+host+"/nginxauth", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookieName, Value: token})
	}

	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec.Code
}

func TestGateCheck(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	bobID, bobToken := env.register(t, "bob", "hunter2")
	_, carolToken := env.register(t, "carol", "hunter2")

	_, err := env.store.CreateSite(ctx, "billing")
	require.NoError(t, err)
	require.NoError(t, env.store.AddSiteMember(ctx, "billing", bobID))

	// No session
	assert.Equal(t, http.StatusUnauthorized, env.check(t, "billing.example.com", ""))
	assert.Equal(t, http.StatusUnauthorized, env.check(t, "billing.example.com", "deadbeef"))

	// Session but no subdomain to authorize
	assert.Equal(t, http.StatusBadRequest, env.check(t, "example.com", bobToken))

	// Member passes, non-member is forbidden
	assert.Equal(t, http.StatusOK, env.check(t, "billing.example.com", bobToken))
	assert.Equal(t, http.StatusForbidden, env.check(t, "billing.example.com", carolToken))

	// Unregistered subdomains are open to any authenticated user
	assert.Equal(t, http.StatusOK, env.check(t, "random.example.com", carolToken))
}

func TestGateCheck_Admin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	rootID, rootToken := env.register(t, "root", "hunter2")
	require.NoError(t, env.store.SetAdmin(ctx, rootID, true))

	_, err := env.store.CreateSite(ctx, "billing")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, env.check(t, "billing.example.com", rootToken))
}

func TestGateCheck_ForwardedHost(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice", "hunter2")

	// The proxy may rewrite Host and forward the original separately
	req := httptest.NewRequest(http.MethodGet, "http://localhost/nginxauth", nil)
	req.Header.Set("X-Forwarded-Host", "random.example.com")
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: token})

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGateCheck_DeletedUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	userID, token := env.register(t, "alice", "hunter2")
	require.NoError(t, env.store.DeleteUser(ctx, userID))

	assert.Equal(t, http.StatusUnauthorized, env.check(t, "random.example.com", token))
}

func TestGateCheck_StoreDown(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice", "hunter2")

	env.mr.Close()

	assert.Equal(t, http.StatusInternalServerError, env.check(t, "billing.example.com", token))
}
