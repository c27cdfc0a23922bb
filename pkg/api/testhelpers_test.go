package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/authgate/pkg/auth"
	"github.com/platinummonkey/authgate/pkg/gate"
	"github.com/platinummonkey/authgate/pkg/observability"
	"github.com/platinummonkey/authgate/pkg/session"
	"github.com/platinummonkey/authgate/pkg/storage"
	"github.com/platinummonkey/authgate/pkg/totp"
)

const (
	testCookieName = "authgate_session"
	testRootDomain = "example.com"
)

type testEnv struct {
	server   *Server
	store    *storage.MemoryStorage
	sessions *session.Manager
	totp     *totp.Manager
	mr       *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := storage.NewMemoryStorage()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	sessions := session.NewManager(session.NewRedisStoreWithClient(client), time.Hour, logger, nil)
	totpMgr := totp.NewManager(store, "authgate", nil)
	hasher := auth.NewBcryptHasher(4)
	flow := auth.NewFlow(store, sessions, totpMgr, hasher, logger, nil)
	engine := gate.NewEngine(store, sessions, logger, nil)

	server := NewServer(Deps{
		Store:      store,
		Sessions:   sessions,
		TOTP:       totpMgr,
		Flow:       flow,
		Gate:       engine,
		Logger:     logger,
		CookieName: testCookieName,
		RootDomain: testRootDomain,
		SessionTTL: time.Hour,
	})

	return &testEnv{
		server:   server,
		store:    store,
		sessions: sessions,
		totp:     totpMgr,
		mr:       mr,
	}
}

// do issues a JSON request against the server. token, when non-empty,
// rides along as the session cookie.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookieName, Value: token})
	}

	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

// register creates a user through the HTTP surface and returns its id
// and session token.
func (e *testEnv) register(t *testing.T, username, password string) (int64, string) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/register", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	token := sessionCookieValue(t, rec)
	require.NotEmpty(t, token)

	user, err := e.store.GetUserByUsername(context.Background(), username)
	require.NoError(t, err)
	return user.ID, token
}

// sessionCookieValue extracts the session cookie from a response, or
// "" when none was set.
func sessionCookieValue(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == testCookieName {
			return cookie.Value
		}
	}
	return ""
}

// decodeBody unmarshals a JSON response body
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

// secretFromURL pulls the shared secret out of an otpauth
// provisioning URI so tests can mint valid codes.
func secretFromURL(t *testing.T, provisioningURL string) string {
	t.Helper()
	u, err := url.Parse(provisioningURL)
	require.NoError(t, err)
	secret := u.Query().Get("secret")
	require.NotEmpty(t, secret)
	return secret
}
