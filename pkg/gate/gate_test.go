package gate

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/authgate/pkg/observability"
	"github.com/platinummonkey/authgate/pkg/session"
	"github.com/platinummonkey/authgate/pkg/storage"
)

type fixture struct {
	engine   *Engine
	store    *storage.MemoryStorage
	sessions *session.Manager
	mr       *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := storage.NewMemoryStorage()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	sessions := session.NewManager(session.NewRedisStoreWithClient(client), time.Hour, logger, nil)

	return &fixture{
		engine:   NewEngine(store, sessions, logger, nil),
		store:    store,
		sessions: sessions,
		mr:       mr,
	}
}

func (f *fixture) login(t *testing.T, username string, admin bool) (int64, string) {
	t.Helper()
	ctx := context.Background()
	user, err := f.store.CreateUser(ctx, username, "hash")
	require.NoError(t, err)
	if admin {
		require.NoError(t, f.store.SetAdmin(ctx, user.ID, true))
	}
	sess, err := f.sessions.Create(ctx, user.ID)
	require.NoError(t, err)
	return user.ID, sess.Token
}

func TestDecide_NoSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	d, err := f.engine.Decide(ctx, "", "billing")
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, d)

	d, err = f.engine.Decide(ctx, "deadbeef", "billing")
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, d)
}

func TestDecide_NoSubdomain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, token := f.login(t, "alice", false)

	d, err := f.engine.Decide(ctx, token, "")
	require.NoError(t, err)
	assert.Equal(t, Malformed, d)
}

func TestDecide_SessionBeatsSubdomainCheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// No session and no subdomain: the session check fires first
	d, err := f.engine.Decide(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, d)
}

func TestDecide_DeletedUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID, token := f.login(t, "alice", false)

	require.NoError(t, f.store.DeleteUser(ctx, userID))

	d, err := f.engine.Decide(ctx, token, "billing")
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, d)
}

func TestDecide_AdminBypassesMembership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, token := f.login(t, "root", true)

	_, err := f.store.CreateSite(ctx, "billing")
	require.NoError(t, err)

	// Admin is not a member of billing but passes anyway
	d, err := f.engine.Decide(ctx, token, "billing")
	require.NoError(t, err)
	assert.Equal(t, Allow, d)
}

func TestDecide_Membership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	aliceID, aliceToken := f.login(t, "alice", false)
	_, carolToken := f.login(t, "carol", false)

	_, err := f.store.CreateSite(ctx, "billing")
	require.NoError(t, err)
	require.NoError(t, f.store.AddSiteMember(ctx, "billing", aliceID))

	d, err := f.engine.Decide(ctx, aliceToken, "billing")
	require.NoError(t, err)
	assert.Equal(t, Allow, d)

	// Registered site, not a member
	d, err = f.engine.Decide(ctx, carolToken, "billing")
	require.NoError(t, err)
	assert.Equal(t, Forbidden, d)
}

func TestDecide_UnregisteredSiteIsOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, token := f.login(t, "alice", false)

	d, err := f.engine.Decide(ctx, token, "wiki")
	require.NoError(t, err)
	assert.Equal(t, Allow, d)
}

func TestDecide_ExpiredSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, token := f.login(t, "alice", false)

	f.mr.FastForward(2 * time.Hour)

	d, err := f.engine.Decide(ctx, token, "billing")
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, d)
}

func TestDecide_StoreDown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, token := f.login(t, "alice", false)

	f.mr.Close()

	_, err := f.engine.Decide(ctx, token, "billing")
	assert.Error(t, err)
}
