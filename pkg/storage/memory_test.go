package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_Users(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	alice, err := store.CreateUser(ctx, "alice", "hash-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), alice.ID)
	assert.False(t, alice.Admin)

	_, err = store.CreateUser(ctx, "alice", "hash-b")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	got, err := store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "hash-a", got.PasswordHash)

	_, err = store.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, store.UpdatePassword(ctx, alice.ID, "hash-c"))
	got, err = store.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-c", got.PasswordHash)

	bob, err := store.CreateUser(ctx, "bob", "hash-b")
	require.NoError(t, err)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)

	require.NoError(t, store.DeleteUser(ctx, alice.ID))
	assert.ErrorIs(t, store.DeleteUser(ctx, alice.ID), ErrUserNotFound)

	// The username is free again after deletion
	_, err = store.CreateUser(ctx, "alice", "hash-d")
	require.NoError(t, err)

	_ = bob
}

func TestMemoryStorage_TOTPLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	alice, err := store.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)

	_, err = store.GetTOTP(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrTOTPNotFound)

	require.NoError(t, store.UpsertTOTP(ctx, alice.ID, "secret-1"))
	cfg, err := store.GetTOTP(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "secret-1", cfg.Secret)

	// Restarting setup replaces the secret and clears enabled
	require.NoError(t, store.EnableTOTP(ctx, alice.ID))
	require.NoError(t, store.UpsertTOTP(ctx, alice.ID, "secret-2"))
	cfg, err = store.GetTOTP(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "secret-2", cfg.Secret)

	require.NoError(t, store.DeleteTOTP(ctx, alice.ID))
	_, err = store.GetTOTP(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrTOTPNotFound)

	assert.ErrorIs(t, store.EnableTOTP(ctx, alice.ID), ErrTOTPNotFound)
}

func TestMemoryStorage_BackupCodes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	alice, err := store.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)

	require.NoError(t, store.ReplaceBackupCodes(ctx, alice.ID, []string{"aaa", "bbb"}))

	consumed, err := store.ConsumeBackupCode(ctx, alice.ID, "aaa")
	require.NoError(t, err)
	assert.True(t, consumed)

	// Single use only
	consumed, err = store.ConsumeBackupCode(ctx, alice.ID, "aaa")
	require.NoError(t, err)
	assert.False(t, consumed)

	// Replacing the batch invalidates unconsumed codes
	require.NoError(t, store.ReplaceBackupCodes(ctx, alice.ID, []string{"ccc"}))
	consumed, err = store.ConsumeBackupCode(ctx, alice.ID, "bbb")
	require.NoError(t, err)
	assert.False(t, consumed)

	consumed, err = store.ConsumeBackupCode(ctx, alice.ID, "ccc")
	require.NoError(t, err)
	assert.True(t, consumed)
}

func TestMemoryStorage_Sites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	alice, err := store.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)

	site, err := store.CreateSite(ctx, "billing")
	require.NoError(t, err)
	assert.Equal(t, "billing", site.Name)

	_, err = store.CreateSite(ctx, "billing")
	assert.ErrorIs(t, err, ErrSiteExists)

	_, err = store.GetSite(ctx, "random")
	assert.ErrorIs(t, err, ErrSiteNotFound)

	require.NoError(t, store.AddSiteMember(ctx, "billing", alice.ID))
	member, err := store.IsSiteMember(ctx, "billing", alice.ID)
	require.NoError(t, err)
	assert.True(t, member)

	// Missing site reads as non-membership
	member, err = store.IsSiteMember(ctx, "random", alice.ID)
	require.NoError(t, err)
	assert.False(t, member)

	got, err := store.GetSite(ctx, "billing")
	require.NoError(t, err)
	require.Len(t, got.Members, 1)
	assert.Equal(t, "alice", got.Members[0].Username)

	assert.ErrorIs(t, store.AddSiteMember(ctx, "random", alice.ID), ErrSiteNotFound)
	assert.ErrorIs(t, store.AddSiteMember(ctx, "billing", 999), ErrUserNotFound)

	require.NoError(t, store.RemoveSiteMember(ctx, "billing", alice.ID))
	member, err = store.IsSiteMember(ctx, "billing", alice.ID)
	require.NoError(t, err)
	assert.False(t, member)

	sites, err := store.ListSites(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 1)

	require.NoError(t, store.DeleteSite(ctx, "billing"))
	assert.ErrorIs(t, store.DeleteSite(ctx, "billing"), ErrSiteNotFound)
}

func TestMemoryStorage_DeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	alice, err := store.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)

	require.NoError(t, store.UpsertTOTP(ctx, alice.ID, "secret"))
	require.NoError(t, store.ReplaceBackupCodes(ctx, alice.ID, []string{"aaa"}))
	_, err = store.CreateSite(ctx, "billing")
	require.NoError(t, err)
	require.NoError(t, store.AddSiteMember(ctx, "billing", alice.ID))

	require.NoError(t, store.DeleteUser(ctx, alice.ID))

	_, err = store.GetTOTP(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrTOTPNotFound)

	member, err := store.IsSiteMember(ctx, "billing", alice.ID)
	require.NoError(t, err)
	assert.False(t, member)
}
