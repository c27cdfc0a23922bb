package storage

import "context"

// Storage is the relational store contract for users, second-factor
// state, backup codes and sites. The session store is deliberately not
// part of this interface; sessions live in Redis (pkg/session).
type Storage interface {
	// Users
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	DeleteUser(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// Second-factor configuration
	GetTOTP(ctx context.Context, userID int64) (*TOTPConfig, error)
	UpsertTOTP(ctx context.Context, userID int64, secret string) error
	EnableTOTP(ctx context.Context, userID int64) error
	DeleteTOTP(ctx context.Context, userID int64) error

	// Backup codes. ReplaceBackupCodes swaps the whole batch;
	// ConsumeBackupCode removes exactly the matched code and reports
	// whether a code was consumed.
	ReplaceBackupCodes(ctx context.Context, userID int64, codes []string) error
	ConsumeBackupCode(ctx context.Context, userID int64, code string) (bool, error)

	// Sites
	CreateSite(ctx context.Context, name string) (*Site, error)
	GetSite(ctx context.Context, name string) (*Site, error)
	ListSites(ctx context.Context) ([]*Site, error)
	DeleteSite(ctx context.Context, name string) error
	AddSiteMember(ctx context.Context, siteName string, userID int64) error
	RemoveSiteMember(ctx context.Context, siteName string, userID int64) error
	// IsSiteMember reports membership; a missing site reads as
	// non-membership, existence is GetSite's job.
	IsSiteMember(ctx context.Context, siteName string, userID int64) (bool, error)

	// HealthCheck pings the backing store
	HealthCheck(ctx context.Context) error
}
