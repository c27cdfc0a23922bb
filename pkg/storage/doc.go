// Package storage provides the relational store for users, second-factor
// state, backup codes and sites.
//
// # Overview
//
// The Storage interface is the only way the gateway touches user and site
// records. Two implementations exist: MemoryStorage (tests, local runs)
// and postgres.Storage (production). Session records are deliberately
// outside this package; they live in Redis behind pkg/session.
//
// # Error Contract
//
// Lookup misses return typed sentinel errors (ErrUserNotFound,
// ErrSiteNotFound, ErrTOTPNotFound) so handlers can map them to stable
// status codes. Uniqueness conflicts return ErrUsernameTaken or
// ErrSiteExists; the postgres implementation also translates the
// database's unique-violation error to these, which is what the loser of
// a concurrent registration race observes.
//
// # Usage
//
//	store := storage.NewMemoryStorage()
//	user, err := store.CreateUser(ctx, "alice", hash)
//	if errors.Is(err, storage.ErrUsernameTaken) {
//		// surface 409
//	}
//
// # Related Packages
//
//   - pkg/storage/postgres: database/sql + lib/pq implementation
//   - pkg/session: Redis-backed session records
package storage
