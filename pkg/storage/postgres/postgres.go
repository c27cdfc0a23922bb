// Package postgres implements the storage.Storage interface on
// PostgreSQL using database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/platinummonkey/authgate/pkg/storage"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations, the last line of defense for concurrent registrations.
const uniqueViolation = "23505"

// Config holds database connection configuration
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Storage is the PostgreSQL-backed relational store
type Storage struct {
	db *sql.DB
}

// New opens a connection pool and verifies connectivity
func New(cfg Config) (*Storage, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Storage{db: db}, nil
}

// NewWithDB wraps an existing database handle (used by tests)
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// DB returns the underlying database handle for health checks
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Close closes the connection pool
func (s *Storage) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables if they do not exist
func (s *Storage) EnsureSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			admin BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS totp_configs (
			user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			secret TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS totp_backup_codes (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			code TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sites (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS site_members (
			site_id BIGINT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			PRIMARY KEY (site_id, user_id)
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// CreateUser inserts a user, surfacing ErrUsernameTaken on conflict
func (s *Storage) CreateUser(ctx context.Context, username, passwordHash string) (*storage.User, error) {
	user := &storage.User{Username: username, PasswordHash: passwordHash}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, admin)
		VALUES ($1, $2, FALSE)
		RETURNING id
	`, username, passwordHash).Scan(&user.ID)
	if isUniqueViolation(err) {
		return nil, storage.ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUser returns the user with the given id
func (s *Storage) GetUser(ctx context.Context, id int64) (*storage.User, error) {
	user := &storage.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, admin FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Admin)
	if err == sql.ErrNoRows {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByUsername returns the user with the given username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*storage.User, error) {
	user := &storage.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, admin FROM users WHERE username = $1
	`, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Admin)
	if err == sql.ErrNoRows {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

// ListUsers returns all users ordered by id
func (s *Storage) ListUsers(ctx context.Context) ([]*storage.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, admin FROM users ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*storage.User
	for rows.Next() {
		user := &storage.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Admin); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// DeleteUser removes a user; second-factor rows cascade
func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if affected == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// UpdatePassword replaces the stored password hash
func (s *Storage) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2 WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if affected == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// GetTOTP returns the second-factor configuration for a user
func (s *Storage) GetTOTP(ctx context.Context, userID int64) (*storage.TOTPConfig, error) {
	cfg := &storage.TOTPConfig{}
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, secret, enabled FROM totp_configs WHERE user_id = $1
	`, userID).Scan(&cfg.UserID, &cfg.Secret, &cfg.Enabled)
	if err == sql.ErrNoRows {
		return nil, storage.ErrTOTPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get totp config: %w", err)
	}
	return cfg, nil
}

// UpsertTOTP writes a fresh, unconfirmed secret for the user
func (s *Storage) UpsertTOTP(ctx context.Context, userID int64, secret string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO totp_configs (user_id, secret, enabled)
		VALUES ($1, $2, FALSE)
		ON CONFLICT (user_id) DO UPDATE SET secret = $2, enabled = FALSE
	`, userID, secret)
	if err != nil {
		return fmt.Errorf("failed to upsert totp config: %w", err)
	}
	return nil
}

// EnableTOTP marks the user's configuration as confirmed
func (s *Storage) EnableTOTP(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE totp_configs SET enabled = TRUE WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to enable totp: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to enable totp: %w", err)
	}
	if affected == 0 {
		return storage.ErrTOTPNotFound
	}
	return nil
}

// DeleteTOTP removes the user's configuration entirely
func (s *Storage) DeleteTOTP(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM totp_configs WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete totp config: %w", err)
	}
	return nil
}

// ReplaceBackupCodes swaps the user's whole backup-code batch in one
// transaction so a failed insert cannot leave a half-replaced batch
func (s *Storage) ReplaceBackupCodes(ctx context.Context, userID int64, codes []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM totp_backup_codes WHERE user_id = $1
	`, userID); err != nil {
		return fmt.Errorf("failed to clear backup codes: %w", err)
	}

	for _, code := range codes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO totp_backup_codes (user_id, code) VALUES ($1, $2)
		`, userID, code); err != nil {
			return fmt.Errorf("failed to insert backup code: %w", err)
		}
	}

	return tx.Commit()
}

// ConsumeBackupCode removes the matched code and reports whether one
// was consumed. The single DELETE is the atomicity guarantee: two
// concurrent consumers of the same code cannot both see RowsAffected=1.
func (s *Storage) ConsumeBackupCode(ctx context.Context, userID int64, code string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM totp_backup_codes
		WHERE id IN (
			SELECT id FROM totp_backup_codes
			WHERE user_id = $1 AND code = $2
			LIMIT 1
		)
	`, userID, code)
	if err != nil {
		return false, fmt.Errorf("failed to consume backup code: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to consume backup code: %w", err)
	}
	return affected > 0, nil
}

// CreateSite registers a new site name
func (s *Storage) CreateSite(ctx context.Context, name string) (*storage.Site, error) {
	site := &storage.Site{Name: name, Members: []storage.Member{}}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sites (name) VALUES ($1) RETURNING id
	`, name).Scan(&site.ID)
	if isUniqueViolation(err) {
		return nil, storage.ErrSiteExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create site: %w", err)
	}
	return site, nil
}

// GetSite returns a site with its members
func (s *Storage) GetSite(ctx context.Context, name string) (*storage.Site, error) {
	site := &storage.Site{Members: []storage.Member{}}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name FROM sites WHERE name = $1
	`, name).Scan(&site.ID, &site.Name)
	if err == sql.ErrNoRows {
		return nil, storage.ErrSiteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	members, err := s.siteMembers(ctx, site.ID)
	if err != nil {
		return nil, err
	}
	site.Members = members
	return site, nil
}

// siteMembers loads the member summaries for a site
func (s *Storage) siteMembers(ctx context.Context, siteID int64) ([]storage.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username
		FROM site_members sm
		JOIN users u ON u.id = sm.user_id
		WHERE sm.site_id = $1
		ORDER BY u.id
	`, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list site members: %w", err)
	}
	defer rows.Close()

	members := []storage.Member{}
	for rows.Next() {
		var m storage.Member
		if err := rows.Scan(&m.ID, &m.Username); err != nil {
			return nil, fmt.Errorf("failed to scan site member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListSites returns all sites with their members, ordered by id
func (s *Storage) ListSites(ctx context.Context) ([]*storage.Site, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM sites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []*storage.Site
	for rows.Next() {
		site := &storage.Site{Members: []storage.Member{}}
		if err := rows.Scan(&site.ID, &site.Name); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, site := range sites {
		members, err := s.siteMembers(ctx, site.ID)
		if err != nil {
			return nil, err
		}
		site.Members = members
	}
	return sites, nil
}

// DeleteSite removes a site; memberships cascade
func (s *Storage) DeleteSite(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sites WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	if affected == 0 {
		return storage.ErrSiteNotFound
	}
	return nil
}

// AddSiteMember connects a user to a site. Re-adding an existing
// member is a no-op.
func (s *Storage) AddSiteMember(ctx context.Context, siteName string, userID int64) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO site_members (site_id, user_id)
		SELECT id, $2 FROM sites WHERE name = $1
		ON CONFLICT DO NOTHING
	`, siteName, userID)
	if err != nil {
		return fmt.Errorf("failed to add site member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to add site member: %w", err)
	}
	if affected == 0 {
		// Either the site is missing or the membership already exists;
		// distinguish so unknown sites surface a 404.
		if _, err := s.GetSite(ctx, siteName); err != nil {
			return err
		}
	}
	return nil
}

// RemoveSiteMember disconnects a user from a site
func (s *Storage) RemoveSiteMember(ctx context.Context, siteName string, userID int64) error {
	if _, err := s.GetSite(ctx, siteName); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM site_members
		WHERE user_id = $2 AND site_id = (SELECT id FROM sites WHERE name = $1)
	`, siteName, userID)
	if err != nil {
		return fmt.Errorf("failed to remove site member: %w", err)
	}
	return nil
}

// IsSiteMember reports whether the user is a member of the site
func (s *Storage) IsSiteMember(ctx context.Context, siteName string, userID int64) (bool, error) {
	var member bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM site_members sm
			JOIN sites s ON s.id = sm.site_id
			WHERE s.name = $1 AND sm.user_id = $2
		)
	`, siteName, userID).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("failed to check site membership: %w", err)
	}
	return member, nil
}

// HealthCheck pings the database
func (s *Storage) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
