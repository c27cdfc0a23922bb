package storage

import "errors"

var (
	// ErrUserNotFound is returned for lookups of missing users
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken is returned when a username already exists.
	// Implementations must also surface it when the database's
	// uniqueness constraint rejects a concurrent insert, so the loser
	// of a registration race sees a conflict, not an internal error.
	ErrUsernameTaken = errors.New("username taken")

	// ErrTOTPNotFound is returned when a user has no second-factor
	// configuration row
	ErrTOTPNotFound = errors.New("totp configuration not found")

	// ErrSiteNotFound is returned for lookups of unregistered sites
	ErrSiteNotFound = errors.New("site not found")

	// ErrSiteExists is returned when a site name is already registered
	ErrSiteExists = errors.New("site already exists")
)
