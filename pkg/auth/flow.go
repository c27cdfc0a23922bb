package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/authgate/pkg/observability"
	"github.com/platinummonkey/authgate/pkg/session"
	"github.com/platinummonkey/authgate/pkg/storage"
	"github.com/platinummonkey/authgate/pkg/totp"
)

var (
	// ErrUserNotFound is returned when a login names an unknown user.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidPassword is returned when the password does not match.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUsernameTaken is returned when a registration races or repeats
	// an existing username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidSecondFactor is returned when the supplied code matches
	// neither the time-based secret nor an unused backup code.
	ErrInvalidSecondFactor = errors.New("invalid second factor code")
)

// Result is the outcome of a successful login or registration. When
// SecondFactorRequired is set no session was created; the caller must
// resubmit credentials together with a code.
type Result struct {
	User                 *storage.User
	Session              *session.Session
	SecondFactorRequired bool
}

// Flow drives logins, registrations, and password resets.
type Flow struct {
	store    storage.Storage
	sessions *session.Manager
	totp     *totp.Manager
	hasher   PasswordHasher
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewFlow creates an authentication flow controller. metrics may be nil.
func NewFlow(store storage.Storage, sessions *session.Manager, totpMgr *totp.Manager, hasher PasswordHasher, logger *observability.Logger, metrics *observability.Metrics) *Flow {
	return &Flow{
		store:    store,
		sessions: sessions,
		totp:     totpMgr,
		hasher:   hasher,
		logger:   logger,
		metrics:  metrics,
	}
}

// Login verifies credentials and, when the second factor allows it,
// issues a session. code may be empty on the first attempt.
func (f *Flow) Login(ctx context.Context, username, password, code string) (*Result, error) {
	user, err := f.store.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrUserNotFound) {
		f.countLogin("unknown_user")
		return nil, ErrUserNotFound
	}
	if err != nil {
		f.countLogin("error")
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !f.hasher.Verify(user.PasswordHash, password) {
		f.countLogin("bad_password")
		return nil, ErrInvalidPassword
	}

	verdict, err := f.totp.VerifyForLogin(ctx, user.ID, code)
	if err != nil {
		f.countLogin("error")
		return nil, err
	}
	switch verdict {
	case totp.LoginChallengeIssued:
		f.countLogin("challenge")
		return &Result{User: user, SecondFactorRequired: true}, nil
	case totp.LoginInvalid:
		f.countLogin("bad_code")
		return nil, ErrInvalidSecondFactor
	}

	sess, err := f.sessions.Create(ctx, user.ID)
	if err != nil {
		f.countLogin("error")
		return nil, err
	}

	f.countLogin("success")
	f.logger.WithUser(user.ID).Info("user logged in")
	return &Result{User: user, Session: sess}, nil
}

// Register creates a new non-admin user and logs them straight in.
// The store's uniqueness constraint backs the existence check, so a
// racing duplicate still surfaces as ErrUsernameTaken.
func (f *Flow) Register(ctx context.Context, username, password string) (*Result, error) {
	if _, err := f.store.GetUserByUsername(ctx, username); err == nil {
		f.countRegistration("taken")
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		f.countRegistration("error")
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := f.hasher.Hash(password)
	if err != nil {
		f.countRegistration("error")
		return nil, err
	}

	user, err := f.store.CreateUser(ctx, username, hash)
	if errors.Is(err, storage.ErrUsernameTaken) {
		f.countRegistration("taken")
		return nil, ErrUsernameTaken
	}
	if err != nil {
		f.countRegistration("error")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	sess, err := f.sessions.Create(ctx, user.ID)
	if err != nil {
		f.countRegistration("error")
		return nil, err
	}

	f.countRegistration("success")
	f.logger.WithUser(user.ID).Info("user registered")
	return &Result{User: user, Session: sess}, nil
}

// ResetPassword replaces the caller's password. An active second
// factor must be proven with the same rule as login; the current
// session stays valid.
func (f *Flow) ResetPassword(ctx context.Context, userID int64, newPassword, code string) error {
	verdict, err := f.totp.VerifyForLogin(ctx, userID, code)
	if err != nil {
		return err
	}
	if verdict == totp.LoginChallengeIssued || verdict == totp.LoginInvalid {
		return ErrInvalidSecondFactor
	}

	hash, err := f.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := f.store.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	f.logger.WithUser(userID).Info("password reset")
	return nil
}

func (f *Flow) countLogin(outcome string) {
	if f.metrics != nil {
		f.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (f *Flow) countRegistration(outcome string) {
	if f.metrics != nil {
		f.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}
