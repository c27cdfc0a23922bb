package totp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/pquerna/otp/totp"

	"github.com/platinummonkey/authgate/pkg/observability"
	"github.com/platinummonkey/authgate/pkg/storage"
)

// backupCodeCount is the size of every backup-code batch.
const backupCodeCount = 6

// backupCodeBytes is the entropy of a backup code before hex encoding.
const backupCodeBytes = 16

var (
	// ErrAlreadyEnabled is returned when setup starts while the second
	// factor is already active.
	ErrAlreadyEnabled = errors.New("second factor already enabled")

	// ErrNotPending is returned when confirmation arrives without a
	// pending setup.
	ErrNotPending = errors.New("no pending second factor setup")

	// ErrNotActive is returned when disabling a second factor that is
	// not active.
	ErrNotActive = errors.New("second factor not enabled")

	// ErrInvalidCode is returned when neither the time-based code nor a
	// backup code matches.
	ErrInvalidCode = errors.New("invalid second factor code")
)

// State is a user's second-factor enrollment state.
type State int

const (
	// StateAbsent means no secret exists for the user.
	StateAbsent State = iota
	// StatePending means a secret exists but was never confirmed.
	StatePending
	// StateActive means the second factor is confirmed and enforced.
	StateActive
)

// LoginResult is the outcome of a second-factor check during login.
type LoginResult int

const (
	// LoginNotRequired means the user has no active second factor.
	LoginNotRequired LoginResult = iota
	// LoginChallengeIssued means a code is required but none was given.
	LoginChallengeIssued
	// LoginVerified means the supplied code was accepted.
	LoginVerified
	// LoginInvalid means the supplied code matched nothing.
	LoginInvalid
)

// Setup is the one-time material returned when setup (re)starts. The
// backup codes are not retrievable in plaintext afterwards.
type Setup struct {
	Secret      string   `json:"-"`
	URL         string   `json:"url"`
	BackupCodes []string `json:"backupCodes"`
}

// Manager drives the second-factor state machine against a Storage.
type Manager struct {
	store   storage.Storage
	issuer  string
	metrics *observability.Metrics
}

// NewManager creates a second-factor manager. metrics may be nil.
func NewManager(store storage.Storage, issuer string, metrics *observability.Metrics) *Manager {
	return &Manager{
		store:   store,
		issuer:  issuer,
		metrics: metrics,
	}
}

// State reads the user's enrollment state from the stored configuration.
func (m *Manager) State(ctx context.Context, userID int64) (State, error) {
	cfg, err := m.store.GetTOTP(ctx, userID)
	if errors.Is(err, storage.ErrTOTPNotFound) {
		return StateAbsent, nil
	}
	if err != nil {
		return StateAbsent, fmt.Errorf("failed to read totp state: %w", err)
	}
	if cfg.Enabled {
		return StateActive, nil
	}
	return StatePending, nil
}

// BeginSetup generates a fresh secret and a fresh backup-code batch,
// replacing any pending setup. The previous batch is invalidated even
// if this call later fails; a batch never outlives the setup attempt
// that created it.
func (m *Manager) BeginSetup(ctx context.Context, userID int64, username string) (*Setup, error) {
	state, err := m.State(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state == StateActive {
		return nil, ErrAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.issuer,
		AccountName: username,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	codes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}

	if err := m.store.ReplaceBackupCodes(ctx, userID, codes); err != nil {
		return nil, fmt.Errorf("failed to store backup codes: %w", err)
	}
	if err := m.store.UpsertTOTP(ctx, userID, key.Secret()); err != nil {
		return nil, fmt.Errorf("failed to store totp secret: %w", err)
	}

	return &Setup{
		Secret:      key.Secret(),
		URL:         key.URL(),
		BackupCodes: codes,
	}, nil
}

// ConfirmSetup validates a time-based code against the pending secret
// and activates the second factor.
func (m *Manager) ConfirmSetup(ctx context.Context, userID int64, code string) error {
	cfg, err := m.store.GetTOTP(ctx, userID)
	if errors.Is(err, storage.ErrTOTPNotFound) {
		return ErrNotPending
	}
	if err != nil {
		return fmt.Errorf("failed to read totp state: %w", err)
	}
	if cfg.Enabled {
		return ErrNotPending
	}

	if !m.validateCode(code, cfg.Secret) {
		return ErrInvalidCode
	}

	if err := m.store.EnableTOTP(ctx, userID); err != nil {
		return fmt.Errorf("failed to enable totp: %w", err)
	}
	return nil
}

// Disable removes the second factor entirely. Either a current
// time-based code or an unused backup code authorizes the removal; a
// matched backup code is consumed even though the whole factor goes
// away with it.
func (m *Manager) Disable(ctx context.Context, userID int64, code string) error {
	cfg, err := m.store.GetTOTP(ctx, userID)
	if errors.Is(err, storage.ErrTOTPNotFound) {
		return ErrNotActive
	}
	if err != nil {
		return fmt.Errorf("failed to read totp state: %w", err)
	}
	if !cfg.Enabled {
		return ErrNotActive
	}

	if !m.validateCode(code, cfg.Secret) {
		consumed, err := m.store.ConsumeBackupCode(ctx, userID, code)
		if err != nil {
			return fmt.Errorf("failed to check backup code: %w", err)
		}
		if !consumed {
			return ErrInvalidCode
		}
	}

	if err := m.store.DeleteTOTP(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete totp config: %w", err)
	}
	return nil
}

// VerifyForLogin applies the second-factor rule during login. The
// time-based code is checked first; a miss falls back to the backup
// codes, consuming the matched one.
func (m *Manager) VerifyForLogin(ctx context.Context, userID int64, code string) (LoginResult, error) {
	cfg, err := m.store.GetTOTP(ctx, userID)
	if errors.Is(err, storage.ErrTOTPNotFound) {
		return LoginNotRequired, nil
	}
	if err != nil {
		return LoginInvalid, fmt.Errorf("failed to read totp state: %w", err)
	}
	if !cfg.Enabled {
		return LoginNotRequired, nil
	}

	if code == "" {
		m.countCheck("challenge")
		return LoginChallengeIssued, nil
	}

	if m.validateCode(code, cfg.Secret) {
		m.countCheck("verified")
		return LoginVerified, nil
	}

	consumed, err := m.store.ConsumeBackupCode(ctx, userID, code)
	if err != nil {
		return LoginInvalid, fmt.Errorf("failed to check backup code: %w", err)
	}
	if consumed {
		m.countCheck("backup_code")
		return LoginVerified, nil
	}

	m.countCheck("invalid")
	return LoginInvalid, nil
}

// validateCode checks a 30-second-step code with one step of clock
// skew in either direction.
func (m *Manager) validateCode(code, secret string) bool {
	if code == "" {
		return false
	}
	return totp.Validate(code, secret)
}

func (m *Manager) countCheck(outcome string) {
	if m.metrics != nil {
		m.metrics.SecondFactorChecksTotal.WithLabelValues(outcome).Inc()
	}
}

// generateBackupCodes returns a fresh batch of single-use codes
func generateBackupCodes() ([]string, error) {
	codes := make([]string, 0, backupCodeCount)
	for i := 0; i < backupCodeCount; i++ {
		buf := make([]byte, backupCodeBytes)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		codes = append(codes, hex.EncodeToString(buf))
	}
	return codes, nil
}
