package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStorage is an in-memory Storage implementation. It backs unit
// tests and local development runs; production deployments use the
// postgres implementation.
type MemoryStorage struct {
	mu sync.RWMutex

	nextUserID int64
	nextSiteID int64

	users       map[int64]*User
	usersByName map[string]int64

	totp        map[int64]*TOTPConfig
	backupCodes map[int64]map[string]struct{}

	sites       map[string]*siteRecord
	siteMembers map[string]map[int64]struct{}
}

type siteRecord struct {
	id   int64
	name string
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		nextUserID:  1,
		nextSiteID:  1,
		users:       make(map[int64]*User),
		usersByName: make(map[string]int64),
		totp:        make(map[int64]*TOTPConfig),
		backupCodes: make(map[int64]map[string]struct{}),
		sites:       make(map[string]*siteRecord),
		siteMembers: make(map[string]map[int64]struct{}),
	}
}

// CreateUser creates a user with the next free id
func (s *MemoryStorage) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByName[username]; exists {
		return nil, ErrUsernameTaken
	}

	user := &User{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
	}
	s.nextUserID++
	s.users[user.ID] = user
	s.usersByName[username] = user.ID

	copied := *user
	return &copied, nil
}

// GetUser returns the user with the given id
func (s *MemoryStorage) GetUser(ctx context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// GetUserByUsername returns the user with the given username
func (s *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByName[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *s.users[id]
	return &copied, nil
}

// ListUsers returns all users ordered by id
func (s *MemoryStorage) ListUsers(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*User, 0, len(s.users))
	for _, user := range s.users {
		copied := *user
		users = append(users, &copied)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// DeleteUser removes a user and its second-factor state. Live sessions
// referencing the id are left to lazy invalidation.
func (s *MemoryStorage) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}

	delete(s.usersByName, user.Username)
	delete(s.users, id)
	delete(s.totp, id)
	delete(s.backupCodes, id)
	for _, members := range s.siteMembers {
		delete(members, id)
	}
	return nil
}

// UpdatePassword replaces the stored password hash
func (s *MemoryStorage) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

// SetAdmin flags or unflags a user as admin. Exposed for seeding and
// tests; the HTTP surface has no admin-promotion endpoint.
func (s *MemoryStorage) SetAdmin(ctx context.Context, id int64, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Admin = admin
	return nil
}

// GetTOTP returns the second-factor configuration for a user
func (s *MemoryStorage) GetTOTP(ctx context.Context, userID int64) (*TOTPConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.totp[userID]
	if !ok {
		return nil, ErrTOTPNotFound
	}
	copied := *cfg
	return &copied, nil
}

// UpsertTOTP writes a fresh, unconfirmed secret for the user
func (s *MemoryStorage) UpsertTOTP(ctx context.Context, userID int64, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return ErrUserNotFound
	}
	s.totp[userID] = &TOTPConfig{UserID: userID, Secret: secret, Enabled: false}
	return nil
}

// EnableTOTP marks the user's configuration as confirmed
func (s *MemoryStorage) EnableTOTP(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.totp[userID]
	if !ok {
		return ErrTOTPNotFound
	}
	cfg.Enabled = true
	return nil
}

// DeleteTOTP removes the user's configuration entirely
func (s *MemoryStorage) DeleteTOTP(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.totp, userID)
	return nil
}

// ReplaceBackupCodes swaps the user's whole backup-code batch
func (s *MemoryStorage) ReplaceBackupCodes(ctx context.Context, userID int64, codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		batch[code] = struct{}{}
	}
	s.backupCodes[userID] = batch
	return nil
}

// ConsumeBackupCode removes the matched code and reports whether one
// was consumed
func (s *MemoryStorage) ConsumeBackupCode(ctx context.Context, userID int64, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, ok := s.backupCodes[userID]
	if !ok {
		return false, nil
	}
	if _, ok := batch[code]; !ok {
		return false, nil
	}
	delete(batch, code)
	return true, nil
}

// CreateSite registers a new site name
func (s *MemoryStorage) CreateSite(ctx context.Context, name string) (*Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sites[name]; exists {
		return nil, ErrSiteExists
	}

	rec := &siteRecord{id: s.nextSiteID, name: name}
	s.nextSiteID++
	s.sites[name] = rec
	s.siteMembers[name] = make(map[int64]struct{})

	return &Site{ID: rec.id, Name: rec.name, Members: []Member{}}, nil
}

// GetSite returns a site with its members
func (s *MemoryStorage) GetSite(ctx context.Context, name string) (*Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sites[name]
	if !ok {
		return nil, ErrSiteNotFound
	}
	return s.siteLocked(rec), nil
}

func (s *MemoryStorage) siteLocked(rec *siteRecord) *Site {
	site := &Site{ID: rec.id, Name: rec.name, Members: []Member{}}
	for userID := range s.siteMembers[rec.name] {
		if user, ok := s.users[userID]; ok {
			site.Members = append(site.Members, Member{ID: user.ID, Username: user.Username})
		}
	}
	sort.Slice(site.Members, func(i, j int) bool { return site.Members[i].ID < site.Members[j].ID })
	return site
}

// ListSites returns all sites with their members, ordered by id
func (s *MemoryStorage) ListSites(ctx context.Context) ([]*Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sites := make([]*Site, 0, len(s.sites))
	for _, rec := range s.sites {
		sites = append(sites, s.siteLocked(rec))
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].ID < sites[j].ID })
	return sites, nil
}

// DeleteSite removes a site and its memberships
func (s *MemoryStorage) DeleteSite(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sites[name]; !ok {
		return ErrSiteNotFound
	}
	delete(s.sites, name)
	delete(s.siteMembers, name)
	return nil
}

// AddSiteMember connects a user to a site
func (s *MemoryStorage) AddSiteMember(ctx context.Context, siteName string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sites[siteName]; !ok {
		return ErrSiteNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return ErrUserNotFound
	}
	s.siteMembers[siteName][userID] = struct{}{}
	return nil
}

// RemoveSiteMember disconnects a user from a site
func (s *MemoryStorage) RemoveSiteMember(ctx context.Context, siteName string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sites[siteName]; !ok {
		return ErrSiteNotFound
	}
	delete(s.siteMembers[siteName], userID)
	return nil
}

// IsSiteMember reports whether the user is a member of the site. A
// missing site is simply a non-membership.
func (s *MemoryStorage) IsSiteMember(ctx context.Context, siteName string, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, member := s.siteMembers[siteName][userID]
	return member, nil
}

// HealthCheck always succeeds for the in-memory store
func (s *MemoryStorage) HealthCheck(ctx context.Context) error {
	return nil
}
