package storage

// User is a registered account. PasswordHash is opaque to everything
// except the credential verifier.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Admin        bool   `json:"admin"`
}

// TOTPConfig is a user's second-factor configuration. A row with
// Enabled=false is a setup in progress; a missing row means the second
// factor is absent entirely.
type TOTPConfig struct {
	UserID  int64
	Secret  string
	Enabled bool
}

// Member is the user summary embedded in site listings
type Member struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Site is an administrator-registered subdomain with its authorized
// members
type Site struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Members []Member `json:"users"`
}
