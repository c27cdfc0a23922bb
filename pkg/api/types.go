package api

// loginRequest is the body of POST /api/login. Code is empty on the
// first attempt and carries the second-factor code on resubmission.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code,omitempty"`
}

// registerRequest is the body of POST /api/register
type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse tells the client whether a second-factor code is
// still required. When TOTP is true no session cookie was set.
type loginResponse struct {
	TOTP bool `json:"totp"`
}

// sessionResponse is the body of GET /api/session
type sessionResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	TOTP     bool   `json:"totp"`
	IsAdmin  bool   `json:"isAdmin"`
}

// codeRequest carries a second-factor code
type codeRequest struct {
	Code string `json:"code"`
}

// passwordResetRequest is the body of POST /api/passwordreset
type passwordResetRequest struct {
	Password string `json:"password"`
	Code     string `json:"code,omitempty"`
}

// siteRequest names a site for creation or deletion
type siteRequest struct {
	Name string `json:"name"`
}

// membershipRequest connects or disconnects a user and a site
type membershipRequest struct {
	SiteName string `json:"siteName"`
	UserID   int64  `json:"userId"`
}

// deleteUserRequest is the body of DELETE /api/users
type deleteUserRequest struct {
	ID int64 `json:"id"`
}
