package auth

import "regexp"

// Field length limits for credentials.
const (
	usernameMinLen = 3
	usernameMaxLen = 16
	passwordMinLen = 3
	passwordMaxLen = 128
)

// siteNamePattern constrains site names to what can appear as a
// subdomain label handed over by the proxy.
var siteNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// FieldErrors maps request field names to human-readable problems.
type FieldErrors map[string]string

// ValidateCredentials checks a username/password pair and returns the
// per-field problems, or nil when both are acceptable.
func ValidateCredentials(username, password string) FieldErrors {
	errs := FieldErrors{}
	if msg := usernameProblem(username); msg != "" {
		errs["username"] = msg
	}
	if msg := passwordProblem(password); msg != "" {
		errs["password"] = msg
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidatePassword checks a single password, for password resets.
func ValidatePassword(password string) FieldErrors {
	if msg := passwordProblem(password); msg != "" {
		return FieldErrors{"password": msg}
	}
	return nil
}

// ValidateSiteName checks a site name against the subdomain label
// shape, or returns the per-field problem.
func ValidateSiteName(name string) FieldErrors {
	if !siteNamePattern.MatchString(name) {
		return FieldErrors{"name": "must contain only letters, digits, and underscores"}
	}
	return nil
}

func usernameProblem(username string) string {
	if len(username) < usernameMinLen {
		return "must be at least 3 characters"
	}
	if len(username) > usernameMaxLen {
		return "must be at most 16 characters"
	}
	return ""
}

func passwordProblem(password string) string {
	if len(password) < passwordMinLen {
		return "must be at least 3 characters"
	}
	if len(password) > passwordMaxLen {
		return "must be at most 128 characters"
	}
	return ""
}
