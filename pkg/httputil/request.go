package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ParseJSON decodes JSON from the request body into the destination
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes error response on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// SessionCookie returns the session token from the named cookie, or ""
// when the cookie is absent
func SessionCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Subdomain extracts the first host label of the request when the host
// carries more labels than the configured root domain. A request for
// "billing.example.com" against root domain "example.com" yields
// "billing"; a request for the bare root domain yields "".
func Subdomain(r *http.Request, rootDomain string) string {
	// nginx auth_request subrequests forward the original host here
	// when the proxy rewrites Host for the upstream.
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	host = strings.TrimSuffix(host, ".")
	rootDomain = strings.TrimSuffix(rootDomain, ".")

	if rootDomain == "" || !strings.HasSuffix(host, "."+rootDomain) {
		return ""
	}

	prefix := strings.TrimSuffix(host, "."+rootDomain)
	labels := strings.Split(prefix, ".")
	if len(labels) == 0 || labels[0] == "" {
		return ""
	}
	return labels[0]
}
