package api

import (
	"net/http"
	"time"
)

// cookieWriter sets and clears the session cookie with the domain
// scope the proxy relies on: "." + root domain so every gated
// subdomain sends it back.
type cookieWriter struct {
	name       string
	rootDomain string
	ttl        time.Duration
}

// set attaches a session cookie whose max-age mirrors the store-side
// expiry
func (c *cookieWriter) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Domain:   "." + c.rootDomain,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
	})
}

// clear expires the session cookie immediately
func (c *cookieWriter) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Domain:   "." + c.rootDomain,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
