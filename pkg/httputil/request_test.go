package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseJSON(t *testing.T) {
	var dest struct {
		Username string `json:"username"`
	}

	req := httptest.NewRequest("POST", "/api/login", strings.NewReader(`{"username":"alice"}`))
	if err := ParseJSON(req, &dest); err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	if dest.Username != "alice" {
		t.Errorf("username = %q, want alice", dest.Username)
	}

	req = httptest.NewRequest("POST", "/api/login", strings.NewReader(`{bad`))
	if err := ParseJSON(req, &dest); err == nil {
		t.Error("ParseJSON() should fail on malformed JSON")
	}
}

func TestSessionCookie(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/session", nil)
	if got := SessionCookie(req, "authgate_session"); got != "" {
		t.Errorf("SessionCookie() = %q, want empty for missing cookie", got)
	}

	req.AddCookie(&http.Cookie{Name: "authgate_session", Value: "abc123"})
	if got := SessionCookie(req, "authgate_session"); got != "abc123" {
		t.Errorf("SessionCookie() = %q, want abc123", got)
	}
}

func TestSubdomain(t *testing.T) {
	tests := []struct {
		name       string
		host       string
		forwarded  string
		rootDomain string
		want       string
	}{
		{name: "single subdomain", host: "billing.example.com", rootDomain: "example.com", want: "billing"},
		{name: "nested subdomain yields first label", host: "a.billing.example.com", rootDomain: "example.com", want: "a"},
		{name: "bare root domain", host: "example.com", rootDomain: "example.com", want: ""},
		{name: "unrelated host", host: "other.org", rootDomain: "example.com", want: ""},
		{name: "host with port", host: "billing.example.com:8080", rootDomain: "example.com", want: "billing"},
		{name: "forwarded host wins", host: "gateway.internal", forwarded: "billing.example.com", rootDomain: "example.com", want: "billing"},
		{name: "trailing dot", host: "billing.example.com.", rootDomain: "example.com", want: "billing"},
		{name: "empty root domain", host: "billing.example.com", rootDomain: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/nginxauth", nil)
			req.Host = tt.host
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-Host", tt.forwarded)
			}

			if got := Subdomain(req, tt.rootDomain); got != tt.want {
				t.Errorf("Subdomain() = %q, want %q", got, tt.want)
			}
		})
	}
}
