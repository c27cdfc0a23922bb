// Package httputil provides shared HTTP plumbing for the gateway's handlers.
//
// # Overview
//
// Response helpers write consistent JSON bodies for every status the API
// uses, including the field-level validation shape the browser client
// expects:
//
//	httputil.WriteFieldErrors(w, 400, map[string]string{"username": "too short"})
//	// -> {"error": {"username": "too short"}}
//
// Request helpers cover JSON decoding, session cookie extraction and
// subdomain parsing for the proxy check:
//
//	token := httputil.SessionCookie(r, "authgate_session")
//	sub := httputil.Subdomain(r, "example.com") // "billing" for billing.example.com
//
// Middleware provides request logging, panic recovery and request IDs,
// composed with Chain:
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.LoggingMiddleware(logger),
//	)(router)
package httputil
