// Package api provides the HTTP API server for the authgate
// authentication gateway.
//
// # Overview
//
// This package implements the HTTP surface a browser client and an
// nginx auth_request subrequest talk to. It is built on gorilla/mux
// and organized into domain-specific handler groups:
//
//   - Authentication: login, registration, logout, session info,
//     password reset
//   - Second Factor: TOTP setup, confirmation, and removal
//   - Users: listing and deleting accounts
//   - Sites: registering gated sites and managing their members
//   - Gate: the /nginxauth subrequest endpoint the proxy branches on
//
// # Key Types
//
// Server is the main API server wiring all handler groups behind a
// session-resolving middleware:
//
//	server := api.NewServer(api.Deps{...})
//	http.ListenAndServe(":8080", server)
//
// All handlers answer JSON; errors use a stable status mapping so the
// proxy and the browser client can branch deterministically: 400 for
// malformed input (with per-field messages), 401 for credential and
// session failures, 403 for denied site access, 404 for unknown
// users/sites, 409 for conflicts, and a generic 500 when a backing
// store is unreachable.
package api
