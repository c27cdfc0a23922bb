// Package auth implements the credential flows: login, registration,
// and password reset.
//
// # Overview
//
// Passwords are bcrypt hashed. Login walks username lookup, password
// verification, and the second-factor rule in that order; a user with
// an active second factor who submits no code gets a challenge
// response instead of a session. Registration creates a non-admin
// user and logs them in immediately. Field validation for the HTTP
// surface also lives here so handlers and flows agree on the limits.
package auth
