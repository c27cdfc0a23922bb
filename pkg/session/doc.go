// Package session issues and resolves browser sessions backed by
// Redis.
//
// # Overview
//
// A session is a hash at "session:<token>" whose "user" field holds
// the owner's user id, expiring after a fixed lifetime. Tokens are
// 256-bit random values, hex encoded, re-rolled on the vanishingly
// rare collision with a live record. Sessions are not renewed on
// activity; the Redis expiry is the only sweeper, so logout and
// natural expiry are the two ways a session ends.
package session
