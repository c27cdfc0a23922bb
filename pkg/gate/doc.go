// Package gate decides, per proxy subrequest, whether a session may
// reach a subdomain.
package gate
