// Package totp manages the optional time-based one-time-password
// second factor.
//
// # Overview
//
// Each user is in one of three states read straight off the stored
// configuration: absent (no secret), pending (secret generated but
// never confirmed), or active (confirmed and enforced at login).
// Starting setup regenerates the whole batch of six single-use backup
// codes; confirming activates the factor; disabling deletes the
// configuration outright, so re-enabling means a full new setup cycle.
package totp
