// Package rate provides the Redis-backed fixed-window limiter applied in front
// of sensitive authentication operations.
//
// # Window semantics
//
// Each (scope, key) pair owns one counter at <prefix>:<scope>:<key>, where
// the prefix defaults to "rl". A Lua script increments it and sets the window
// expiry on the first hit in the same round trip, so a counter can never be
// left without a TTL. The window resets when the key expires.
//
// Scopes:
//   - login       — password login, keyed by client IP and by identifier
//   - register    — account creation, keyed by client IP
//   - refresh     — refresh rotation, keyed by client IP
//   - otp         — verification code submission, keyed by account
//   - otp_request — verification code issuance, keyed by account
//
// # What this package must NOT do
//
//   - Decide what a key identifies (callers pick IP, identifier or account).
//   - Be imported outside the authcore module.
package rate
