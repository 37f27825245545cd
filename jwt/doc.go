// Package jwt issues and verifies the short-lived access tokens that carry an
// account id (uid) and session id (sid).
//
// Verification is stateless: signature, algorithm, expiry, issuer and
// audience are checked without touching any store. Failures are classified as
// [ErrExpired] or [ErrInvalid] so callers can map them without inspecting
// library error strings.
package jwt
