// Package httpapi is the JSON-over-HTTP surface of authd.
//
// Every request body is decoded strictly: unknown fields, trailing data and
// bodies over 64 KiB are rejected before the engine is called. Credential,
// token and verification failures map to generic bodies so responses never
// reveal whether an account exists.
package httpapi
