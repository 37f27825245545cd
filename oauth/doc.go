// Package oauth exchanges an OAuth2 authorization code for a provider
// identity.
//
// A [Provider] performs the code exchange with golang.org/x/oauth2 and reads
// the provider's userinfo document. Field extraction is driven by gjson paths
// so one implementation serves any provider that exposes a JSON userinfo
// endpoint. Every failure, whether transport, status or payload, wraps
// [ErrExchange].
//
// # What this package must NOT do
//
//   - Create or link local accounts. The engine owns that.
//   - Persist provider access tokens.
package oauth
