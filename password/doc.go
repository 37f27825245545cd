// Package password implements password hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// If a stored hash was produced with weaker parameters, [Hasher.NeedsUpgrade]
// returns true so the caller can re-hash after the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing, verification and the byte-length bounds on
// plaintext. It never sees accounts.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other authcore package.
//   - Log plaintext passwords.
package password
