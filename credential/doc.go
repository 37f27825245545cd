// Package credential defines the durable records owned by the authentication
// engine (accounts, provider links and refresh credentials) and the store
// contracts that persist them.
//
// # Architecture boundaries
//
// credential is a leaf package: it must not import the root authcore package
// or any concrete store. Implementations live under store/ (postgres, bolt)
// and are injected into the engine through the Builder.
//
// # Atomicity contract
//
// Every mutation of a RefreshCredential is a single conditional operation
// (compare-and-invalidate). Implementations must never express Rotate or
// Revoke as a read followed by an unconditional write.
package credential
