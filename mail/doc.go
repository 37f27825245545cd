// Package mail delivers outbound email for the verification flow.
//
// A [Dispatcher] decouples the caller from delivery: [Dispatcher.Dispatch]
// enqueues without blocking and a single worker hands messages to a [Sender].
// Delivery failures are logged and counted, never returned to the caller.
//
// # What this package must NOT do
//
//   - Block or fail the operation that generated the message.
//   - Log message bodies unless explicitly configured to (they carry codes).
package mail
