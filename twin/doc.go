// Package twin implements the encrypted-record lifecycle of the
// confidential telemetry twin: the append-only encrypted record store, the
// decryption request registry, the oracle callback handler, and the
// per-category encrypted aggregate counters.
//
// All state lives behind a single Ledger and every operation executes under
// one writer lock, reproducing the single sequential ledger the protocol was
// designed for: calls are atomic and totally ordered, and the only
// suspension point is between a reveal request and its asynchronous
// callback. A record whose callback never arrives stays in reveal-pending
// indefinitely; no expiry is defined.
package twin
