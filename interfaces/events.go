package interfaces

import "time"

// EventSink receives one-way notifications from the ledger. It is the entire
// contract the dashboard layer consumes; implementations must not call back
// into the ledger.
type EventSink interface {
	// RecordSubmitted fires when a new encrypted record is stored.
	RecordSubmitted(id RecordID, submittedAt time.Time)

	// RevealRequested fires when a decryption request is handed to the
	// oracle, for a record or a counter.
	RevealRequested(id RequestID, target RevealTarget)

	// RecordDecrypted fires after a record's cleartext is committed.
	RecordDecrypted(id RecordID)

	// CounterDecrypted fires after a counter's revealed value is committed.
	CounterDecrypted(category Category)
}
