package twin

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
)

// Authorizer decides whether a caller may invoke a state-changing operation.
// The source protocol ships an operator check that authorizes everyone; the
// default AllowAll keeps that behavior explicit rather than dropping the
// hook point.
type Authorizer interface {
	// Authorize returns nil if the caller may perform the named operation.
	Authorize(ctx context.Context, operation string) error
}

// AllowAll is the permissive default Authorizer.
type AllowAll struct{}

// Authorize always succeeds.
func (AllowAll) Authorize(ctx context.Context, operation string) error { return nil }

// Config carries the external capabilities a Ledger depends on.
type Config struct {
	// Oracle receives fire-and-forget decryption requests.
	Oracle interfaces.DecryptionOracle

	// Verifier checks callback proofs before any state mutation.
	Verifier interfaces.ProofVerifier

	// Evaluator performs the homomorphic counter arithmetic.
	Evaluator interfaces.HomomorphicEvaluator

	// Events receives one-way notifications. Optional; defaults to a slog
	// sink on Log.
	Events interfaces.EventSink

	// Authorizer gates state-changing calls. Optional; defaults to AllowAll.
	Authorizer Authorizer

	// Log is the structured logger. Optional; defaults to slog.Default().
	Log *slog.Logger

	// Now overrides the clock, for tests. Optional.
	Now func() time.Time
}

// Ledger owns all shared mutable state of the twin core: the record table,
// the request registry, and the aggregate counters. A single mutex
// serializes every operation.
type Ledger struct {
	mu sync.Mutex

	records  recordStore
	requests requestRegistry
	counters counterSet

	oracle     interfaces.DecryptionOracle
	verifier   interfaces.ProofVerifier
	evaluator  interfaces.HomomorphicEvaluator
	events     interfaces.EventSink
	authorizer Authorizer
	log        *slog.Logger
	now        func() time.Time
}

// NewLedger creates a ledger with empty stores.
func NewLedger(cfg Config) (*Ledger, error) {
	if cfg.Oracle == nil {
		return nil, errors.New("decryption oracle is required")
	}
	if cfg.Verifier == nil {
		return nil, errors.New("proof verifier is required")
	}
	if cfg.Evaluator == nil {
		return nil, errors.New("homomorphic evaluator is required")
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	events := cfg.Events
	if events == nil {
		events = NewSlogEventSink(log)
	}

	authorizer := cfg.Authorizer
	if authorizer == nil {
		authorizer = AllowAll{}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Ledger{
		records:    newRecordStore(),
		requests:   newRequestRegistry(),
		counters:   newCounterSet(),
		oracle:     cfg.Oracle,
		verifier:   cfg.Verifier,
		evaluator:  cfg.Evaluator,
		events:     events,
		authorizer: authorizer,
		log:        log,
		now:        now,
	}, nil
}

// SubmitRecord stores a new encrypted record with the given field handles
// and returns its ID. The record starts Sealed with an empty decrypted
// projection.
func (l *Ledger) SubmitRecord(ctx context.Context, fields [interfaces.RecordFieldCount]interfaces.CiphertextHandle) (interfaces.RecordID, error) {
	if err := l.authorizer.Authorize(ctx, "submit"); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.records.append(fields, l.now())
	if err != nil {
		return 0, err
	}

	l.log.Info("Record submitted",
		slog.Uint64("recordID", uint64(rec.ID)),
		slog.Time("submittedAt", rec.SubmittedAt))
	l.events.RecordSubmitted(rec.ID, rec.SubmittedAt)

	return rec.ID, nil
}

// RequestRecordReveal mints a decryption request for a sealed record and
// hands it to the oracle. A record with an outstanding or completed reveal
// is rejected with ErrAlreadyRevealed; only one request is ever registered
// per record.
func (l *Ledger) RequestRecordReveal(ctx context.Context, id interfaces.RecordID) (interfaces.RequestID, error) {
	if err := l.authorizer.Authorize(ctx, "reveal-record"); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records.get(id)
	if !ok {
		return 0, interfaces.ErrUnknownRecord
	}
	if rec.Status != interfaces.StatusSealed {
		return 0, interfaces.ErrAlreadyRevealed
	}

	ciphertexts := make([]interfaces.CiphertextHandle, interfaces.RecordFieldCount)
	copy(ciphertexts, rec.Fields[:])

	reqID, err := l.requests.mint(interfaces.RecordTarget(id), ciphertexts)
	if err != nil {
		return 0, err
	}

	rec.Status = interfaces.StatusRevealPending

	l.log.Info("Record reveal requested",
		slog.Uint64("recordID", uint64(id)),
		slog.Uint64("requestID", uint64(reqID)))
	l.events.RevealRequested(reqID, interfaces.RecordTarget(id))

	if err := l.oracle.RequestDecryption(ctx, reqID, ciphertexts); err != nil {
		// Fire-and-forget: the request stays pending, a later callback can
		// still complete it.
		l.log.Warn("Oracle request failed", "err", err, slog.Uint64("requestID", uint64(reqID)))
	}

	return reqID, nil
}

// RequestCounterReveal mints a decryption request for a category's running
// counter. The counter must already be initialized.
func (l *Ledger) RequestCounterReveal(ctx context.Context, category interfaces.Category) (interfaces.RequestID, error) {
	if err := l.authorizer.Authorize(ctx, "reveal-counter"); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	handle, ok := l.counters.handle(category)
	if !ok {
		return 0, interfaces.ErrUnknownCategory
	}

	ciphertexts := []interfaces.CiphertextHandle{handle}
	target := interfaces.CounterTarget(category.Hash())

	reqID, err := l.requests.mint(target, ciphertexts)
	if err != nil {
		return 0, err
	}

	l.log.Info("Counter reveal requested",
		slog.String("category", string(category)),
		slog.Uint64("requestID", uint64(reqID)))
	l.events.RevealRequested(reqID, target)

	if err := l.oracle.RequestDecryption(ctx, reqID, ciphertexts); err != nil {
		l.log.Warn("Oracle request failed", "err", err, slog.Uint64("requestID", uint64(reqID)))
	}

	return reqID, nil
}

// GetRecord returns a copy of the encrypted record.
func (l *Ledger) GetRecord(id interfaces.RecordID) (interfaces.EncryptedRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records.get(id)
	if !ok {
		return interfaces.EncryptedRecord{}, interfaces.ErrUnknownRecord
	}
	return *rec, nil
}

// GetDecryptedRecord returns the revealed projection of a record. Before the
// reveal completes it returns an empty cleartext sequence and false.
func (l *Ledger) GetDecryptedRecord(id interfaces.RecordID) ([]string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dec, ok := l.records.getDecrypted(id)
	if !ok {
		return nil, false, interfaces.ErrUnknownRecord
	}

	cleartext := make([]string, len(dec.Cleartext))
	copy(cleartext, dec.Cleartext)
	return cleartext, dec.Revealed, nil
}

// GetCounterHandle returns the still-encrypted running counter for a
// category. Safe to call at any time.
func (l *Ledger) GetCounterHandle(category interfaces.Category) (interfaces.CiphertextHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	handle, ok := l.counters.handle(category)
	if !ok {
		return interfaces.CiphertextHandle{}, interfaces.ErrUnknownCategory
	}
	return handle, nil
}

// GetRevealedCount returns the last revealed value of a category's counter
// and whether any reveal has completed. The running counter may have moved
// on since; a later reveal reports the newer value.
func (l *Ledger) GetRevealedCount(category interfaces.Category) (uint64, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.counters.handle(category); !ok {
		return 0, false, interfaces.ErrUnknownCategory
	}

	value, revealed := l.counters.revealedValue(category)
	return value, revealed, nil
}

// Categories returns the known category keys in first-seen order.
func (l *Ledger) Categories() []interfaces.Category {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.counters.categories()
}

// HasOutstandingRequest reports whether a decryption request is pending for
// the record.
func (l *Ledger) HasOutstandingRequest(id interfaces.RecordID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.requests.outstandingFor(id)
}

// RecordCount returns the number of records submitted so far.
func (l *Ledger) RecordCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.records.count()
}
