package twin

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
)

// CompleteReveal processes an inbound oracle callback. The checks run in a
// fixed order and every failure leaves the ledger untouched:
//
//  1. the request ID must be outstanding (ErrUnknownRequest),
//  2. the target must not already be revealed (ErrAlreadyRevealed),
//  3. the proof must attest the cleartexts against the request's
//     ciphertexts (ErrInvalidProof),
//  4. the cleartext sequence must match the target's arity and type
//     (ErrMalformedCleartext).
//
// Only then does the commit happen: the decrypted projection is written, the
// request is consumed, and for a record target the revealed soil type is
// folded into its aggregate counter within the same critical section. The
// replay guard in step 2 makes the fold happen at most once per record.
func (l *Ledger) CompleteReveal(ctx context.Context, id interfaces.RequestID, cleartexts []string, proof interfaces.DecryptionProof) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	req, ok := l.requests.lookup(id)
	if !ok {
		return interfaces.ErrUnknownRequest
	}

	switch req.Target.Kind {
	case interfaces.TargetRecord:
		return l.completeRecordReveal(ctx, req, cleartexts, proof)
	case interfaces.TargetCounter:
		return l.completeCounterReveal(ctx, req, cleartexts, proof)
	default:
		return fmt.Errorf("%w: unsupported target", interfaces.ErrUnknownRequest)
	}
}

func (l *Ledger) completeRecordReveal(ctx context.Context, req *interfaces.DecryptionRequest, cleartexts []string, proof interfaces.DecryptionProof) error {
	recordID := req.Target.RecordID

	rec, ok := l.records.get(recordID)
	if !ok {
		return interfaces.ErrUnknownRequest
	}

	dec, _ := l.records.getDecrypted(recordID)
	if dec.Revealed {
		// Defense in depth against a replayed callback for the same request.
		return interfaces.ErrAlreadyRevealed
	}

	if err := l.verifier.Verify(req.ID, req.Ciphertexts, cleartexts, proof); err != nil {
		l.log.Warn("Rejected record reveal proof",
			"err", err,
			slog.Uint64("requestID", uint64(req.ID)),
			slog.Uint64("recordID", uint64(recordID)))
		return fmt.Errorf("%w: %v", interfaces.ErrInvalidProof, err)
	}

	if len(cleartexts) != len(req.Ciphertexts) {
		return fmt.Errorf("%w: got %d cleartexts, want %d",
			interfaces.ErrMalformedCleartext, len(cleartexts), len(req.Ciphertexts))
	}

	// Compute the counter fold before mutating anything: an evaluator
	// failure must leave the ledger untouched.
	category := interfaces.Category(cleartexts[interfaces.FieldSoilType])
	staged, err := l.counters.stageIncrement(ctx, l.evaluator, category)
	if err != nil {
		return fmt.Errorf("counter fold failed: %w", err)
	}

	// Commit point. Everything below is infallible.
	dec.Cleartext = make([]string, len(cleartexts))
	copy(dec.Cleartext, cleartexts)
	dec.Revealed = true
	rec.Status = interfaces.StatusRevealed
	l.counters.commit(staged)
	l.requests.consume(req.ID)

	l.log.Info("Record decrypted",
		slog.Uint64("recordID", uint64(recordID)),
		slog.Uint64("requestID", uint64(req.ID)),
		slog.String("category", string(category)))
	l.events.RecordDecrypted(recordID)

	return nil
}

func (l *Ledger) completeCounterReveal(ctx context.Context, req *interfaces.DecryptionRequest, cleartexts []string, proof interfaces.DecryptionProof) error {
	category, ok := l.counters.categoryByHash(req.Target.Category)
	if !ok {
		return interfaces.ErrUnknownCategory
	}

	if err := l.verifier.Verify(req.ID, req.Ciphertexts, cleartexts, proof); err != nil {
		l.log.Warn("Rejected counter reveal proof",
			"err", err,
			slog.Uint64("requestID", uint64(req.ID)),
			slog.String("category", string(category)))
		return fmt.Errorf("%w: %v", interfaces.ErrInvalidProof, err)
	}

	if len(cleartexts) != 1 {
		return fmt.Errorf("%w: got %d cleartexts, want 1",
			interfaces.ErrMalformedCleartext, len(cleartexts))
	}

	value, err := strconv.ParseUint(cleartexts[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: counter cleartext %q is not an unsigned integer",
			interfaces.ErrMalformedCleartext, cleartexts[0])
	}

	l.counters.commitReveal(category, value)
	l.requests.consume(req.ID)

	l.log.Info("Counter decrypted",
		slog.String("category", string(category)),
		slog.Uint64("value", value),
		slog.Uint64("requestID", uint64(req.ID)))
	l.events.CounterDecrypted(category)

	return nil
}
