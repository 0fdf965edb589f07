package oracle

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
)

// CallbackSink receives resolved reveals. The ledger implements it.
type CallbackSink interface {
	CompleteReveal(ctx context.Context, id interfaces.RequestID, cleartexts []string, proof interfaces.DecryptionProof) error
}

// LocalOracle is an in-process decryption service for development and tests.
// It records requests, produces cleartexts (counter handles through the
// evaluator's plaintext table, record fields from the blob store, where the
// local scheme stores payloads as-is), signs a proof with its secp256k1 key
// and delivers the callback through the sink.
//
// Delivery is decoupled from the request: with auto-resolve enabled each
// request is resolved in the background, otherwise Resolve and ResolveAll
// drive it explicitly, which lets tests reorder, delay or drop callbacks.
type LocalOracle struct {
	mu      sync.Mutex
	key     *ecdsa.PrivateKey
	eval    *Evaluator
	blobs   interfaces.BlobStore
	log     *slog.Logger
	sink    CallbackSink
	auto    bool
	pending map[interfaces.RequestID][]interfaces.CiphertextHandle
}

// NewLocalOracle creates a local oracle signing with key.
func NewLocalOracle(key *ecdsa.PrivateKey, eval *Evaluator, blobs interfaces.BlobStore, log *slog.Logger) *LocalOracle {
	return &LocalOracle{
		key:     key,
		eval:    eval,
		blobs:   blobs,
		log:     log,
		pending: make(map[interfaces.RequestID][]interfaces.CiphertextHandle),
	}
}

// SignerAddress returns the address callbacks are signed under. The
// verifier must be configured to trust it.
func (o *LocalOracle) SignerAddress() common.Address {
	return crypto.PubkeyToAddress(o.key.PublicKey)
}

// SetCallbackSink wires the delivery target. Must be called before any
// request is resolved; separate from the constructor because the ledger and
// the oracle reference each other.
func (o *LocalOracle) SetCallbackSink(sink CallbackSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sink = sink
}

// SetAutoResolve toggles background resolution of incoming requests.
func (o *LocalOracle) SetAutoResolve(auto bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.auto = auto
}

// RequestDecryption implements interfaces.DecryptionOracle. It never
// blocks on the result; the caller holds the ledger lock.
func (o *LocalOracle) RequestDecryption(ctx context.Context, id interfaces.RequestID, ciphertexts []interfaces.CiphertextHandle) error {
	o.mu.Lock()
	cts := make([]interfaces.CiphertextHandle, len(ciphertexts))
	copy(cts, ciphertexts)
	o.pending[id] = cts
	auto := o.auto && o.sink != nil
	o.mu.Unlock()

	if auto {
		go func() {
			if err := o.Resolve(context.Background(), id); err != nil {
				o.log.Warn("Background reveal resolution failed", "err", err,
					slog.Uint64("requestID", uint64(id)))
			}
		}()
	}
	return nil
}

// Pending returns the request IDs awaiting resolution, ascending.
func (o *LocalOracle) Pending() []interfaces.RequestID {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]interfaces.RequestID, 0, len(o.pending))
	for id := range o.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Drop discards a pending request without delivering a callback, leaving
// its target reveal-pending forever. Test hook for the stuck-callback gap.
func (o *LocalOracle) Drop(id interfaces.RequestID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.pending, id)
}

// Resolve decrypts a pending request, signs the proof and delivers the
// callback. The pending entry is retired only if the sink accepts it.
func (o *LocalOracle) Resolve(ctx context.Context, id interfaces.RequestID) error {
	o.mu.Lock()
	ciphertexts, ok := o.pending[id]
	sink := o.sink
	o.mu.Unlock()

	if !ok {
		return fmt.Errorf("no pending request %d", id)
	}
	if sink == nil {
		return fmt.Errorf("no callback sink configured")
	}

	cleartexts, err := o.decrypt(ctx, ciphertexts)
	if err != nil {
		return fmt.Errorf("failed to decrypt request %d: %w", id, err)
	}

	digest, err := ProofDigest(id, ciphertexts, cleartexts)
	if err != nil {
		return err
	}

	proof, err := crypto.Sign(digest[:], o.key)
	if err != nil {
		return fmt.Errorf("failed to sign proof: %w", err)
	}

	if err := sink.CompleteReveal(ctx, id, cleartexts, proof); err != nil {
		return fmt.Errorf("callback rejected for request %d: %w", id, err)
	}

	o.mu.Lock()
	delete(o.pending, id)
	o.mu.Unlock()

	o.log.Debug("Resolved decryption request", slog.Uint64("requestID", uint64(id)))
	return nil
}

// ResolveAll resolves every pending request in ID order, stopping at the
// first failure.
func (o *LocalOracle) ResolveAll(ctx context.Context) error {
	for _, id := range o.Pending() {
		if err := o.Resolve(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// decrypt produces the cleartext sequence for a request's ciphertexts.
func (o *LocalOracle) decrypt(ctx context.Context, ciphertexts []interfaces.CiphertextHandle) ([]string, error) {
	cleartexts := make([]string, len(ciphertexts))
	for i, ct := range ciphertexts {
		if value, ok := o.eval.Value(ct.ID); ok {
			cleartexts[i] = strconv.FormatUint(value, 10)
			continue
		}

		if o.blobs == nil {
			return nil, fmt.Errorf("handle %s unknown and no blob store configured", ct.ID)
		}
		payload, err := o.blobs.Fetch(ctx, ct.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch ciphertext %s: %w", ct.ID, err)
		}
		cleartexts[i] = string(payload)
	}
	return cleartexts, nil
}
