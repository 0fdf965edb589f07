package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
)

// Evaluator is a stand-in for the external homomorphic computation service.
// It mints fresh content-addressed handles deterministically from a seed via
// HKDF and tracks the plaintext value behind every counter handle it issued,
// so the local oracle can answer counter reveals. A production deployment
// replaces it with a client for the real FHE sidecar; the interface is the
// only contract the ledger sees.
type Evaluator struct {
	mu     sync.Mutex
	seed   []byte
	minted uint64
	values map[interfaces.HandleID]uint64
}

// NewEvaluator creates an evaluator from a seed of at least 16 bytes.
func NewEvaluator(seed []byte) (*Evaluator, error) {
	if len(seed) < 16 {
		return nil, errors.New("evaluator seed must be at least 16 bytes")
	}

	e := &Evaluator{
		values: make(map[interfaces.HandleID]uint64),
	}
	e.seed = make([]byte, len(seed))
	copy(e.seed, seed)
	return e, nil
}

// EncryptUint64 mints a fresh euint64 handle for value.
func (e *Evaluator) EncryptUint64(ctx context.Context, value uint64) (interfaces.CiphertextHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.mintHandleID()
	if err != nil {
		return interfaces.CiphertextHandle{}, err
	}

	e.values[id] = value
	return interfaces.CiphertextHandle{ID: id, Cap: interfaces.CapEncUint64}, nil
}

// AddPlain returns a fresh handle holding ct's value plus delta. The input
// handle must have been minted by this evaluator.
func (e *Evaluator) AddPlain(ctx context.Context, ct interfaces.CiphertextHandle, delta uint64) (interfaces.CiphertextHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, ok := e.values[ct.ID]
	if !ok {
		return interfaces.CiphertextHandle{}, fmt.Errorf("handle %s not minted by this evaluator", ct.ID)
	}

	id, err := e.mintHandleID()
	if err != nil {
		return interfaces.CiphertextHandle{}, err
	}

	e.values[id] = current + delta
	return interfaces.CiphertextHandle{ID: id, Cap: interfaces.CapEncUint64}, nil
}

// Value returns the plaintext behind a handle minted by this evaluator.
func (e *Evaluator) Value(id interfaces.HandleID) (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.values[id]
	return v, ok
}

// mintHandleID derives the next handle ID from the seed. Caller holds the
// lock.
func (e *Evaluator) mintHandleID() (interfaces.HandleID, error) {
	var info [8]byte
	binary.BigEndian.PutUint64(info[:], e.minted)
	e.minted++

	var id interfaces.HandleID
	r := hkdf.New(sha256.New, e.seed, nil, info[:])
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return interfaces.HandleID{}, fmt.Errorf("failed to derive handle ID: %w", err)
	}
	return id, nil
}
