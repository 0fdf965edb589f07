package twin

import (
	"math"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
)

// requestRegistry maps freshly minted request IDs to their reveal targets.
// It is the single source of truth for whether a callback is expected and
// what it targets. Entries are single-use: lookup is non-destructive so a
// failed verification leaves the request pending, and consume retires the
// entry once the commit succeeds. Callers hold the ledger lock.
//
// Record reveals and counter reveals share one ID space. An engineered
// collision is not possible here since IDs are minted from one counter, but
// the shared space means callers cannot tell the target kind from the ID
// alone.
type requestRegistry struct {
	nextID  interfaces.RequestID
	pending map[interfaces.RequestID]*interfaces.DecryptionRequest
}

func newRequestRegistry() requestRegistry {
	return requestRegistry{
		nextID:  1,
		pending: make(map[interfaces.RequestID]*interfaces.DecryptionRequest),
	}
}

// mint registers a new outstanding request for the target.
func (r *requestRegistry) mint(target interfaces.RevealTarget, ciphertexts []interfaces.CiphertextHandle) (interfaces.RequestID, error) {
	if r.nextID == math.MaxUint64 {
		return 0, interfaces.ErrIDSpaceExhausted
	}

	id := r.nextID
	r.nextID++

	r.pending[id] = &interfaces.DecryptionRequest{
		ID:          id,
		Target:      target,
		Ciphertexts: ciphertexts,
	}
	return id, nil
}

// lookup returns the outstanding request without consuming it.
func (r *requestRegistry) lookup(id interfaces.RequestID) (*interfaces.DecryptionRequest, bool) {
	req, ok := r.pending[id]
	return req, ok
}

// consume retires a request after its callback committed.
func (r *requestRegistry) consume(id interfaces.RequestID) {
	delete(r.pending, id)
}

// outstandingFor reports whether any pending request targets the record.
func (r *requestRegistry) outstandingFor(recordID interfaces.RecordID) bool {
	for _, req := range r.pending {
		if req.Target.Kind == interfaces.TargetRecord && req.Target.RecordID == recordID {
			return true
		}
	}
	return false
}
