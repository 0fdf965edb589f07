package twin

import (
	"math"
	"time"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
)

// recordStore is the append-only table of encrypted records and their
// decrypted projections. Creation assigns the next ID; ciphertext fields are
// never overwritten afterwards. Callers hold the ledger lock.
type recordStore struct {
	nextID    interfaces.RecordID
	encrypted map[interfaces.RecordID]*interfaces.EncryptedRecord
	decrypted map[interfaces.RecordID]*interfaces.DecryptedRecord
}

func newRecordStore() recordStore {
	return recordStore{
		nextID:    1,
		encrypted: make(map[interfaces.RecordID]*interfaces.EncryptedRecord),
		decrypted: make(map[interfaces.RecordID]*interfaces.DecryptedRecord),
	}
}

// append stores a new sealed record together with its empty decrypted
// projection and returns it.
func (s *recordStore) append(fields [interfaces.RecordFieldCount]interfaces.CiphertextHandle, submittedAt time.Time) (*interfaces.EncryptedRecord, error) {
	if s.nextID == math.MaxUint64 {
		return nil, interfaces.ErrIDSpaceExhausted
	}

	id := s.nextID
	s.nextID++

	rec := &interfaces.EncryptedRecord{
		ID:          id,
		Fields:      fields,
		SubmittedAt: submittedAt,
		Status:      interfaces.StatusSealed,
	}
	s.encrypted[id] = rec
	s.decrypted[id] = &interfaces.DecryptedRecord{ID: id}

	return rec, nil
}

func (s *recordStore) get(id interfaces.RecordID) (*interfaces.EncryptedRecord, bool) {
	rec, ok := s.encrypted[id]
	return rec, ok
}

func (s *recordStore) getDecrypted(id interfaces.RecordID) (*interfaces.DecryptedRecord, bool) {
	dec, ok := s.decrypted[id]
	return dec, ok
}

func (s *recordStore) count() uint64 {
	return uint64(s.nextID - 1)
}
