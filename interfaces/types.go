package interfaces

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// HandleID is the 32-byte content identifier of a ciphertext. The twin never
// decodes the ciphertext it points at.
type HandleID [32]byte

// NewHandleIDFromBytes creates a handle ID from a raw 32-byte slice.
func NewHandleIDFromBytes(source []byte) (HandleID, error) {
	if len(source) != 32 {
		return HandleID{}, errors.New("invalid handle ID: must be 32 bytes")
	}

	var id HandleID
	copy(id[:], source)
	return id, nil
}

// NewHandleIDFromHex creates a handle ID from a hex string, with or without
// a 0x prefix.
func NewHandleIDFromHex(source string) (HandleID, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return HandleID{}, errors.New("invalid handle ID length: hex string must be 64 characters")
	}

	idBytes, err := hex.DecodeString(clean)
	if err != nil {
		return HandleID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var id HandleID
	copy(id[:], idBytes)
	return id, nil
}

// ComputeHandleID calculates the content-addressed handle ID for a
// ciphertext payload.
func ComputeHandleID(payload []byte) HandleID {
	return HandleID(sha256.Sum256(payload))
}

// String returns the hex representation.
func (id HandleID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 32-byte identifier.
func (id HandleID) Bytes() []byte {
	return id[:]
}

// Equal compares two handle IDs.
func (id HandleID) Equal(other HandleID) bool {
	return bytes.Equal(id[:], other[:])
}

// Capability tags what kind of encrypted value a handle refers to. It is
// metadata for the oracle and evaluator, never trusted for decoding.
type Capability int

const (
	// CapEncUint64 for encrypted unsigned integers (counters).
	CapEncUint64 Capability = iota
	// CapEncDecimal for encrypted fixed-point sensor readings.
	CapEncDecimal
	// CapEncString for encrypted short strings (soil type).
	CapEncString
)

// String returns the capability name.
func (c Capability) String() string {
	switch c {
	case CapEncUint64:
		return "euint64"
	case CapEncDecimal:
		return "edecimal"
	case CapEncString:
		return "estring"
	default:
		return "unknown"
	}
}

// CapabilityFromString parses a capability name.
func CapabilityFromString(s string) (Capability, error) {
	switch s {
	case "euint64":
		return CapEncUint64, nil
	case "edecimal":
		return CapEncDecimal, nil
	case "estring":
		return CapEncString, nil
	default:
		return 0, fmt.Errorf("unknown capability: %q", s)
	}
}

// CiphertextHandle is an opaque reference to an encrypted value: a
// content-addressed identifier plus a capability tag. Immutable once created.
type CiphertextHandle struct {
	ID  HandleID
	Cap Capability
}

// String returns "capability:hex" for logging.
func (h CiphertextHandle) String() string {
	return h.Cap.String() + ":" + h.ID.String()
}

// Equal compares two handles.
func (h CiphertextHandle) Equal(other CiphertextHandle) bool {
	return h.Cap == other.Cap && h.ID.Equal(other.ID)
}

// RecordID identifies an encrypted telemetry record. IDs are assigned by the
// record store starting at 1; 0 is reserved and never valid.
type RecordID uint64

// RequestID identifies an outstanding decryption request. The space is
// shared between record reveals and counter reveals.
type RequestID uint64

// Category is an opaque aggregate counter key, for example a soil type. No
// normalization is performed: two differently-cased strings are different
// categories.
type Category string

// CategoryHash is the keccak256 digest of a category key, used as the
// correlation key on the counter reveal path.
type CategoryHash [32]byte

// Hash returns the keccak256 digest of the category key.
func (c Category) Hash() CategoryHash {
	return CategoryHash(crypto.Keccak256Hash([]byte(c)))
}

// String returns the hex representation of the digest.
func (h CategoryHash) String() string {
	return hex.EncodeToString(h[:])
}

// RecordStatus tracks the reveal lifecycle of an encrypted record.
// Transitions only ever move forward: Sealed -> RevealPending -> Revealed.
type RecordStatus int

const (
	// StatusSealed means no reveal has been requested.
	StatusSealed RecordStatus = iota
	// StatusRevealPending means a decryption request is outstanding.
	StatusRevealPending
	// StatusRevealed is terminal.
	StatusRevealed
)

// String returns the status name.
func (s RecordStatus) String() string {
	switch s {
	case StatusSealed:
		return "sealed"
	case StatusRevealPending:
		return "reveal-pending"
	case StatusRevealed:
		return "revealed"
	default:
		return "unknown"
	}
}

// The fixed field ordering of a telemetry record. Cleartext sequences
// delivered by the oracle use the same ordering.
const (
	FieldPosition = 0
	FieldTorque   = 1
	FieldSpeed    = 2
	FieldSoilType = 3

	// RecordFieldCount is the arity of every record.
	RecordFieldCount = 4
)

// EncryptedRecord holds one submission's ciphertext handles. Fields are
// assigned exactly once, at creation, and never overwritten.
type EncryptedRecord struct {
	ID          RecordID
	Fields      [RecordFieldCount]CiphertextHandle
	SubmittedAt time.Time
	Status      RecordStatus
}

// DecryptedRecord is the revealed projection of an EncryptedRecord. It is
// created empty alongside the record and populated exactly once by the
// oracle callback handler. Revealed is monotonic: false to true, never back.
type DecryptedRecord struct {
	ID        RecordID
	Cleartext []string
	Revealed  bool
}

// TargetKind discriminates the reveal target union.
type TargetKind int

const (
	// TargetRecord reveals a full telemetry record.
	TargetRecord TargetKind = iota
	// TargetCounter reveals an aggregate counter.
	TargetCounter
)

// RevealTarget is the tagged union a decryption request points at: either a
// record by ID or an aggregate counter by category hash.
type RevealTarget struct {
	Kind     TargetKind
	RecordID RecordID
	Category CategoryHash
}

// RecordTarget builds a target for a record reveal.
func RecordTarget(id RecordID) RevealTarget {
	return RevealTarget{Kind: TargetRecord, RecordID: id}
}

// CounterTarget builds a target for a counter reveal.
func CounterTarget(hash CategoryHash) RevealTarget {
	return RevealTarget{Kind: TargetCounter, Category: hash}
}

// String returns a log-friendly description of the target.
func (t RevealTarget) String() string {
	switch t.Kind {
	case TargetRecord:
		return fmt.Sprintf("record/%d", t.RecordID)
	case TargetCounter:
		return "counter/" + t.Category.String()
	default:
		return "unknown"
	}
}

// DecryptionRequest correlates an outstanding oracle request with its
// target. An entry is single-use: it is consumed by the first callback that
// passes verification.
type DecryptionRequest struct {
	ID          RequestID
	Target      RevealTarget
	Ciphertexts []CiphertextHandle
}
