package interfaces

import "errors"

var (
	// ErrUnknownRecord is returned when a record ID was never issued by the
	// store.
	ErrUnknownRecord = errors.New("unknown record")

	// ErrAlreadyRevealed is returned when a reveal is requested for a record
	// that is already revealed or has an outstanding reveal request, and when
	// a duplicate callback arrives for an already-revealed target.
	ErrAlreadyRevealed = errors.New("record already revealed")

	// ErrUnknownRequest is returned for a callback whose request ID was never
	// minted or was already consumed. Request entries are single-use.
	ErrUnknownRequest = errors.New("unknown decryption request")

	// ErrUnknownCategory is returned when a category has no initialized
	// aggregate counter.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrInvalidProof is returned when a callback's proof does not attest the
	// cleartexts against the request's ciphertexts, or is not signed by the
	// authorized decryption service. No state is mutated.
	ErrInvalidProof = errors.New("invalid decryption proof")

	// ErrMalformedCleartext is returned when a callback's cleartext sequence
	// does not match the target's arity or expected type. No state is
	// mutated.
	ErrMalformedCleartext = errors.New("malformed cleartext")

	// ErrIDSpaceExhausted is the fatal resource-exhaustion condition for the
	// record and request identifier spaces. Unreachable at realistic scale.
	ErrIDSpaceExhausted = errors.New("identifier space exhausted")
)
