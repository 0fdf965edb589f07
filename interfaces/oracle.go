package interfaces

import "context"

// DecryptionProof attests that a cleartext sequence is the correct
// decryption of a request's ciphertexts. It is a 65-byte secp256k1 signature
// (R || S || V) by the authorized decryption service over the keccak256 of
// the ABI-packed (requestID, handle IDs, cleartexts) tuple.
type DecryptionProof []byte

// DecryptionOracle is the external decryption capability. RequestDecryption
// is fire-and-forget: the result arrives later as a separate callback
// correlated by request ID, carrying the cleartexts and a proof.
type DecryptionOracle interface {
	RequestDecryption(ctx context.Context, id RequestID, ciphertexts []CiphertextHandle) error
}

// ProofVerifier checks a callback's proof before any state is mutated.
type ProofVerifier interface {
	// Verify returns nil only if proof attests cleartexts as the decryption
	// of ciphertexts for this request, signed by the authorized service.
	Verify(id RequestID, ciphertexts []CiphertextHandle, cleartexts []string, proof DecryptionProof) error
}

// HomomorphicEvaluator is the external capability that performs arithmetic
// on ciphertexts. The twin only ever asks for an encrypted zero and for
// plaintext additions; it never inspects the result.
type HomomorphicEvaluator interface {
	// EncryptUint64 produces a fresh ciphertext handle for a known value.
	// Used to initialize counters at zero.
	EncryptUint64(ctx context.Context, value uint64) (CiphertextHandle, error)

	// AddPlain homomorphically adds delta to the encrypted value behind ct
	// and returns the handle of the resulting ciphertext.
	AddPlain(ctx context.Context, ct CiphertextHandle, delta uint64) (CiphertextHandle, error)
}
