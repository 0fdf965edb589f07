package oracle

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
)

// ProofDigest computes the hash a decryption proof signs: the keccak256 of
// the ABI-packed (requestID, handle IDs, cleartexts) tuple. Both the signing
// oracle and the verifier must agree on this encoding.
func ProofDigest(id interfaces.RequestID, ciphertexts []interfaces.CiphertextHandle, cleartexts []string) ([32]byte, error) {
	uint256Ty, _ := abi.NewType("uint256", "", nil)
	bytes32ArrTy, _ := abi.NewType("bytes32[]", "", nil)
	stringArrTy, _ := abi.NewType("string[]", "", nil)

	arguments := abi.Arguments{
		{Type: uint256Ty},
		{Type: bytes32ArrTy},
		{Type: stringArrTy},
	}

	handleIDs := make([][32]byte, len(ciphertexts))
	for i, ct := range ciphertexts {
		handleIDs[i] = ct.ID
	}

	packed, err := arguments.Pack(new(big.Int).SetUint64(uint64(id)), handleIDs, cleartexts)
	if err != nil {
		return [32]byte{}, err
	}
	return crypto.Keccak256Hash(packed), nil
}

// Verifier checks decryption proofs against the authorized decryption
// service's address. It recovers the signer from the 65-byte signature and
// compares addresses; any mismatch is rejected.
type Verifier struct {
	signer common.Address
}

// NewVerifier creates a verifier trusting the given signer address.
func NewVerifier(signer common.Address) *Verifier {
	return &Verifier{signer: signer}
}

// NewVerifierFromHex creates a verifier from a hex-encoded signer address.
func NewVerifierFromHex(signerHex string) (*Verifier, error) {
	if !common.IsHexAddress(signerHex) {
		return nil, fmt.Errorf("invalid signer address: %s", signerHex)
	}
	return NewVerifier(common.HexToAddress(signerHex)), nil
}

// Signer returns the trusted address.
func (v *Verifier) Signer() common.Address {
	return v.signer
}

// Verify implements interfaces.ProofVerifier.
func (v *Verifier) Verify(id interfaces.RequestID, ciphertexts []interfaces.CiphertextHandle, cleartexts []string, proof interfaces.DecryptionProof) error {
	if len(proof) != crypto.SignatureLength {
		return fmt.Errorf("proof must be %d bytes, got %d", crypto.SignatureLength, len(proof))
	}

	digest, err := ProofDigest(id, ciphertexts, cleartexts)
	if err != nil {
		return fmt.Errorf("failed to compute proof digest: %w", err)
	}

	pubkey, err := crypto.SigToPub(digest[:], proof)
	if err != nil {
		return fmt.Errorf("failed to recover signer: %w", err)
	}

	if crypto.PubkeyToAddress(*pubkey) != v.signer {
		return errors.New("proof not signed by the authorized decryption service")
	}
	return nil
}
