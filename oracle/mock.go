package oracle

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
)

// MockOracle mocks the DecryptionOracle interface
type MockOracle struct {
	mock.Mock
}

// RequestDecryption mocks the RequestDecryption method
func (m *MockOracle) RequestDecryption(ctx context.Context, id interfaces.RequestID, ciphertexts []interfaces.CiphertextHandle) error {
	args := m.Called(ctx, id, ciphertexts)
	return args.Error(0)
}

// MockVerifier mocks the ProofVerifier interface
type MockVerifier struct {
	mock.Mock
}

// Verify mocks the Verify method
func (m *MockVerifier) Verify(id interfaces.RequestID, ciphertexts []interfaces.CiphertextHandle, cleartexts []string, proof interfaces.DecryptionProof) error {
	args := m.Called(id, ciphertexts, cleartexts, proof)
	return args.Error(0)
}

// MockEvaluator mocks the HomomorphicEvaluator interface
type MockEvaluator struct {
	mock.Mock
}

// EncryptUint64 mocks the EncryptUint64 method
func (m *MockEvaluator) EncryptUint64(ctx context.Context, value uint64) (interfaces.CiphertextHandle, error) {
	args := m.Called(ctx, value)
	return args.Get(0).(interfaces.CiphertextHandle), args.Error(1)
}

// AddPlain mocks the AddPlain method
func (m *MockEvaluator) AddPlain(ctx context.Context, ct interfaces.CiphertextHandle, delta uint64) (interfaces.CiphertextHandle, error) {
	args := m.Called(ctx, ct, delta)
	return args.Get(0).(interfaces.CiphertextHandle), args.Error(1)
}
