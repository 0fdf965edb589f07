package oracle

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/storage"
)

type sinkCall struct {
	id         interfaces.RequestID
	cleartexts []string
	proof      interfaces.DecryptionProof
}

type captureSink struct {
	calls []sinkCall
	fail  error
}

func (s *captureSink) CompleteReveal(ctx context.Context, id interfaces.RequestID, cleartexts []string, proof interfaces.DecryptionProof) error {
	if s.fail != nil {
		return s.fail
	}
	s.calls = append(s.calls, sinkCall{id: id, cleartexts: cleartexts, proof: proof})
	return nil
}

func newLocalOracleFixture(t *testing.T) (*LocalOracle, *Evaluator, interfaces.BlobStore, *captureSink) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	eval, err := NewEvaluator(bytes.Repeat([]byte{0x55}, 32))
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	blobs := storage.NewMemoryBackend(log)

	o := NewLocalOracle(key, eval, blobs, log)
	sink := &captureSink{}
	o.SetCallbackSink(sink)

	return o, eval, blobs, sink
}

func TestLocalOracleResolvesRecordRequest(t *testing.T) {
	o, _, blobs, sink := newLocalOracleFixture(t)
	ctx := context.Background()

	payloads := []string{"12.3", "450", "8.2", "hard"}
	caps := []interfaces.Capability{
		interfaces.CapEncDecimal,
		interfaces.CapEncUint64,
		interfaces.CapEncDecimal,
		interfaces.CapEncString,
	}

	ciphertexts := make([]interfaces.CiphertextHandle, len(payloads))
	for i, p := range payloads {
		id, err := blobs.Store(ctx, []byte(p))
		require.NoError(t, err)
		ciphertexts[i] = interfaces.CiphertextHandle{ID: id, Cap: caps[i]}
	}

	require.NoError(t, o.RequestDecryption(ctx, 5, ciphertexts))
	assert.Equal(t, []interfaces.RequestID{5}, o.Pending())

	require.NoError(t, o.Resolve(ctx, 5))
	assert.Empty(t, o.Pending())

	require.Len(t, sink.calls, 1)
	call := sink.calls[0]
	assert.Equal(t, interfaces.RequestID(5), call.id)
	assert.Equal(t, payloads, call.cleartexts)

	// The proof verifies against the oracle's own signer address.
	verifier := NewVerifier(o.SignerAddress())
	assert.NoError(t, verifier.Verify(call.id, ciphertexts, call.cleartexts, call.proof))
}

func TestLocalOracleResolvesCounterRequest(t *testing.T) {
	o, eval, _, sink := newLocalOracleFixture(t)
	ctx := context.Background()

	counter, err := eval.EncryptUint64(ctx, 3)
	require.NoError(t, err)

	require.NoError(t, o.RequestDecryption(ctx, 9, []interfaces.CiphertextHandle{counter}))
	require.NoError(t, o.Resolve(ctx, 9))

	require.Len(t, sink.calls, 1)
	assert.Equal(t, []string{"3"}, sink.calls[0].cleartexts)
}

func TestLocalOracleResolveUnknownRequest(t *testing.T) {
	o, _, _, _ := newLocalOracleFixture(t)
	assert.Error(t, o.Resolve(context.Background(), 1))
}

func TestLocalOracleKeepsRejectedRequestsPending(t *testing.T) {
	o, eval, _, sink := newLocalOracleFixture(t)
	ctx := context.Background()

	counter, err := eval.EncryptUint64(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, o.RequestDecryption(ctx, 2, []interfaces.CiphertextHandle{counter}))

	sink.fail = assert.AnError
	assert.Error(t, o.Resolve(ctx, 2))
	assert.Equal(t, []interfaces.RequestID{2}, o.Pending(), "rejected delivery stays pending")

	sink.fail = nil
	require.NoError(t, o.Resolve(ctx, 2))
	assert.Empty(t, o.Pending())
}

func TestLocalOracleResolveAllInOrder(t *testing.T) {
	o, eval, _, sink := newLocalOracleFixture(t)
	ctx := context.Background()

	for i := uint64(1); i <= 3; i++ {
		counter, err := eval.EncryptUint64(ctx, i)
		require.NoError(t, err)
		require.NoError(t, o.RequestDecryption(ctx, interfaces.RequestID(i), []interfaces.CiphertextHandle{counter}))
	}

	require.NoError(t, o.ResolveAll(ctx))
	require.Len(t, sink.calls, 3)
	for i, call := range sink.calls {
		assert.Equal(t, interfaces.RequestID(i+1), call.id)
	}
}

func TestLocalOracleDrop(t *testing.T) {
	o, eval, _, _ := newLocalOracleFixture(t)
	ctx := context.Background()

	counter, err := eval.EncryptUint64(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, o.RequestDecryption(ctx, 4, []interfaces.CiphertextHandle{counter}))

	o.Drop(4)
	assert.Empty(t, o.Pending())
	assert.Error(t, o.Resolve(ctx, 4))
}
