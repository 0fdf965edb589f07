package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryBackendRoundtrip(t *testing.T) {
	b := NewMemoryBackend(testLogger())
	ctx := context.Background()

	payload := []byte("encrypted-position-reading")
	id, err := b.Store(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeHandleID(payload), id)

	got, err := b.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Returned slices are copies.
	got[0] ^= 0xff
	again, err := b.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, payload, again)

	assert.True(t, b.Available(ctx))
	assert.Equal(t, "memory://", b.LocationURI())
}

func TestMemoryBackendNotFound(t *testing.T) {
	b := NewMemoryBackend(testLogger())

	_, err := b.Fetch(context.Background(), interfaces.ComputeHandleID([]byte("missing")))
	assert.ErrorIs(t, err, interfaces.ErrBlobNotFound)
}

func TestFileBackendRoundtrip(t *testing.T) {
	b, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	payload := []byte("encrypted-soil-type")
	id, err := b.Store(ctx, payload)
	require.NoError(t, err)

	got, err := b.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = b.Fetch(ctx, interfaces.ComputeHandleID([]byte("missing")))
	assert.ErrorIs(t, err, interfaces.ErrBlobNotFound)

	assert.True(t, b.Available(ctx))
}

func TestBackendFactorySchemes(t *testing.T) {
	factory := NewBackendFactory(testLogger())

	mem, err := factory.BackendFor("memory://")
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, mem)

	file, err := factory.BackendFor("file://" + t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, file)

	s3b, err := factory.BackendFor("s3://some-bucket/payloads/?region=eu-west-1")
	require.NoError(t, err)
	assert.IsType(t, &S3Backend{}, s3b)

	ipfsb, err := factory.BackendFor("ipfs://127.0.0.1:5001/")
	require.NoError(t, err)
	assert.IsType(t, &IPFSBackend{}, ipfsb)

	_, err = factory.BackendFor("carrier-pigeon://coop")
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestBackendFactoryMulti(t *testing.T) {
	factory := NewBackendFactory(testLogger())

	// A single valid URI yields the bare backend, not a wrapper.
	single, err := factory.CreateMultiBackend([]string{"memory://"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, single)

	multi, err := factory.CreateMultiBackend([]string{"memory://", "file://" + t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &MultiBackend{}, multi)

	// Invalid URIs are skipped as long as one backend remains.
	partial, err := factory.CreateMultiBackend([]string{"bogus://x", "memory://"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, partial)

	_, err = factory.CreateMultiBackend([]string{"bogus://x"})
	assert.Error(t, err)
}

func TestMultiBackendFallback(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryBackend(testLogger())
	secondary := NewMemoryBackend(testLogger())

	multi := NewMultiBackend([]interfaces.BlobStore{primary, secondary}, testLogger())

	payload := []byte("replicated-payload")
	id, err := multi.Store(ctx, payload)
	require.NoError(t, err)

	// Both backends hold the payload after a store.
	got, err := primary.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	got, err = secondary.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// A payload present only in the second backend is still found.
	onlySecond, err := secondary.Store(ctx, []byte("other"))
	require.NoError(t, err)
	got, err = multi.Fetch(ctx, onlySecond)
	require.NoError(t, err)
	assert.Equal(t, []byte("other"), got)

	_, err = multi.Fetch(ctx, interfaces.ComputeHandleID([]byte("missing")))
	assert.Error(t, err)
}
