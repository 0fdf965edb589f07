package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
)

// MemoryBackend implements an in-process blob backend. It is the default
// backend for development and tests.
type MemoryBackend struct {
	mu    sync.RWMutex
	blobs map[interfaces.HandleID][]byte
	log   *slog.Logger
}

// NewMemoryBackend creates an empty in-memory blob backend.
func NewMemoryBackend(log *slog.Logger) *MemoryBackend {
	return &MemoryBackend{
		blobs: make(map[interfaces.HandleID][]byte),
		log:   log,
	}
}

// Fetch retrieves a payload by its handle ID.
// Returns ErrBlobNotFound if the payload was never stored.
func (b *MemoryBackend) Fetch(ctx context.Context, id interfaces.HandleID) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	payload, ok := b.blobs[id]
	if !ok {
		return nil, interfaces.ErrBlobNotFound
	}

	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// Store saves a payload and returns its handle ID.
func (b *MemoryBackend) Store(ctx context.Context, payload []byte) (interfaces.HandleID, error) {
	id := interfaces.ComputeHandleID(payload)

	stored := make([]byte, len(payload))
	copy(stored, payload)

	b.mu.Lock()
	b.blobs[id] = stored
	b.mu.Unlock()

	b.log.Debug("Stored payload in memory",
		slog.String("handleID", id.String()),
		slog.Int("size", len(payload)))

	return id, nil
}

// Available always returns true for the in-memory backend.
func (b *MemoryBackend) Available(ctx context.Context) bool {
	return true
}

// Name returns a unique identifier for this blob backend.
func (b *MemoryBackend) Name() string {
	return "memory"
}

// LocationURI returns the URI that identifies this blob backend.
func (b *MemoryBackend) LocationURI() string {
	return "memory://"
}
