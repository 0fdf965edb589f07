package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrBlobNotFound is returned when a ciphertext payload cannot be found
	// in the blob store.
	ErrBlobNotFound = errors.New("ciphertext blob not found")

	// ErrBackendUnavailable is returned when a blob backend is not
	// accessible, due to network issues, credentials, or outages.
	ErrBackendUnavailable = errors.New("blob backend unavailable")

	// ErrInvalidLocationURI is returned when a blob store location URI is
	// malformed or its scheme is unsupported.
	ErrInvalidLocationURI = errors.New("invalid blob store location URI")
)

// BlobStore persists raw ciphertext payloads, content-addressed by their
// handle ID. The twin treats it as an opaque external key-value store: it
// never interprets payloads, only round-trips them for the oracle.
type BlobStore interface {
	// Fetch retrieves a payload by handle ID.
	Fetch(ctx context.Context, id HandleID) ([]byte, error)

	// Store saves a payload and returns its handle ID.
	Store(ctx context.Context, payload []byte) (HandleID, error)

	// Available checks if the backend is accessible.
	Available(ctx context.Context) bool

	// Name returns an identifier for logging.
	Name() string

	// LocationURI returns the URI identifying this backend.
	LocationURI() string
}
