package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
)

// FileBackend implements a blob backend using the local file system.
// Payloads are stored as individual files named by their handle ID.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a new file blob backend using the specified base
// directory, creating it if it doesn't exist.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch retrieves a payload from the file system by its handle ID.
// Returns ErrBlobNotFound if the file doesn't exist.
func (b *FileBackend) Fetch(ctx context.Context, id interfaces.HandleID) ([]byte, error) {
	filePath := b.getFilePath(id)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, interfaces.ErrBlobNotFound
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched payload from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Store saves a payload to the file system and returns its handle ID.
func (b *FileBackend) Store(ctx context.Context, payload []byte) (interfaces.HandleID, error) {
	id := interfaces.ComputeHandleID(payload)
	filePath := b.getFilePath(id)

	if err := os.WriteFile(filePath, payload, 0644); err != nil {
		return id, fmt.Errorf("failed to write file: %w", err)
	}

	b.log.Debug("Stored payload in file",
		slog.String("path", filePath),
		slog.String("handleID", id.String()))

	return id, nil
}

// Available checks if the file backend is accessible by verifying the base
// directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this blob backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this blob backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

// getFilePath generates a file path for a handle ID.
func (b *FileBackend) getFilePath(id interfaces.HandleID) string {
	return filepath.Join(b.baseDir, id.String())
}
