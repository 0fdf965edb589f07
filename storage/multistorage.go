package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
)

// MultiBackend implements interfaces.BlobStore using multiple backends with
// fallback. Payloads are stored to every available backend and fetched from
// the first one that has them.
type MultiBackend struct {
	backends []interfaces.BlobStore
	log      *slog.Logger
}

// NewMultiBackend creates a new multi-storage backend with fallback.
func NewMultiBackend(backends []interfaces.BlobStore, logger *slog.Logger) *MultiBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch retrieves a payload from the first available backend that has it.
func (m *MultiBackend) Fetch(ctx context.Context, id interfaces.HandleID) ([]byte, error) {
	start := time.Now()
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("handle_id", id.String()))
			continue
		}

		data, err := backend.Fetch(ctx, id)
		if err == nil {
			m.log.Debug("Successfully fetched payload",
				slog.String("backend_name", backend.Name()),
				slog.String("handle_id", id.String()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("handle_id", id.String()),
			"err", err)
	}

	m.log.Error("All backends failed to fetch payload",
		slog.String("handle_id", id.String()),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("all backends failed to fetch %s: %v", id, errs)
}

// Store saves a payload to all available backends.
func (m *MultiBackend) Store(ctx context.Context, payload []byte) (interfaces.HandleID, error) {
	start := time.Now()
	var result interfaces.HandleID
	var success bool
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		id, err := backend.Store(ctx, payload)
		if err == nil {
			if !success {
				result = id
				success = true
				m.log.Debug("Successfully stored payload",
					slog.String("backend_name", backend.Name()),
					slog.String("handle_id", id.String()),
					slog.Duration("duration", time.Since(start)))
			} else if !result.Equal(id) {
				// Should not happen - same payload must hash to the same ID
				m.log.Warn("Inconsistent handle IDs from backends",
					slog.String("backend_name", backend.Name()),
					slog.String("expected_id", result.String()),
					slog.String("actual_id", id.String()))
			}
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Debug("Failed to store to backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
		}
	}

	if !success {
		m.log.Error("All backends failed to store payload",
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return result, fmt.Errorf("all backends failed to store payload: %v", errs)
	}

	return result, nil
}

// Available checks if any backend is available.
func (m *MultiBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend.
func (m *MultiBackend) Name() string {
	return "multi-storage"
}

// LocationURI returns the combined URI of all wrapped backends.
func (m *MultiBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
