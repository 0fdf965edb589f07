package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
)

// IPFSBackend implements a blob backend using the InterPlanetary File System.
// IPFS addresses content by CID rather than SHA-256, so the backend keeps a
// local index from handle ID to CID for payloads it stored itself.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	useGateway  bool
	log         *slog.Logger
	locationURI string

	mu   sync.RWMutex
	cids map[interfaces.HandleID]string
}

// NewIPFSBackend creates a new IPFS blob backend connected to the specified
// host and port. When useGateway is true, it uses the IPFS HTTP gateway
// instead of the IPFS API.
func NewIPFSBackend(host, port string, useGateway bool, timeout string, log *slog.Logger) (*IPFSBackend, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	var uri string
	if useGateway {
		uri = fmt.Sprintf("ipfs://%s/?gateway=true&timeout=%s", apiURL, timeout)
	} else {
		uri = fmt.Sprintf("ipfs://%s/?timeout=%s", apiURL, timeout)
	}

	return &IPFSBackend{
		shell:       shell.NewShell(apiURL),
		host:        host,
		port:        port,
		useGateway:  useGateway,
		log:         log,
		locationURI: uri,
		cids:        make(map[interfaces.HandleID]string),
	}, nil
}

// Fetch retrieves a payload from IPFS by its handle ID.
// Returns ErrBlobNotFound if the handle is unknown to this backend or
// ErrBackendUnavailable if the IPFS node is not accessible.
func (b *IPFSBackend) Fetch(ctx context.Context, id interfaces.HandleID) ([]byte, error) {
	start := time.Now()

	b.mu.RLock()
	cid, ok := b.cids[id]
	b.mu.RUnlock()
	if !ok {
		return nil, interfaces.ErrBlobNotFound
	}

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.Cat(cid)
	if err != nil {
		if strings.Contains(err.Error(), "no link named") {
			b.log.Debug("Payload not found in IPFS",
				slog.String("cid", cid),
				slog.String("handle_id", id.String()),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrBlobNotFound
		}

		b.log.Error("Failed to fetch payload from IPFS",
			slog.String("cid", cid),
			slog.String("handle_id", id.String()),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to fetch payload from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		b.log.Error("Failed to read payload from IPFS",
			slog.String("cid", cid),
			slog.String("handle_id", id.String()),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to read payload from IPFS: %w", err)
	}

	b.log.Debug("Fetched payload from IPFS",
		slog.String("cid", cid),
		slog.String("handle_id", id.String()),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store adds a payload to IPFS and returns its handle ID.
// Returns ErrBackendUnavailable if the IPFS node is not accessible.
func (b *IPFSBackend) Store(ctx context.Context, payload []byte) (interfaces.HandleID, error) {
	id := interfaces.ComputeHandleID(payload)

	if !b.shell.IsUp() {
		return id, interfaces.ErrBackendUnavailable
	}

	cid, err := b.shell.Add(bytes.NewReader(payload))
	if err != nil {
		return id, fmt.Errorf("failed to add payload to IPFS: %w", err)
	}

	b.mu.Lock()
	b.cids[id] = cid
	b.mu.Unlock()

	b.log.Debug("Stored payload in IPFS",
		slog.String("ipfsCID", cid),
		slog.String("handleID", id.String()))

	return id, nil
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this blob backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this blob backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}
