// Package storage provides content-addressed blob backends for ciphertext
// payloads. Backends are created from location URIs by BackendFactory and
// can be aggregated into a MultiBackend for redundant storage.
//
// Supported URI schemes:
//
//   - memory:// - In-process storage, for development and tests
//   - file://   - Local filesystem storage
//   - s3://     - Amazon S3 or compatible object storage
//   - ipfs://   - IPFS distributed storage
//
// All backends address payloads by their handle ID, the SHA-256 hash of the
// payload bytes, so the same payload stored through any backend resolves to
// the same ID.
package storage
