// Package interfaces defines the core types and contracts of the
// confidential telemetry twin. It provides the boundary between the
// sequential ledger, the external decryption oracle, the homomorphic
// evaluation capability, and ciphertext blob storage, without pulling in
// any implementation details.
package interfaces
