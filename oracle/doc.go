// Package oracle provides the concrete oracle-side pieces of the reveal
// protocol: the secp256k1 proof verifier the ledger trusts, a local signing
// oracle that resolves decryption requests in-process for development and
// tests, and a plaintext-tracking homomorphic evaluator standing in for a
// real FHE sidecar.
package oracle
