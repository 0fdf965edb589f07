// Package httpserver exposes the twin ledger over HTTP.
//
// The API surface:
//
//	POST /api/records                         - submit an encrypted record
//	GET  /api/records/{record_id}             - encrypted view + decrypted projection
//	POST /api/records/{record_id}/reveal      - request a record reveal
//	GET  /api/counters/{category}             - current encrypted counter handle
//	POST /api/counters/{category}/reveal      - request a counter reveal
//	GET  /api/categories                      - known category keys
//	POST /api/oracle/callback                 - oracle decryption callback
//
// plus the usual /livez, /readyz, /drain and /undrain endpoints and an
// optional pprof mount under /debug.
package httpserver
