package httpserver

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/metrics"
	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/twin"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// SubmittedField carries one ciphertext payload with its capability tag.
type SubmittedField struct {
	// Payload is the hex-encoded ciphertext.
	Payload string `json:"payload"`

	// Capability is one of "euint64", "edecimal", "estring".
	Capability string `json:"capability"`
}

// SubmitRecordRequest is the body of POST /api/records. Field order follows
// the fixed record layout.
type SubmitRecordRequest struct {
	Position SubmittedField `json:"position"`
	Torque   SubmittedField `json:"torque"`
	Speed    SubmittedField `json:"speed"`
	SoilType SubmittedField `json:"soil_type"`
}

// SubmitRecordResponse returns the assigned record ID and the stored handles.
type SubmitRecordResponse struct {
	RecordID uint64   `json:"record_id"`
	Handles  []string `json:"handles"`
}

// RevealResponse returns the minted decryption request ID.
type RevealResponse struct {
	RequestID uint64 `json:"request_id"`
}

// RecordResponse is the combined encrypted view and decrypted projection of
// a record.
type RecordResponse struct {
	RecordID    uint64    `json:"record_id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
	Handles     []string  `json:"handles"`
	Revealed    bool      `json:"revealed"`
	Cleartext   []string  `json:"cleartext,omitempty"`
}

// CounterResponse is the current state of an aggregate counter.
type CounterResponse struct {
	Category      string `json:"category"`
	Handle        string `json:"handle"`
	Revealed      bool   `json:"revealed"`
	RevealedValue uint64 `json:"revealed_value,omitempty"`
}

// OracleCallbackRequest is the body of POST /api/oracle/callback.
type OracleCallbackRequest struct {
	RequestID  uint64   `json:"request_id"`
	Cleartexts []string `json:"cleartexts"`
	Proof      string   `json:"proof"`
}

// Handler translates HTTP requests into ledger operations.
type Handler struct {
	ledger  *twin.Ledger
	blobs   interfaces.BlobStore
	log     *slog.Logger
	metrics *metrics.MetricsServer
}

// NewHandler creates a request handler around the ledger and blob store.
func NewHandler(ledger *twin.Ledger, blobs interfaces.BlobStore, log *slog.Logger) *Handler {
	return &Handler{
		ledger: ledger,
		blobs:  blobs,
		log:    log,
	}
}

// HandleSubmitRecord stores the four ciphertext payloads in the blob store
// and submits the resulting handles as a new sealed record.
func (h *Handler) HandleSubmitRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req SubmitRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	submitted := [interfaces.RecordFieldCount]SubmittedField{
		req.Position, req.Torque, req.Speed, req.SoilType,
	}

	var fields [interfaces.RecordFieldCount]interfaces.CiphertextHandle
	for i, f := range submitted {
		capability, err := interfaces.CapabilityFromString(f.Capability)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		payload, err := hex.DecodeString(f.Payload)
		if err != nil || len(payload) == 0 {
			http.Error(w, "Invalid ciphertext payload: must be non-empty hex", http.StatusBadRequest)
			return
		}

		id, err := h.blobs.Store(r.Context(), payload)
		if err != nil {
			h.log.Error("Failed to store ciphertext payload", "err", err)
			http.Error(w, "Failed to store ciphertext", http.StatusInternalServerError)
			return
		}

		fields[i] = interfaces.CiphertextHandle{ID: id, Cap: capability}
	}

	recordID, err := h.ledger.SubmitRecord(r.Context(), fields)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordsSubmitted.Inc()
	}

	h.writeJSON(w, http.StatusOK, SubmitRecordResponse{
		RecordID: uint64(recordID),
		Handles:  handleStrings(fields[:]),
	})
}

// HandleGetRecord returns the encrypted view and decrypted projection of a
// record.
func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	recordID, ok := h.recordIDParam(w, r)
	if !ok {
		return
	}

	rec, err := h.ledger.GetRecord(recordID)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	cleartext, revealed, err := h.ledger.GetDecryptedRecord(recordID)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, RecordResponse{
		RecordID:    uint64(rec.ID),
		Status:      rec.Status.String(),
		SubmittedAt: rec.SubmittedAt,
		Handles:     handleStrings(rec.Fields[:]),
		Revealed:    revealed,
		Cleartext:   cleartext,
	})
}

// HandleRevealRecord requests an asynchronous reveal of a sealed record.
func (h *Handler) HandleRevealRecord(w http.ResponseWriter, r *http.Request) {
	recordID, ok := h.recordIDParam(w, r)
	if !ok {
		return
	}

	requestID, err := h.ledger.RequestRecordReveal(r.Context(), recordID)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RevealsRequested.WithLabelValues("record").Inc()
	}

	h.writeJSON(w, http.StatusOK, RevealResponse{RequestID: uint64(requestID)})
}

// HandleGetCounter returns the encrypted handle and last revealed value of a
// category's counter.
func (h *Handler) HandleGetCounter(w http.ResponseWriter, r *http.Request) {
	category := interfaces.Category(chi.URLParam(r, "category"))

	handle, err := h.ledger.GetCounterHandle(category)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	value, revealed, err := h.ledger.GetRevealedCount(category)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, CounterResponse{
		Category:      string(category),
		Handle:        handle.String(),
		Revealed:      revealed,
		RevealedValue: value,
	})
}

// HandleRevealCounter requests an asynchronous reveal of a category's
// counter.
func (h *Handler) HandleRevealCounter(w http.ResponseWriter, r *http.Request) {
	category := interfaces.Category(chi.URLParam(r, "category"))

	requestID, err := h.ledger.RequestCounterReveal(r.Context(), category)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RevealsRequested.WithLabelValues("counter").Inc()
	}

	h.writeJSON(w, http.StatusOK, RevealResponse{RequestID: uint64(requestID)})
}

// HandleListCategories returns the known category keys in first-seen order.
func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.ledger.Categories()

	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}

	h.writeJSON(w, http.StatusOK, map[string][]string{"categories": out})
}

// HandleOracleCallback processes a decryption result delivered by the
// oracle.
func (h *Handler) HandleOracleCallback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req OracleCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	proof, err := hex.DecodeString(req.Proof)
	if err != nil {
		http.Error(w, "Invalid proof: must be hex", http.StatusBadRequest)
		return
	}

	err = h.ledger.CompleteReveal(r.Context(), interfaces.RequestID(req.RequestID), req.Cleartexts, proof)
	if h.metrics != nil {
		h.metrics.CallbacksReceived.WithLabelValues(callbackOutcome(err)).Inc()
	}
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) recordIDParam(w http.ResponseWriter, r *http.Request) (interfaces.RecordID, bool) {
	raw := chi.URLParam(r, "record_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "Invalid record ID", http.StatusBadRequest)
		return 0, false
	}
	return interfaces.RecordID(id), true
}

// writeLedgerError maps ledger errors onto HTTP status codes.
func (h *Handler) writeLedgerError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, interfaces.ErrUnknownRecord),
		errors.Is(err, interfaces.ErrUnknownCategory),
		errors.Is(err, interfaces.ErrUnknownRequest):
		status = http.StatusNotFound
	case errors.Is(err, interfaces.ErrAlreadyRevealed):
		status = http.StatusConflict
	case errors.Is(err, interfaces.ErrInvalidProof):
		status = http.StatusUnauthorized
	case errors.Is(err, interfaces.ErrMalformedCleartext):
		status = http.StatusBadRequest
	default:
		h.log.Error("Unexpected ledger error", "err", err)
		status = http.StatusInternalServerError
	}

	http.Error(w, err.Error(), status)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func handleStrings(handles []interfaces.CiphertextHandle) []string {
	out := make([]string, len(handles))
	for i, handle := range handles {
		out[i] = handle.String()
	}
	return out
}

func callbackOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, interfaces.ErrUnknownRequest):
		return "unknown_request"
	case errors.Is(err, interfaces.ErrAlreadyRevealed):
		return "already_revealed"
	case errors.Is(err, interfaces.ErrInvalidProof):
		return "invalid_proof"
	case errors.Is(err, interfaces.ErrMalformedCleartext):
		return "malformed_cleartext"
	default:
		return "error"
	}
}
