package httpserver

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/oracle"
	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/storage"
	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/twin"
)

type apiFixture struct {
	t      *testing.T
	router http.Handler
	oracle *oracle.LocalOracle
	key    *ecdsa.PrivateKey
}

func newAPIFixture(t *testing.T) *apiFixture {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	eval, err := oracle.NewEvaluator(bytes.Repeat([]byte{0x66}, 32))
	require.NoError(t, err)

	blobs := storage.NewMemoryBackend(log)
	localOracle := oracle.NewLocalOracle(key, eval, blobs, log)

	ledger, err := twin.NewLedger(twin.Config{
		Oracle:    localOracle,
		Verifier:  oracle.NewVerifier(localOracle.SignerAddress()),
		Evaluator: eval,
		Log:       log,
	})
	require.NoError(t, err)
	localOracle.SetCallbackSink(ledger)

	handler := NewHandler(ledger, blobs, log)
	srv, err := New(&HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		MetricsAddr:              "127.0.0.1:0",
		Log:                      log,
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
		ReadTimeout:              time.Second,
		WriteTimeout:             time.Second,
	}, handler)
	require.NoError(t, err)

	return &apiFixture{t: t, router: srv.getRouter(), oracle: localOracle, key: key}
}

func (f *apiFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) decode(w *httptest.ResponseRecorder, v any) {
	require.NoError(f.t, json.NewDecoder(w.Body).Decode(v))
}

func (f *apiFixture) submitRecord(position, torque, speed, soilType string) SubmitRecordResponse {
	body := SubmitRecordRequest{
		Position: SubmittedField{Payload: hex.EncodeToString([]byte(position)), Capability: "edecimal"},
		Torque:   SubmittedField{Payload: hex.EncodeToString([]byte(torque)), Capability: "euint64"},
		Speed:    SubmittedField{Payload: hex.EncodeToString([]byte(speed)), Capability: "edecimal"},
		SoilType: SubmittedField{Payload: hex.EncodeToString([]byte(soilType)), Capability: "estring"},
	}

	w := f.do(http.MethodPost, "/api/records", body)
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())

	var resp SubmitRecordResponse
	f.decode(w, &resp)
	return resp
}

func TestAPISubmitAndGetRecord(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.submitRecord("12.3", "450", "8.2", "hard")
	assert.Equal(t, uint64(1), resp.RecordID)
	assert.Len(t, resp.Handles, interfaces.RecordFieldCount)

	w := f.do(http.MethodGet, "/api/records/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rec RecordResponse
	f.decode(w, &rec)
	assert.Equal(t, uint64(1), rec.RecordID)
	assert.Equal(t, "sealed", rec.Status)
	assert.False(t, rec.Revealed)
	assert.Equal(t, resp.Handles, rec.Handles)
}

func TestAPISubmitRejectsBadInput(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPost, "/api/records", SubmitRecordRequest{
		Position: SubmittedField{Payload: "not-hex", Capability: "edecimal"},
		Torque:   SubmittedField{Payload: "00", Capability: "euint64"},
		Speed:    SubmittedField{Payload: "00", Capability: "edecimal"},
		SoilType: SubmittedField{Payload: "00", Capability: "estring"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/records", SubmitRecordRequest{
		Position: SubmittedField{Payload: "00", Capability: "equaternion"},
		Torque:   SubmittedField{Payload: "00", Capability: "euint64"},
		Speed:    SubmittedField{Payload: "00", Capability: "edecimal"},
		SoilType: SubmittedField{Payload: "00", Capability: "estring"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIRevealFlow(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	f.submitRecord("12.3", "450", "8.2", "hard")

	w := f.do(http.MethodPost, "/api/records/1/reveal", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reveal RevealResponse
	f.decode(w, &reveal)
	assert.Equal(t, uint64(1), reveal.RequestID)

	// Second reveal request conflicts while pending.
	w = f.do(http.MethodPost, "/api/records/1/reveal", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Resolve through the local oracle's callback path.
	require.NoError(t, f.oracle.ResolveAll(ctx))

	w = f.do(http.MethodGet, "/api/records/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rec RecordResponse
	f.decode(w, &rec)
	assert.Equal(t, "revealed", rec.Status)
	assert.True(t, rec.Revealed)
	assert.Equal(t, []string{"12.3", "450", "8.2", "hard"}, rec.Cleartext)

	// And conflicts after completion too.
	w = f.do(http.MethodPost, "/api/records/1/reveal", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// The counter now exists for the revealed soil type.
	w = f.do(http.MethodGet, "/api/counters/hard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var counter CounterResponse
	f.decode(w, &counter)
	assert.Equal(t, "hard", counter.Category)
	assert.False(t, counter.Revealed)
	assert.NotEmpty(t, counter.Handle)

	// Counter reveal round trip.
	w = f.do(http.MethodPost, "/api/counters/hard/reveal", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, f.oracle.ResolveAll(ctx))

	w = f.do(http.MethodGet, "/api/counters/hard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	f.decode(w, &counter)
	assert.True(t, counter.Revealed)
	assert.Equal(t, uint64(1), counter.RevealedValue)

	w = f.do(http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var categories map[string][]string
	f.decode(w, &categories)
	assert.Equal(t, []string{"hard"}, categories["categories"])
}

func TestAPINotFoundMapping(t *testing.T) {
	f := newAPIFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/records/99", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/records/99/reveal", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/counters/granite", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/counters/granite/reveal", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/records/zero", nil).Code)
}

func TestAPIOracleCallback(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.submitRecord("1.0", "2", "3.0", "clay")
	w := f.do(http.MethodPost, "/api/records/1/reveal", nil)
	require.Equal(t, http.StatusOK, w.Code)

	ciphertexts := parseTestHandles(t, resp.Handles)
	cleartexts := []string{"1.0", "2", "3.0", "clay"}

	// Unknown request ID maps to 404.
	digest, err := oracle.ProofDigest(42, ciphertexts, cleartexts)
	require.NoError(t, err)
	proof, err := crypto.Sign(digest[:], f.key)
	require.NoError(t, err)
	w = f.do(http.MethodPost, "/api/oracle/callback", OracleCallbackRequest{
		RequestID:  42,
		Cleartexts: cleartexts,
		Proof:      hex.EncodeToString(proof),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// An untrusted signer maps to 401 and the record stays pending.
	rogue, err := crypto.GenerateKey()
	require.NoError(t, err)
	digest, err = oracle.ProofDigest(1, ciphertexts, cleartexts)
	require.NoError(t, err)
	forged, err := crypto.Sign(digest[:], rogue)
	require.NoError(t, err)
	w = f.do(http.MethodPost, "/api/oracle/callback", OracleCallbackRequest{
		RequestID:  1,
		Cleartexts: cleartexts,
		Proof:      hex.EncodeToString(forged),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The genuine signature commits the reveal.
	proof, err = crypto.Sign(digest[:], f.key)
	require.NoError(t, err)
	w = f.do(http.MethodPost, "/api/oracle/callback", OracleCallbackRequest{
		RequestID:  1,
		Cleartexts: cleartexts,
		Proof:      hex.EncodeToString(proof),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Replaying it afterwards maps to 404: the request was consumed.
	w = f.do(http.MethodPost, "/api/oracle/callback", OracleCallbackRequest{
		RequestID:  1,
		Cleartexts: cleartexts,
		Proof:      hex.EncodeToString(proof),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func parseTestHandles(t *testing.T, printed []string) []interfaces.CiphertextHandle {
	handles := make([]interfaces.CiphertextHandle, len(printed))
	for i, s := range printed {
		prefix, idHex, found := strings.Cut(s, ":")
		require.True(t, found)

		capability, err := interfaces.CapabilityFromString(prefix)
		require.NoError(t, err)

		id, err := interfaces.NewHandleIDFromHex(idHex)
		require.NoError(t, err)

		handles[i] = interfaces.CiphertextHandle{ID: id, Cap: capability}
	}
	return handles
}
