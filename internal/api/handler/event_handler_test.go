package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parking_billing/internal/repository/memory"
	"parking_billing/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventTestServer(t *testing.T) (*memory.LedgerStore, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewLedgerStore()
	capacity := service.NewCapacityManager(store)
	ledger := service.NewSessionLedger(store, capacity, 5*time.Second)
	intake := service.NewRecognitionIntake(memory.NewLotRepository(store), ledger, nil, nil)

	r := gin.New()
	h := NewRecognitionEventHandler(intake)
	r.POST("/parking-lots/:id/events", h.SubmitEvent)
	return store, r
}

func postEvent(r *gin.Engine, lotID int, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/parking-lots/%d/events", lotID), bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitEventEntryThenExit(t *testing.T) {
	store, r := newEventTestServer(t)
	lot := store.AddLot("Central", 2, 5.0)
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	w := postEvent(r, lot.ID, gin.H{"plate": "AB-123", "observed_at": t0.Format(time.RFC3339)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, "entry", entry["type"])
	assert.Equal(t, float64(1), entry["free_spaces"])

	w = postEvent(r, lot.ID, gin.H{"plate": "AB-123", "observed_at": t0.Add(90 * time.Minute).Format(time.RFC3339)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var exit map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exit))
	assert.Equal(t, "exit", exit["type"])
	assert.Equal(t, float64(2), exit["billed_hours"])
	assert.Equal(t, float64(10), exit["fee"])
	assert.Equal(t, float64(2), exit["free_spaces"])
}

func TestSubmitEventErrorClassification(t *testing.T) {
	store, r := newEventTestServer(t)
	full := store.AddLot("Tiny", 1, 4.0)
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	w := postEvent(r, full.ID, gin.H{"plate": "AA-111", "observed_at": t0.Format(time.RFC3339)})
	require.Equal(t, http.StatusOK, w.Code)

	tests := []struct {
		name       string
		lotID      int
		body       gin.H
		wantStatus int
		wantKind   string
	}{
		{"missing plate", full.ID, gin.H{}, http.StatusBadRequest, "invalid_plate"},
		{"malformed timestamp", full.ID, gin.H{"plate": "AA-111", "observed_at": "noonish"}, http.StatusBadRequest, "invalid_observed_at"},
		{"unknown lot", 42, gin.H{"plate": "AA-111"}, http.StatusNotFound, "unknown_lot"},
		{"lot full", full.ID, gin.H{"plate": "BB-222"}, http.StatusConflict, "lot_full"},
		{"exit before entry", full.ID, gin.H{"plate": "AA-111", "observed_at": t0.Add(-time.Hour).Format(time.RFC3339)}, http.StatusUnprocessableEntity, "clock_ordering_violation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postEvent(r, tt.lotID, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body["error_kind"])
		})
	}
}
