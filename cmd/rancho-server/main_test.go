package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancho/rancho-backend/pkg/testutil"
)

func TestHealthHandler_LatencyAtTopLevel(t *testing.T) {
	db := testutil.NewDB(t)

	rec := httptest.NewRecorder()
	healthHandler(db)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Contains(t, body.Data, "status")
	assert.Contains(t, body.Data, "ts")
	assert.Contains(t, body.Data, "latency_ms")

	dbHealth, ok := body.Data["db"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "up", dbHealth["status"])
	assert.NotContains(t, dbHealth, "latency_ms")
}

func TestCronGuard(t *testing.T) {
	log := testutil.NewLogger()

	called := false
	next := func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}
	guard := cronGuard("s3cret", log, next)

	rec := httptest.NewRecorder()
	guard(rec, httptest.NewRequest(http.MethodGet, "/api/backup-cron?key=wrong", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)

	rec = httptest.NewRecorder()
	guard(rec, httptest.NewRequest(http.MethodGet, "/api/backup-cron?key=s3cret", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)

	// an unset token disables the endpoints outright
	called = false
	rec = httptest.NewRecorder()
	cronGuard("", log, next)(rec, httptest.NewRequest(http.MethodGet, "/api/backup-cron", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}
