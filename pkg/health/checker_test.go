package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/eventboard/pkg/storage"
)

func ok(ctx context.Context) error { return nil }

func failing(ctx context.Context) error { return errors.New("down") }

func TestCheck_AllPass(t *testing.T) {
	hc := NewChecker("1.0.0", nil)
	hc.AddCheck("a", ok, time.Second)
	hc.AddCriticalCheck("b", ok, time.Second)

	report := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, report.Status)
	assert.Len(t, report.Checks, 2)
	assert.Equal(t, "1.0.0", report.Version)
}

func TestCheck_NonCriticalFailureDegrades(t *testing.T) {
	hc := NewChecker("", nil)
	hc.AddCheck("ok", ok, time.Second)
	hc.AddCheck("bad", failing, time.Second)

	report := hc.Check(context.Background())

	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUnhealthy, report.Checks["bad"].Status)
	assert.Equal(t, "down", report.Checks["bad"].Error)
}

func TestCheck_CriticalFailure(t *testing.T) {
	hc := NewChecker("", nil)
	hc.AddCheck("bad", failing, time.Second)
	hc.AddCriticalCheck("critical", failing, time.Second)

	assert.Equal(t, StatusUnhealthy, hc.Check(context.Background()).Status)
}

func TestCheck_Timeout(t *testing.T) {
	hc := NewChecker("", nil)
	hc.AddCriticalCheck("slow", func(ctx context.Context) error {
		time.Sleep(time.Second)
		return nil
	}, 20*time.Millisecond)

	start := time.Now()
	report := hc.Check(context.Background())

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Contains(t, report.Checks["slow"].Error, "deadline exceeded")
}

func TestCheck_ErrorDetails(t *testing.T) {
	hc := NewChecker("", nil)
	hc.AddCheck("sockets", SocketCapacityCheck(func() int { return 3 }, 3), time.Second)

	result := hc.Check(context.Background()).Checks["sockets"]

	assert.Equal(t, StatusUnhealthy, result.Status)
	assert.Equal(t, 3, result.Details["max"])
}

func TestLivenessHandler(t *testing.T) {
	hc := NewChecker("", nil)
	hc.AddCriticalCheck("bad", failing, time.Second)

	rec := httptest.NewRecorder()
	hc.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestReadinessHandler(t *testing.T) {
	hc := NewChecker("", nil)
	hc.AddCheck("ok", ok, time.Second)

	rec := httptest.NewRecorder()
	hc.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	hc.AddCriticalCheck("bad", failing, time.Second)

	rec = httptest.NewRecorder()
	hc.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	hc := NewChecker("2.0.0", nil)
	hc.AddCheck("bad", failing, time.Second)

	rec := httptest.NewRecorder()
	hc.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, "2.0.0", report.Version)
	assert.Contains(t, report.Checks, "bad")
}

func TestSocketCapacityCheck(t *testing.T) {
	count := 0
	check := SocketCapacityCheck(func() int { return count }, 2)

	assert.NoError(t, check(context.Background()))
	count = 2
	assert.Error(t, check(context.Background()))

	unbounded := SocketCapacityCheck(func() int { return 1000 }, 0)
	assert.NoError(t, unbounded(context.Background()))
}

func TestStoreCheck(t *testing.T) {
	store := storage.NewMemoryStore()

	require.NoError(t, StoreCheck(store)(context.Background()))
	assert.Equal(t, 0, store.Len(), "health check key must be removed")

	require.NoError(t, store.Close())
	err := StoreCheck(store)(context.Background())
	assert.ErrorIs(t, err, storage.ErrStoreClosed)
}
