package client

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetFile(t *testing.T) {
	data, err := GetFile(ScriptName)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if !strings.Contains(string(data), "phx_join") {
		t.Error("expected the live client script")
	}
	if !strings.Contains(string(data), "dataset.liveHeartbeat") {
		t.Error("expected the heartbeat interval to come from the layout")
	}

	if _, err := GetFile("missing.js"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestHandler(t *testing.T) {
	srv := http.StripPrefix("/_live/", Handler())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_live/"+ScriptName, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "javascript") {
		t.Errorf("unexpected content type %q", ct)
	}
}
