package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seantiz/kiln/internal/job"
	"github.com/seantiz/kiln/internal/model"
)

func TestGetStatsEmpty(t *testing.T) {
	srv := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if stats.Total != 0 {
		t.Errorf("total = %d, want 0", stats.Total)
	}
	if stats.AvgDurationMS != 0 {
		t.Errorf("avg_duration_ms = %f, want 0", stats.AvgDurationMS)
	}
}

func TestGetStatsPopulated(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	// Three echoes that complete and one kind that fails.
	var ids []string
	for range 3 {
		ids = append(ids, submitExecution(t, ts.URL, `{"kind":"echo","input":"s"}`).ID)
	}
	bad := submitExecution(t, ts.URL, `{"kind":"doomed"}`)

	for _, id := range ids {
		waitForStatusHTTP(t, ts.URL, id, model.StatusCompleted)
	}
	waitForStatusHTTP(t, ts.URL, bad.ID, model.StatusFailed)

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if stats.Total != 4 {
		t.Errorf("total = %d, want 4", stats.Total)
	}
	if stats.ByStatus["completed"] != 3 {
		t.Errorf("by_status[completed] = %d, want 3", stats.ByStatus["completed"])
	}
	if stats.ByStatus["failed"] != 1 {
		t.Errorf("by_status[failed] = %d, want 1", stats.ByStatus["failed"])
	}
	if stats.ByKind[job.KindEcho] != 3 {
		t.Errorf("by_kind[echo] = %d, want 3", stats.ByKind[job.KindEcho])
	}
	if stats.ByKind["doomed"] != 1 {
		t.Errorf("by_kind[doomed] = %d, want 1", stats.ByKind["doomed"])
	}
	if stats.AvgDurationMS < 0 {
		t.Errorf("avg_duration_ms = %f, want >= 0", stats.AvgDurationMS)
	}
}
