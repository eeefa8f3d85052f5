package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/Lumnic12/attend/internal/attend/service"
	"github.com/Lumnic12/attend/internal/attend/types"
	"github.com/Lumnic12/attend/internal/metrics"
)

var _ service.Metrics = (*metrics.Collector)(nil)

func gather(t *testing.T, reg *prometheus.Registry, name string) []*dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

func TestScanProcessed_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.ScanProcessed(types.ResultFaceOK, 20*time.Millisecond)
	c.ScanProcessed(types.ResultFaceOK, 30*time.Millisecond)
	c.ScanProcessed(types.ResultUnauthorized, time.Millisecond)

	got := map[string]float64{}
	for _, m := range gather(t, reg, "attend_scans_total") {
		got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	if got["FACE_OK"] != 2 || got["UNAUTH"] != 1 {
		t.Errorf("unexpected counts %v", got)
	}

	h := gather(t, reg, "attend_scan_duration_seconds")[0].GetHistogram()
	if h.GetSampleCount() != 3 {
		t.Errorf("expected 3 latency samples, got %d", h.GetSampleCount())
	}
}

func TestQueueDepth_IsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.QueueDepth(5)
	c.QueueDepth(2)

	if v := gather(t, reg, "attend_scan_queue_depth")[0].GetGauge().GetValue(); v != 2 {
		t.Errorf("queue depth = %v, want 2", v)
	}
}

func TestSessionAndFailureCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.SessionStarted()
	c.SessionStarted()
	c.SessionMarked()
	c.SinkFailed()
	c.ScanTimedOut()

	for name, want := range map[string]float64{
		"attend_sessions_started_total": 2,
		"attend_sessions_marked_total":  1,
		"attend_sink_failures_total":    1,
		"attend_scan_timeouts_total":    1,
	} {
		if v := gather(t, reg, name)[0].GetCounter().GetValue(); v != want {
			t.Errorf("%s = %v, want %v", name, v, want)
		}
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	c.HTTPRequest("/api/rfid", http.StatusOK)

	w := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), `attend_http_requests_total{route="/api/rfid",status_code="200"} 1`) {
		t.Errorf("missing request counter in:\n%s", body)
	}
}
