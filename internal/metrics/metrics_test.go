package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func gatherValue(t *testing.T, m *Manager, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	nextMetric:
		for _, metric := range f.GetMetric() {
			got := map[string]string{}
			for _, lp := range metric.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue nextMetric
				}
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return -1
}

func TestRecordDatasetLoad(t *testing.T) {
	m := NewManager()
	m.RecordDatasetLoad("upload", 120, 4, nil)
	m.RecordDatasetLoad("upload", 0, 0, errors.New("bad workbook"))
	m.RecordDatasetLoad("sheets", 80, 1, nil)

	if v := gatherValue(t, m, "egitim_dataset_loads_total", map[string]string{"source": "upload", "outcome": OutcomeSuccess}); v != 1 {
		t.Errorf("upload success = %v", v)
	}
	if v := gatherValue(t, m, "egitim_dataset_loads_total", map[string]string{"source": "upload", "outcome": OutcomeFailure}); v != 1 {
		t.Errorf("upload failure = %v", v)
	}
	if v := gatherValue(t, m, "egitim_dataset_records", nil); v != 80 {
		t.Errorf("records gauge = %v", v)
	}
	if v := gatherValue(t, m, "egitim_dataset_skipped_rows", nil); v != 1 {
		t.Errorf("skipped gauge = %v", v)
	}
}

func TestViewAndHTTPMetrics(t *testing.T) {
	m := NewManager(WithNamespace("test"), WithHistogramBuckets([]float64{0.01, 0.1}))
	m.ObserveView("overview", 5*time.Millisecond)
	m.ObserveView("overview", 50*time.Millisecond)
	m.RecordViewCache("overview", true)
	m.RecordViewCache("overview", false)
	m.RecordViewCache("overview", true)
	m.RecordHTTPRequest("GET", "/api/views/overview", 200, time.Millisecond)
	m.RecordEvent("dataset.loaded", nil)
	m.RecordHeadcountMutation("set")
	m.RecordRateLimited()

	if v := gatherValue(t, m, "test_view_duration_seconds", map[string]string{"view": "overview"}); v != 2 {
		t.Errorf("view samples = %v", v)
	}
	if v := gatherValue(t, m, "test_view_cache_total", map[string]string{"result": CacheHit}); v != 2 {
		t.Errorf("cache hits = %v", v)
	}
	if v := gatherValue(t, m, "test_http_requests_total", map[string]string{"status": "200"}); v != 1 {
		t.Errorf("http requests = %v", v)
	}
	if v := gatherValue(t, m, "test_events_published_total", map[string]string{"outcome": OutcomeSuccess}); v != 1 {
		t.Errorf("events = %v", v)
	}
	if v := gatherValue(t, m, "test_http_rate_limited_total", nil); v != 1 {
		t.Errorf("rate limited = %v", v)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewManager(WithProcessCollectors())
	m.RecordHeadcountMutation("import")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `egitim_headcount_mutations_total{operation="import"} 1`) {
		t.Fatalf("missing mutation counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatal("missing runtime collector output")
	}
}

func TestManagersAreIndependent(t *testing.T) {
	a, b := NewManager(), NewManager()
	a.RecordRateLimited()
	if v := gatherValue(t, b, "egitim_http_rate_limited_total", nil); v != 0 {
		t.Fatalf("registries share state: %v", v)
	}
}
