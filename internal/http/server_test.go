package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"egitim/internal/core"
	"egitim/internal/dataset"
	"egitim/internal/headcount"
	"egitim/internal/metrics"
	"egitim/internal/middleware/ratelimit"
	"egitim/internal/services"
	"egitim/internal/sheets/memory"
)

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func trainingRow(id, course, category string, hours, start float64) []core.Cell {
	r := make([]core.Cell, 18)
	r[0] = id
	r[1] = "Mehmet"
	r[2] = "Demir"
	r[3] = "S-" + id
	r[5] = course
	r[6] = hours
	r[7] = start
	r[9] = category
	r[10] = "ERKEK"
	r[11] = "Nemport Liman"
	r[12] = "Bakım"
	r[17] = "Mavi Yaka"
	return r
}

func testGrid() core.Grid {
	return core.Grid{
		{"Rapor"}, {}, {"Sicil Numarası"},
		trainingRow("1", "Yangın Eğitimi", "MESLEKİ", 6, 45292),
		trainingRow("2", "Vinç Operatörlüğü", core.CategoryCertificate, 16, 45300),
	}
}

func newTestServer(t *testing.T, opts Options) (*Server, *services.TrainingService) {
	t.Helper()
	svc := services.NewTrainingService(services.Deps{
		Loader: &dataset.Loader{
			Now:     func() time.Time { return fixedNow },
			NewUUID: func() string { return "test-version" },
		},
		Headcounts: headcount.NewStore(nil, nil),
		Sheets:     memory.New(testGrid()),
		Now:        func() time.Time { return fixedNow },
	})
	return NewServer(":0", svc, opts), svc
}

func do(t *testing.T, srv *Server, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, nil, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if !strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
			t.Fatalf("%s content type %q", path, rr.Header().Get("Content-Type"))
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodPost, "/api/views/overview", nil, "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("Allow"); got != "GET" {
		t.Fatalf("Allow=%q", got)
	}

	rr = do(t, srv, http.MethodPatch, "/api/headcounts/2024", nil, "")
	if got := rr.Header().Get("Allow"); got != "DELETE, GET, PUT" {
		t.Fatalf("Allow=%q", got)
	}
}

func TestViewsWithoutDataset(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/api/views/overview", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
	body := decodeError(t, rr)
	if body.RequestID != "abc-123" || rr.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("request id not propagated: %+v", body)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}
}

func TestSyncThenViews(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	if rr := do(t, srv, http.MethodPost, "/api/dataset/sync", nil, ""); rr.Code != http.StatusOK {
		t.Fatalf("sync status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr := do(t, srv, http.MethodGet, "/api/views/overview", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("overview status=%d", rr.Code)
	}
	var overview struct {
		Year       int     `json:"year"`
		TotalHours float64 `json:"totalHours"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &overview); err != nil {
		t.Fatal(err)
	}
	if overview.Year != 2024 || overview.TotalHours != 6 {
		t.Fatalf("overview %+v", overview)
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/api/views/monthly?year=2024&company=ALL", http.StatusOK},
		{"/api/views/breakdown?types=MESLEK%C4%B0", http.StatusOK},
		{"/api/views/departments?sort=employees", http.StatusOK},
		{"/api/views/departments?sort=bogus", http.StatusBadRequest},
		{"/api/views/top-trainings?limit=5", http.StatusOK},
		{"/api/views/top-trainings?limit=-1", http.StatusBadRequest},
		{"/api/views/certificates?year=ALL", http.StatusOK},
		{"/api/views/distributed?year=2024", http.StatusOK},
		{"/api/views/overview?year=twenty", http.StatusBadRequest},
		{"/api/records?search=vin%C3%A7&page=1&pageSize=10", http.StatusOK},
		{"/api/records?page=0", http.StatusBadRequest},
		{"/api/dataset", http.StatusOK},
		{"/api/dataset/history", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, tt.target, nil, "")
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestRecordsExport(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	do(t, srv, http.MethodPost, "/api/dataset/sync", nil, "")

	rr := do(t, srv, http.MethodGet, "/api/records/export", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="egitim_kayitlari_2024-06-15.csv"` {
		t.Fatalf("disposition %q", got)
	}
	if !strings.HasPrefix(rr.Body.String(), "\ufeff\"Sicil No\"") {
		t.Fatalf("csv body %q", rr.Body.String())
	}
}

func TestUploadErrors(t *testing.T) {
	srv, _ := newTestServer(t, Options{MaxUploadBytes: 64})

	rr := do(t, srv, http.MethodPost, "/api/upload", []byte("definitely not xlsx"), "application/octet-stream")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("garbage status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/upload", bytes.Repeat([]byte("x"), 200), "application/octet-stream")
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/upload", nil, "application/octet-stream")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty status=%d", rr.Code)
	}
}

func TestUploadMultipartMissingField(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "value")
	_ = mw.Close()

	rr := do(t, srv, http.MethodPost, "/api/upload", buf.Bytes(), mw.FormDataContentType())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSyncUnavailableWithoutSheets(t *testing.T) {
	srv := NewServer(":0", services.NewTrainingService(services.Deps{}), Options{})
	rr := do(t, srv, http.MethodPost, "/api/dataset/sync", nil, "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestHeadcountLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	steps := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"add", http.MethodPost, "/api/headcounts", `{"year":"2023"}`, http.StatusCreated},
		{"add again", http.MethodPost, "/api/headcounts", `{"year":"2023"}`, http.StatusConflict},
		{"add out of range", http.MethodPost, "/api/headcounts", `{"year":"1850"}`, http.StatusUnprocessableEntity},
		{"add unknown field", http.MethodPost, "/api/headcounts", `{"yr":"2023"}`, http.StatusBadRequest},
		{"set short arrays", http.MethodPut, "/api/headcounts/2023", `{"men":[1],"women":[1]}`, http.StatusUnprocessableEntity},
		{"set", http.MethodPut, "/api/headcounts/2023",
			`{"men":[5,5,5,5,5,5,5,5,5,5,5,5],"women":[3,3,3,3,3,3,3,3,3,3,3,3]}`, http.StatusOK},
		{"get", http.MethodGet, "/api/headcounts/2023", "", http.StatusOK},
		{"get bad year", http.MethodGet, "/api/headcounts/abc", "", http.StatusBadRequest},
		{"list", http.MethodGet, "/api/headcounts", "", http.StatusOK},
		{"export", http.MethodGet, "/api/headcounts/export", "", http.StatusOK},
		{"delete", http.MethodDelete, "/api/headcounts/2023", "", http.StatusNoContent},
		{"delete again", http.MethodDelete, "/api/headcounts/2023", "", http.StatusNotFound},
		{"import invalid", http.MethodPost, "/api/headcounts/import", `[1,2,3]`, http.StatusUnprocessableEntity},
		{"import", http.MethodPost, "/api/headcounts/import",
			`{"2022":{"men":[1,1,1,1,1,1,1,1,1,1,1,1],"women":[0,0,0,0,0,0,0,0,0,0,0,0]}}`, http.StatusOK},
	}
	for _, st := range steps {
		var body []byte
		if st.body != "" {
			body = []byte(st.body)
		}
		rr := do(t, srv, st.method, st.target, body, "application/json")
		if rr.Code != st.want {
			t.Fatalf("%s: status=%d want %d body=%s", st.name, rr.Code, st.want, rr.Body.String())
		}
	}

	rr := do(t, srv, http.MethodGet, "/api/headcounts/2022", nil, "")
	var detail services.HeadcountDetail
	if err := json.Unmarshal(rr.Body.Bytes(), &detail); err != nil {
		t.Fatal(err)
	}
	if !detail.Stored || detail.AvgMen != 1 {
		t.Fatalf("imported detail %+v", detail)
	}
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	srv, _ := newTestServer(t, Options{
		Limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1}),
	})

	if rr := do(t, srv, http.MethodPost, "/api/dataset/sync", nil, ""); rr.Code != http.StatusOK {
		t.Fatalf("first sync status=%d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/api/dataset/sync", nil, "")
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("second sync status=%d", rr.Code)
	}
	for i := 0; i < 3; i++ {
		if rr := do(t, srv, http.MethodGet, "/api/dataset", nil, ""); rr.Code != http.StatusOK {
			t.Fatalf("reads must not be limited, status=%d", rr.Code)
		}
	}
}

func TestMetricsUseRoutePatterns(t *testing.T) {
	m := metrics.NewManager()
	srv, _ := newTestServer(t, Options{Metrics: m})

	do(t, srv, http.MethodGet, "/api/headcounts/2024", nil, "")
	do(t, srv, http.MethodGet, "/no/such/path", nil, "")

	rr := do(t, srv, http.MethodGet, "/metrics", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`egitim_http_requests_total{method="GET",route="/api/headcounts/{year}",status="200"} 1`,
		`egitim_http_requests_total{method="GET",route="unmatched",status="404"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %s", want)
		}
	}
}
