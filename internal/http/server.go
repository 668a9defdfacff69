package http

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"egitim/internal/aggregate"
	"egitim/internal/dataset"
	"egitim/internal/filter"
	applog "egitim/internal/log"
	"egitim/internal/metrics"
	"egitim/internal/middleware/ratelimit"
	"egitim/internal/middleware/security"
	"egitim/internal/middleware/trace"
	"egitim/internal/services"
)

// Service is what the handlers need from the service layer.
type Service interface {
	Upload(ctx context.Context, filename string, data []byte) (dataset.Summary, error)
	Sync(ctx context.Context) (dataset.Summary, error)
	DatasetInfo(ctx context.Context) (services.DatasetInfo, error)
	History(ctx context.Context, limit int) ([]dataset.Summary, error)
	Ready(ctx context.Context) error

	Overview(ctx context.Context, q services.ViewQuery) (aggregate.Overview, error)
	Monthly(ctx context.Context, q services.ViewQuery) (aggregate.MonthlyView, error)
	Breakdown(ctx context.Context, q services.ViewQuery) (aggregate.Breakdown, error)
	Departments(ctx context.Context, q services.ViewQuery, sortBy aggregate.DepartmentSort) (aggregate.DepartmentsView, error)
	TopTrainings(ctx context.Context, q services.ViewQuery, limit int) (aggregate.TopTrainingsView, error)
	Certificates(ctx context.Context, p filter.PeriodSpec) (aggregate.CertificatesView, error)
	Distributed(ctx context.Context, p filter.PeriodSpec) (aggregate.ProgramsView, error)
	Records(ctx context.Context, search string, page, size int) (aggregate.Page, error)
	ExportRecords(ctx context.Context, search string, w io.Writer) (string, error)

	HeadcountYears(ctx context.Context) []services.HeadcountYear
	Headcount(ctx context.Context, year string) (services.HeadcountDetail, error)
	SetHeadcount(ctx context.Context, year string, men, women []int) error
	AddHeadcountYear(ctx context.Context, year string) error
	DeleteHeadcountYear(ctx context.Context, year string) error
	ExportHeadcounts(ctx context.Context) ([]byte, string, error)
	ImportHeadcounts(ctx context.Context, data []byte) (int, error)
}

// Options configures NewServer. Zero values pick working defaults.
type Options struct {
	MaxUploadBytes int64
	RequestTimeout time.Duration
	Metrics        *metrics.Manager
	Limiter        *ratelimit.Limiter
	ClientIP       *security.ClientIPResolver
	Headers        *security.HeadersConfig
	Logger         *applog.Logger
}

const (
	defaultMaxUpload      = 20 << 20
	defaultRequestTimeout = 30 * time.Second
	maxJSONBody           = 1 << 20
)

type Server struct {
	http.Server
	svc       Service
	metrics   *metrics.Manager
	limiter   *ratelimit.Limiter
	clientIP  *security.ClientIPResolver
	logger    *applog.Logger
	events    *applog.StructuredLogger
	maxUpload int64
	timeout   time.Duration
	started   time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Service, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewLimiter(ratelimit.Config{})
	}
	if opts.ClientIP == nil {
		opts.ClientIP = security.NewClientIPResolver()
	}
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	headers := security.DefaultHeadersConfig()
	if opts.Headers != nil {
		headers = *opts.Headers
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	s := &Server{
		svc:       svc,
		metrics:   opts.Metrics,
		limiter:   opts.Limiter,
		clientIP:  opts.ClientIP,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
		maxUpload: opts.MaxUploadBytes,
		timeout:   opts.RequestTimeout,
		started:   time.Now(),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	tracer := &trace.Middleware{Enrich: s.enrich, Done: s.done}
	limit := s.limiter.Middleware(s.clientIP.ClientIP, s.onRateLimited)
	handler := security.NewHeadersMiddleware(headers).Middleware(mutationsOnly(limit, mux))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Handler(handler),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	s.handle(mux, "/healthz", methods{http.MethodGet: s.handleHealth})
	s.handle(mux, "/readyz", methods{http.MethodGet: s.handleReady})
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	s.handle(mux, "/api/upload", methods{http.MethodPost: s.handleUpload})
	s.handle(mux, "/api/dataset", methods{http.MethodGet: s.handleDataset})
	s.handle(mux, "/api/dataset/sync", methods{http.MethodPost: s.handleSync})
	s.handle(mux, "/api/dataset/history", methods{http.MethodGet: s.handleHistory})

	s.handle(mux, "/api/views/overview", methods{http.MethodGet: s.handleOverview})
	s.handle(mux, "/api/views/monthly", methods{http.MethodGet: s.handleMonthly})
	s.handle(mux, "/api/views/breakdown", methods{http.MethodGet: s.handleBreakdown})
	s.handle(mux, "/api/views/departments", methods{http.MethodGet: s.handleDepartments})
	s.handle(mux, "/api/views/top-trainings", methods{http.MethodGet: s.handleTopTrainings})
	s.handle(mux, "/api/views/certificates", methods{http.MethodGet: s.handleCertificates})
	s.handle(mux, "/api/views/distributed", methods{http.MethodGet: s.handleDistributed})

	s.handle(mux, "/api/records", methods{http.MethodGet: s.handleRecords})
	s.handle(mux, "/api/records/export", methods{http.MethodGet: s.handleRecordsExport})

	s.handle(mux, "/api/headcounts", methods{
		http.MethodGet:  s.handleHeadcountYears,
		http.MethodPost: s.handleAddHeadcountYear,
	})
	s.handle(mux, "/api/headcounts/export", methods{http.MethodGet: s.handleHeadcountExport})
	s.handle(mux, "/api/headcounts/import", methods{http.MethodPost: s.handleHeadcountImport})
	s.handle(mux, "/api/headcounts/{year}", methods{
		http.MethodGet:    s.handleHeadcount,
		http.MethodPut:    s.handleSetHeadcount,
		http.MethodDelete: s.handleDeleteHeadcount,
	})
}

// methods dispatches on the request method.
type methods map[string]http.HandlerFunc

func (s *Server) handle(mux *http.ServeMux, pattern string, m methods) {
	allowed := make([]string, 0, len(m))
	for method := range m {
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")

	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		h, ok := m[r.Method]
		if !ok && r.Method == http.MethodHead {
			h, ok = m[http.MethodGet]
		}
		if !ok {
			MethodNotAllowedError(allow, requestID(r)).Write(w)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		h(w, r.WithContext(ctx))
	})
}

// mutationsOnly applies limit to requests that change state.
func mutationsOnly(limit func(http.Handler) http.Handler, next http.Handler) http.Handler {
	limited := limit(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

func (s *Server) enrich(ctx context.Context, id string) context.Context {
	return applog.NewContext(ctx, s.logger.With(applog.FieldRequestID, id))
}

func (s *Server) done(c trace.Completion) {
	if s.metrics != nil {
		s.metrics.RecordHTTPRequest(c.Request.Method, c.Route, c.Status, c.Duration)
	}
	switch c.Route {
	case "/healthz", "/readyz", "/metrics":
		return
	}
	s.events.LogHTTPEnd(c.Request.Context(), c.Request, c.Status, c.Duration.Milliseconds(), s.clientIP.ClientIP(c.Request))
}

func (s *Server) onRateLimited(r *http.Request) {
	if s.metrics != nil {
		s.metrics.RecordRateLimited()
	}
	applog.FromContextOr(r.Context(), s.logger).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.clientIP.ClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
}

func requestID(r *http.Request) string {
	return trace.RequestID(r.Context())
}
