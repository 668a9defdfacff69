package http

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"egitim/internal/aggregate"
	"egitim/internal/dataset"
	applog "egitim/internal/log"
)

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the backing dependencies and reports whether a
// dataset is loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}
	if err := s.svc.Ready(ctx); err != nil {
		status, code = "not_ready", http.StatusServiceUnavailable
		checks["dependencies"] = "failed: " + err.Error()
	} else {
		checks["dependencies"] = "ok"
	}
	if _, err := s.svc.DatasetInfo(ctx); err != nil {
		checks["dataset"] = "not_loaded"
	} else {
		checks["dataset"] = "ok"
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	NewJSONResponse(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Status(code).Write(w)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	name, data, err := ReadUpload(r, s.maxUpload)
	if err != nil {
		s.writeError(w, r, applog.OpUpload, err)
		return
	}
	sum, err := s.svc.Upload(r.Context(), name, data)
	if err != nil {
		s.writeError(w, r, applog.OpUpload, err)
		return
	}
	NewJSONResponse(sum).Status(http.StatusCreated).Write(w)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Sync(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpSync, err)
		return
	}
	NewJSONResponse(sum).Write(w)
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.DatasetInfo(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpView, err)
		return
	}
	NewJSONResponse(info).Write(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := ParsePositiveInt(r.URL.Query(), "limit", 0)
	if err != nil {
		s.writeError(w, r, applog.OpView, err)
		return
	}
	loads, err := s.svc.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, applog.OpView, err)
		return
	}
	if loads == nil {
		loads = []dataset.Summary{}
	}
	NewJSONResponse(map[string]any{"loads": loads}).Write(w)
}

// viewHandler adapts a view computed from the standard selectors.
func viewHandler[T any](s *Server, build func(context.Context, *http.Request) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := build(r.Context(), r)
		if err != nil {
			s.writeError(w, r, applog.OpView, err)
			return
		}
		NewJSONResponse(out).Write(w)
	}
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	viewHandler(s, func(ctx context.Context, r *http.Request) (aggregate.Overview, error) {
		q, err := ParseViewQuery(r.URL.Query())
		if err != nil {
			return aggregate.Overview{}, err
		}
		return s.svc.Overview(ctx, q)
	})(w, r)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	viewHandler(s, func(ctx context.Context, r *http.Request) (aggregate.MonthlyView, error) {
		q, err := ParseViewQuery(r.URL.Query())
		if err != nil {
			return aggregate.MonthlyView{}, err
		}
		return s.svc.Monthly(ctx, q)
	})(w, r)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	viewHandler(s, func(ctx context.Context, r *http.Request) (aggregate.Breakdown, error) {
		q, err := ParseViewQuery(r.URL.Query())
		if err != nil {
			return aggregate.Breakdown{}, err
		}
		return s.svc.Breakdown(ctx, q)
	})(w, r)
}

func (s *Server) handleDepartments(w http.ResponseWriter, r *http.Request) {
	viewHandler(s, func(ctx context.Context, r *http.Request) (aggregate.DepartmentsView, error) {
		q, err := ParseViewQuery(r.URL.Query())
		if err != nil {
			return aggregate.DepartmentsView{}, err
		}
		sortBy, err := aggregate.ParseDepartmentSort(r.URL.Query().Get("sort"))
		if err != nil {
			return aggregate.DepartmentsView{}, err
		}
		return s.svc.Departments(ctx, q, sortBy)
	})(w, r)
}

func (s *Server) handleTopTrainings(w http.ResponseWriter, r *http.Request) {
	viewHandler(s, func(ctx context.Context, r *http.Request) (aggregate.TopTrainingsView, error) {
		q, err := ParseViewQuery(r.URL.Query())
		if err != nil {
			return aggregate.TopTrainingsView{}, err
		}
		limit, err := ParsePositiveInt(r.URL.Query(), "limit", aggregate.DefaultTopTrainings)
		if err != nil {
			return aggregate.TopTrainingsView{}, err
		}
		return s.svc.TopTrainings(ctx, q, limit)
	})(w, r)
}

func (s *Server) handleCertificates(w http.ResponseWriter, r *http.Request) {
	viewHandler(s, func(ctx context.Context, r *http.Request) (aggregate.CertificatesView, error) {
		p, err := ParsePeriodSpec(r.URL.Query())
		if err != nil {
			return aggregate.CertificatesView{}, err
		}
		return s.svc.Certificates(ctx, p)
	})(w, r)
}

func (s *Server) handleDistributed(w http.ResponseWriter, r *http.Request) {
	viewHandler(s, func(ctx context.Context, r *http.Request) (aggregate.ProgramsView, error) {
		p, err := ParsePeriodSpec(r.URL.Query())
		if err != nil {
			return aggregate.ProgramsView{}, err
		}
		return s.svc.Distributed(ctx, p)
	})(w, r)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := ParsePositiveInt(query, "page", 1)
	if err != nil {
		s.writeError(w, r, applog.OpView, err)
		return
	}
	size, err := ParsePositiveInt(query, "pageSize", aggregate.DefaultPageSize)
	if err != nil {
		s.writeError(w, r, applog.OpView, err)
		return
	}
	out, err := s.svc.Records(r.Context(), sanitizeInput(query.Get("search")), page, size)
	if err != nil {
		s.writeError(w, r, applog.OpView, err)
		return
	}
	NewJSONResponse(out).Write(w)
}

func (s *Server) handleRecordsExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, err := s.svc.ExportRecords(r.Context(), sanitizeInput(r.URL.Query().Get("search")), &buf)
	if err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHeadcountYears(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse(map[string]any{"years": s.svc.HeadcountYears(r.Context())}).Write(w)
}

type addYearRequest struct {
	Year string `json:"year"`
}

func (s *Server) handleAddHeadcountYear(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var req addYearRequest
	if err := DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, applog.OpAddYear, err)
		return
	}
	if err := s.svc.AddHeadcountYear(r.Context(), req.Year); err != nil {
		s.writeError(w, r, applog.OpAddYear, err)
		return
	}
	detail, err := s.svc.Headcount(r.Context(), req.Year)
	if err != nil {
		s.writeError(w, r, applog.OpAddYear, err)
		return
	}
	NewJSONResponse(detail).Status(http.StatusCreated).Write(w)
}

func (s *Server) handleHeadcount(w http.ResponseWriter, r *http.Request) {
	detail, err := s.svc.Headcount(r.Context(), r.PathValue("year"))
	if err != nil {
		s.writeError(w, r, applog.OpView, err)
		return
	}
	NewJSONResponse(detail).Write(w)
}

type setHeadcountRequest struct {
	Men   []int `json:"men"`
	Women []int `json:"women"`
}

func (s *Server) handleSetHeadcount(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var req setHeadcountRequest
	if err := DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, applog.OpSet, err)
		return
	}
	year := r.PathValue("year")
	if err := s.svc.SetHeadcount(r.Context(), year, req.Men, req.Women); err != nil {
		s.writeError(w, r, applog.OpSet, err)
		return
	}
	detail, err := s.svc.Headcount(r.Context(), year)
	if err != nil {
		s.writeError(w, r, applog.OpSet, err)
		return
	}
	NewJSONResponse(detail).Write(w)
}

func (s *Server) handleDeleteHeadcount(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteHeadcountYear(r.Context(), r.PathValue("year")); err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHeadcountExport(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.svc.ExportHeadcounts(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHeadcountImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	_, data, err := ReadUpload(r, s.maxUpload)
	if err != nil {
		s.writeError(w, r, applog.OpImport, err)
		return
	}
	n, err := s.svc.ImportHeadcounts(r.Context(), data)
	if err != nil {
		s.writeError(w, r, applog.OpImport, err)
		return
	}
	NewJSONResponse(map[string]any{"years": n}).Write(w)
}
