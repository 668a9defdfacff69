// Package http serves the training dashboards as a JSON API.
//
// This file implements utilities for parsing and validating request data:
// view selectors, paging parameters, uploads and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"egitim/internal/core"
	"egitim/internal/filter"
	"egitim/internal/services"
)

// ParseViewQuery reads the analytical view selectors. A missing year means
// the most recent year of the dataset.
func ParseViewQuery(query url.Values) (services.ViewQuery, error) {
	year, err := parseYear(query.Get("year"), false)
	if err != nil {
		return services.ViewQuery{}, err
	}
	return services.ViewQuery{
		Year:        year,
		Company:     sanitizeInput(query.Get("company")),
		Gender:      sanitizeInput(query.Get("gender")),
		Personnel:   sanitizeInput(query.Get("personnel")),
		Types:       listParam(query, "types"),
		Departments: listParam(query, "departments"),
	}, nil
}

// ParsePeriodSpec reads the certificate and programme selectors, where
// year may also be ALL.
func ParsePeriodSpec(query url.Values) (filter.PeriodSpec, error) {
	year, err := parseYear(query.Get("year"), true)
	if err != nil {
		return filter.PeriodSpec{}, err
	}
	return filter.PeriodSpec{Year: year, Company: sanitizeInput(query.Get("company"))}, nil
}

func parseYear(v string, allowAll bool) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" || (allowAll && strings.EqualFold(v, core.All)) {
		return 0, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1900 || y > 9999 {
		return 0, fmt.Errorf("%w: year %q", errBadRequest, v)
	}
	return y, nil
}

// ParsePositiveInt returns the named parameter, def when it is absent, and
// an error when it is present but not a positive integer.
func ParsePositiveInt(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, key)
	}
	return n, nil
}

// listParam collects a repeated parameter. Values are taken whole since
// department names may contain commas.
func listParam(query url.Values, key string) []string {
	var out []string
	for _, raw := range query[key] {
		if v := sanitizeInput(raw); v != "" && v != core.All {
			out = append(out, v)
		}
	}
	return out
}

// ReadUpload returns the uploaded workbook: the multipart "file" field when
// the request is multipart, otherwise the raw body.
func ReadUpload(r *http.Request, maxBytes int64) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return "", nil, err
		}
		if len(data) == 0 {
			return "", nil, fmt.Errorf("%w: empty upload", errBadRequest)
		}
		name := r.URL.Query().Get("filename")
		if name == "" {
			name = "upload.xlsx"
		}
		return name, data, nil
	}

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("%w: missing file field", errBadRequest)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
