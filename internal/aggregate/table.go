package aggregate

import "egitim/internal/core"

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Page is one page of the data table.
type Page struct {
	Items      []core.TrainingRecord `json:"items"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	Total      int                   `json:"total"`
	TotalPages int                   `json:"totalPages"`
}

// Paginate slices records into 1-based pages. Out-of-range pages clamp to
// the nearest valid one.
func Paginate(records []core.TrainingRecord, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	total := len(records)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return Page{
		Items:      records[start:end],
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: pages,
	}
}
