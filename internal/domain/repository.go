// Package domain provides core business logic interfaces and types.
package domain

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/domain/form"
)

// --- Filter & Pagination ---

const (
	DefaultLimit = 10
	// DefaultWindow is the date range applied when no bound is given.
	DefaultWindow = 30 * 24 * time.Hour
)

// LikeColumns are the columns filter_like may target.
var LikeColumns = map[string]bool{
	"form.number":    true,
	"form.notes":     true,
	"warehouse.name": true,
}

// ListQuery is the raw findAll input.
type ListQuery struct {
	Limit      int
	Page       int
	DateMin    *time.Time
	DateMax    *time.Time
	FilterForm string
	// FilterLike is the decoded filter_like object.
	FilterLike map[string]string
}

// ListFilter contains the normalized filtering options for list operations.
type ListFilter struct {
	Limit    int
	Offset   int
	Page     int
	DateFrom time.Time
	// DateTo is exclusive.
	DateTo time.Time
	Status form.Filter
	// Like is OR-combined substring matching by column.
	Like map[string]string
}

// ParseLike decodes a filter_like JSON object. Only whitelisted columns
// with a non-empty value are kept.
func ParseLike(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var in map[string]any
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, apperror.NewValidation("invalid filter_like").WithCause(err)
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" || !LikeColumns[k] {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}
	return out, nil
}

// Normalize applies defaults: limit 10, page 1 and a date window of the
// last 30 days, from 00:00 of the first day to 24:00 of the last.
func (q ListQuery) Normalize(now time.Time) (ListFilter, error) {
	status, err := form.ParseFilter(q.FilterForm)
	if err != nil {
		return ListFilter{}, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}

	from := now.Add(-DefaultWindow)
	if q.DateMin != nil {
		from = *q.DateMin
	}
	to := now
	if q.DateMax != nil {
		to = *q.DateMax
	}

	like := make(map[string]string, len(q.FilterLike))
	for k, v := range q.FilterLike {
		if LikeColumns[k] && v != "" {
			like[k] = v
		}
	}

	return ListFilter{
		Limit:    limit,
		Offset:   (page - 1) * limit,
		Page:     page,
		DateFrom: startOfDay(from),
		DateTo:   startOfDay(to).AddDate(0, 0, 1),
		Status:   status,
		Like:     like,
	}, nil
}

// InWindow reports whether t falls inside [DateFrom, DateTo).
func (f ListFilter) InWindow(t time.Time) bool {
	return !t.Before(f.DateFrom) && t.Before(f.DateTo)
}

// MatchLike reports whether any like term is a case-insensitive substring
// of the value returned by field. An empty like set matches everything.
func (f ListFilter) MatchLike(field func(column string) string) bool {
	if len(f.Like) == 0 {
		return true
	}
	for col, term := range f.Like {
		if strings.Contains(strings.ToLower(field(col)), strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items       []T   `json:"items"`
	Total       int64 `json:"total"`
	MaxItem     int   `json:"maxItem"`
	CurrentPage int   `json:"currentPage"`
	TotalPage   int   `json:"totalPage"`
}

// NewListResult fills the pagination fields from the filter.
func NewListResult[T any](items []T, total int64, f ListFilter) ListResult[T] {
	if items == nil {
		items = []T{}
	}
	totalPage := 0
	if f.Limit > 0 {
		totalPage = int(math.Ceil(float64(total) / float64(f.Limit)))
	}
	return ListResult[T]{
		Items:       items,
		Total:       total,
		MaxItem:     f.Limit,
		CurrentPage: f.Page,
		TotalPage:   totalPage,
	}
}

// Paginate slices an in-memory result set.
func Paginate[T any](all []T, f ListFilter) ListResult[T] {
	total := int64(len(all))
	start := f.Offset
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return NewListResult(all[start:end], total, f)
}
