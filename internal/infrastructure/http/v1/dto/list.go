// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"strings"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/domain"
)

// dateLayout is the calendar-day form of date_min and date_max.
const dateLayout = "2006-01-02"

// ListParams are the query parameters of FindAll.
type ListParams struct {
	Limit      int    `form:"limit"`
	Page       int    `form:"page"`
	DateMin    string `form:"date_min"`
	DateMax    string `form:"date_max"`
	FilterForm string `form:"filter_form"`
	FilterLike string `form:"filter_like"`
}

// ToQuery decodes the parameters into a list query.
func (p ListParams) ToQuery() (domain.ListQuery, error) {
	q := domain.ListQuery{
		Limit:      p.Limit,
		Page:       p.Page,
		FilterForm: p.FilterForm,
	}

	var err error
	if q.DateMin, err = parseDate("date_min", p.DateMin); err != nil {
		return q, err
	}
	if q.DateMax, err = parseDate("date_max", p.DateMax); err != nil {
		return q, err
	}
	if q.FilterLike, err = domain.ParseLike(p.FilterLike); err != nil {
		return q, err
	}
	return q, nil
}

// parseDate accepts a calendar day or an RFC 3339 timestamp.
func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperror.NewValidation("invalid " + field).WithDetail(field, raw)
}

// ListResponse wraps a page of documents.
type ListResponse[T any] struct {
	Data        []T   `json:"data"`
	Total       int64 `json:"total"`
	MaxItem     int   `json:"maxItem"`
	CurrentPage int   `json:"currentPage"`
	TotalPage   int   `json:"totalPage"`
}

// NewListResponse maps a list result.
func NewListResponse[T any](r domain.ListResult[T]) ListResponse[T] {
	return ListResponse[T]{
		Data:        r.Items,
		Total:       r.Total,
		MaxItem:     r.MaxItem,
		CurrentPage: r.CurrentPage,
		TotalPage:   r.TotalPage,
	}
}
