package models

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 6
)

// Pagination selects one page of the available catalog.
type Pagination struct {
	Page  int
	Limit int
}

// NewPagination applies the defaults (page 1, limit 6) to unset values.
func NewPagination(page, limit *int) Pagination {
	p := Pagination{Page: DefaultPage, Limit: DefaultLimit}
	if page != nil {
		p.Page = *page
	}
	if limit != nil {
		p.Limit = *limit
	}
	return p
}

// Offset is the number of records skipped: |page-1| * limit. It saturates at
// math.MaxInt instead of wrapping, so an out-of-range page selects nothing.
func (p Pagination) Offset() int {
	if p.Limit <= 0 {
		return 0
	}
	n := p.Page - 1
	if p.Page < 1 {
		n = 1 - p.Page
		if n < 0 {
			return math.MaxInt
		}
	}
	if n > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return n * p.Limit
}

// PageMeta describes where a page sits within the whole result set.
// NextPage and PrevPage are nil when there is no such page.
type PageMeta struct {
	TotalCount int
	TotalPages int
	NextPage   *int
	PrevPage   *int
}

// Meta computes the page metadata for totalCount matching records.
// TotalPages is ceil(totalCount/limit), and 0 when limit is 0.
func (p Pagination) Meta(totalCount int) PageMeta {
	m := PageMeta{TotalCount: totalCount}
	if p.Limit > 0 {
		m.TotalPages = totalCount / p.Limit
		if totalCount%p.Limit != 0 {
			m.TotalPages++
		}
	}
	if p.Page < m.TotalPages {
		next := p.Page + 1
		m.NextPage = &next
	}
	if p.Page > 1 {
		prev := p.Page - 1
		m.PrevPage = &prev
	}
	return m
}
