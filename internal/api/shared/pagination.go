package shared

import "fmt"

// Pagination describes where a page sits in its collection.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
	NextPage   *int `json:"nextPage"`
	PrevPage   *int `json:"prevPage"`
}

// NewPagination computes pagination metadata. Out-of-range arguments are
// programmer errors, not client errors, and panic: handlers must have
// validated page and limit before calling.
func NewPagination(page, limit, total int) Pagination {
	if limit <= 0 {
		panic(fmt.Sprintf("pagination: limit must be > 0, got %d", limit))
	}
	if page < 1 {
		panic(fmt.Sprintf("pagination: page must be >= 1, got %d", page))
	}
	if total < 0 {
		panic(fmt.Sprintf("pagination: total must be >= 0, got %d", total))
	}

	totalPages := (total + limit - 1) / limit
	p := Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
	if p.HasNext {
		next := page + 1
		p.NextPage = &next
	}
	if p.HasPrev {
		prev := page - 1
		p.PrevPage = &prev
	}
	return p
}
