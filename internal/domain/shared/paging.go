package shared

// PageRequest is a 1-based paging window
type PageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// DefaultPageSize is used when a caller requests paging without a size
const DefaultPageSize = 20

// Normalize clamps the request to sane values
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	return p
}

// Offset returns the number of rows to skip
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Paginated represents one page of a result set. Total pages and
// has-next/has-previous are derived, never stored.
type Paginated[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	return Paginated[T]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
}

// TotalPages returns the number of pages needed for Total items
func (p Paginated[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	pages := int(p.Total) / p.PageSize
	if int(p.Total)%p.PageSize > 0 {
		pages++
	}
	return pages
}

// HasNext reports whether a later page exists
func (p Paginated[T]) HasNext() bool {
	return p.Page < p.TotalPages()
}

// HasPrevious reports whether an earlier page exists
func (p Paginated[T]) HasPrevious() bool {
	return p.Page > 1
}
