package engine

import (
	"fmt"

	"queryforge/internal/core/apperror"
	"queryforge/internal/domain/query"
)

// Resolved is the canonical pagination tuple for one query.
type Resolved struct {
	Offset   int
	Limit    int
	Page     int
	PageSize int
}

// Meta is the pagination block of a result envelope.
type Meta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// PaginationCalculator resolves pagination requests and produces metadata.
type PaginationCalculator struct {
	opts Options
}

// NewPaginationCalculator creates a calculator with normalized options.
func NewPaginationCalculator(opts Options) *PaginationCalculator {
	return &PaginationCalculator{opts: opts.Normalize()}
}

// Resolve validates the spec and computes the canonical tuple. An empty
// spec resolves to the first page of the default size. Bound checks
// against a known total are a separate step, see ValidateAgainstTotal.
func (p *PaginationCalculator) Resolve(spec query.PaginationSpec) (Resolved, error) {
	if spec.PageMode() && spec.OffsetMode() {
		return Resolved{}, apperror.NewPagination(apperror.CodeConflictingPagination,
			"page-based and offset-based pagination cannot be combined")
	}

	if spec.OffsetMode() {
		return p.resolveOffset(spec)
	}
	return p.resolvePage(spec)
}

func (p *PaginationCalculator) resolveOffset(spec query.PaginationSpec) (Resolved, error) {
	if !p.opts.AllowOffsetPagination {
		return Resolved{}, apperror.NewPagination(apperror.CodeOffsetDisabled,
			"offset-based pagination is disabled")
	}

	offset := 0
	if spec.Offset != nil {
		offset = *spec.Offset
	}
	if offset < 0 {
		return Resolved{}, apperror.NewPagination(apperror.CodeInvalidOffset,
			"offset must be non-negative").WithValue(offset)
	}

	limit := p.opts.DefaultPageSize
	if spec.Limit != nil {
		limit = *spec.Limit
	}
	if limit < 1 {
		return Resolved{}, apperror.NewPagination(apperror.CodeInvalidLimit,
			"limit must be positive").WithValue(limit)
	}
	if limit > p.opts.MaxPageSize {
		return Resolved{}, apperror.NewPagination(apperror.CodeInvalidLimit,
			fmt.Sprintf("limit exceeds maximum of %d", p.opts.MaxPageSize)).WithValue(limit)
	}

	return Resolved{
		Offset:   offset,
		Limit:    limit,
		Page:     offset/limit + 1,
		PageSize: limit,
	}, nil
}

func (p *PaginationCalculator) resolvePage(spec query.PaginationSpec) (Resolved, error) {
	page := 1
	if spec.Page != nil {
		page = *spec.Page
	}
	if page < 1 {
		return Resolved{}, apperror.NewPagination(apperror.CodeInvalidPage,
			"page must be positive").WithValue(page)
	}

	pageSize := p.opts.DefaultPageSize
	if spec.PageSize != nil {
		pageSize = *spec.PageSize
		if pageSize < 1 {
			return Resolved{}, apperror.NewPagination(apperror.CodeInvalidPageSize,
				"page size must be positive").WithValue(pageSize)
		}
		if pageSize > p.opts.MaxPageSize {
			return Resolved{}, apperror.NewPagination(apperror.CodeInvalidPageSize,
				fmt.Sprintf("page size exceeds maximum of %d", p.opts.MaxPageSize)).WithValue(pageSize)
		}
	}
	// Defaults stay within the configured bound.
	if pageSize > p.opts.MaxPageSize {
		pageSize = p.opts.MaxPageSize
	}

	return Resolved{
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// BuildMeta computes metadata for a known total.
func (p *PaginationCalculator) BuildMeta(total int64, page, pageSize int) Meta {
	if pageSize < 1 {
		pageSize = 1
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return Meta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// BuildResult wraps rows in a paginated envelope.
func (p *PaginationCalculator) BuildResult(rows []Row, total int64, page, pageSize int) *Result {
	meta := p.BuildMeta(total, page, pageSize)
	return &Result{Data: rows, Pagination: &meta}
}

// ValidateAgainstTotal checks the resolved request against a known total.
// Requesting a page past the last one fails; an empty result set accepts
// only the first page.
func (p *PaginationCalculator) ValidateAgainstTotal(res Resolved, total int64) error {
	if total < 0 {
		return nil
	}
	meta := p.BuildMeta(total, res.Page, res.PageSize)
	if total == 0 {
		if res.Page > 1 {
			return apperror.NewPagination(apperror.CodePageOutOfRange,
				"page is past the last page").
				WithValue(res.Page).
				WithDetail("totalPages", 0)
		}
		return nil
	}
	if res.Page > meta.TotalPages {
		return apperror.NewPagination(apperror.CodePageOutOfRange,
			"page is past the last page").
			WithValue(res.Page).
			WithDetail("totalPages", meta.TotalPages)
	}
	return nil
}
