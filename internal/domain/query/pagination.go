package query

// PaginationSpec requests either page-based or offset-based pagination.
// Pointer fields distinguish "absent" from zero; setting fields of both
// modes is rejected at resolution.
type PaginationSpec struct {
	Page     *int `json:"page,omitempty"`
	PageSize *int `json:"page_size,omitempty"`
	Offset   *int `json:"offset,omitempty"`
	Limit    *int `json:"limit,omitempty"`
}

// PageMode reports whether any page-based field is set.
func (p PaginationSpec) PageMode() bool {
	return p.Page != nil || p.PageSize != nil
}

// OffsetMode reports whether any offset-based field is set.
func (p PaginationSpec) OffsetMode() bool {
	return p.Offset != nil || p.Limit != nil
}

// IsZero reports whether no pagination was requested.
func (p PaginationSpec) IsZero() bool {
	return !p.PageMode() && !p.OffsetMode()
}

// Merge overlays set fields of other onto a copy of p.
func (p PaginationSpec) Merge(other PaginationSpec) PaginationSpec {
	out := p
	if other.Page != nil {
		out.Page = other.Page
	}
	if other.PageSize != nil {
		out.PageSize = other.PageSize
	}
	if other.Offset != nil {
		out.Offset = other.Offset
	}
	if other.Limit != nil {
		out.Limit = other.Limit
	}
	return out
}

// ByPage builds a page-based spec.
func ByPage(page, pageSize int) PaginationSpec {
	return PaginationSpec{Page: &page, PageSize: &pageSize}
}

// ByOffset builds an offset-based spec.
func ByOffset(offset, limit int) PaginationSpec {
	return PaginationSpec{Offset: &offset, Limit: &limit}
}
