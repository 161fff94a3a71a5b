package engine

import (
	"testing"

	"queryforge/internal/core/apperror"
	"queryforge/internal/domain/query"
)

func paginationCode(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	return appErr.Code
}

func TestPaginationCalculator_Resolve(t *testing.T) {
	calc := NewPaginationCalculator(DefaultOptions())

	tests := []struct {
		name string
		spec query.PaginationSpec
		want Resolved
	}{
		{
			name: "EmptySpecDefaults",
			spec: query.PaginationSpec{},
			want: Resolved{Offset: 0, Limit: 10, Page: 1, PageSize: 10},
		},
		{
			name: "PageMode",
			spec: query.ByPage(3, 20),
			want: Resolved{Offset: 40, Limit: 20, Page: 3, PageSize: 20},
		},
		{
			name: "SecondPage",
			spec: query.ByPage(2, 20),
			want: Resolved{Offset: 20, Limit: 20, Page: 2, PageSize: 20},
		},
		{
			name: "PageWithoutSize",
			spec: query.PaginationSpec{Page: intPtr(4)},
			want: Resolved{Offset: 30, Limit: 10, Page: 4, PageSize: 10},
		},
		{
			name: "OffsetMode",
			spec: query.ByOffset(30, 15),
			want: Resolved{Offset: 30, Limit: 15, Page: 3, PageSize: 15},
		},
		{
			name: "OffsetNotAlignedToPage",
			spec: query.ByOffset(7, 10),
			want: Resolved{Offset: 7, Limit: 10, Page: 1, PageSize: 10},
		},
		{
			name: "OffsetWithoutLimit",
			spec: query.PaginationSpec{Offset: intPtr(20)},
			want: Resolved{Offset: 20, Limit: 10, Page: 3, PageSize: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Resolve(tt.spec)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve mismatch\nwant: %+v\ngot:  %+v", tt.want, got)
			}
		})
	}
}

func TestPaginationCalculator_ResolveErrors(t *testing.T) {
	calc := NewPaginationCalculator(DefaultOptions())

	tests := []struct {
		name     string
		spec     query.PaginationSpec
		wantCode string
	}{
		{
			name:     "MixedModes",
			spec:     query.PaginationSpec{Page: intPtr(1), Limit: intPtr(10)},
			wantCode: apperror.CodeConflictingPagination,
		},
		{
			name:     "ZeroPage",
			spec:     query.ByPage(0, 10),
			wantCode: apperror.CodeInvalidPage,
		},
		{
			name:     "NegativePage",
			spec:     query.ByPage(-2, 10),
			wantCode: apperror.CodeInvalidPage,
		},
		{
			name:     "ZeroPageSize",
			spec:     query.ByPage(1, 0),
			wantCode: apperror.CodeInvalidPageSize,
		},
		{
			name:     "OversizedPage",
			spec:     query.ByPage(1, 101),
			wantCode: apperror.CodeInvalidPageSize,
		},
		{
			name:     "NegativeOffset",
			spec:     query.ByOffset(-1, 10),
			wantCode: apperror.CodeInvalidOffset,
		},
		{
			name:     "ZeroLimit",
			spec:     query.ByOffset(0, 0),
			wantCode: apperror.CodeInvalidLimit,
		},
		{
			name:     "OversizedLimit",
			spec:     query.ByOffset(0, 500),
			wantCode: apperror.CodeInvalidLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Resolve(tt.spec)
			if err == nil {
				t.Fatal("expected error")
			}
			if code := paginationCode(t, err); code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, code)
			}
		})
	}
}

func TestPaginationCalculator_OffsetDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.AllowOffsetPagination = false
	calc := NewPaginationCalculator(opts)

	_, err := calc.Resolve(query.ByOffset(0, 10))
	if err == nil {
		t.Fatal("expected error")
	}
	if code := paginationCode(t, err); code != apperror.CodeOffsetDisabled {
		t.Errorf("expected code %s, got %s", apperror.CodeOffsetDisabled, code)
	}

	// Page mode stays available.
	if _, err := calc.Resolve(query.ByPage(1, 10)); err != nil {
		t.Errorf("page mode should still resolve: %v", err)
	}
}

func TestPaginationCalculator_BuildMeta(t *testing.T) {
	calc := NewPaginationCalculator(DefaultOptions())

	tests := []struct {
		name           string
		total          int64
		page, pageSize int
		wantPages      int
		wantNext       bool
		wantPrev       bool
	}{
		{name: "MiddlePage", total: 95, page: 2, pageSize: 10, wantPages: 10, wantNext: true, wantPrev: true},
		{name: "MiddleOfThreePages", total: 45, page: 2, pageSize: 20, wantPages: 3, wantNext: true, wantPrev: true},
		{name: "FirstPage", total: 95, page: 1, pageSize: 10, wantPages: 10, wantNext: true, wantPrev: false},
		{name: "LastPartialPage", total: 95, page: 10, pageSize: 10, wantPages: 10, wantNext: false, wantPrev: true},
		{name: "ExactFit", total: 100, page: 10, pageSize: 10, wantPages: 10, wantNext: false, wantPrev: true},
		{name: "SinglePage", total: 3, page: 1, pageSize: 10, wantPages: 1, wantNext: false, wantPrev: false},
		{name: "EmptyTotal", total: 0, page: 1, pageSize: 10, wantPages: 0, wantNext: false, wantPrev: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := calc.BuildMeta(tt.total, tt.page, tt.pageSize)
			if meta.TotalPages != tt.wantPages {
				t.Errorf("expected %d pages, got %d", tt.wantPages, meta.TotalPages)
			}
			if meta.HasNext != tt.wantNext {
				t.Errorf("hasNext: expected %v, got %v", tt.wantNext, meta.HasNext)
			}
			if meta.HasPrev != tt.wantPrev {
				t.Errorf("hasPrev: expected %v, got %v", tt.wantPrev, meta.HasPrev)
			}
			if meta.Total != tt.total || meta.Page != tt.page || meta.PageSize != tt.pageSize {
				t.Errorf("echo fields mismatch: %+v", meta)
			}
		})
	}
}

func TestPaginationCalculator_ValidateAgainstTotal(t *testing.T) {
	calc := NewPaginationCalculator(DefaultOptions())

	t.Run("WithinBounds", func(t *testing.T) {
		res := Resolved{Page: 2, PageSize: 10}
		if err := calc.ValidateAgainstTotal(res, 15); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("PastLastPage", func(t *testing.T) {
		res := Resolved{Page: 3, PageSize: 10}
		err := calc.ValidateAgainstTotal(res, 15)
		if err == nil {
			t.Fatal("expected error")
		}
		if code := paginationCode(t, err); code != apperror.CodePageOutOfRange {
			t.Errorf("expected code %s, got %s", apperror.CodePageOutOfRange, code)
		}
	})

	t.Run("EmptyResultAcceptsFirstPageOnly", func(t *testing.T) {
		if err := calc.ValidateAgainstTotal(Resolved{Page: 1, PageSize: 10}, 0); err != nil {
			t.Errorf("first page of empty set should pass: %v", err)
		}
		if err := calc.ValidateAgainstTotal(Resolved{Page: 2, PageSize: 10}, 0); err == nil {
			t.Error("second page of empty set should fail")
		}
	})

	t.Run("UnknownTotalSkipsCheck", func(t *testing.T) {
		if err := calc.ValidateAgainstTotal(Resolved{Page: 99, PageSize: 10}, -1); err != nil {
			t.Errorf("negative total should skip validation: %v", err)
		}
	})
}

func intPtr(n int) *int { return &n }
