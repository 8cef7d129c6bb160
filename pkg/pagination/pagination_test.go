package pagination_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/mobby57/memoLib-sub019/pkg/pagination"
)

func defaultConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestConfigFinalizeDefaults(t *testing.T) {
	cfg := pagination.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if cfg.DefaultPageSize != 20 || cfg.MaxPageSize != 100 {
		t.Errorf("defaults = %+v, want 20/100", cfg)
	}
}

func TestConfigFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_PAGE_SIZE", "50")
	t.Setenv("TEST_MAX_PAGE", "200")

	cfg := pagination.Config{}
	err := cfg.Finalize(&pagination.ConfigEnv{
		DefaultPageSize: "TEST_PAGE_SIZE",
		MaxPageSize:     "TEST_MAX_PAGE",
	})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if cfg.DefaultPageSize != 50 || cfg.MaxPageSize != 200 {
		t.Errorf("overrides = %+v, want 50/200", cfg)
	}
}

func TestConfigFinalizeValidation(t *testing.T) {
	cfg := pagination.Config{DefaultPageSize: 50, MaxPageSize: 10}
	err := cfg.Finalize(nil)
	if err == nil || !strings.Contains(err.Error(), "cannot exceed") {
		t.Errorf("Finalize() = %v, want default exceeds max error", err)
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantPage     int
		wantPageSize int
		wantSearch   string
		wantSort     int
	}{
		{"empty", "", 1, 20, "", 0},
		{"explicit", "page=3&page_size=5", 3, 5, "", 0},
		{"clamped", "page=-1&page_size=1000", 1, 100, "", 0},
		{"search and sort", "search=invoice&sort=-createdAt,id", 1, 20, "invoice", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			req := pagination.PageRequestFromQuery(values, defaultConfig())

			if req.Page != tt.wantPage || req.PageSize != tt.wantPageSize {
				t.Errorf("page/size = %d/%d, want %d/%d", req.Page, req.PageSize, tt.wantPage, tt.wantPageSize)
			}
			if tt.wantSearch == "" && req.Search != nil {
				t.Errorf("search = %q, want nil", *req.Search)
			}
			if tt.wantSearch != "" && (req.Search == nil || *req.Search != tt.wantSearch) {
				t.Errorf("search = %v, want %q", req.Search, tt.wantSearch)
			}
			if len(req.Sort) != tt.wantSort {
				t.Errorf("sort = %v, want %d fields", req.Sort, tt.wantSort)
			}
		})
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		pageSize  int
		wantPages int
	}{
		{"empty", 0, 10, 1},
		{"exact", 20, 10, 2},
		{"remainder", 21, 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := pagination.NewPageResult[string](nil, tt.total, 1, tt.pageSize)
			if res.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", res.TotalPages, tt.wantPages)
			}
			if res.Data == nil {
				t.Error("Data should be an empty slice, not nil")
			}
		})
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	got := pagination.Slice(items, pagination.PageRequest{Page: 2, PageSize: 2})
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("Slice page 2 = %v, want [3 4]", got)
	}

	got = pagination.Slice(items, pagination.PageRequest{Page: 3, PageSize: 2})
	if len(got) != 1 || got[0] != 5 {
		t.Errorf("Slice page 3 = %v, want [5]", got)
	}

	got = pagination.Slice(items, pagination.PageRequest{Page: 9, PageSize: 2})
	if len(got) != 0 {
		t.Errorf("Slice past end = %v, want empty", got)
	}
}
