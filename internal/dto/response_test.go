package dto

import "testing"

func TestPaginationRequest(t *testing.T) {
	tests := []struct {
		name       string
		req        PaginationRequest
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{"默认值", PaginationRequest{}, 1, 20, 0},
		{"第三页", PaginationRequest{Page: 3, PageSize: 10}, 3, 10, 20},
		{"超过上限", PaginationRequest{Page: 2, PageSize: 500}, 2, 100, 100},
		{"负数页码", PaginationRequest{Page: -1, PageSize: 5}, 1, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.GetPage(); got != tt.wantPage {
				t.Errorf("期望页码 %d，实际=%d", tt.wantPage, got)
			}
			if got := tt.req.GetPageSize(); got != tt.wantSize {
				t.Errorf("期望每页 %d，实际=%d", tt.wantSize, got)
			}
			if got := tt.req.GetOffset(); got != tt.wantOffset {
				t.Errorf("期望偏移 %d，实际=%d", tt.wantOffset, got)
			}
		})
	}
}
