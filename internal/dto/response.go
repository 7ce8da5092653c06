package dto

// ── 分页请求 ──

// 快照列表的分页上限与 binding 标签保持一致
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PaginationRequest 列表分页参数（目前用于布局快照列表）
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 未传或非法时为第 1 页
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 每页数量；service 层直接构造请求时不经过 binding，超过上限按上限处理
func (p *PaginationRequest) GetPageSize() int {
	switch {
	case p.PageSize <= 0:
		return defaultPageSize
	case p.PageSize > maxPageSize:
		return maxPageSize
	default:
		return p.PageSize
	}
}

// GetOffset 对应 repository 层 Offset
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}
