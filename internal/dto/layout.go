package dto

// SaveLayoutRequest 保存布局快照
type SaveLayoutRequest struct {
	Comment string `json:"comment" binding:"max=500"`
}

// ListLayoutsRequest 快照列表查询（时间表取自会话）
type ListLayoutsRequest struct {
	PaginationRequest
}

// LayoutSnapshotResponse 快照信息（列表不含时间表内容）
type LayoutSnapshotResponse struct {
	ID          string `json:"id"`
	TimetableID string `json:"timetable_id"`
	Name        string `json:"name"`
	Comment     string `json:"comment,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// ExportCalendarRequest 导出 ICS 查询参数
type ExportCalendarRequest struct {
	Label     string `form:"label"      binding:"required,max=50"`
	WeekStart string `form:"week_start" binding:"omitempty,datetime=2006-01-02"`
	Weeks     int    `form:"weeks"      binding:"omitempty,min=1,max=52"` // 重复周数，默认 1
}
