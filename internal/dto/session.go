package dto

import (
	"timetable-editor/internal/model"
	"timetable-editor/internal/timetable"
)

// ── 编辑会话请求 ──

// OpenSessionRequest 打开编辑会话；timetable_id 为空时使用 Token 中的 useTimetable
type OpenSessionRequest struct {
	TimetableID string `json:"timetable_id" binding:"omitempty,max=100"`
}

// SlotAddressRequest 格子地址
type SlotAddressRequest struct {
	Day    string `json:"day"    binding:"required,max=20"`
	Label  string `json:"label"  binding:"required,max=50"`
	Period *int   `json:"period" binding:"required,min=0"`
}

// ToAddress 转换为网格地址
func (r SlotAddressRequest) ToAddress() timetable.SlotAddress {
	period := 0
	if r.Period != nil {
		period = *r.Period
	}
	return timetable.SlotAddress{Day: r.Day, Label: r.Label, Period: period}
}

// DropRequest 拖放移动
type DropRequest struct {
	From SlotAddressRequest `json:"from" binding:"required"`
	To   SlotAddressRequest `json:"to"   binding:"required"`
}

// RenameRequest 修改时间表名称（同步到上游）
type RenameRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

// ── 编辑会话响应 ──

// GridCell 网格单元格；空格在 JSON 中为 null
type GridCell struct {
	Subject     string   `json:"subject"`
	Instructors []string `json:"instructors"`
	Rooms       []string `json:"rooms"`
	Targets     []string `json:"targets"`
	Length      int      `json:"length"`
}

// GridView 班级 → 星期 → 节次
type GridView map[string]map[string][]*GridCell

// SessionResponse 编辑会话详情
type SessionResponse struct {
	ID          string                  `json:"id"`
	TimetableID string                  `json:"timetable_id"`
	Name        string                  `json:"name"`
	Version     int64                   `json:"version"`
	Roster      []string                `json:"roster"`
	Days        []string                `json:"days"`
	SlotsPerDay int                     `json:"slots_per_day"`
	Grid        GridView                `json:"grid"`
	Report      timetable.Report        `json:"report"`
	Selection   *timetable.SlotAddress  `json:"selection,omitempty"`
	CanUndo     bool                    `json:"can_undo"`
	CanRedo     bool                    `json:"can_redo"`
	Teachers    []string                `json:"teachers"`
	Highlighted []timetable.SlotAddress `json:"highlighted,omitempty"`
	Timetable   *model.Timetable        `json:"timetable"`
	UpdatedAt   string                  `json:"updated_at"`
}

// MoveResponse 拖放结果
type MoveResponse struct {
	Applied   bool              `json:"applied"`
	Reason    string            `json:"reason,omitempty"`
	Moved     *model.ClassEntry `json:"moved,omitempty"`
	Displaced *model.ClassEntry `json:"displaced,omitempty"`
	Session   *SessionResponse  `json:"session"`
}

// ClickResponse 双击结果
type ClickResponse struct {
	Action    string                 `json:"action"`
	Selection *timetable.SlotAddress `json:"selection,omitempty"`
	Session   *SessionResponse       `json:"session"`
}

// HistoryResponse 撤销/重做结果
type HistoryResponse struct {
	Applied bool             `json:"applied"`
	Session *SessionResponse `json:"session"`
}
