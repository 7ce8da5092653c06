package dto

import "timetable-editor/internal/model"

// FreeStaffRequest 空闲教师查询；timetable_id 为空时使用 Token 中的 useTimetable
type FreeStaffRequest struct {
	TimetableID string `form:"timetable_id" binding:"omitempty,max=100"`
	Query       string `form:"q"            binding:"omitempty,max=100"`
	Employment  string `form:"employment"   binding:"omitempty,oneof=all full_time part_time"`
}

// FreeStaffResponse 当前时段空闲教师与教室
type FreeStaffResponse struct {
	Day             int                `json:"day"`
	DayName         string             `json:"day_name"`
	Period          *int               `json:"period"` // 1 起；special 时为 null
	IsSpecial       bool               `json:"is_special"`
	IsBreak         bool               `json:"is_break"`
	Teaching        []model.ClassEntry `json:"teaching"`
	FreeInstructors []model.Instructor `json:"free_instructors"`
	AvailableRooms  []model.Room       `json:"available_rooms"`
}

// CatalogResponse 目录列表（时间表、教师、教室、课程）
type CatalogResponse struct {
	List  interface{} `json:"list"`
	Total int         `json:"total"`
}
