package model

import (
	"time"

	"gorm.io/datatypes"
)

// LayoutSnapshot 排课布局快照表：对应 layout_snapshots
// 上游只接受时间表名称更新，课程位置的调整以快照形式保存在本服务。
type LayoutSnapshot struct {
	LayoutSnapshotID string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"layout_snapshot_id"`
	TimetableID      string         `gorm:"type:varchar(100);not null;index"               json:"timetable_id"`
	Name             string         `gorm:"type:varchar(200);not null"                     json:"name"`
	Payload          datatypes.JSON `gorm:"type:jsonb;not null"                            json:"payload"` // 与上游 Timetable JSON 同构
	Comment          string         `gorm:"type:varchar(500)"                              json:"comment,omitempty"`
	SessionID        string         `gorm:"type:uuid"                                      json:"session_id,omitempty"`
	BaseModel
}

// TableName 指定表名
func (LayoutSnapshot) TableName() string { return "layout_snapshots" }

// LayoutChangeLog 布局变更记录表：对应 layout_change_logs（纯审计日志）
type LayoutChangeLog struct {
	ChangeLogID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"change_log_id"`
	SessionID   string    `gorm:"type:uuid;not null;index"                       json:"session_id"`
	TimetableID string    `gorm:"type:varchar(100);not null"                     json:"timetable_id"`
	ChangeType  string    `gorm:"type:varchar(20);not null"                      json:"change_type"` // move | swap | undo | redo | save | restore | rename
	FromDay     string    `gorm:"type:varchar(20)"                               json:"from_day,omitempty"`
	FromLabel   string    `gorm:"type:varchar(50)"                               json:"from_label,omitempty"`
	FromPeriod  *int      `gorm:"type:smallint"                                  json:"from_period,omitempty"`
	ToDay       string    `gorm:"type:varchar(20)"                               json:"to_day,omitempty"`
	ToLabel     string    `gorm:"type:varchar(50)"                               json:"to_label,omitempty"`
	ToPeriod    *int      `gorm:"type:smallint"                                  json:"to_period,omitempty"`
	Subject     string    `gorm:"type:varchar(200)"                              json:"subject,omitempty"`
	OperatorID  string    `gorm:"type:varchar(100);not null"                     json:"operator_id"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (LayoutChangeLog) TableName() string { return "layout_change_logs" }
