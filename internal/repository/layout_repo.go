package repository

import (
	"context"

	"gorm.io/gorm"

	"timetable-editor/internal/model"
)

// LayoutSnapshotRepository 布局快照数据访问接口
type LayoutSnapshotRepository interface {
	Create(ctx context.Context, snapshot *model.LayoutSnapshot) error
	GetByID(ctx context.Context, id string) (*model.LayoutSnapshot, error)
	ListByTimetable(ctx context.Context, timetableID string, offset, limit int) ([]model.LayoutSnapshot, int64, error)
}

// LayoutChangeLogRepository 布局变更日志数据访问接口
type LayoutChangeLogRepository interface {
	Create(ctx context.Context, log *model.LayoutChangeLog) error
	ListBySession(ctx context.Context, sessionID string, offset, limit int) ([]model.LayoutChangeLog, int64, error)
}

// ── LayoutSnapshot Repository 实现 ──

type layoutSnapshotRepo struct {
	db *gorm.DB
}

func NewLayoutSnapshotRepo(db *gorm.DB) LayoutSnapshotRepository {
	return &layoutSnapshotRepo{db: db}
}

func (r *layoutSnapshotRepo) Create(ctx context.Context, snapshot *model.LayoutSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *layoutSnapshotRepo) GetByID(ctx context.Context, id string) (*model.LayoutSnapshot, error) {
	var snapshot model.LayoutSnapshot
	err := r.db.WithContext(ctx).
		Where("layout_snapshot_id = ?", id).
		First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ListByTimetable 列表不返回 payload，避免一次拉取大量 JSON
func (r *layoutSnapshotRepo) ListByTimetable(ctx context.Context, timetableID string, offset, limit int) ([]model.LayoutSnapshot, int64, error) {
	var snapshots []model.LayoutSnapshot
	var total int64

	db := r.db.WithContext(ctx).Model(&model.LayoutSnapshot{}).
		Where("timetable_id = ?", timetableID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Omit("payload").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&snapshots).Error
	return snapshots, total, err
}

// ── LayoutChangeLog Repository 实现 ──

type layoutChangeLogRepo struct {
	db *gorm.DB
}

func NewLayoutChangeLogRepo(db *gorm.DB) LayoutChangeLogRepository {
	return &layoutChangeLogRepo{db: db}
}

func (r *layoutChangeLogRepo) Create(ctx context.Context, log *model.LayoutChangeLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *layoutChangeLogRepo) ListBySession(ctx context.Context, sessionID string, offset, limit int) ([]model.LayoutChangeLog, int64, error) {
	var logs []model.LayoutChangeLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.LayoutChangeLog{}).
		Where("session_id = ?", sessionID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, total, err
}
