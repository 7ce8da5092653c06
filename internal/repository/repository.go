package repository

import (
	"time"

	"gorm.io/gorm"

	"timetable-editor/pkg/redis"
)

// Repository 所有 Repository 的聚合入口
// db 不可用时 LayoutSnapshot/LayoutChangeLog 为 nil，快照相关功能降级关闭
type Repository struct {
	db              *gorm.DB
	Session         SessionRepository
	LayoutSnapshot  LayoutSnapshotRepository
	LayoutChangeLog LayoutChangeLogRepository
}

// NewRepository 创建 Repository 聚合
// rdb 为 nil 时会话存储降级为进程内存
func NewRepository(db *gorm.DB, rdb *redis.Client, sessionTTL time.Duration) *Repository {
	repo := &Repository{db: db}
	if rdb != nil {
		repo.Session = NewRedisSessionRepo(rdb, sessionTTL)
	} else {
		repo.Session = NewMemorySessionRepo(sessionTTL)
	}
	if db != nil {
		repo.LayoutSnapshot = NewLayoutSnapshotRepo(db)
		repo.LayoutChangeLog = NewLayoutChangeLogRepo(db)
	}
	return repo
}

// HasDB 快照存储是否可用
func (r *Repository) HasDB() bool {
	return r.db != nil
}
