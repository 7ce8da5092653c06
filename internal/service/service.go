package service

import (
	"go.uber.org/zap"

	"timetable-editor/config"
	"timetable-editor/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Session   SessionService
	FreeStaff FreeStaffService
	Export    ExportService
	Catalog   CatalogService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	api UpstreamAPI,
	logger *zap.Logger,
) *Service {
	session := NewSessionService(cfg, repo, api, logger)
	return &Service{
		Session:   session,
		FreeStaff: NewFreeStaffService(api, logger),
		Export:    NewExportService(cfg, session, logger),
		Catalog:   NewCatalogService(api, logger),
	}
}
