package handler

import "timetable-editor/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Session   *SessionHandler
	FreeStaff *FreeStaffHandler
	Export    *ExportHandler
	Catalog   *CatalogHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Session:   NewSessionHandler(svc.Session),
		FreeStaff: NewFreeStaffHandler(svc.FreeStaff),
		Export:    NewExportHandler(svc.Export),
		Catalog:   NewCatalogHandler(svc.Catalog),
	}
}
