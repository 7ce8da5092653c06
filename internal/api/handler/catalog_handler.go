package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"timetable-editor/internal/dto"
	"timetable-editor/internal/service"
	"timetable-editor/pkg/response"
)

// CatalogHandler 上游资源列表 HTTP 处理器（只读）
type CatalogHandler struct {
	catalogSvc service.CatalogService
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(catalogSvc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// ListTimetables 时间表列表
// GET /api/v1/timetables
func (h *CatalogHandler) ListTimetables(c *gin.Context) {
	h.list(c, func(ctx context.Context, actor service.Actor) (interface{}, int, error) {
		list, err := h.catalogSvc.ListTimetables(ctx, actor)
		return list, len(list), err
	})
}

// ListInstructors 教师列表
// GET /api/v1/instructors
func (h *CatalogHandler) ListInstructors(c *gin.Context) {
	h.list(c, func(ctx context.Context, actor service.Actor) (interface{}, int, error) {
		list, err := h.catalogSvc.ListInstructors(ctx, actor)
		return list, len(list), err
	})
}

// ListRooms 教室列表
// GET /api/v1/rooms
func (h *CatalogHandler) ListRooms(c *gin.Context) {
	h.list(c, func(ctx context.Context, actor service.Actor) (interface{}, int, error) {
		list, err := h.catalogSvc.ListRooms(ctx, actor)
		return list, len(list), err
	})
}

// ListCourses 课程列表
// GET /api/v1/courses
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	h.list(c, func(ctx context.Context, actor service.Actor) (interface{}, int, error) {
		list, err := h.catalogSvc.ListCourses(ctx, actor)
		return list, len(list), err
	})
}

func (h *CatalogHandler) list(c *gin.Context, fetch func(context.Context, service.Actor) (interface{}, int, error)) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, total, err := fetch(c.Request.Context(), actor)
	if err != nil {
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
		return
	}

	response.OK(c, dto.CatalogResponse{List: list, Total: total})
}
