package handler

import (
	"github.com/gin-gonic/gin"

	"timetable-editor/internal/dto"
	"timetable-editor/internal/service"
	"timetable-editor/pkg/response"
)

// FreeStaffHandler 空闲教师查询 HTTP 处理器
type FreeStaffHandler struct {
	freeStaffSvc service.FreeStaffService
}

// NewFreeStaffHandler 创建 FreeStaffHandler
func NewFreeStaffHandler(freeStaffSvc service.FreeStaffService) *FreeStaffHandler {
	return &FreeStaffHandler{freeStaffSvc: freeStaffSvc}
}

// Current 当前时段空闲教师与可用教室
// GET /api/v1/free-staff?timetable_id=&q=&employment=
func (h *FreeStaffHandler) Current(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.FreeStaffRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.freeStaffSvc.Current(c.Request.Context(), actor, &req)
	if err != nil {
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
		return
	}

	response.OK(c, resp)
}
