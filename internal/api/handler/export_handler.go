package handler

import (
	"github.com/gin-gonic/gin"

	"timetable-editor/internal/dto"
	"timetable-editor/internal/service"
	"timetable-editor/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportGrid 导出网格为 Excel
// GET /api/v1/sessions/:id/export/xlsx
func (h *ExportHandler) ExportGrid(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportGrid(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentTypeXLSX, buf.Bytes())
}

// ExportCalendar 导出班级周课表为 ICS
// GET /api/v1/sessions/:id/export/ics?label=&week_start=&weeks=
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ExportCalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentTypeICS, buf.Bytes())
}
