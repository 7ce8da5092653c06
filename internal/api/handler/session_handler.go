package handler

import (
	"github.com/gin-gonic/gin"

	"timetable-editor/internal/dto"
	"timetable-editor/internal/service"
	"timetable-editor/pkg/response"
)

// SessionHandler 编辑会话模块 HTTP 处理器
type SessionHandler struct {
	sessionSvc service.SessionService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// OpenSession 打开编辑会话
// POST /api/v1/sessions
func (h *SessionHandler) OpenSession(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.OpenSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	resp, err := h.sessionSvc.Open(c.Request.Context(), actor, &req)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.Created(c, resp)
}

// GetSession 获取会话网格；?teacher= 时返回该教师的高亮格子
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	resp, err := h.sessionSvc.Get(c.Request.Context(), actor, c.Param("id"), c.Query("teacher"))
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.OK(c, resp)
}

// CloseSession 关闭编辑会话
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) CloseSession(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.sessionSvc.Close(c.Request.Context(), actor, c.Param("id")); err != nil {
		handleSessionError(c, err)
		return
	}

	response.OK(c, nil)
}

// Drop 拖放移动
// POST /api/v1/sessions/:id/drop
func (h *SessionHandler) Drop(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.DropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.sessionSvc.Drop(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.OK(c, resp)
}

// Select 双击格子（选中 / 取消选中 / 交换）
// POST /api/v1/sessions/:id/select
func (h *SessionHandler) Select(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.SlotAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.sessionSvc.DoubleClick(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.OK(c, resp)
}

// Undo 撤销
// POST /api/v1/sessions/:id/undo
func (h *SessionHandler) Undo(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	resp, err := h.sessionSvc.Undo(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.OK(c, resp)
}

// Redo 重做
// POST /api/v1/sessions/:id/redo
func (h *SessionHandler) Redo(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	resp, err := h.sessionSvc.Redo(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.OK(c, resp)
}

// Rename 修改时间表名称
// PUT /api/v1/sessions/:id/name
func (h *SessionHandler) Rename(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.sessionSvc.Rename(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.OK(c, resp)
}

// ── 布局快照 ──

// SaveLayout 保存当前布局为快照
// POST /api/v1/sessions/:id/layouts
func (h *SessionHandler) SaveLayout(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.SaveLayoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	resp, err := h.sessionSvc.SaveLayout(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.Created(c, resp)
}

// ListLayouts 会话所编辑时间表的快照列表
// GET /api/v1/sessions/:id/layouts?page=&page_size=
func (h *SessionHandler) ListLayouts(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ListLayoutsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.sessionSvc.ListLayouts(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// RestoreLayout 恢复快照到当前会话
// POST /api/v1/sessions/:id/layouts/:layout_id/restore
func (h *SessionHandler) RestoreLayout(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	resp, err := h.sessionSvc.RestoreLayout(c.Request.Context(), actor, c.Param("id"), c.Param("layout_id"))
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.OK(c, resp)
}
