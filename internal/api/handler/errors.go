package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"timetable-editor/internal/service"
	pkgerrors "timetable-editor/pkg/errors"
	"timetable-editor/pkg/response"
)

// handleCommonError 处理各模块共用的业务错误（上游、会话归属、并发冲突）
// 返回 false 表示不是共用错误，调用方继续处理
func handleCommonError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrNoTimetableSelected):
		response.BadRequest(c, 10001, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 17001, err.Error())
	case errors.Is(err, service.ErrSessionForbidden):
		response.Forbidden(c, 10003, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 17002, err.Error())
	case errors.Is(err, service.ErrTimetableNotFound):
		response.NotFound(c, 17006, err.Error())
	case errors.Is(err, service.ErrUpstreamRejected):
		response.Unauthorized(c, 10002, err.Error())
	case errors.Is(err, service.ErrUpstream):
		response.BadGateway(c, 17003, service.ErrUpstream.Error(), err.Error())
	default:
		return false
	}
	return true
}

// handleSessionError 编辑会话与布局快照错误
func handleSessionError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrInvalidAddress):
		response.BadRequest(c, 17005, err.Error())
	case errors.Is(err, service.ErrLayoutNotFound):
		response.NotFound(c, 17004, err.Error())
	case errors.Is(err, service.ErrLayoutMismatch):
		response.BadRequest(c, 17004, err.Error())
	case errors.Is(err, service.ErrLayoutCorrupted):
		response.Error(c, http.StatusUnprocessableEntity, 17004, err.Error())
	case errors.Is(err, service.ErrLayoutStoreDisabled):
		response.Error(c, http.StatusServiceUnavailable, 17007, err.Error())
	default:
		response.InternalError(c)
	}
}

// handleExportError 导出错误
func handleExportError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrExportWeekStart),
		errors.Is(err, service.ErrExportUnknownLabel):
		response.BadRequest(c, 16101, err.Error())
	case errors.Is(err, service.ErrExportNoTimes):
		response.Error(c, http.StatusServiceUnavailable, 16101, err.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 16101, err.Error())
	default:
		response.InternalError(c)
	}
}
