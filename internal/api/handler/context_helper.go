package handler

import (
	"github.com/gin-gonic/gin"

	"timetable-editor/internal/api/middleware"
	"timetable-editor/internal/service"
	"timetable-editor/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.CtxUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetActor 组装当前请求的用户信息（含转发给上游的原始 Token）。
// 失败时已写入 401 响应。
func MustGetActor(c *gin.Context) (service.Actor, bool) {
	uid, ok := MustGetUserID(c)
	if !ok {
		return service.Actor{}, false
	}
	token := c.GetString(middleware.CtxToken)
	if token == "" {
		response.Unauthorized(c, 10002, "未认证")
		return service.Actor{}, false
	}
	return service.Actor{
		UserID:           uid,
		Name:             c.GetString(middleware.CtxName),
		Token:            token,
		DefaultTimetable: c.GetString(middleware.CtxUseTimetable),
	}, true
}
