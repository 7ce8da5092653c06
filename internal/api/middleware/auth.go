package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"timetable-editor/pkg/jwt"
	"timetable-editor/pkg/response"
)

// 上下文键
const (
	CtxUserID       = "user_id"
	CtxName         = "name"
	CtxRole         = "role"
	CtxToken        = "token"
	CtxUseTimetable = "use_timetable"
	CtxAccessLevel  = "access_level"
)

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证上游签发的 Token；
// 原始 Token 保存在上下文中，调用上游时原样转发。
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxName, claims.Name)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxToken, parts[1])
		c.Set(CtxUseTimetable, claims.UseTimetable)
		c.Set(CtxAccessLevel, claims.AccessLevel)

		c.Next()
	}
}

// WriteAccess 写权限中间件
// 修改时间表（移动、交换、撤销、改名、保存快照）需要 accessLevel 包含 "write"
func WriteAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(CtxAccessLevel)
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		levels, _ := v.([]string)
		for _, l := range levels {
			if l == jwt.AccessWrite {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无编辑权限")
		c.Abort()
	}
}
