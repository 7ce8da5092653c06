package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"timetable-editor/config"
	"timetable-editor/internal/api/handler"
	"timetable-editor/internal/api/middleware"
	"timetable-editor/pkg/jwt"
	"timetable-editor/pkg/redis"
)

// maxBodyBytes 请求体上限（恢复快照、拖放等请求都很小）
const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── API v1（全部需要认证） ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	v1.Use(middleware.RateLimit(rdb, cfg.Server.RateLimit, time.Minute, logger))
	{
		// 上游资源（只读）
		v1.GET("/timetables", h.Catalog.ListTimetables)
		v1.GET("/instructors", h.Catalog.ListInstructors)
		v1.GET("/rooms", h.Catalog.ListRooms)
		v1.GET("/courses", h.Catalog.ListCourses)

		// 空闲教师
		v1.GET("/free-staff", h.FreeStaff.Current)

		// 编辑会话
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", h.Session.OpenSession)
			sessions.GET("/:id", h.Session.GetSession)
			sessions.DELETE("/:id", h.Session.CloseSession)
			sessions.GET("/:id/layouts", h.Session.ListLayouts)

			sessions.GET("/:id/export/xlsx", h.Export.ExportGrid)
			sessions.GET("/:id/export/ics", h.Export.ExportCalendar)

			// 修改类操作需要写权限
			edit := sessions.Group("/:id", middleware.WriteAccess())
			{
				edit.POST("/drop", h.Session.Drop)
				edit.POST("/select", h.Session.Select)
				edit.POST("/undo", h.Session.Undo)
				edit.POST("/redo", h.Session.Redo)
				edit.PUT("/name", h.Session.Rename)
				edit.POST("/layouts", h.Session.SaveLayout)
				edit.POST("/layouts/:layout_id/restore", h.Session.RestoreLayout)
			}
		}
	}

	return r
}
