package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"timetable-editor/config"
	"timetable-editor/internal/api/handler"
	"timetable-editor/internal/api/router"
	"timetable-editor/internal/repository"
	"timetable-editor/internal/service"
	"timetable-editor/pkg/database"
	"timetable-editor/pkg/jwt"
	applogger "timetable-editor/pkg/logger"
	"timetable-editor/pkg/redis"
	"timetable-editor/pkg/timetableapi"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml）")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)

	// 3. 连接数据库（可选：失败时关闭布局快照功能）
	db := openDatabase(cfg, logger)

	// 4. 连接 Redis（可选：失败时会话存于进程内存，且不限流）
	rdb, err := redis.NewClient(&cfg.Redis, applogger.Component(logger, "redis"))
	if err != nil {
		logger.Warn("Redis 连接失败，编辑会话改为进程内存存储，限流关闭", zap.Error(err))
		rdb = nil
	}

	// 5. 初始化 JWT 校验与上游客户端
	jwtMgr := jwt.NewManager(&cfg.Auth)
	api := timetableapi.NewClient(&cfg.Upstream, applogger.Component(logger, "upstream"))

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db, rdb, cfg.Session.TTL)
	svc := service.NewService(cfg, repo, api, logger)
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// openDatabase 连接数据库并执行迁移，任一步失败返回 nil
func openDatabase(cfg *config.Config, logger *zap.Logger) *gorm.DB {
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, applogger.Component(logger, "database"))
	if err != nil {
		logger.Warn("数据库连接失败，布局快照功能不可用", zap.Error(err))
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn("获取底层 sql.DB 失败，布局快照功能不可用", zap.Error(err))
		return nil
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Error("数据库迁移失败，布局快照功能不可用", zap.Error(err))
		sqlDB.Close()
		return nil
	}

	logger.Info("数据库连接成功")
	return db
}
