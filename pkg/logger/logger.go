package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"timetable-editor/config"
)

// 日志输出格式
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// NewLogger 根据 log 配置创建编辑服务的根日志器。
//
// json 为线上格式：ISO8601 时间、仅 Error 及以上附带堆栈；
// console 为本地调试格式：彩色级别、关闭采样，便于逐条查看拖放与交换日志。
// 所有日志带 service=timetable-editor 字段。
func NewLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	switch cfg.Format {
	case FormatConsole:
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.Sampling = nil
	case FormatJSON, "":
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("不支持的日志格式 %q（可选 json、console）", cfg.Format)
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("初始化日志器失败: %w", err)
	}

	return logger.With(zap.String("service", "timetable-editor")), nil
}

// Component 为子模块派生日志器（upstream、redis、database 等），日志中以 logger 字段区分
func Component(l *zap.Logger, name string) *zap.Logger {
	return l.Named(name)
}
