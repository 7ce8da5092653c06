package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"timetable-editor/internal/timetable"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Grid     GridConfig     `mapstructure:"grid"`
	Session  SessionConfig  `mapstructure:"session"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port      int        `mapstructure:"port"`
	BaseURL   string     `mapstructure:"base_url"`
	CORS      CORSConfig `mapstructure:"cors"`
	RateLimit int        `mapstructure:"rate_limit"` // 每分钟每 IP 请求上限，0 表示不限流
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置（布局快照与修改日志）
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// MigrateURL golang-migrate 使用的连接 URL
func (c *DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// RedisConfig Redis 配置（编辑会话与限流）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 校验配置；令牌由上游签发，本服务只做验签
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// UpstreamConfig 上游时间表 API 配置
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GridConfig 网格布局配置
type GridConfig struct {
	Roster       []string `mapstructure:"roster"`
	Days         []string `mapstructure:"days"`
	SlotsPerDay  int      `mapstructure:"slots_per_day"`
	TargetPolicy string   `mapstructure:"target_policy"`
	// PeriodTimes 每节课的起止时间，格式 "09:00-10:30"，按节次顺序排列
	PeriodTimes []string `mapstructure:"period_times"`
}

// Layout 转换为网格布局
func (g GridConfig) Layout() timetable.Layout {
	return timetable.Layout{
		Roster:      g.Roster,
		Days:        g.Days,
		SlotsPerDay: g.SlotsPerDay,
		Policy:      timetable.TargetPolicy(g.TargetPolicy),
	}
}

// PeriodTime 单节课的起止时刻（相对当天零点）
type PeriodTime struct {
	Start time.Duration
	End   time.Duration
}

// ParsePeriodTimes 解析 period_times
func (g GridConfig) ParsePeriodTimes() ([]PeriodTime, error) {
	out := make([]PeriodTime, 0, len(g.PeriodTimes))
	for i, raw := range g.PeriodTimes {
		parts := strings.Split(raw, "-")
		if len(parts) != 2 {
			return nil, fmt.Errorf("grid.period_times[%d] 格式错误: %q", i, raw)
		}
		start, err := parseClock(parts[0])
		if err != nil {
			return nil, fmt.Errorf("grid.period_times[%d] 开始时间错误: %w", i, err)
		}
		end, err := parseClock(parts[1])
		if err != nil {
			return nil, fmt.Errorf("grid.period_times[%d] 结束时间错误: %w", i, err)
		}
		if end <= start {
			return nil, fmt.Errorf("grid.period_times[%d] 结束时间必须晚于开始时间", i)
		}
		out = append(out, PeriodTime{Start: start, End: end})
	}
	return out, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// SessionConfig 编辑会话配置
type SessionConfig struct {
	TTL          time.Duration `mapstructure:"ttl"`
	HistoryLimit int           `mapstructure:"history_limit"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > .env > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit", 300)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "timetable_editor")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Tokyo")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("upstream.base_url", "http://localhost:3000")
	v.SetDefault("upstream.timeout", "10s")

	v.SetDefault("grid.roster", timetable.DefaultRoster)
	v.SetDefault("grid.days", timetable.DefaultDays)
	v.SetDefault("grid.slots_per_day", timetable.DefaultSlotsPerDay)
	v.SetDefault("grid.target_policy", string(timetable.SharedTargets))
	v.SetDefault("grid.period_times", []string{"09:00-10:30", "10:40-12:10", "13:00-14:30", "14:40-16:10"})

	v.SetDefault("session.ttl", "8h")
	v.SetDefault("session.history_limit", timetable.DefaultHistoryLimit)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("TTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("配置校验失败: upstream.base_url 不能为空")
	}
	if err := c.Grid.Layout().Validate(); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	times, err := c.Grid.ParsePeriodTimes()
	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	if len(times) > 0 && len(times) != c.Grid.SlotsPerDay {
		return fmt.Errorf("配置校验失败: grid.period_times 数量必须等于 grid.slots_per_day")
	}
	if c.Session.HistoryLimit < 0 {
		return fmt.Errorf("配置校验失败: session.history_limit 不能为负数")
	}
	return nil
}
