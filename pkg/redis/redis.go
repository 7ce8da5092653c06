package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"timetable-editor/config"
	pkgerrors "timetable-editor/pkg/errors"
)

// ErrKeyNotFound 键不存在或已过期
var ErrKeyNotFound = errors.New("redis: 键不存在")

// Client Redis 客户端封装
// 用于编辑会话存储与接口限流
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// ── 版本化存储（编辑会话） ──
//
// 每个键为一个 Hash：version 为单调递增版本号，data 为序列化后的内容。
// 写入时通过 WATCH 比较版本号，版本不一致返回 ErrOptimisticLock。

const (
	fieldVersion = "version"
	fieldData    = "data"
)

// CreateVersioned 写入新键，版本号从 1 开始；键已存在时返回 ErrOptimisticLock
func (c *Client) CreateVersioned(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return pkgerrors.ErrOptimisticLock
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.HSet(ctx, key, fieldVersion, 1, fieldData, data)
			if ttl > 0 {
				p.Expire(ctx, key, ttl)
			}
			return nil
		})
		return err
	}, key)
	if errors.Is(err, goredis.TxFailedErr) {
		return pkgerrors.ErrOptimisticLock
	}
	return err
}

// GetVersioned 读取内容与当前版本号
func (c *Client) GetVersioned(ctx context.Context, key string) ([]byte, int64, error) {
	vals, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, 0, err
	}
	if len(vals) == 0 {
		return nil, 0, ErrKeyNotFound
	}
	version, err := strconv.ParseInt(vals[fieldVersion], 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("解析版本号失败: %w", err)
	}
	return []byte(vals[fieldData]), version, nil
}

// SetVersioned 仅当当前版本等于 expected 时写入，成功后版本号 +1 并刷新 TTL
func (c *Client) SetVersioned(ctx context.Context, key string, expected int64, data []byte, ttl time.Duration) (int64, error) {
	next := expected + 1
	err := c.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		raw, err := tx.HGet(ctx, key, fieldVersion).Result()
		if errors.Is(err, goredis.Nil) {
			return ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		current, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("解析版本号失败: %w", err)
		}
		if current != expected {
			return pkgerrors.ErrOptimisticLock
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.HSet(ctx, key, fieldVersion, next, fieldData, data)
			if ttl > 0 {
				p.Expire(ctx, key, ttl)
			}
			return nil
		})
		return err
	}, key)
	if errors.Is(err, goredis.TxFailedErr) {
		return 0, pkgerrors.ErrOptimisticLock
	}
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Delete 删除键；键不存在时返回 ErrKeyNotFound
func (c *Client) Delete(ctx context.Context, key string) error {
	n, err := c.rdb.Del(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// ── 限流 ──

// CheckRateLimit 基于有序集合的滑动窗口计数
// 返回 true 表示本次请求在限额内
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()[:8])

	var card *goredis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(now.Add(-window).UnixNano(), 10))
		p.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: member})
		card = p.ZCard(ctx, key)
		p.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		c.logger.Warn("限流计数失败", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return card.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
