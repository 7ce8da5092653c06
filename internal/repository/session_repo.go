package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"timetable-editor/internal/timetable"
	pkgerrors "timetable-editor/pkg/errors"
	"timetable-editor/pkg/redis"
)

// ErrSessionNotFound 编辑会话不存在或已过期
var ErrSessionNotFound = errors.New("编辑会话不存在")

// Session 编辑会话：一个用户对一份时间表的一次编辑过程
type Session struct {
	ID          string                `json:"id"`
	TimetableID string                `json:"timetable_id"`
	OwnerID     string                `json:"owner_id"`
	State       timetable.EditorState `json:"state"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	// Version 存储层版本号，每次成功写入 +1；不参与序列化
	Version int64 `json:"-"`
}

// SessionRepository 编辑会话存储接口
// Update 以 Version 做乐观锁：版本不一致返回 pkgerrors.ErrOptimisticLock，成功后 s.Version 更新为新版本
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// ── Redis 实现 ──

const sessionKeyPrefix = "tte:session:"

type redisSessionRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSessionRepo 基于 Redis 的会话存储，ttl 为空闲过期时间
func NewRedisSessionRepo(rdb *redis.Client, ttl time.Duration) SessionRepository {
	return &redisSessionRepo{rdb: rdb, ttl: ttl}
}

func (r *redisSessionRepo) Create(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	if err := r.rdb.CreateVersioned(ctx, sessionKeyPrefix+s.ID, data, r.ttl); err != nil {
		return err
	}
	s.Version = 1
	return nil
}

func (r *redisSessionRepo) Get(ctx context.Context, id string) (*Session, error) {
	data, version, err := r.rdb.GetVersioned(ctx, sessionKeyPrefix+id)
	if errors.Is(err, redis.ErrKeyNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("解析会话失败: %w", err)
	}
	s.Version = version
	return &s, nil
}

func (r *redisSessionRepo) Update(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	next, err := r.rdb.SetVersioned(ctx, sessionKeyPrefix+s.ID, s.Version, data, r.ttl)
	if errors.Is(err, redis.ErrKeyNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	s.Version = next
	return nil
}

func (r *redisSessionRepo) Delete(ctx context.Context, id string) error {
	err := r.rdb.Delete(ctx, sessionKeyPrefix+id)
	if errors.Is(err, redis.ErrKeyNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// ── 内存实现（Redis 不可用时降级使用，单实例有效） ──

type memoryEntry struct {
	data      []byte
	version   int64
	expiresAt time.Time
}

type memorySessionRepo struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	data map[string]memoryEntry
}

// NewMemorySessionRepo 进程内会话存储
func NewMemorySessionRepo(ttl time.Duration) SessionRepository {
	return &memorySessionRepo{
		ttl:  ttl,
		now:  time.Now,
		data: make(map[string]memoryEntry),
	}
}

func (r *memorySessionRepo) Create(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictExpired()

	if _, ok := r.data[s.ID]; ok {
		return pkgerrors.ErrOptimisticLock
	}
	r.data[s.ID] = memoryEntry{data: data, version: 1, expiresAt: r.expiry()}
	s.Version = 1
	return nil
}

func (r *memorySessionRepo) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	e, ok := r.lookup(id)
	r.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	var s Session
	if err := json.Unmarshal(e.data, &s); err != nil {
		return nil, fmt.Errorf("解析会话失败: %w", err)
	}
	s.Version = e.version
	return &s, nil
}

func (r *memorySessionRepo) Update(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.lookup(s.ID)
	if !ok {
		return ErrSessionNotFound
	}
	if e.version != s.Version {
		return pkgerrors.ErrOptimisticLock
	}
	next := e.version + 1
	r.data[s.ID] = memoryEntry{data: data, version: next, expiresAt: r.expiry()}
	s.Version = next
	return nil
}

func (r *memorySessionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lookup(id); !ok {
		return ErrSessionNotFound
	}
	delete(r.data, id)
	return nil
}

// lookup 调用方需持有锁
func (r *memorySessionRepo) lookup(id string) (memoryEntry, bool) {
	e, ok := r.data[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && r.now().After(e.expiresAt) {
		delete(r.data, id)
		return memoryEntry{}, false
	}
	return e, true
}

func (r *memorySessionRepo) evictExpired() {
	now := r.now()
	for id, e := range r.data {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(r.data, id)
		}
	}
}

func (r *memorySessionRepo) expiry() time.Time {
	if r.ttl <= 0 {
		return time.Time{}
	}
	return r.now().Add(r.ttl)
}
