package timetableapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"timetable-editor/config"
	"timetable-editor/internal/model"
)

// ── 上游时间表 API 客户端 ──────────────────────────────────────
//
// 时间表、课程、教师、教室的增删改查都在上游服务中完成，
// 本客户端只封装编辑器用到的读取接口与改名接口。
// 调用方传入用户的 Bearer Token，客户端原样转发。
// ─────────────────────────────────────────────────────────────

const (
	maxResponseSize = 10 * 1024 * 1024 // 10MB
	defaultTimeout  = 10 * time.Second
)

var (
	ErrNotFound     = errors.New("上游资源不存在")
	ErrUnauthorized = errors.New("上游拒绝访问")
	ErrUnavailable  = errors.New("上游服务不可用")
)

// StatusError 上游返回的非 2xx 响应
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Unwrap 按状态码归类，便于 errors.Is 判断
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	default:
		return ErrUnavailable
	}
}

// Client 上游 API 客户端，可并发使用
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient 创建客户端
func NewClient(cfg *config.UpstreamConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ── 时间表 ──

// GetTimetable GET /api/timetable/get/{id}
func (c *Client) GetTimetable(ctx context.Context, token, id string) (*model.Timetable, error) {
	var tt model.Timetable
	if err := c.do(ctx, http.MethodGet, "/api/timetable/get/"+url.PathEscape(id), token, nil, &tt); err != nil {
		return nil, err
	}
	if tt.ID == "" {
		tt.ID = id
	}
	return &tt, nil
}

// ListTimetables GET /api/timetable/getAll，响应为 {"TimeTables": [...]}
func (c *Client) ListTimetables(ctx context.Context, token string) ([]model.TimetableSummary, error) {
	var resp struct {
		TimeTables []model.TimetableSummary `json:"TimeTables"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/timetable/getAll", token, nil, &resp); err != nil {
		return nil, err
	}
	if resp.TimeTables == nil {
		return []model.TimetableSummary{}, nil
	}
	return resp.TimeTables, nil
}

// UpdateTimetableName PUT /api/timetable/update/{id}，上游只接受 name 字段
func (c *Client) UpdateTimetableName(ctx context.Context, token, id, name string) error {
	body := map[string]string{"name": name}
	return c.do(ctx, http.MethodPut, "/api/timetable/update/"+url.PathEscape(id), token, body, nil)
}

// CurrentPeriod GET /api/timetable/current-period
func (c *Client) CurrentPeriod(ctx context.Context, token string) (*model.CurrentPeriod, error) {
	var cp model.CurrentPeriod
	if err := c.do(ctx, http.MethodGet, "/api/timetable/current-period", token, nil, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// ── 教职资源 ──

// ListInstructors GET /api/instructors/getAll
func (c *Client) ListInstructors(ctx context.Context, token string) ([]model.Instructor, error) {
	list := make([]model.Instructor, 0)
	if err := c.do(ctx, http.MethodGet, "/api/instructors/getAll", token, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListRooms GET /api/rooms/getAll
func (c *Client) ListRooms(ctx context.Context, token string) ([]model.Room, error) {
	list := make([]model.Room, 0)
	if err := c.do(ctx, http.MethodGet, "/api/rooms/getAll", token, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// AvailableRooms POST /api/rooms/available，请求体为 {"day": 0-6, "period": 1 起节次}
func (c *Client) AvailableRooms(ctx context.Context, token string, day, period int) ([]model.Room, error) {
	list := make([]model.Room, 0)
	body := model.SlotRef{Day: day, Period: period}
	if err := c.do(ctx, http.MethodPost, "/api/rooms/available", token, body, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListCourses GET /api/courses/getAll
func (c *Client) ListCourses(ctx context.Context, token string) ([]model.Course, error) {
	list := make([]model.Course, 0)
	if err := c.do(ctx, http.MethodGet, "/api/courses/getAll", token, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ── 内部 ──

func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("上游请求失败",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	// 限制响应体大小，防止上游异常返回超大内容
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: 读取响应失败: %v", ErrUnavailable, err)
	}

	c.logger.Debug("上游请求完成",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(raw)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: snippet}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: 解析响应失败: %v", ErrUnavailable, err)
	}
	return nil
}
