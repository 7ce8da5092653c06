package service

import (
	"context"
	"errors"
	"fmt"

	"timetable-editor/internal/model"
	"timetable-editor/pkg/timetableapi"
)

// ── 上游访问 ──

var (
	ErrTimetableNotFound   = errors.New("时间表不存在")
	ErrUpstreamRejected    = errors.New("上游拒绝访问，请重新登录")
	ErrUpstream            = errors.New("上游时间表服务异常")
	ErrNoTimetableSelected = errors.New("未指定时间表")
)

// UpstreamAPI 上游时间表服务（由 timetableapi.Client 实现）
type UpstreamAPI interface {
	GetTimetable(ctx context.Context, token, id string) (*model.Timetable, error)
	ListTimetables(ctx context.Context, token string) ([]model.TimetableSummary, error)
	UpdateTimetableName(ctx context.Context, token, id, name string) error
	CurrentPeriod(ctx context.Context, token string) (*model.CurrentPeriod, error)
	ListInstructors(ctx context.Context, token string) ([]model.Instructor, error)
	ListRooms(ctx context.Context, token string) ([]model.Room, error)
	AvailableRooms(ctx context.Context, token string, day, period int) ([]model.Room, error)
	ListCourses(ctx context.Context, token string) ([]model.Course, error)
}

var _ UpstreamAPI = (*timetableapi.Client)(nil)

// Actor 当前请求的用户（来自 JWT）
type Actor struct {
	UserID string
	Name   string
	// Token 原始 Bearer Token，调用上游时原样转发
	Token string
	// DefaultTimetable Token 中的 useTimetable
	DefaultTimetable string
}

// timetableID 请求未指定时回落到 Token 中的默认时间表
func (a Actor) timetableID(requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if a.DefaultTimetable != "" {
		return a.DefaultTimetable, nil
	}
	return "", ErrNoTimetableSelected
}

// translateUpstream 将客户端错误归类为业务错误，保留原始信息
func translateUpstream(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, timetableapi.ErrNotFound):
		return ErrTimetableNotFound
	case errors.Is(err, timetableapi.ErrUnauthorized):
		return ErrUpstreamRejected
	default:
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
}
