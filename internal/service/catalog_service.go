package service

import (
	"context"

	"go.uber.org/zap"

	"timetable-editor/internal/model"
)

// CatalogService 上游资源只读列表（时间表、教师、教室、课程）
// 增删改由上游负责，本服务只做透传。
type CatalogService interface {
	ListTimetables(ctx context.Context, actor Actor) ([]model.TimetableSummary, error)
	ListInstructors(ctx context.Context, actor Actor) ([]model.Instructor, error)
	ListRooms(ctx context.Context, actor Actor) ([]model.Room, error)
	ListCourses(ctx context.Context, actor Actor) ([]model.Course, error)
}

type catalogService struct {
	api    UpstreamAPI
	logger *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(api UpstreamAPI, logger *zap.Logger) CatalogService {
	return &catalogService{api: api, logger: logger}
}

func (s *catalogService) ListTimetables(ctx context.Context, actor Actor) ([]model.TimetableSummary, error) {
	list, err := s.api.ListTimetables(ctx, actor.Token)
	if err != nil {
		return nil, s.fail("timetables", err)
	}
	if list == nil {
		list = []model.TimetableSummary{}
	}
	return list, nil
}

func (s *catalogService) ListInstructors(ctx context.Context, actor Actor) ([]model.Instructor, error) {
	list, err := s.api.ListInstructors(ctx, actor.Token)
	if err != nil {
		return nil, s.fail("instructors", err)
	}
	if list == nil {
		list = []model.Instructor{}
	}
	return list, nil
}

func (s *catalogService) ListRooms(ctx context.Context, actor Actor) ([]model.Room, error) {
	list, err := s.api.ListRooms(ctx, actor.Token)
	if err != nil {
		return nil, s.fail("rooms", err)
	}
	if list == nil {
		list = []model.Room{}
	}
	return list, nil
}

func (s *catalogService) ListCourses(ctx context.Context, actor Actor) ([]model.Course, error) {
	list, err := s.api.ListCourses(ctx, actor.Token)
	if err != nil {
		return nil, s.fail("courses", err)
	}
	if list == nil {
		list = []model.Course{}
	}
	return list, nil
}

func (s *catalogService) fail(resource string, err error) error {
	s.logger.Warn("查询上游列表失败", zap.String("resource", resource), zap.Error(err))
	return translateUpstream(err)
}
