package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"timetable-editor/internal/dto"
	"timetable-editor/internal/model"
	"timetable-editor/internal/timetable"
)

// FreeStaffService 当前时段空闲教师查询
type FreeStaffService interface {
	Current(ctx context.Context, actor Actor, req *dto.FreeStaffRequest) (*dto.FreeStaffResponse, error)
}

type freeStaffService struct {
	api    UpstreamAPI
	logger *zap.Logger
}

// NewFreeStaffService 创建 FreeStaffService 实例
func NewFreeStaffService(api UpstreamAPI, logger *zap.Logger) FreeStaffService {
	return &freeStaffService{api: api, logger: logger}
}

// Current 查询当前节次的上课条目、空闲教师与可用教室。
//
// 非常规时段（special）视为全部教师空闲，教室返回全部教室。
// 可用教室查询失败时降级为空列表，不影响教师结果。
func (s *freeStaffService) Current(ctx context.Context, actor Actor, req *dto.FreeStaffRequest) (*dto.FreeStaffResponse, error) {
	timetableID, err := actor.timetableID(req.TimetableID)
	if err != nil {
		return nil, err
	}

	var (
		tt          *model.Timetable
		period      *model.CurrentPeriod
		instructors []model.Instructor
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tt, err = s.api.GetTimetable(gctx, actor.Token, timetableID)
		return err
	})
	g.Go(func() error {
		var err error
		period, err = s.api.CurrentPeriod(gctx, actor.Token)
		return err
	})
	g.Go(func() error {
		var err error
		instructors, err = s.api.ListInstructors(gctx, actor.Token)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("查询空闲教师失败", zap.String("timetable_id", timetableID), zap.Error(err))
		return nil, translateUpstream(err)
	}

	weekday := time.Weekday(((period.Day % 7) + 7) % 7)
	resp := &dto.FreeStaffResponse{
		Day:       int(weekday),
		DayName:   weekday.String(),
		IsSpecial: period.IsSpecial,
	}

	if period.IsSpecial {
		resp.Teaching = []model.ClassEntry{}
		resp.FreeInstructors = timetable.FilterInstructors(instructors, req.Query, req.Employment)
		resp.AvailableRooms = s.rooms(ctx, actor, func(ctx context.Context) ([]model.Room, error) {
			return s.api.ListRooms(ctx, actor.Token)
		})
		return resp, nil
	}

	p := period.Period
	resp.Period = &p

	teaching, isBreak := timetable.TeachingAt(tt, weekday, p)
	resp.Teaching = teaching
	resp.IsBreak = isBreak

	free := timetable.FreeInstructors(instructors, timetable.InstructorNames(teaching))
	resp.FreeInstructors = timetable.FilterInstructors(free, req.Query, req.Employment)
	resp.AvailableRooms = s.rooms(ctx, actor, func(ctx context.Context) ([]model.Room, error) {
		return s.api.AvailableRooms(ctx, actor.Token, int(weekday), p)
	})
	return resp, nil
}

func (s *freeStaffService) rooms(ctx context.Context, actor Actor, fetch func(context.Context) ([]model.Room, error)) []model.Room {
	rooms, err := fetch(ctx)
	if err != nil {
		s.logger.Warn("查询可用教室失败，返回空列表", zap.String("user_id", actor.UserID), zap.Error(err))
		return []model.Room{}
	}
	if rooms == nil {
		return []model.Room{}
	}
	return rooms
}
