package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"timetable-editor/config"
	"timetable-editor/internal/dto"
	"timetable-editor/internal/model"
	"timetable-editor/internal/repository"
	"timetable-editor/internal/timetable"
)

// ── 编辑会话模块业务错误 ──

var (
	ErrSessionNotFound     = errors.New("编辑会话不存在或已过期")
	ErrSessionForbidden    = errors.New("无权操作该编辑会话")
	ErrInvalidAddress      = errors.New("格子地址不在网格范围内")
	ErrLayoutNotFound      = errors.New("布局快照不存在")
	ErrLayoutMismatch      = errors.New("布局快照不属于当前时间表")
	ErrLayoutStoreDisabled = errors.New("快照存储不可用")
	ErrLayoutCorrupted     = errors.New("布局快照内容无法解析")
)

// 变更类型，对应 layout_change_logs.change_type
const (
	changeMove    = "move"
	changeSwap    = "swap"
	changeUndo    = "undo"
	changeRedo    = "redo"
	changeSave    = "save"
	changeRestore = "restore"
	changeRename  = "rename"
)

// SessionService 编辑会话业务接口
//
// 一个会话持有一份时间表的编辑状态（当前时间表、选中格子、撤销/重做栈），
// 保存在 Redis（不可用时在进程内存）中。每次修改基于读取时的版本写回，
// 并发修改同一会话时后到者返回 pkgerrors.ErrOptimisticLock。
type SessionService interface {
	Open(ctx context.Context, actor Actor, req *dto.OpenSessionRequest) (*dto.SessionResponse, error)
	Get(ctx context.Context, actor Actor, id, teacher string) (*dto.SessionResponse, error)
	Drop(ctx context.Context, actor Actor, id string, req *dto.DropRequest) (*dto.MoveResponse, error)
	DoubleClick(ctx context.Context, actor Actor, id string, req *dto.SlotAddressRequest) (*dto.ClickResponse, error)
	Undo(ctx context.Context, actor Actor, id string) (*dto.HistoryResponse, error)
	Redo(ctx context.Context, actor Actor, id string) (*dto.HistoryResponse, error)
	Rename(ctx context.Context, actor Actor, id string, req *dto.RenameRequest) (*dto.SessionResponse, error)
	SaveLayout(ctx context.Context, actor Actor, id string, req *dto.SaveLayoutRequest) (*dto.LayoutSnapshotResponse, error)
	ListLayouts(ctx context.Context, actor Actor, id string, req *dto.ListLayoutsRequest) ([]dto.LayoutSnapshotResponse, int64, error)
	RestoreLayout(ctx context.Context, actor Actor, id, layoutID string) (*dto.SessionResponse, error)
	Close(ctx context.Context, actor Actor, id string) error
	// Load 读取会话并恢复编辑器（导出等只读场景使用）
	Load(ctx context.Context, actor Actor, id string) (*repository.Session, *timetable.Editor, error)
}

type sessionService struct {
	repo         *repository.Repository
	api          UpstreamAPI
	layout       timetable.Layout
	historyLimit int
	logger       *zap.Logger
	now          func() time.Time
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(cfg *config.Config, repo *repository.Repository, api UpstreamAPI, logger *zap.Logger) SessionService {
	return &sessionService{
		repo:         repo,
		api:          api,
		layout:       cfg.Grid.Layout(),
		historyLimit: cfg.Session.HistoryLimit,
		logger:       logger,
		now:          time.Now,
	}
}

// ═══════════════════════════════════════════════════════════
// 会话生命周期
// ═══════════════════════════════════════════════════════════

func (s *sessionService) Open(ctx context.Context, actor Actor, req *dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	timetableID, err := actor.timetableID(req.TimetableID)
	if err != nil {
		return nil, err
	}

	tt, err := s.api.GetTimetable(ctx, actor.Token, timetableID)
	if err != nil {
		s.logger.Warn("获取时间表失败", zap.String("timetable_id", timetableID), zap.Error(err))
		return nil, translateUpstream(err)
	}

	ed := timetable.NewEditor(tt, s.layout, s.historyLimit)
	now := s.now()
	sess := &repository.Session{
		ID:          uuid.NewString(),
		TimetableID: timetableID,
		OwnerID:     actor.UserID,
		State:       ed.State(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Session.Create(ctx, sess); err != nil {
		s.logger.Error("创建编辑会话失败", zap.Error(err))
		return nil, err
	}

	_, report := ed.GridWithReport()
	if len(report.Collisions) > 0 || len(report.Dropped) > 0 {
		s.logger.Info("时间表投影存在冲突或越界条目",
			zap.String("timetable_id", timetableID),
			zap.Int("collisions", len(report.Collisions)),
			zap.Int("dropped", len(report.Dropped)),
		)
	}

	return s.toResponse(sess, ed, ""), nil
}

func (s *sessionService) Get(ctx context.Context, actor Actor, id, teacher string) (*dto.SessionResponse, error) {
	sess, ed, err := s.Load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(sess, ed, teacher), nil
}

func (s *sessionService) Close(ctx context.Context, actor Actor, id string) error {
	if _, err := s.load(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Session.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		s.logger.Error("删除编辑会话失败", zap.String("session_id", id), zap.Error(err))
		return err
	}
	return nil
}

// ═══════════════════════════════════════════════════════════
// 编辑操作
// ═══════════════════════════════════════════════════════════

func (s *sessionService) Drop(ctx context.Context, actor Actor, id string, req *dto.DropRequest) (*dto.MoveResponse, error) {
	from, to := req.From.ToAddress(), req.To.ToAddress()
	if !s.layout.ValidAddress(from) || !s.layout.ValidAddress(to) {
		return nil, ErrInvalidAddress
	}

	var result timetable.MoveResult
	sess, ed, err := s.mutate(ctx, actor, id, func(ed *timetable.Editor) *model.LayoutChangeLog {
		result = ed.Drop(from, to)
		if !result.Applied {
			return nil
		}
		entry := changeEntry(changeMove, &from, &to)
		entry.Subject = result.Moved.Subject
		return entry
	})
	if err != nil {
		return nil, err
	}

	return &dto.MoveResponse{
		Applied:   result.Applied,
		Reason:    result.Reason,
		Moved:     result.Moved,
		Displaced: result.Displaced,
		Session:   s.toResponse(sess, ed, ""),
	}, nil
}

func (s *sessionService) DoubleClick(ctx context.Context, actor Actor, id string, req *dto.SlotAddressRequest) (*dto.ClickResponse, error) {
	addr := req.ToAddress()

	// 网格外的地址由编辑器按 ignored 处理，选中状态不变
	var outcome timetable.ClickOutcome
	sess, ed, err := s.mutate(ctx, actor, id, func(ed *timetable.Editor) *model.LayoutChangeLog {
		prev, hadSelection := ed.Selection()
		outcome = ed.DoubleClick(addr)
		if outcome.Action != timetable.ClickSwapped || !hadSelection {
			return nil
		}
		return changeEntry(changeSwap, &prev, &addr)
	})
	if err != nil {
		return nil, err
	}

	return &dto.ClickResponse{
		Action:    string(outcome.Action),
		Selection: outcome.Selection,
		Session:   s.toResponse(sess, ed, ""),
	}, nil
}

func (s *sessionService) Undo(ctx context.Context, actor Actor, id string) (*dto.HistoryResponse, error) {
	return s.history(ctx, actor, id, changeUndo, (*timetable.Editor).Undo)
}

func (s *sessionService) Redo(ctx context.Context, actor Actor, id string) (*dto.HistoryResponse, error) {
	return s.history(ctx, actor, id, changeRedo, (*timetable.Editor).Redo)
}

func (s *sessionService) history(ctx context.Context, actor Actor, id, changeType string, step func(*timetable.Editor) bool) (*dto.HistoryResponse, error) {
	applied := false
	sess, ed, err := s.mutate(ctx, actor, id, func(ed *timetable.Editor) *model.LayoutChangeLog {
		applied = step(ed)
		if !applied {
			return nil
		}
		return changeEntry(changeType, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return &dto.HistoryResponse{Applied: applied, Session: s.toResponse(sess, ed, "")}, nil
}

// Rename 先更新上游，成功后再写回会话
func (s *sessionService) Rename(ctx context.Context, actor Actor, id string, req *dto.RenameRequest) (*dto.SessionResponse, error) {
	sess, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := s.api.UpdateTimetableName(ctx, actor.Token, sess.TimetableID, req.Name); err != nil {
		s.logger.Warn("更新上游时间表名称失败", zap.String("timetable_id", sess.TimetableID), zap.Error(err))
		return nil, translateUpstream(err)
	}

	sess, ed, err := s.mutate(ctx, actor, id, func(ed *timetable.Editor) *model.LayoutChangeLog {
		ed.Rename(req.Name)
		entry := changeEntry(changeRename, nil, nil)
		entry.Subject = req.Name
		return entry
	})
	if err != nil {
		return nil, err
	}
	return s.toResponse(sess, ed, ""), nil
}

// ═══════════════════════════════════════════════════════════
// 布局快照
// ═══════════════════════════════════════════════════════════

func (s *sessionService) SaveLayout(ctx context.Context, actor Actor, id string, req *dto.SaveLayoutRequest) (*dto.LayoutSnapshotResponse, error) {
	if s.repo.LayoutSnapshot == nil {
		return nil, ErrLayoutStoreDisabled
	}

	sess, ed, err := s.Load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	tt := ed.Timetable()
	payload, err := json.Marshal(tt)
	if err != nil {
		return nil, err
	}

	operator := actor.UserID
	snapshot := &model.LayoutSnapshot{
		TimetableID: sess.TimetableID,
		Name:        snapshotName(tt, sess.TimetableID),
		Payload:     datatypes.JSON(payload),
		Comment:     req.Comment,
		SessionID:   sess.ID,
		BaseModel:   model.BaseModel{CreatedBy: &operator, UpdatedBy: &operator},
	}
	if err := s.repo.LayoutSnapshot.Create(ctx, snapshot); err != nil {
		s.logger.Error("保存布局快照失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}

	entry := changeEntry(changeSave, nil, nil)
	entry.Subject = snapshot.LayoutSnapshotID
	s.recordChange(ctx, sess, actor, entry)

	resp := toLayoutResponse(snapshot)
	return &resp, nil
}

// ListLayouts 列出会话所编辑时间表的快照；只有会话所有者可以查看
func (s *sessionService) ListLayouts(ctx context.Context, actor Actor, id string, req *dto.ListLayoutsRequest) ([]dto.LayoutSnapshotResponse, int64, error) {
	if s.repo.LayoutSnapshot == nil {
		return nil, 0, ErrLayoutStoreDisabled
	}
	sess, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, 0, err
	}

	snapshots, total, err := s.repo.LayoutSnapshot.ListByTimetable(ctx, sess.TimetableID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询布局快照失败", zap.String("timetable_id", sess.TimetableID), zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.LayoutSnapshotResponse, 0, len(snapshots))
	for i := range snapshots {
		list = append(list, toLayoutResponse(&snapshots[i]))
	}
	return list, total, nil
}

// RestoreLayout 用快照内容替换当前时间表（可撤销），名称保持当前值
func (s *sessionService) RestoreLayout(ctx context.Context, actor Actor, id, layoutID string) (*dto.SessionResponse, error) {
	if s.repo.LayoutSnapshot == nil {
		return nil, ErrLayoutStoreDisabled
	}

	snapshot, err := s.repo.LayoutSnapshot.GetByID(ctx, layoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLayoutNotFound
		}
		s.logger.Error("查询布局快照失败", zap.String("layout_id", layoutID), zap.Error(err))
		return nil, err
	}

	var restored model.Timetable
	if err := json.Unmarshal(snapshot.Payload, &restored); err != nil {
		s.logger.Error("解析布局快照失败", zap.String("layout_id", layoutID), zap.Error(err))
		return nil, ErrLayoutCorrupted
	}

	current, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if snapshot.TimetableID != current.TimetableID {
		return nil, ErrLayoutMismatch
	}

	sess, ed, err := s.mutate(ctx, actor, id, func(ed *timetable.Editor) *model.LayoutChangeLog {
		if tt := ed.Timetable(); tt != nil {
			restored.ID, restored.Name = tt.ID, tt.Name
		}
		ed.Replace(&restored)
		entry := changeEntry(changeRestore, nil, nil)
		entry.Subject = snapshot.LayoutSnapshotID
		return entry
	})
	if err != nil {
		return nil, err
	}
	return s.toResponse(sess, ed, ""), nil
}

// ═══════════════════════════════════════════════════════════
// 内部
// ═══════════════════════════════════════════════════════════

func (s *sessionService) Load(ctx context.Context, actor Actor, id string) (*repository.Session, *timetable.Editor, error) {
	sess, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	return sess, timetable.RestoreEditor(sess.State, s.layout, s.historyLimit), nil
}

func (s *sessionService) load(ctx context.Context, actor Actor, id string) (*repository.Session, error) {
	sess, err := s.repo.Session.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("读取编辑会话失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	if sess.OwnerID != actor.UserID {
		return nil, ErrSessionForbidden
	}
	return sess, nil
}

// mutate 读取 → 修改 → 按版本写回。fn 返回非 nil 的变更记录时写入变更日志。
// 写回冲突时返回 pkgerrors.ErrOptimisticLock，调用方可刷新后重试。
func (s *sessionService) mutate(ctx context.Context, actor Actor, id string, fn func(ed *timetable.Editor) *model.LayoutChangeLog) (*repository.Session, *timetable.Editor, error) {
	sess, ed, err := s.Load(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}

	entry := fn(ed)

	sess.State = ed.State()
	sess.UpdatedAt = s.now()
	if err := s.repo.Session.Update(ctx, sess); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		s.logger.Warn("写回编辑会话失败", zap.String("session_id", id), zap.Error(err))
		return nil, nil, err
	}

	if entry != nil {
		s.recordChange(ctx, sess, actor, entry)
	}
	return sess, ed, nil
}

// recordChange 变更日志写入失败不影响编辑结果
func (s *sessionService) recordChange(ctx context.Context, sess *repository.Session, actor Actor, entry *model.LayoutChangeLog) {
	if s.repo.LayoutChangeLog == nil {
		return
	}
	entry.SessionID = sess.ID
	entry.TimetableID = sess.TimetableID
	entry.OperatorID = actor.UserID
	entry.CreatedAt = s.now()
	if err := s.repo.LayoutChangeLog.Create(ctx, entry); err != nil {
		s.logger.Warn("写入变更日志失败",
			zap.String("session_id", sess.ID),
			zap.String("change_type", entry.ChangeType),
			zap.Error(err),
		)
	}
}

func (s *sessionService) toResponse(sess *repository.Session, ed *timetable.Editor, teacher string) *dto.SessionResponse {
	grid, report := ed.GridWithReport()
	tt := ed.Timetable()

	resp := &dto.SessionResponse{
		ID:          sess.ID,
		TimetableID: sess.TimetableID,
		Version:     sess.Version,
		Roster:      s.layout.Roster,
		Days:        s.layout.Days,
		SlotsPerDay: s.layout.SlotsPerDay,
		Grid:        toGridView(grid),
		Report:      report,
		CanUndo:     ed.CanUndo(),
		CanRedo:     ed.CanRedo(),
		Teachers:    timetable.Teachers(tt),
		Timetable:   tt,
		UpdatedAt:   sess.UpdatedAt.Format(time.RFC3339),
	}
	if tt != nil {
		resp.Name = tt.Name
	}
	if sel, ok := ed.Selection(); ok {
		resp.Selection = &sel
	}
	if teacher != "" {
		resp.Highlighted = timetable.HighlightedBy(grid, s.layout, teacher)
	}
	return resp
}

func toGridView(g timetable.Grid) dto.GridView {
	view := make(dto.GridView, len(g))
	for label, days := range g {
		row := make(map[string][]*dto.GridCell, len(days))
		for day, slots := range days {
			cells := make([]*dto.GridCell, len(slots))
			for i, e := range slots {
				if e == nil {
					continue
				}
				cells[i] = &dto.GridCell{
					Subject:     e.Subject,
					Instructors: nonNil(e.Instructors),
					Rooms:       nonNil(e.Rooms),
					Targets:     nonNil(e.Targets),
					Length:      e.Periods.Length,
				}
			}
			row[day] = cells
		}
		view[label] = row
	}
	return view
}

func toLayoutResponse(snap *model.LayoutSnapshot) dto.LayoutSnapshotResponse {
	resp := dto.LayoutSnapshotResponse{
		ID:          snap.LayoutSnapshotID,
		TimetableID: snap.TimetableID,
		Name:        snap.Name,
		Comment:     snap.Comment,
		SessionID:   snap.SessionID,
		CreatedAt:   snap.CreatedAt.Format(time.RFC3339),
	}
	if snap.CreatedBy != nil {
		resp.CreatedBy = *snap.CreatedBy
	}
	return resp
}

func changeEntry(changeType string, from, to *timetable.SlotAddress) *model.LayoutChangeLog {
	entry := &model.LayoutChangeLog{ChangeType: changeType}
	if from != nil {
		p := from.Period
		entry.FromDay, entry.FromLabel, entry.FromPeriod = from.Day, from.Label, &p
	}
	if to != nil {
		p := to.Period
		entry.ToDay, entry.ToLabel, entry.ToPeriod = to.Day, to.Label, &p
	}
	return entry
}

func snapshotName(tt *model.Timetable, fallback string) string {
	if tt != nil && tt.Name != "" {
		return tt.Name
	}
	return fallback
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
