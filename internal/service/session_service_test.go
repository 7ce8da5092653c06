package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"timetable-editor/config"
	"timetable-editor/internal/dto"
	"timetable-editor/internal/model"
	"timetable-editor/internal/repository"
	"timetable-editor/internal/timetable"
	pkgerrors "timetable-editor/pkg/errors"
	"timetable-editor/pkg/timetableapi"
)

// ── 测试辅助 ──

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Timezone: "UTC"},
		Grid: config.GridConfig{
			Roster:       timetable.DefaultRoster,
			Days:         timetable.DefaultDays,
			SlotsPerDay:  timetable.DefaultSlotsPerDay,
			TargetPolicy: string(timetable.SharedTargets),
			PeriodTimes:  []string{"09:00-10:30", "10:40-12:10", "13:00-14:30", "14:40-16:10"},
		},
		Session: config.SessionConfig{TTL: time.Hour},
	}
}

func sampleUpstreamTimetable() *model.Timetable {
	return &model.Timetable{
		ID:   "tt-1",
		Name: "前期",
		Days: []model.TimetableDay{
			{Day: "Monday", Classes: []model.ClassEntry{
				{Subject: "Math", Instructors: []string{"Tanaka"}, Rooms: []string{"R101"}, Periods: model.Period{Period: 0, Length: 1}, Targets: []string{"ME1"}},
				{Subject: "English", Instructors: []string{"Suzuki"}, Rooms: []string{"R102"}, Periods: model.Period{Period: 1, Length: 1}, Targets: []string{"ME1"}},
				{Subject: "Physics", Instructors: []string{"Tanaka"}, Rooms: []string{"Lab"}, Periods: model.Period{Period: 2, Length: 1}, Targets: []string{"IE1"}},
			}},
		},
	}
}

var testActor = Actor{UserID: "user-1", Name: "山田", Token: "token-1"}

type sessionFixture struct {
	svc       SessionService
	repo      *repository.Repository
	api       *mockUpstream
	snapshots *mockSnapshotRepo
	logs      *mockChangeLogRepo
}

func setupTestSessionService() *sessionFixture {
	api := newMockUpstream()
	api.timetables["tt-1"] = sampleUpstreamTimetable()
	api.timetables["tt-2"] = &model.Timetable{ID: "tt-2", Name: "後期"}

	snapshots := newMockSnapshotRepo()
	logs := newMockChangeLogRepo()
	repo := &repository.Repository{
		Session:         repository.NewMemorySessionRepo(time.Hour),
		LayoutSnapshot:  snapshots,
		LayoutChangeLog: logs,
	}
	return &sessionFixture{
		svc:       NewSessionService(testConfig(), repo, api, zap.NewNop()),
		repo:      repo,
		api:       api,
		snapshots: snapshots,
		logs:      logs,
	}
}

func (f *sessionFixture) open(t *testing.T) *dto.SessionResponse {
	t.Helper()
	resp, err := f.svc.Open(context.Background(), testActor, &dto.OpenSessionRequest{TimetableID: "tt-1"})
	if err != nil {
		t.Fatalf("Open 应成功: %v", err)
	}
	return resp
}

func at(day, label string, period int) dto.SlotAddressRequest {
	return dto.SlotAddressRequest{Day: day, Label: label, Period: &period}
}

func subjectIn(resp *dto.SessionResponse, day, label string, period int) string {
	c := resp.Grid[label][day][period]
	if c == nil {
		return ""
	}
	return c.Subject
}

// conflictSessionRepo 模拟并发写入：Update 总是版本冲突
type conflictSessionRepo struct {
	repository.SessionRepository
}

func (conflictSessionRepo) Update(context.Context, *repository.Session) error {
	return pkgerrors.ErrOptimisticLock
}

// ── Open / Get ──

func TestSessionService_Open_Success(t *testing.T) {
	f := setupTestSessionService()

	resp := f.open(t)

	if resp.ID == "" {
		t.Fatal("期望生成会话 ID")
	}
	if resp.TimetableID != "tt-1" || resp.Name != "前期" {
		t.Errorf("期望 tt-1/前期，实际=%s/%s", resp.TimetableID, resp.Name)
	}
	if resp.Version != 1 {
		t.Errorf("期望版本 1，实际=%d", resp.Version)
	}
	if got := subjectIn(resp, "Monday", "ME1", 0); got != "Math" {
		t.Errorf("期望 ME1 周一第0节为 Math，实际=%q", got)
	}
	if resp.Grid["CA5"]["Friday"][3] != nil {
		t.Error("空格子应为 nil")
	}
	if resp.CanUndo || resp.CanRedo {
		t.Error("新会话不应有历史")
	}
	if len(f.api.tokens) == 0 || f.api.tokens[0] != "token-1" {
		t.Error("应把用户 Token 转发给上游")
	}
}

func TestSessionService_Open_DefaultTimetable(t *testing.T) {
	f := setupTestSessionService()
	actor := testActor
	actor.DefaultTimetable = "tt-2"

	resp, err := f.svc.Open(context.Background(), actor, &dto.OpenSessionRequest{})
	if err != nil {
		t.Fatalf("Open 应成功: %v", err)
	}
	if resp.TimetableID != "tt-2" {
		t.Errorf("期望使用 Token 中的 tt-2，实际=%s", resp.TimetableID)
	}
}

func TestSessionService_Open_NoTimetable(t *testing.T) {
	f := setupTestSessionService()

	_, err := f.svc.Open(context.Background(), testActor, &dto.OpenSessionRequest{})
	if !errors.Is(err, ErrNoTimetableSelected) {
		t.Errorf("期望 ErrNoTimetableSelected，实际=%v", err)
	}
}

func TestSessionService_Open_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name string
		id   string
		err  error
		want error
	}{
		{name: "不存在", id: "missing", want: ErrTimetableNotFound},
		{name: "未授权", id: "tt-1", err: &timetableapi.StatusError{StatusCode: 401}, want: ErrUpstreamRejected},
		{name: "上游故障", id: "tt-1", err: &timetableapi.StatusError{StatusCode: 500}, want: ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestSessionService()
			f.api.getErr = tt.err

			_, err := f.svc.Open(context.Background(), testActor, &dto.OpenSessionRequest{TimetableID: tt.id})
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际=%v", tt.want, err)
			}
		})
	}
}

func TestSessionService_Get_OwnerOnly(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)

	other := Actor{UserID: "user-2", Token: "token-2"}
	if _, err := f.svc.Get(context.Background(), other, opened.ID, ""); !errors.Is(err, ErrSessionForbidden) {
		t.Errorf("期望 ErrSessionForbidden，实际=%v", err)
	}
	if _, err := f.svc.Get(context.Background(), testActor, "missing", ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("期望 ErrSessionNotFound，实际=%v", err)
	}
}

func TestSessionService_Get_HighlightTeacher(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)

	resp, err := f.svc.Get(context.Background(), testActor, opened.ID, "Tanaka")
	if err != nil {
		t.Fatalf("Get 应成功: %v", err)
	}
	if len(resp.Highlighted) != 2 {
		t.Fatalf("期望高亮 2 个格子，实际=%d", len(resp.Highlighted))
	}
	if len(resp.Teachers) != 2 {
		t.Errorf("期望教师列表 2 人，实际=%v", resp.Teachers)
	}
}

// ── Drop / DoubleClick ──

func TestSessionService_Drop_Success(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)

	resp, err := f.svc.Drop(context.Background(), testActor, opened.ID, &dto.DropRequest{
		From: at("Monday", "ME1", 0),
		To:   at("Monday", "ME1", 3),
	})
	if err != nil {
		t.Fatalf("Drop 应成功: %v", err)
	}
	if !resp.Applied {
		t.Fatalf("期望移动生效，原因=%s", resp.Reason)
	}
	if got := subjectIn(resp.Session, "Monday", "ME1", 3); got != "Math" {
		t.Errorf("期望 Math 移至第3节，实际=%q", got)
	}
	if subjectIn(resp.Session, "Monday", "ME1", 0) != "" {
		t.Error("原位置应为空")
	}
	if !resp.Session.CanUndo {
		t.Error("移动后应可撤销")
	}
	if resp.Session.Version != 2 {
		t.Errorf("期望版本 2，实际=%d", resp.Session.Version)
	}
	if types := f.logs.types(); len(types) != 1 || types[0] != changeMove {
		t.Errorf("期望记录一条 move 日志，实际=%v", types)
	}
	if f.logs.logs[0].Subject != "Math" || f.logs.logs[0].OperatorID != "user-1" {
		t.Errorf("日志内容不符: %+v", f.logs.logs[0])
	}
}

func TestSessionService_Drop_InvalidAddress(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)

	_, err := f.svc.Drop(context.Background(), testActor, opened.ID, &dto.DropRequest{
		From: at("Monday", "ME1", 0),
		To:   at("Sunday", "ME1", 0),
	})
	if !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("期望 ErrInvalidAddress，实际=%v", err)
	}
}

func TestSessionService_Drop_NoopNotLogged(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)

	resp, err := f.svc.Drop(context.Background(), testActor, opened.ID, &dto.DropRequest{
		From: at("Monday", "ME1", 0),
		To:   at("Monday", "ME1", 0),
	})
	if err != nil {
		t.Fatalf("Drop 不应报错: %v", err)
	}
	if resp.Applied {
		t.Error("原地拖放不应生效")
	}
	if len(f.logs.types()) != 0 {
		t.Error("未生效的移动不应写日志")
	}
}

func TestSessionService_Drop_ChangeLogFailureIgnored(t *testing.T) {
	f := setupTestSessionService()
	f.logs.createErr = errors.New("db down")
	opened := f.open(t)

	resp, err := f.svc.Drop(context.Background(), testActor, opened.ID, &dto.DropRequest{
		From: at("Monday", "ME1", 0),
		To:   at("Monday", "ME1", 3),
	})
	if err != nil {
		t.Fatalf("日志写入失败不应影响移动: %v", err)
	}
	if !resp.Applied {
		t.Error("期望移动生效")
	}
}

func TestSessionService_Drop_Conflict(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)
	f.repo.Session = conflictSessionRepo{SessionRepository: f.repo.Session}

	_, err := f.svc.Drop(context.Background(), testActor, opened.ID, &dto.DropRequest{
		From: at("Monday", "ME1", 0),
		To:   at("Monday", "ME1", 3),
	})
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际=%v", err)
	}
	if len(f.logs.types()) != 0 {
		t.Error("写回失败时不应写日志")
	}
}

func TestSessionService_DoubleClick_SelectThenSwap(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)
	ctx := context.Background()

	first, err := f.svc.DoubleClick(ctx, testActor, opened.ID, &dto.SlotAddressRequest{Day: "Monday", Label: "ME1", Period: intPtr(0)})
	if err != nil {
		t.Fatalf("DoubleClick 应成功: %v", err)
	}
	if first.Action != string(timetable.ClickSelected) {
		t.Fatalf("期望 selected，实际=%s", first.Action)
	}
	if first.Session.Selection == nil {
		t.Fatal("会话应记录选中格子")
	}

	second, err := f.svc.DoubleClick(ctx, testActor, opened.ID, &dto.SlotAddressRequest{Day: "Monday", Label: "ME1", Period: intPtr(1)})
	if err != nil {
		t.Fatalf("DoubleClick 应成功: %v", err)
	}
	if second.Action != string(timetable.ClickSwapped) {
		t.Fatalf("期望 swapped，实际=%s", second.Action)
	}
	if got := subjectIn(second.Session, "Monday", "ME1", 0); got != "English" {
		t.Errorf("期望第0节为 English，实际=%q", got)
	}
	if second.Session.Selection != nil {
		t.Error("交换后应清除选中")
	}
	if types := f.logs.types(); len(types) != 1 || types[0] != changeSwap {
		t.Errorf("期望记录一条 swap 日志，实际=%v", types)
	}
}

func TestSessionService_DoubleClick_OutsideGridIgnored(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)
	ctx := context.Background()

	f.svc.DoubleClick(ctx, testActor, opened.ID, &dto.SlotAddressRequest{Day: "Monday", Label: "ME1", Period: intPtr(0)})

	resp, err := f.svc.DoubleClick(ctx, testActor, opened.ID, &dto.SlotAddressRequest{Day: "Monday", Label: "ME1", Period: intPtr(9)})
	if err != nil {
		t.Fatalf("网格外地址不应返回错误: %v", err)
	}
	if resp.Action != string(timetable.ClickIgnored) {
		t.Errorf("期望 ignored，实际=%s", resp.Action)
	}
	if resp.Session.Selection == nil || resp.Session.Selection.Period != 0 {
		t.Errorf("忽略后应保持原选中格子，实际=%+v", resp.Session.Selection)
	}
	if len(f.logs.types()) != 0 {
		t.Errorf("忽略的双击不应记录日志，实际=%v", f.logs.types())
	}
}

// ── Undo / Redo ──

func TestSessionService_UndoRedo(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)
	ctx := context.Background()

	if _, err := f.svc.Drop(ctx, testActor, opened.ID, &dto.DropRequest{From: at("Monday", "ME1", 0), To: at("Monday", "ME1", 3)}); err != nil {
		t.Fatalf("Drop 应成功: %v", err)
	}

	undo, err := f.svc.Undo(ctx, testActor, opened.ID)
	if err != nil || !undo.Applied {
		t.Fatalf("Undo 应成功: %v", err)
	}
	if subjectIn(undo.Session, "Monday", "ME1", 0) != "Math" {
		t.Error("撤销后 Math 应回到第0节")
	}

	redo, err := f.svc.Redo(ctx, testActor, opened.ID)
	if err != nil || !redo.Applied {
		t.Fatalf("Redo 应成功: %v", err)
	}
	if subjectIn(redo.Session, "Monday", "ME1", 3) != "Math" {
		t.Error("重做后 Math 应在第3节")
	}

	again, err := f.svc.Redo(ctx, testActor, opened.ID)
	if err != nil {
		t.Fatalf("空重做不应报错: %v", err)
	}
	if again.Applied {
		t.Error("重做栈为空时不应生效")
	}

	want := []string{changeMove, changeUndo, changeRedo}
	got := f.logs.types()
	if len(got) != len(want) {
		t.Fatalf("期望日志 %v，实际=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("第%d条日志期望 %s，实际=%s", i, want[i], got[i])
		}
	}
}

// ── Rename ──

func TestSessionService_Rename_Success(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)

	resp, err := f.svc.Rename(context.Background(), testActor, opened.ID, &dto.RenameRequest{Name: "前期（改）"})
	if err != nil {
		t.Fatalf("Rename 应成功: %v", err)
	}
	if resp.Name != "前期（改）" {
		t.Errorf("期望名称已更新，实际=%s", resp.Name)
	}
	if f.api.renamed["tt-1"] != "前期（改）" {
		t.Error("应调用上游更新名称")
	}
	if resp.CanUndo {
		t.Error("改名不应进入撤销历史")
	}
}

func TestSessionService_Rename_UpstreamRejected(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)
	f.api.renameErr = &timetableapi.StatusError{StatusCode: 403}

	_, err := f.svc.Rename(context.Background(), testActor, opened.ID, &dto.RenameRequest{Name: "x"})
	if !errors.Is(err, ErrUpstreamRejected) {
		t.Fatalf("期望 ErrUpstreamRejected，实际=%v", err)
	}

	resp, _ := f.svc.Get(context.Background(), testActor, opened.ID, "")
	if resp.Name != "前期" {
		t.Errorf("上游失败时名称不应变化，实际=%s", resp.Name)
	}
}

// ── 布局快照 ──

func TestSessionService_SaveAndRestoreLayout(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)
	ctx := context.Background()

	f.svc.Drop(ctx, testActor, opened.ID, &dto.DropRequest{From: at("Monday", "ME1", 0), To: at("Monday", "ME1", 3)})

	saved, err := f.svc.SaveLayout(ctx, testActor, opened.ID, &dto.SaveLayoutRequest{Comment: "数学移到下午"})
	if err != nil {
		t.Fatalf("SaveLayout 应成功: %v", err)
	}
	if saved.TimetableID != "tt-1" || saved.Name != "前期" || saved.CreatedBy != "user-1" {
		t.Errorf("快照信息不符: %+v", saved)
	}

	list, total, err := f.svc.ListLayouts(ctx, testActor, opened.ID, &dto.ListLayoutsRequest{})
	if err != nil {
		t.Fatalf("ListLayouts 应成功: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("期望 1 个快照，实际 total=%d len=%d", total, len(list))
	}

	// 撤销后再恢复快照
	f.svc.Undo(ctx, testActor, opened.ID)
	restored, err := f.svc.RestoreLayout(ctx, testActor, opened.ID, saved.ID)
	if err != nil {
		t.Fatalf("RestoreLayout 应成功: %v", err)
	}
	if subjectIn(restored, "Monday", "ME1", 3) != "Math" {
		t.Error("恢复后 Math 应在第3节")
	}
	if !restored.CanUndo {
		t.Error("恢复快照应可撤销")
	}

	types := f.logs.types()
	if types[len(types)-1] != changeRestore {
		t.Errorf("期望最后一条日志为 restore，实际=%v", types)
	}
}

func TestSessionService_RestoreLayout_KeepsCurrentName(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)
	ctx := context.Background()

	saved, err := f.svc.SaveLayout(ctx, testActor, opened.ID, &dto.SaveLayoutRequest{})
	if err != nil {
		t.Fatalf("SaveLayout 应成功: %v", err)
	}
	if _, err := f.svc.Rename(ctx, testActor, opened.ID, &dto.RenameRequest{Name: "新名称"}); err != nil {
		t.Fatalf("Rename 应成功: %v", err)
	}

	restored, err := f.svc.RestoreLayout(ctx, testActor, opened.ID, saved.ID)
	if err != nil {
		t.Fatalf("RestoreLayout 应成功: %v", err)
	}
	if restored.Name != "新名称" {
		t.Errorf("恢复快照不应回退名称，实际=%s", restored.Name)
	}
}

func TestSessionService_RestoreLayout_Errors(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)
	ctx := context.Background()

	if _, err := f.svc.RestoreLayout(ctx, testActor, opened.ID, "missing"); !errors.Is(err, ErrLayoutNotFound) {
		t.Errorf("期望 ErrLayoutNotFound，实际=%v", err)
	}

	f.snapshots.Create(ctx, &model.LayoutSnapshot{
		LayoutSnapshotID: "other",
		TimetableID:      "tt-2",
		Payload:          []byte(`{"Days":[]}`),
	})
	if _, err := f.svc.RestoreLayout(ctx, testActor, opened.ID, "other"); !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("期望 ErrLayoutMismatch，实际=%v", err)
	}

	f.snapshots.Create(ctx, &model.LayoutSnapshot{
		LayoutSnapshotID: "broken",
		TimetableID:      "tt-1",
		Payload:          []byte(`{"Days":`),
	})
	if _, err := f.svc.RestoreLayout(ctx, testActor, opened.ID, "broken"); !errors.Is(err, ErrLayoutCorrupted) {
		t.Errorf("期望 ErrLayoutCorrupted，实际=%v", err)
	}
}

func TestSessionService_LayoutStoreDisabled(t *testing.T) {
	api := newMockUpstream()
	api.timetables["tt-1"] = sampleUpstreamTimetable()
	repo := repository.NewRepository(nil, nil, time.Hour)
	svc := NewSessionService(testConfig(), repo, api, zap.NewNop())
	ctx := context.Background()

	opened, err := svc.Open(ctx, testActor, &dto.OpenSessionRequest{TimetableID: "tt-1"})
	if err != nil {
		t.Fatalf("无数据库时 Open 仍应成功: %v", err)
	}
	if _, err := svc.Drop(ctx, testActor, opened.ID, &dto.DropRequest{From: at("Monday", "ME1", 0), To: at("Monday", "ME1", 3)}); err != nil {
		t.Fatalf("无数据库时 Drop 仍应成功: %v", err)
	}
	if _, err := svc.SaveLayout(ctx, testActor, opened.ID, &dto.SaveLayoutRequest{}); !errors.Is(err, ErrLayoutStoreDisabled) {
		t.Errorf("期望 ErrLayoutStoreDisabled，实际=%v", err)
	}
	if _, _, err := svc.ListLayouts(ctx, testActor, opened.ID, &dto.ListLayoutsRequest{}); !errors.Is(err, ErrLayoutStoreDisabled) {
		t.Errorf("期望 ErrLayoutStoreDisabled，实际=%v", err)
	}
}

func TestSessionService_ListLayouts_OwnerOnly(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)
	ctx := context.Background()

	if _, err := f.svc.SaveLayout(ctx, testActor, opened.ID, &dto.SaveLayoutRequest{}); err != nil {
		t.Fatalf("SaveLayout 应成功: %v", err)
	}

	other := Actor{UserID: "user-2", Token: "other-token"}
	if _, _, err := f.svc.ListLayouts(ctx, other, opened.ID, &dto.ListLayoutsRequest{}); !errors.Is(err, ErrSessionForbidden) {
		t.Errorf("非会话所有者期望 ErrSessionForbidden，实际=%v", err)
	}
	if _, _, err := f.svc.ListLayouts(ctx, testActor, "missing", &dto.ListLayoutsRequest{}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("会话不存在期望 ErrSessionNotFound，实际=%v", err)
	}
}

// ── Close ──

func TestSessionService_Close(t *testing.T) {
	f := setupTestSessionService()
	opened := f.open(t)
	ctx := context.Background()

	if err := f.svc.Close(ctx, Actor{UserID: "user-2"}, opened.ID); !errors.Is(err, ErrSessionForbidden) {
		t.Errorf("非所有者关闭期望 ErrSessionForbidden，实际=%v", err)
	}
	if err := f.svc.Close(ctx, testActor, opened.ID); err != nil {
		t.Fatalf("Close 应成功: %v", err)
	}
	if _, err := f.svc.Get(ctx, testActor, opened.ID, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("关闭后期望 ErrSessionNotFound，实际=%v", err)
	}
}

func intPtr(v int) *int { return &v }
