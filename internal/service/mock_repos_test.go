package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"

	"timetable-editor/internal/model"
	"timetable-editor/pkg/timetableapi"
)

// ── Mock LayoutSnapshotRepository ──

type mockSnapshotRepo struct {
	snapshots map[string]*model.LayoutSnapshot
	seq       int
	createErr error
}

func newMockSnapshotRepo() *mockSnapshotRepo {
	return &mockSnapshotRepo{snapshots: make(map[string]*model.LayoutSnapshot)}
}

func (m *mockSnapshotRepo) Create(_ context.Context, snapshot *model.LayoutSnapshot) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	if snapshot.LayoutSnapshotID == "" {
		snapshot.LayoutSnapshotID = fmt.Sprintf("layout-%d", m.seq)
	}
	cp := *snapshot
	m.snapshots[snapshot.LayoutSnapshotID] = &cp
	return nil
}

func (m *mockSnapshotRepo) GetByID(_ context.Context, id string) (*model.LayoutSnapshot, error) {
	if s, ok := m.snapshots[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSnapshotRepo) ListByTimetable(_ context.Context, timetableID string, offset, limit int) ([]model.LayoutSnapshot, int64, error) {
	var all []model.LayoutSnapshot
	for _, s := range m.snapshots {
		if s.TimetableID == timetableID {
			cp := *s
			cp.Payload = nil
			all = append(all, cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].LayoutSnapshotID > all[j].LayoutSnapshotID })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.LayoutSnapshot{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock LayoutChangeLogRepository ──

type mockChangeLogRepo struct {
	mu        sync.Mutex
	logs      []model.LayoutChangeLog
	createErr error
}

func newMockChangeLogRepo() *mockChangeLogRepo {
	return &mockChangeLogRepo{}
}

func (m *mockChangeLogRepo) Create(_ context.Context, log *model.LayoutChangeLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockChangeLogRepo) ListBySession(_ context.Context, sessionID string, offset, limit int) ([]model.LayoutChangeLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LayoutChangeLog
	for _, l := range m.logs {
		if l.SessionID == sessionID {
			out = append(out, l)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockChangeLogRepo) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.ChangeType)
	}
	return out
}

// ── Mock UpstreamAPI ──

type mockUpstream struct {
	mu sync.Mutex

	timetables     map[string]*model.Timetable
	summaries      []model.TimetableSummary
	current        *model.CurrentPeriod
	instructors    []model.Instructor
	rooms          []model.Room
	availableRooms []model.Room
	courses        []model.Course

	getErr       error
	renameErr    error
	currentErr   error
	availableErr error
	listErr      error

	renamed   map[string]string
	tokens    []string
	available []model.SlotRef
}

func newMockUpstream() *mockUpstream {
	return &mockUpstream{
		timetables: make(map[string]*model.Timetable),
		renamed:    make(map[string]string),
	}
}

func (m *mockUpstream) record(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, token)
}

func (m *mockUpstream) GetTimetable(_ context.Context, token, id string) (*model.Timetable, error) {
	m.record(token)
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tt, ok := m.timetables[id]
	if !ok {
		return nil, &timetableapi.StatusError{Method: "GET", Path: "/api/timetable/get/" + id, StatusCode: 404}
	}
	return tt.Clone(), nil
}

func (m *mockUpstream) ListTimetables(_ context.Context, token string) ([]model.TimetableSummary, error) {
	m.record(token)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.summaries, nil
}

func (m *mockUpstream) UpdateTimetableName(_ context.Context, token, id, name string) error {
	m.record(token)
	if m.renameErr != nil {
		return m.renameErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renamed[id] = name
	return nil
}

func (m *mockUpstream) CurrentPeriod(_ context.Context, token string) (*model.CurrentPeriod, error) {
	m.record(token)
	if m.currentErr != nil {
		return nil, m.currentErr
	}
	cp := *m.current
	return &cp, nil
}

func (m *mockUpstream) ListInstructors(_ context.Context, token string) ([]model.Instructor, error) {
	m.record(token)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.instructors, nil
}

func (m *mockUpstream) ListRooms(_ context.Context, token string) ([]model.Room, error) {
	m.record(token)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.rooms, nil
}

func (m *mockUpstream) AvailableRooms(_ context.Context, token string, day, period int) ([]model.Room, error) {
	m.record(token)
	m.mu.Lock()
	m.available = append(m.available, model.SlotRef{Day: day, Period: period})
	m.mu.Unlock()
	if m.availableErr != nil {
		return nil, m.availableErr
	}
	return m.availableRooms, nil
}

func (m *mockUpstream) ListCourses(_ context.Context, token string) ([]model.Course, error) {
	m.record(token)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.courses, nil
}
