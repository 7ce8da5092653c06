package timetable

import (
	"testing"

	"timetable-editor/internal/model"
)

// ── 测试辅助 ──

func entry(subject string, period int, targets ...string) model.ClassEntry {
	return model.ClassEntry{
		Subject:     subject,
		Instructors: []string{subject + "老师"},
		Rooms:       []string{subject + "教室"},
		Periods:     model.Period{Period: period, Length: 1},
		Targets:     targets,
	}
}

func day(name string, classes ...model.ClassEntry) model.TimetableDay {
	return model.TimetableDay{Day: name, Classes: classes}
}

func addr(d, label string, period int) SlotAddress {
	return SlotAddress{Day: d, Label: label, Period: period}
}

func subjectAt(g Grid, a SlotAddress) string {
	e := g.At(a)
	if e == nil {
		return ""
	}
	return e.Subject
}

// ── Project 测试 ──

func TestProject_NilTimetable(t *testing.T) {
	layout := DefaultLayout()
	g := Project(nil, layout)

	if len(g) != len(DefaultRoster) {
		t.Fatalf("期望 %d 个班级，实际=%d", len(DefaultRoster), len(g))
	}
	for _, label := range DefaultRoster {
		for _, d := range DefaultDays {
			slots := g[label][d]
			if len(slots) != DefaultSlotsPerDay {
				t.Fatalf("期望每天 %d 节，实际=%d", DefaultSlotsPerDay, len(slots))
			}
		}
	}
	if g.Occupied() != 0 {
		t.Errorf("期望全空网格，实际占用=%d", g.Occupied())
	}
}

func TestProject_MultiTargetFanOut(t *testing.T) {
	tt := &model.Timetable{Days: []model.TimetableDay{
		day("Monday", entry("Math", 0, "ME1", "IE1")),
	}}

	g := Project(tt, DefaultLayout())

	me := g.At(addr("Monday", "ME1", 0))
	ie := g.At(addr("Monday", "IE1", 0))
	if me == nil || ie == nil {
		t.Fatal("期望 ME1、IE1 周一第0节都有 Math")
	}
	if me != ie {
		t.Error("期望两个格子指向同一条目")
	}
	if g.Occupied() != 2 {
		t.Errorf("期望占用 2 格，实际=%d", g.Occupied())
	}
}

func TestProject_Completeness(t *testing.T) {
	tt := &model.Timetable{Days: []model.TimetableDay{
		day("Monday", entry("Math", 0, "ME1"), entry("English", 3, "CA5", "IE5")),
		day("Wednesday", entry("Physics", 2, "ME2", "IE2", "CA2")),
		day("Friday", entry("PE", 1, "CA1")),
	}}

	g := Project(tt, DefaultLayout())

	for _, d := range tt.Days {
		for _, c := range d.Classes {
			for _, target := range c.Targets {
				a := addr(d.Day, target, c.Periods.Period)
				if subjectAt(g, a) != c.Subject {
					t.Errorf("期望 %+v = %s，实际=%q", a, c.Subject, subjectAt(g, a))
				}
			}
		}
	}
	if g.Occupied() != 7 {
		t.Errorf("期望占用 7 格，实际=%d", g.Occupied())
	}
}

func TestProject_UnknownTargetDropped(t *testing.T) {
	tt := &model.Timetable{Days: []model.TimetableDay{
		day("Tuesday", entry("Chemistry", 1, "ME1", "XX9")),
	}}

	g := Project(tt, DefaultLayout())

	if _, ok := g["XX9"]; ok {
		t.Error("名单外班级不应出现在网格中")
	}
	if subjectAt(g, addr("Tuesday", "ME1", 1)) != "Chemistry" {
		t.Error("名单内班级应正常投影")
	}
	if g.Occupied() != 1 {
		t.Errorf("期望占用 1 格，实际=%d", g.Occupied())
	}
}

func TestProject_LastWriteWins(t *testing.T) {
	// 遍历顺序：Days → Classes → Targets
	tt := &model.Timetable{Days: []model.TimetableDay{
		day("Monday",
			entry("First", 2, "ME1"),
			entry("Second", 2, "IE1", "ME1"),
		),
	}}

	g, report := ProjectWithReport(tt, DefaultLayout())

	if got := subjectAt(g, addr("Monday", "ME1", 2)); got != "Second" {
		t.Errorf("期望后写入者 Second 胜出，实际=%s", got)
	}
	if len(report.Collisions) != 1 {
		t.Fatalf("期望 1 个冲突，实际=%d", len(report.Collisions))
	}
	c := report.Collisions[0]
	if c.Overwrote != "First" || c.Winner != "Second" {
		t.Errorf("冲突明细不符: %+v", c)
	}
	if c.Address != addr("Monday", "ME1", 2) {
		t.Errorf("冲突地址不符: %+v", c.Address)
	}
}

func TestProject_OutOfRangeAndUnknownDay(t *testing.T) {
	tt := &model.Timetable{Days: []model.TimetableDay{
		day("Monday", entry("Late", 4, "ME1"), entry("Negative", -1, "ME1")),
		day("Saturday", entry("Club", 0, "ME1")),
	}}

	g, report := ProjectWithReport(tt, DefaultLayout())

	if g.Occupied() != 0 {
		t.Errorf("越界条目不应落入网格，实际占用=%d", g.Occupied())
	}
	reasons := map[string]int{}
	for _, d := range report.Dropped {
		reasons[d.Reason]++
	}
	if reasons[DropPeriodOutOfRange] != 2 {
		t.Errorf("期望 2 条越界，实际=%d", reasons[DropPeriodOutOfRange])
	}
	if reasons[DropUnknownDay] != 1 {
		t.Errorf("期望 1 条未知星期，实际=%d", reasons[DropUnknownDay])
	}
}

func TestProject_FreshGridEachCall(t *testing.T) {
	tt := &model.Timetable{Days: []model.TimetableDay{day("Monday", entry("Math", 0, "ME1"))}}
	layout := DefaultLayout()

	g1 := Project(tt, layout)
	g1["ME1"]["Monday"][0] = nil
	g2 := Project(tt, layout)

	if subjectAt(g2, addr("Monday", "ME1", 0)) != "Math" {
		t.Error("修改上一次的网格不应影响新的投影")
	}
}

func TestProject_CustomLayout(t *testing.T) {
	layout := Layout{
		Roster:      []string{"A", "B"},
		Days:        []string{"Monday", "Saturday"},
		SlotsPerDay: 6,
	}
	tt := &model.Timetable{Days: []model.TimetableDay{
		day("Saturday", entry("Lab", 5, "B")),
		day("Monday", entry("Math", 0, "ME1")),
	}}

	g := Project(tt, layout)

	if subjectAt(g, addr("Saturday", "B", 5)) != "Lab" {
		t.Error("期望自定义布局下 B 周六第5节为 Lab")
	}
	if g.Occupied() != 1 {
		t.Errorf("期望占用 1 格，实际=%d", g.Occupied())
	}
}

func TestGridAt_OutOfBounds(t *testing.T) {
	g := NewGrid(DefaultLayout())
	if g.At(addr("Monday", "ME1", 9)) != nil {
		t.Error("越界节次应返回 nil")
	}
	if g.At(addr("Sunday", "ME1", 0)) != nil {
		t.Error("未知星期应返回 nil")
	}
	if g.At(addr("Monday", "ZZ", 0)) != nil {
		t.Error("未知班级应返回 nil")
	}
}

// ── Layout 测试 ──

func TestLayout_Validate(t *testing.T) {
	if err := DefaultLayout().Validate(); err != nil {
		t.Fatalf("默认布局应有效: %v", err)
	}

	cases := []struct {
		name   string
		layout Layout
	}{
		{"空名单", Layout{Days: DefaultDays, SlotsPerDay: 4}},
		{"空星期", Layout{Roster: DefaultRoster, SlotsPerDay: 4}},
		{"零节", Layout{Roster: DefaultRoster, Days: DefaultDays}},
		{"重复班级", Layout{Roster: []string{"A", "A"}, Days: DefaultDays, SlotsPerDay: 4}},
		{"未知策略", Layout{Roster: DefaultRoster, Days: DefaultDays, SlotsPerDay: 4, Policy: "merge"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.layout.Validate(); err == nil {
				t.Error("期望校验失败")
			}
		})
	}
}
