package timetable

import (
	"strings"
	"time"

	"timetable-editor/internal/model"
)

// UnsetSubject 科目为空时的展示值
const UnsetSubject = "未设定"

// 教师聘用类型过滤
const (
	EmploymentAll      = "all"
	EmploymentFullTime = "full_time"
	EmploymentPartTime = "part_time"
)

// TeachingAt 返回指定星期、节次正在上课的条目。
// period 为上游 current-period 返回的 1 起节次，与条目中 0 起的 Periods.Period 比较。
// 当天无数据或无课程时视为休息时间。
func TeachingAt(tt *model.Timetable, weekday time.Weekday, period int) ([]model.ClassEntry, bool) {
	if tt == nil {
		return []model.ClassEntry{}, true
	}
	di := tt.DayIndex(weekday.String())
	if di < 0 || len(tt.Days[di].Classes) == 0 {
		return []model.ClassEntry{}, true
	}

	current := make([]model.ClassEntry, 0)
	for _, c := range tt.Days[di].Classes {
		if c.IsEmpty() || c.Periods.Period != period-1 {
			continue
		}
		entry := c.Clone()
		if entry.Subject == "" {
			entry.Subject = UnsetSubject
		}
		if entry.Instructors == nil {
			entry.Instructors = []string{}
		}
		if entry.Rooms == nil {
			entry.Rooms = []string{}
		}
		if entry.Targets == nil {
			entry.Targets = []string{}
		}
		current = append(current, entry)
	}
	return current, len(current) == 0
}

// InstructorNames 汇总条目中的教师姓名（去重，保持首次出现顺序）
func InstructorNames(entries []model.ClassEntry) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, e := range entries {
		for _, n := range e.Instructors {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// FreeInstructors 从全部教师中排除正在上课的教师
func FreeInstructors(all []model.Instructor, teaching []string) []model.Instructor {
	if len(all) == 0 {
		return []model.Instructor{}
	}
	if len(teaching) == 0 {
		return all
	}
	busy := make(map[string]bool, len(teaching))
	for _, n := range teaching {
		busy[n] = true
	}
	free := make([]model.Instructor, 0, len(all))
	for _, ins := range all {
		if !busy[ins.Name] {
			free = append(free, ins)
		}
	}
	return free
}

// FilterInstructors 按姓名关键字（不区分大小写）和聘用类型过滤
func FilterInstructors(list []model.Instructor, query, employment string) []model.Instructor {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Instructor, 0, len(list))
	for _, ins := range list {
		if q != "" && !strings.Contains(strings.ToLower(ins.Name), q) {
			continue
		}
		switch employment {
		case EmploymentFullTime:
			if !ins.IsFullTime {
				continue
			}
		case EmploymentPartTime:
			if ins.IsFullTime {
				continue
			}
		}
		out = append(out, ins)
	}
	return out
}

// Teachers 时间表中出现过的全部教师（去重），用于高亮筛选
func Teachers(tt *model.Timetable) []string {
	if tt == nil {
		return []string{}
	}
	var all []model.ClassEntry
	for _, d := range tt.Days {
		all = append(all, d.Classes...)
	}
	return InstructorNames(all)
}

// HighlightedBy 网格中由指定教师授课的格子
func HighlightedBy(g Grid, layout Layout, teacher string) []SlotAddress {
	out := make([]SlotAddress, 0)
	if teacher == "" {
		return out
	}
	for _, label := range layout.Roster {
		for _, day := range layout.Days {
			for p, e := range g[label][day] {
				if e == nil {
					continue
				}
				for _, n := range e.Instructors {
					if n == teacher {
						out = append(out, SlotAddress{Day: day, Label: label, Period: p})
						break
					}
				}
			}
		}
	}
	return out
}
