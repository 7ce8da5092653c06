package model

// ── 外部时间表 API 数据结构 ──
//
// 字段名与外部 API 返回的 JSON 保持一致（Days/Classes/Subject 为大写，periods 为小写），
// 本服务不改变其线上格式。

// Period 课节位置：当天第几节（0 起）及持续节数
type Period struct {
	Period int `json:"period"`
	Length int `json:"length"`
}

// ClassEntry 单个排课条目
// 一个条目可同时面向多个班级（合班课），投影时会出现在每个目标班级的同一格中。
type ClassEntry struct {
	Subject     string   `json:"Subject"`
	Instructors []string `json:"Instructors"`
	Rooms       []string `json:"Rooms"`
	Periods     Period   `json:"periods"`
	Targets     []string `json:"Targets"`
}

// EmptyClassEntry 空占位条目：移动课程后留在原位置，保持当天列表长度不变
func EmptyClassEntry() ClassEntry {
	return ClassEntry{
		Instructors: []string{},
		Rooms:       []string{},
		Targets:     []string{},
	}
}

// IsEmpty 是否为空占位条目
func (e *ClassEntry) IsEmpty() bool {
	return e.Subject == "" && len(e.Targets) == 0
}

// HasTarget 条目是否面向指定班级
func (e *ClassEntry) HasTarget(label string) bool {
	for _, t := range e.Targets {
		if t == label {
			return true
		}
	}
	return false
}

// WithoutTarget 返回去掉指定班级后的目标列表（新切片）
func (e *ClassEntry) WithoutTarget(label string) []string {
	out := make([]string, 0, len(e.Targets))
	for _, t := range e.Targets {
		if t != label {
			out = append(out, t)
		}
	}
	return out
}

// Clone 深拷贝
func (e ClassEntry) Clone() ClassEntry {
	e.Instructors = cloneStrings(e.Instructors)
	e.Rooms = cloneStrings(e.Rooms)
	e.Targets = cloneStrings(e.Targets)
	return e
}

// TimetableDay 某一天的全部排课（所有班级平铺在一个列表中）
type TimetableDay struct {
	Day     string       `json:"Day"`
	Classes []ClassEntry `json:"Classes"`
}

// Timetable 时间表：对应 GET /api/timetable/get/{id}
type Timetable struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name,omitempty"`
	Days []TimetableDay `json:"Days"`
}

// Clone 深拷贝整个时间表，避免与已渲染的网格共享底层数组
func (t *Timetable) Clone() *Timetable {
	if t == nil {
		return nil
	}
	out := &Timetable{ID: t.ID, Name: t.Name}
	if t.Days != nil {
		out.Days = make([]TimetableDay, len(t.Days))
	}
	for i, d := range t.Days {
		nd := TimetableDay{Day: d.Day}
		if d.Classes != nil {
			nd.Classes = make([]ClassEntry, len(d.Classes))
			for j, c := range d.Classes {
				nd.Classes[j] = c.Clone()
			}
		}
		out.Days[i] = nd
	}
	return out
}

// DayIndex 返回指定星期在 Days 中的下标，不存在时返回 -1
func (t *Timetable) DayIndex(day string) int {
	for i := range t.Days {
		if t.Days[i].Day == day {
			return i
		}
	}
	return -1
}

// TimetableSummary 时间表列表项：对应 GET /api/timetable/getAll
type TimetableSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	File string `json:"file"`
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
