package timetable

import (
	"timetable-editor/internal/model"
)

// SlotAddress 网格中的一个格子：星期 + 班级 + 节次（0 起）
type SlotAddress struct {
	Day    string `json:"day"`
	Label  string `json:"label"`
	Period int    `json:"period"`
}

// Grid 班级 → 星期 → 节次 的网格视图，nil 表示空格
type Grid map[string]map[string][]*model.ClassEntry

// At 返回地址上的条目，地址越界时返回 nil
func (g Grid) At(addr SlotAddress) *model.ClassEntry {
	days, ok := g[addr.Label]
	if !ok {
		return nil
	}
	slots, ok := days[addr.Day]
	if !ok || addr.Period < 0 || addr.Period >= len(slots) {
		return nil
	}
	return slots[addr.Period]
}

// Occupied 非空格子数量
func (g Grid) Occupied() int {
	n := 0
	for _, days := range g {
		for _, slots := range days {
			for _, e := range slots {
				if e != nil {
					n++
				}
			}
		}
	}
	return n
}

// 投影丢弃原因
const (
	DropUnknownTarget    = "unknown_target"
	DropUnknownDay       = "unknown_day"
	DropPeriodOutOfRange = "period_out_of_range"
)

// Collision 同一格子被多次写入（后写入者覆盖先写入者）
type Collision struct {
	Address    SlotAddress `json:"address"`
	Overwrote  string      `json:"overwrote"`
	Winner     string      `json:"winner"`
	ClassIndex int         `json:"class_index"`
}

// DroppedPlacement 未能落入网格的条目
type DroppedPlacement struct {
	Day        string `json:"day"`
	Label      string `json:"label"`
	Period     int    `json:"period"`
	Subject    string `json:"subject"`
	ClassIndex int    `json:"class_index"`
	Reason     string `json:"reason"`
}

// Report 投影诊断信息；默认投影不返回，行为保持静默
type Report struct {
	Collisions []Collision        `json:"collisions"`
	Dropped    []DroppedPlacement `json:"dropped"`
}

// NewGrid 按布局创建全空网格
func NewGrid(layout Layout) Grid {
	g := make(Grid, len(layout.Roster))
	for _, label := range layout.Roster {
		days := make(map[string][]*model.ClassEntry, len(layout.Days))
		for _, day := range layout.Days {
			days[day] = make([]*model.ClassEntry, layout.SlotsPerDay)
		}
		g[label] = days
	}
	return g
}

// Project 将时间表平铺的每日条目投影为网格。tt 为 nil 时返回全空网格。
//
// 遍历顺序：Days 顺序 → Classes 顺序 → Targets 顺序；同一格子后写入者胜出。
// 名单外的班级、布局外的星期、越界节次均被静默丢弃。
// 网格中的指针指向 tt 内部的条目，调用方修改时间表前应先 Clone。
func Project(tt *model.Timetable, layout Layout) Grid {
	g, _ := project(tt, layout, false)
	return g
}

// ProjectWithReport 与 Project 相同，同时返回冲突与丢弃明细
func ProjectWithReport(tt *model.Timetable, layout Layout) (Grid, Report) {
	return project(tt, layout, true)
}

func project(tt *model.Timetable, layout Layout, withReport bool) (Grid, Report) {
	g := NewGrid(layout)
	report := Report{Collisions: []Collision{}, Dropped: []DroppedPlacement{}}
	if tt == nil {
		return g, report
	}

	for di := range tt.Days {
		day := &tt.Days[di]
		for ci := range day.Classes {
			entry := &day.Classes[ci]
			period := entry.Periods.Period
			for _, target := range entry.Targets {
				days, ok := g[target]
				if !ok {
					if withReport {
						report.Dropped = append(report.Dropped, dropped(day.Day, target, entry, ci, DropUnknownTarget))
					}
					continue
				}
				slots, ok := days[day.Day]
				if !ok {
					if withReport {
						report.Dropped = append(report.Dropped, dropped(day.Day, target, entry, ci, DropUnknownDay))
					}
					continue
				}
				if period < 0 || period >= len(slots) {
					if withReport {
						report.Dropped = append(report.Dropped, dropped(day.Day, target, entry, ci, DropPeriodOutOfRange))
					}
					continue
				}
				if prev := slots[period]; prev != nil && prev != entry && withReport {
					report.Collisions = append(report.Collisions, Collision{
						Address:    SlotAddress{Day: day.Day, Label: target, Period: period},
						Overwrote:  prev.Subject,
						Winner:     entry.Subject,
						ClassIndex: ci,
					})
				}
				slots[period] = entry
			}
		}
	}
	return g, report
}

func dropped(day, label string, entry *model.ClassEntry, index int, reason string) DroppedPlacement {
	return DroppedPlacement{
		Day:        day,
		Label:      label,
		Period:     entry.Periods.Period,
		Subject:    entry.Subject,
		ClassIndex: index,
		Reason:     reason,
	}
}
