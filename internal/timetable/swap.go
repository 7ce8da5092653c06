package timetable

import (
	"timetable-editor/internal/model"
)

// 移动未生效的原因
const (
	ReasonNoTimetable    = "no_timetable"
	ReasonSameAddress    = "same_address"
	ReasonInvalidAddress = "invalid_address"
	ReasonSourceEmpty    = "source_empty"
)

// MoveResult 拖放移动结果
type MoveResult struct {
	Applied   bool              `json:"applied"`
	Reason    string            `json:"reason,omitempty"`
	Moved     *model.ClassEntry `json:"moved,omitempty"`
	Displaced *model.ClassEntry `json:"displaced,omitempty"`
}

// locate 查找地址在平铺列表中对应的条目位置。
// 与投影规则一致：同名星期、同节次、包含该班级的条目中，取遍历顺序上最后一个。
func locate(tt *model.Timetable, addr SlotAddress) (dayIdx, classIdx int, ok bool) {
	dayIdx, classIdx = -1, -1
	for di := range tt.Days {
		if tt.Days[di].Day != addr.Day {
			continue
		}
		for ci := range tt.Days[di].Classes {
			c := &tt.Days[di].Classes[ci]
			if c.Periods.Period == addr.Period && c.HasTarget(addr.Label) {
				dayIdx, classIdx = di, ci
			}
		}
	}
	return dayIdx, classIdx, dayIdx >= 0
}

// place 将条目放入指定星期：优先复用第一个空占位，否则追加；星期不存在时新建
func place(tt *model.Timetable, day string, entry model.ClassEntry) {
	di := tt.DayIndex(day)
	if di < 0 {
		tt.Days = append(tt.Days, model.TimetableDay{Day: day, Classes: []model.ClassEntry{entry}})
		return
	}
	classes := tt.Days[di].Classes
	for i := range classes {
		if classes[i].IsEmpty() {
			classes[i] = entry
			return
		}
	}
	tt.Days[di].Classes = append(classes, entry)
}

// retarget 把目标班级 from 换成 to；to 已在目标中时保持原样，合班的其余班级随条目一起移动
func retarget(targets []string, from, to string) []string {
	if from == to || contains(targets, to) {
		return targets
	}
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		if t == from {
			out = append(out, to)
			continue
		}
		out = append(out, t)
	}
	return out
}

// Relocate 拖放：把 from 格子上的课程移到 to 格子。
//
// 总是在深拷贝上操作，tt 本身不会被修改；未生效时原样返回 tt。
// 原位置替换为空占位而不是删除，当天列表不会被压缩。
// 目标格已有课程时被覆盖，被覆盖的条目通过 MoveResult.Displaced 返回。
// 跨班级拖放时，条目的目标班级 from.Label 会被替换为 to.Label；
// 条目本来就包含 to.Label 时目标班级不变（共享策略下整条合班课一起移动）。
func Relocate(tt *model.Timetable, from, to SlotAddress, layout Layout) (*model.Timetable, MoveResult) {
	if tt == nil {
		return nil, MoveResult{Reason: ReasonNoTimetable}
	}
	if from == to {
		return tt, MoveResult{Reason: ReasonSameAddress}
	}
	if !layout.ValidAddress(from) || !layout.ValidAddress(to) {
		return tt, MoveResult{Reason: ReasonInvalidAddress}
	}
	sdi, sci, ok := locate(tt, from)
	if !ok {
		return tt, MoveResult{Reason: ReasonSourceEmpty}
	}

	out := tt.Clone()
	src := &out.Days[sdi].Classes[sci]
	moved := src.Clone()
	moved.Periods.Period = to.Period

	switch layout.policy() {
	case SplitTargets:
		if len(src.Targets) > 1 {
			src.Targets = src.WithoutTarget(from.Label)
		} else {
			*src = model.EmptyClassEntry()
		}
		moved.Targets = []string{to.Label}
	default:
		*src = model.EmptyClassEntry()
		moved.Targets = retarget(moved.Targets, from.Label, to.Label)
	}

	result := MoveResult{Applied: true}

	ddi, dci, found := locate(out, to)
	if !found {
		place(out, to.Day, moved)
	} else {
		occ := &out.Days[ddi].Classes[dci]
		displaced := occ.Clone()
		result.Displaced = &displaced
		if layout.policy() == SplitTargets && len(occ.Targets) > 1 {
			occ.Targets = occ.WithoutTarget(to.Label)
			place(out, to.Day, moved)
		} else {
			*occ = moved
		}
	}

	m := moved.Clone()
	result.Moved = &m
	return out, result
}

// Swap 双击交换：交换 x、y 两个格子上的课程。
//
// 两个地址都必须解析到已有条目，否则原样返回 tt 与 false，不做任何部分修改。
// 交换两条目的节次值以及它们在所属星期列表中的位置（跨星期时在两个列表间交换）。
// x、y 属于不同班级时，两条目的目标班级按 retarget 规则互换 x.Label 与 y.Label，
// 保证原 x 上的课程出现在 y、原 y 上的课程出现在 x。科目、教师、教室保持不变。
func Swap(tt *model.Timetable, x, y SlotAddress, layout Layout) (*model.Timetable, bool) {
	if tt == nil || x == y {
		return tt, false
	}
	if !layout.ValidAddress(x) || !layout.ValidAddress(y) {
		return tt, false
	}
	xd, xc, ok := locate(tt, x)
	if !ok {
		return tt, false
	}
	yd, yc, ok := locate(tt, y)
	if !ok {
		return tt, false
	}
	// 合班课的两个格子指向同一条目
	if xd == yd && xc == yc {
		return tt, false
	}

	out := tt.Clone()
	if layout.policy() == SplitTargets {
		swapSplit(out, x, y, xd, xc, yd, yc)
		return out, true
	}

	a := out.Days[xd].Classes[xc]
	b := out.Days[yd].Classes[yc]
	a.Periods.Period, b.Periods.Period = b.Periods.Period, a.Periods.Period
	a.Targets = retarget(a.Targets, x.Label, y.Label)
	b.Targets = retarget(b.Targets, y.Label, x.Label)
	out.Days[xd].Classes[xc] = b
	out.Days[yd].Classes[yc] = a
	return out, true
}

// swapSplit 拆分策略下的交换：合班条目只拆出被操作的班级参与交换
func swapSplit(out *model.Timetable, x, y SlotAddress, xd, xc, yd, yc int) {
	a := &out.Days[xd].Classes[xc]
	b := &out.Days[yd].Classes[yc]

	aPart := a.Clone()
	aPart.Targets = []string{y.Label}
	aPart.Periods.Period = y.Period
	bPart := b.Clone()
	bPart.Targets = []string{x.Label}
	bPart.Periods.Period = x.Period

	aShared := len(a.Targets) > 1
	bShared := len(b.Targets) > 1
	if aShared {
		a.Targets = a.WithoutTarget(x.Label)
	}
	if bShared {
		b.Targets = b.WithoutTarget(y.Label)
	}

	// 单目标条目直接交换位置；合班条目的拆出部分另行放置
	switch {
	case !aShared && !bShared:
		out.Days[xd].Classes[xc] = bPart
		out.Days[yd].Classes[yc] = aPart
	case !aShared:
		out.Days[xd].Classes[xc] = bPart
		place(out, y.Day, aPart)
	case !bShared:
		out.Days[yd].Classes[yc] = aPart
		place(out, x.Day, bPart)
	default:
		place(out, x.Day, bPart)
		place(out, y.Day, aPart)
	}
}
