package timetable

import (
	"timetable-editor/internal/model"
)

// ClickAction 双击事件的处理结果
type ClickAction string

const (
	ClickSelected   ClickAction = "selected"
	ClickDeselected ClickAction = "deselected"
	ClickSwapped    ClickAction = "swapped"
	ClickSwapFailed ClickAction = "swap_failed"
	ClickIgnored    ClickAction = "ignored"
)

// ClickOutcome 双击结果
type ClickOutcome struct {
	Action    ClickAction  `json:"action"`
	Selection *SlotAddress `json:"selection,omitempty"`
}

// DefaultHistoryLimit 撤销栈默认深度
const DefaultHistoryLimit = 50

// EditorState 编辑器可序列化状态（用于会话存储）
type EditorState struct {
	Timetable *model.Timetable   `json:"timetable"`
	Selection *SlotAddress       `json:"selection,omitempty"`
	Undo      []*model.Timetable `json:"undo,omitempty"`
	Redo      []*model.Timetable `json:"redo,omitempty"`
}

// Editor 单个编辑会话的状态机：空闲 / 已选中，外加撤销、重做栈。
// 非并发安全，同一会话的操作由调用方串行化。
type Editor struct {
	layout    Layout
	tt        *model.Timetable
	selection *SlotAddress
	undo      []*model.Timetable
	redo      []*model.Timetable
	limit     int
}

// NewEditor 创建编辑器；historyLimit <= 0 时使用默认深度
func NewEditor(tt *model.Timetable, layout Layout, historyLimit int) *Editor {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Editor{layout: layout, tt: tt, limit: historyLimit}
}

// RestoreEditor 从序列化状态恢复编辑器
func RestoreEditor(state EditorState, layout Layout, historyLimit int) *Editor {
	e := NewEditor(state.Timetable, layout, historyLimit)
	e.selection = state.Selection
	e.undo = state.Undo
	e.redo = state.Redo
	return e
}

// State 导出当前状态
func (e *Editor) State() EditorState {
	return EditorState{
		Timetable: e.tt,
		Selection: e.selection,
		Undo:      e.undo,
		Redo:      e.redo,
	}
}

// Timetable 当前时间表
func (e *Editor) Timetable() *model.Timetable { return e.tt }

// Layout 编辑器使用的网格布局
func (e *Editor) Layout() Layout { return e.layout }

// Selection 当前选中的格子
func (e *Editor) Selection() (SlotAddress, bool) {
	if e.selection == nil {
		return SlotAddress{}, false
	}
	return *e.selection, true
}

// Grid 对当前时间表重新投影
func (e *Editor) Grid() Grid {
	return Project(e.tt, e.layout)
}

// GridWithReport 投影并返回诊断
func (e *Editor) GridWithReport() (Grid, Report) {
	return ProjectWithReport(e.tt, e.layout)
}

// CanUndo / CanRedo
func (e *Editor) CanUndo() bool { return len(e.undo) > 0 }
func (e *Editor) CanRedo() bool { return len(e.redo) > 0 }

// DoubleClick 双击格子：
//   - 空闲 + 双击有效格子 → 选中
//   - 已选中 X + 再次双击 X → 取消选中
//   - 已选中 X + 双击 Y → 交换后回到空闲（交换失败同样回到空闲）
//   - 节次不在布局内的格子 → 忽略
func (e *Editor) DoubleClick(addr SlotAddress) ClickOutcome {
	if !e.layout.ValidAddress(addr) {
		return ClickOutcome{Action: ClickIgnored, Selection: e.selection}
	}

	if e.selection == nil {
		sel := addr
		e.selection = &sel
		return ClickOutcome{Action: ClickSelected, Selection: e.selection}
	}

	from := *e.selection
	e.selection = nil
	if from == addr {
		return ClickOutcome{Action: ClickDeselected}
	}

	next, ok := Swap(e.tt, from, addr, e.layout)
	if !ok {
		return ClickOutcome{Action: ClickSwapFailed}
	}
	e.commit(next)
	return ClickOutcome{Action: ClickSwapped}
}

// Drop 拖放移动；会清除当前选中
func (e *Editor) Drop(from, to SlotAddress) MoveResult {
	e.selection = nil
	next, result := Relocate(e.tt, from, to, e.layout)
	if result.Applied {
		e.commit(next)
	}
	return result
}

// Replace 整体替换时间表（改名、恢复快照），可撤销
func (e *Editor) Replace(tt *model.Timetable) {
	e.selection = nil
	e.commit(tt)
}

// Rename 修改时间表名称，不进入撤销历史。
// 名称以上游为准，历史快照一并改名，撤销不会回退名称。
func (e *Editor) Rename(name string) {
	rename := func(tt *model.Timetable) *model.Timetable {
		if tt == nil {
			return nil
		}
		c := *tt
		c.Name = name
		return &c
	}
	e.tt = rename(e.tt)
	for i := range e.undo {
		e.undo[i] = rename(e.undo[i])
	}
	for i := range e.redo {
		e.redo[i] = rename(e.redo[i])
	}
}

// Undo 撤销上一步修改
func (e *Editor) Undo() bool {
	if len(e.undo) == 0 {
		return false
	}
	prev := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	e.redo = append(e.redo, e.tt)
	e.tt = prev
	e.selection = nil
	return true
}

// Redo 重做被撤销的修改
func (e *Editor) Redo() bool {
	if len(e.redo) == 0 {
		return false
	}
	next := e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]
	e.undo = append(e.undo, e.tt)
	e.tt = next
	e.selection = nil
	return true
}

func (e *Editor) commit(next *model.Timetable) {
	if e.tt != nil {
		e.undo = append(e.undo, e.tt)
		if len(e.undo) > e.limit {
			e.undo = e.undo[len(e.undo)-e.limit:]
		}
	}
	e.redo = nil
	e.tt = next
}
