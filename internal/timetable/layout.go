package timetable

import (
	"errors"
	"fmt"
)

// TargetPolicy 合班课条目（一个条目对应多个班级）在移动/交换时的处理方式
type TargetPolicy string

const (
	// SharedTargets 条目只有一个节次，移动任一班级的格子会让所有目标班级一起移动
	SharedTargets TargetPolicy = "shared"
	// SplitTargets 只移动被操作的班级：先把该班级从原条目拆出为独立条目再移动
	SplitTargets TargetPolicy = "split"
)

// 默认布局：15 个班级 × 周一至周五 × 每天 4 节
var (
	DefaultRoster = []string{
		"ME1", "IE1", "CA1",
		"ME2", "IE2", "CA2",
		"ME3", "IE3", "CA3",
		"ME4", "IE4", "CA4",
		"ME5", "IE5", "CA5",
	}
	DefaultDays        = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	DefaultSlotsPerDay = 4
)

var ErrInvalidLayout = errors.New("网格布局配置无效")

// Layout 网格布局：班级名单、星期、每天节数
type Layout struct {
	Roster      []string
	Days        []string
	SlotsPerDay int
	Policy      TargetPolicy
}

// DefaultLayout 返回默认布局的副本
func DefaultLayout() Layout {
	return Layout{
		Roster:      append([]string(nil), DefaultRoster...),
		Days:        append([]string(nil), DefaultDays...),
		SlotsPerDay: DefaultSlotsPerDay,
		Policy:      SharedTargets,
	}
}

// Validate 校验布局
func (l Layout) Validate() error {
	if len(l.Roster) == 0 {
		return fmt.Errorf("%w: 班级名单为空", ErrInvalidLayout)
	}
	if len(l.Days) == 0 {
		return fmt.Errorf("%w: 星期列表为空", ErrInvalidLayout)
	}
	if l.SlotsPerDay <= 0 {
		return fmt.Errorf("%w: 每天节数必须大于 0", ErrInvalidLayout)
	}
	if err := checkDuplicates(l.Roster); err != nil {
		return fmt.Errorf("%w: 班级 %v", ErrInvalidLayout, err)
	}
	if err := checkDuplicates(l.Days); err != nil {
		return fmt.Errorf("%w: 星期 %v", ErrInvalidLayout, err)
	}
	switch l.Policy {
	case "", SharedTargets, SplitTargets:
	default:
		return fmt.Errorf("%w: 未知的合班策略 %q", ErrInvalidLayout, l.Policy)
	}
	return nil
}

// HasLabel 班级是否在名单内
func (l Layout) HasLabel(label string) bool {
	return contains(l.Roster, label)
}

// HasDay 星期是否在布局内
func (l Layout) HasDay(day string) bool {
	return contains(l.Days, day)
}

// ValidPeriod 节次是否在 [0, SlotsPerDay) 内
func (l Layout) ValidPeriod(period int) bool {
	return period >= 0 && period < l.SlotsPerDay
}

// ValidAddress 地址的三个维度是否都落在布局内
func (l Layout) ValidAddress(addr SlotAddress) bool {
	return l.HasLabel(addr.Label) && l.HasDay(addr.Day) && l.ValidPeriod(addr.Period)
}

func (l Layout) policy() TargetPolicy {
	if l.Policy == "" {
		return SharedTargets
	}
	return l.Policy
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func checkDuplicates(list []string) error {
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		if s == "" {
			return errors.New("包含空值")
		}
		if seen[s] {
			return fmt.Errorf("%q 重复", s)
		}
		seen[s] = true
	}
	return nil
}
