package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ── 教职资源（外部 API 只读） ──

// SlotRef 星期 + 节次（day: 0=周日 … 6=周六）
type SlotRef struct {
	Day    int `json:"day"`
	Period int `json:"period"`
}

// Instructor 教师：对应 GET /api/instructors/getAll
type Instructor struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	IsFullTime bool      `json:"isFullTime"`
	Periods    []SlotRef `json:"periods"`
}

// Room 教室：对应 GET /api/rooms/getAll、POST /api/rooms/available
type Room struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Unavailable []SlotRef `json:"unavailable"`
}

// Course 课程：对应 GET /api/courses/getAll
type Course struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Instructors []string  `json:"instructors"`
	Targets     []string  `json:"targets"`
	Rooms       []string  `json:"rooms"`
	Periods     []SlotRef `json:"periods"`
}

// CurrentPeriod 当前节次：对应 GET /api/timetable/current-period
// Period 为 1 起的节次；上游在非常规时段返回字符串 "special"。
type CurrentPeriod struct {
	Day       int  `json:"day"`
	Period    int  `json:"period"`
	IsSpecial bool `json:"-"`
}

// UnmarshalJSON 兼容 period 为数字、数字字符串或 "special" 三种形式
func (p *CurrentPeriod) UnmarshalJSON(data []byte) error {
	var raw struct {
		Day    int             `json:"day"`
		Period json.RawMessage `json:"period"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Day = raw.Day
	p.Period = 0
	p.IsSpecial = false

	var s string
	if err := json.Unmarshal(raw.Period, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "special" {
			p.IsSpecial = true
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("CurrentPeriod: invalid period %q", s)
		}
		p.Period = n
	} else if len(raw.Period) > 0 && string(raw.Period) != "null" {
		var n float64
		if err := json.Unmarshal(raw.Period, &n); err != nil {
			return fmt.Errorf("CurrentPeriod: invalid period %s", raw.Period)
		}
		p.Period = int(n)
	}

	// 上游偶尔返回负数，按第 0 节处理
	if p.Period < 0 {
		p.Period = 0
	}
	return nil
}
