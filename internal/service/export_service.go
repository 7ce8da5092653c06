package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"timetable-editor/config"
	"timetable-editor/internal/dto"
	"timetable-editor/internal/model"
	"timetable-editor/internal/timetable"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成导出文件失败")
	ErrExportUnknownLabel = errors.New("班级不在网格中")
	ErrExportWeekStart    = errors.New("week_start 必须是周一")
	ErrExportNoTimes      = errors.New("未配置节次时间，无法导出日历")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// 内容取自会话中的当前时间表（含未保存的修改）。
type ExportService interface {
	// ExportGrid 导出网格为 Excel：行为班级，列为 星期 × 节次
	ExportGrid(ctx context.Context, actor Actor, sessionID string) (*bytes.Buffer, string, error)
	// ExportCalendar 导出指定班级一周的课程为 ICS
	ExportCalendar(ctx context.Context, actor Actor, sessionID string, req *dto.ExportCalendarRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	sessions SessionService
	times    []config.PeriodTime
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService 创建 ExportService 实例
// period_times 已在配置加载时校验，这里解析失败按未配置处理
func NewExportService(cfg *config.Config, sessions SessionService, logger *zap.Logger) ExportService {
	times, err := cfg.Grid.ParsePeriodTimes()
	if err != nil {
		logger.Warn("解析节次时间失败，日历导出不可用", zap.Error(err))
		times = nil
	}
	loc, err := time.LoadLocation(cfg.Database.Timezone)
	if err != nil || cfg.Database.Timezone == "" {
		loc = time.Local
	}
	return &exportService{
		sessions: sessions,
		times:    times,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// ═══════════════════════════════════════════════════════════
// ExportGrid：导出网格为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：时间表名称（合并单元格）
//   - 第 2 行：星期（每个星期合并 slots_per_day 列）
//   - 第 3 行：节次 1..N
//   - 之后每行一个班级，单元格为 "科目\n教师\n教室"

func (s *exportService) ExportGrid(ctx context.Context, actor Actor, sessionID string) (*bytes.Buffer, string, error) {
	sess, ed, err := s.sessions.Load(ctx, actor, sessionID)
	if err != nil {
		return nil, "", err
	}

	layout := ed.Layout()
	grid := ed.Grid()
	title := timetableTitle(ed.Timetable(), sess.TimetableID)

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "时间表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	totalCols := 1 + len(layout.Days)*layout.SlotsPerDay

	f.SetColWidth(sheetName, "A", "A", 10)
	f.SetColWidth(sheetName, "B", colName(totalCols-1), 16)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", cell(colName(totalCols-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头：星期 / 节次
	f.SetCellValue(sheetName, cell("A", 2), "班级")
	f.MergeCell(sheetName, cell("A", 2), cell("A", 3))
	for d, day := range layout.Days {
		first := 1 + d*layout.SlotsPerDay
		last := first + layout.SlotsPerDay - 1
		f.SetCellValue(sheetName, cell(colName(first), 2), day)
		if last > first {
			f.MergeCell(sheetName, cell(colName(first), 2), cell(colName(last), 2))
		}
		for p := 0; p < layout.SlotsPerDay; p++ {
			f.SetCellValue(sheetName, cell(colName(first+p), 3), p+1)
		}
	}
	f.SetCellStyle(sheetName, cell("A", 2), cell(colName(totalCols-1), 3), headerStyle)

	// 数据行
	row := 4
	for _, label := range layout.Roster {
		f.SetCellValue(sheetName, cell("A", row), label)
		for d, day := range layout.Days {
			for p := 0; p < layout.SlotsPerDay; p++ {
				e := grid.At(timetable.SlotAddress{Day: day, Label: label, Period: p})
				text := "-"
				if e != nil {
					text = cellText(e)
				}
				f.SetCellValue(sheetName, cell(colName(1+d*layout.SlotsPerDay+p), row), text)
			}
		}
		row++
	}
	if row > 4 {
		f.SetCellStyle(sheetName, cell("B", 4), cell(colName(totalCols-1), row-1), cellStyle)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, fmt.Sprintf("时间表_%s.xlsx", title), nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar：导出班级周课表为 ICS
// ═══════════════════════════════════════════════════════════
//
// 每个非空格子生成一个 VEVENT，起止时间取自 grid.period_times；
// 条目持续多节时结束时间取最后一节的结束时刻。
// 指定 weeks 时附加 RRULE:FREQ=WEEKLY;COUNT=weeks。

func (s *exportService) ExportCalendar(ctx context.Context, actor Actor, sessionID string, req *dto.ExportCalendarRequest) (*bytes.Buffer, string, error) {
	if len(s.times) == 0 {
		return nil, "", ErrExportNoTimes
	}

	monday, err := s.weekStart(req.WeekStart)
	if err != nil {
		return nil, "", err
	}

	sess, ed, err := s.sessions.Load(ctx, actor, sessionID)
	if err != nil {
		return nil, "", err
	}
	layout := ed.Layout()
	if !layout.HasLabel(req.Label) {
		return nil, "", ErrExportUnknownLabel
	}

	grid := ed.Grid()
	title := timetableTitle(ed.Timetable(), sess.TimetableID)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//timetable-editor//grid export//ZH")
	cal.SetName(fmt.Sprintf("%s %s", title, req.Label))
	cal.SetXWRTimezone(s.loc.String())

	stamp := s.now().UTC()
	count := 0
	for _, day := range layout.Days {
		offset, ok := mondayOffset(day)
		if !ok {
			continue
		}
		date := monday.AddDate(0, 0, offset)
		for p := 0; p < layout.SlotsPerDay && p < len(s.times); p++ {
			e := grid.At(timetable.SlotAddress{Day: day, Label: req.Label, Period: p})
			if e == nil {
				continue
			}

			last := p
			if e.Periods.Length > 1 {
				last = p + e.Periods.Length - 1
			}
			if last >= len(s.times) {
				last = len(s.times) - 1
			}

			uid := fmt.Sprintf("%s-%s-%s-%d@timetable-editor", sess.TimetableID, req.Label, strings.ToLower(day), p)
			event := cal.AddEvent(uid)
			event.SetDtStampTime(stamp)
			event.SetStartAt(date.Add(s.times[p].Start))
			event.SetEndAt(date.Add(s.times[last].End))
			event.SetSummary(subjectOf(e))
			if len(e.Rooms) > 0 {
				event.SetLocation(strings.Join(e.Rooms, ", "))
			}
			if len(e.Instructors) > 0 {
				event.SetDescription(strings.Join(e.Instructors, ", "))
			}
			if req.Weeks > 1 {
				event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", req.Weeks))
			}
			count++
		}
	}

	s.logger.Info("导出日历",
		zap.String("session_id", sessionID),
		zap.String("label", req.Label),
		zap.Int("events", count),
	)

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, fmt.Sprintf("%s_%s.ics", title, req.Label), nil
}

// weekStart 解析 week_start；为空时取本周一
func (s *exportService) weekStart(raw string) (time.Time, error) {
	if raw == "" {
		now := s.now().In(s.loc)
		offset := (int(now.Weekday()) + 6) % 7
		y, m, d := now.AddDate(0, 0, -offset).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, s.loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, s.loc)
	if err != nil {
		return time.Time{}, ErrExportWeekStart
	}
	if t.Weekday() != time.Monday {
		return time.Time{}, ErrExportWeekStart
	}
	return t, nil
}

// ── 辅助函数 ──

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// mondayOffset 星期名相对周一的天数；无法识别的星期名返回 false
func mondayOffset(day string) (int, bool) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(day))]
	if !ok {
		return 0, false
	}
	return (int(wd) + 6) % 7, true
}

func subjectOf(e *model.ClassEntry) string {
	if e.Subject == "" {
		return timetable.UnsetSubject
	}
	return e.Subject
}

func cellText(e *model.ClassEntry) string {
	parts := []string{subjectOf(e)}
	if len(e.Instructors) > 0 {
		parts = append(parts, strings.Join(e.Instructors, ", "))
	}
	if len(e.Rooms) > 0 {
		parts = append(parts, strings.Join(e.Rooms, ", "))
	}
	return strings.Join(parts, "\n")
}

func timetableTitle(tt *model.Timetable, fallback string) string {
	if tt != nil && tt.Name != "" {
		return tt.Name
	}
	return fallback
}

// colName 列序号（0 起）转 Excel 列名
func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
