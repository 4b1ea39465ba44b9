package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/model"
	"github.com/KDrAmina/gimpogugak/internal/repository"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

const (
	rosterSheet  = "수강생"
	historySheet = "출석기록"
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入
type ExportService interface {
	// ExportLessons 课程名单与出勤记录导出为 Excel，两个 Sheet
	ExportLessons(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportCalendar 某月出勤记录导出为 iCalendar，month 为空时取本月
	ExportCalendar(ctx context.Context, month string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo     *repository.Repository
	siteName string
	logger   *zap.Logger
	now      func() time.Time
	loc      *time.Location
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, siteName string, loc *time.Location, logger *zap.Logger) ExportService {
	return &exportService{
		repo:     repo,
		siteName: siteName,
		logger:   logger,
		now:      time.Now,
		loc:      loc,
	}
}

// ────────────────────── Excel ──────────────────────

func (s *exportService) ExportLessons(ctx context.Context) (*bytes.Buffer, string, error) {
	lessons, err := s.repo.Lesson.List(ctx, repository.LessonFilter{})
	if err != nil {
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, "", err
	}
	// 导出不受日历条数上限约束
	rows, err := s.repo.LessonHistory.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询出勤记录失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(rosterSheet)
	f.SetActiveSheet(idx)
	f.NewSheet(historySheet)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 名单
	writeHeader(f, rosterSheet, headerStyle, []string{"이름", "이메일", "전화번호", "분류", "진행 회차", "남은 회차", "수강료", "결제일", "상태"})
	f.SetColWidth(rosterSheet, "A", "A", 12)
	f.SetColWidth(rosterSheet, "B", "B", 26)
	f.SetColWidth(rosterSheet, "C", "D", 16)
	f.SetColWidth(rosterSheet, "H", "H", 12)
	for i := range lessons {
		l := toLessonResponse(&lessons[i])
		payment := "-"
		if l.PaymentDate != nil {
			payment = *l.PaymentDate
		}
		status := "종료"
		if l.IsActive {
			status = "수강중"
		}
		f.SetSheetRow(rosterSheet, cell("A", i+2), &[]interface{}{
			l.StudentName, l.StudentEmail, l.StudentPhone, l.Category,
			l.CurrentSession, l.Remaining, l.TuitionAmount, payment, status,
		})
	}

	// 出勤记录
	writeHeader(f, historySheet, headerStyle, []string{"날짜", "이름", "분류", "회차", "메모"})
	f.SetColWidth(historySheet, "A", "A", 12)
	f.SetColWidth(historySheet, "C", "C", 16)
	f.SetColWidth(historySheet, "E", "E", 30)
	for i, e := range toCalendarEntries(rows) {
		note := ""
		if rows[i].Note != nil {
			note = *rows[i].Note
		}
		f.SetSheetRow(historySheet, cell("A", i+2), &[]interface{}{
			e.CompletedDate, e.StudentName, e.Category, e.SessionNumber, note,
		})
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("lessons_%s.xlsx", model.DateOf(s.now(), s.loc))
	return buf, filename, nil
}

func writeHeader(f *excelize.File, sheet string, style int, titles []string) {
	for i, title := range titles {
		c := cell(colName(i), 1)
		f.SetCellValue(sheet, c, title)
		f.SetCellStyle(sheet, c, c, style)
	}
}

// ────────────────────── iCalendar ──────────────────────

func (s *exportService) ExportCalendar(ctx context.Context, month string) (*bytes.Buffer, string, error) {
	var first time.Time
	if month == "" {
		now := s.now().In(s.loc)
		first = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		t, err := time.Parse(monthLayout, month)
		if err != nil {
			return nil, "", ErrInvalidMonth
		}
		first = t
	}
	last := first.AddDate(0, 1, -1)

	rows, err := s.repo.LessonHistory.ListBetween(ctx,
		model.Date(first.Format(model.DateLayout)),
		model.Date(last.Format(model.DateLayout)),
	)
	if err != nil {
		s.logger.Error("查询当月出勤记录失败", zap.String("month", first.Format(monthLayout)), zap.Error(err))
		return nil, "", err
	}

	cal := buildCalendar(s.siteName, s.loc.String(), toCalendarEntries(rows), s.now())

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("attendance_%s.ics", first.Format(monthLayout))
	return buf, filename, nil
}

// buildCalendar 每条出勤记录生成一个全天事件
func buildCalendar(siteName, timezone string, entries []dto.CalendarEntry, stamp time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//gimpogugak//attendance//KO")
	cal.SetXWRCalName(siteName + " 출석")
	cal.SetXWRTimezone(timezone)

	for _, e := range entries {
		day, err := time.Parse(model.DateLayout, e.CompletedDate)
		if err != nil {
			continue
		}
		evt := cal.AddEvent(e.ID + "@gimpogugak")
		evt.SetDtStampTime(stamp)
		evt.SetAllDayStartAt(day)
		evt.SetAllDayEndAt(day.AddDate(0, 0, 1))
		evt.SetSummary(fmt.Sprintf("%s %d회차", e.StudentName, e.SessionNumber))
		desc := e.Category
		if e.SessionNumber%model.MaxSessions == 0 {
			desc += " · 재등록 필요"
		}
		evt.SetDescription(desc)
	}
	return cal
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
