package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/KDrAmina/gimpogugak/internal/model"
)

func setupTestExportService() (*exportService, *mockRepos) {
	m := newMockRepos()
	svc := NewExportService(m.repo, "김포국악원", seoul, zap.NewNop()).(*exportService)
	svc.now = fixedNow
	return svc, m
}

func TestExportLessons(t *testing.T) {
	svc, m := setupTestExportService()
	p := m.addStudent("김엑셀", "010-2222-3333")
	l := m.addLesson(p.ID, 2, true)
	m.addHistory(l.ID, 1, "2026-02-26")
	m.addHistory(l.ID, 2, "2026-03-05")

	buf, filename, err := svc.ExportLessons(context.Background())
	if err != nil {
		t.Fatalf("ExportLessons 应成功: %v", err)
	}
	if filename != "lessons_2026-03-05.xlsx" {
		t.Errorf("文件名错误: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("生成的文件应为合法 xlsx: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != rosterSheet || sheets[1] != historySheet {
		t.Fatalf("Sheet 列表错误: %v", sheets)
	}
	name, _ := f.GetCellValue(rosterSheet, "A2")
	remaining, _ := f.GetCellValue(rosterSheet, "F2")
	if name != "김엑셀" || remaining != "2" {
		t.Errorf("名单第一行错误: name=%s remaining=%s", name, remaining)
	}
	rows, _ := f.GetRows(historySheet)
	if len(rows) != 3 {
		t.Errorf("出勤记录应有表头 + 2 行，实际=%d", len(rows))
	}
	if rows[1][0] != "2026-03-05" {
		t.Errorf("出勤记录应按日期倒序，首行=%s", rows[1][0])
	}
}

func TestExportLessons_IncludesFullHistory(t *testing.T) {
	svc, m := setupTestExportService()
	p := m.addStudent("김장기", "")
	l := m.addLesson(p.ID, 2, true)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	const total = 250
	for i := 0; i < total; i++ {
		_ = m.history.Create(context.Background(), &model.LessonHistory{
			LessonID:      l.ID,
			Cycle:         i/model.MaxSessions + 1,
			SessionNumber: i%model.MaxSessions + 1,
			CompletedDate: model.Date(start.AddDate(0, 0, i).Format(model.DateLayout)),
		})
	}

	buf, _, err := svc.ExportLessons(context.Background())
	if err != nil {
		t.Fatalf("ExportLessons 应成功: %v", err)
	}
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("生成的文件应为合法 xlsx: %v", err)
	}
	defer f.Close()

	rows, _ := f.GetRows(historySheet)
	if len(rows) != total+1 {
		t.Errorf("导出应包含全部 %d 条记录，实际=%d", total, len(rows)-1)
	}
}

func TestExportCalendar_UsesConfiguredTimezone(t *testing.T) {
	svc, _ := setupTestExportService()
	svc.loc = time.UTC

	buf, _, err := svc.ExportCalendar(context.Background(), "2026-03")
	if err != nil {
		t.Fatalf("ExportCalendar 应成功: %v", err)
	}
	if !strings.Contains(buf.String(), "X-WR-TIMEZONE:UTC") {
		t.Errorf("日历时区应取站点配置: %s", buf.String())
	}
}

func TestExportCalendar(t *testing.T) {
	svc, m := setupTestExportService()
	p := m.addStudent("이달력", "")
	l := m.addLesson(p.ID, 4, true)
	m.addHistory(l.ID, 3, "2026-03-12")
	m.addHistory(l.ID, 4, "2026-03-19")
	m.addHistory(l.ID, 2, "2026-02-26")

	buf, filename, err := svc.ExportCalendar(context.Background(), "")
	if err != nil {
		t.Fatalf("ExportCalendar 应成功: %v", err)
	}
	if filename != "attendance_2026-03.ics" {
		t.Errorf("文件名错误: %s", filename)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("生成的内容应为合法 iCalendar: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("只导出当月记录，期望 2 个事件，实际=%d", len(events))
	}
	found := false
	for _, e := range events {
		if s := e.GetProperty(ics.ComponentPropertySummary); s != nil && s.Value == "이달력 4회차" {
			found = true
		}
	}
	if !found {
		t.Error("应包含第 4 次课的事件")
	}

	if _, _, err := svc.ExportCalendar(context.Background(), "March"); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("期望 ErrInvalidMonth，实际: %v", err)
	}
}
