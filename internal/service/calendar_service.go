package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/model"
	"github.com/KDrAmina/gimpogugak/internal/repository"
)

// ErrInvalidMonth 月份参数格式错误
var ErrInvalidMonth = errors.New("月份格式无效，应为 YYYY-MM")

const monthLayout = "2006-01"

// CalendarService 出勤日历业务接口
type CalendarService interface {
	// Month 按月展开最近的出勤记录，month 为空时取本月
	Month(ctx context.Context, month string) (*dto.MonthGrid, error)
	// Day 某日的出勤记录；当天无记录时附带可补录的课程
	Day(ctx context.Context, date string) (*dto.CalendarDayResponse, error)
	// Recent 最近的出勤记录（completed_date 倒序）
	Recent(ctx context.Context) ([]dto.CalendarEntry, error)
}

type calendarService struct {
	repo   *repository.Repository
	limit  int
	logger *zap.Logger
	now    func() time.Time
	loc    *time.Location
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, historyLimit int, loc *time.Location, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, limit: historyLimit, logger: logger, now: time.Now, loc: loc}
}

func (s *calendarService) Month(ctx context.Context, month string) (*dto.MonthGrid, error) {
	year, mon, err := s.parseMonth(month)
	if err != nil {
		return nil, err
	}
	entries, err := s.Recent(ctx)
	if err != nil {
		return nil, err
	}
	grid := ProjectMonth(year, mon, entries)
	return &grid, nil
}

func (s *calendarService) parseMonth(month string) (int, time.Month, error) {
	if month == "" {
		now := s.now().In(s.loc)
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse(monthLayout, month)
	if err != nil {
		return 0, 0, ErrInvalidMonth
	}
	return t.Year(), t.Month(), nil
}

func (s *calendarService) Recent(ctx context.Context) ([]dto.CalendarEntry, error) {
	rows, err := s.repo.LessonHistory.ListRecent(ctx, s.limit)
	if err != nil {
		s.logger.Error("查询最近出勤记录失败", zap.Error(err))
		return nil, err
	}
	return toCalendarEntries(rows), nil
}

func (s *calendarService) Day(ctx context.Context, date string) (*dto.CalendarDayResponse, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	rows, err := s.repo.LessonHistory.ListBetween(ctx, d, d)
	if err != nil {
		s.logger.Error("查询当日出勤记录失败", zap.String("date", date), zap.Error(err))
		return nil, err
	}

	resp := &dto.CalendarDayResponse{
		Date:     d.String(),
		Sessions: toCalendarEntries(rows),
		Eligible: []dto.EligibleLesson{},
	}
	if len(resp.Sessions) > 0 {
		return resp, nil
	}

	lessons, err := s.repo.Lesson.ListEligible(ctx)
	if err != nil {
		s.logger.Error("查询可补录课程失败", zap.Error(err))
		return nil, err
	}
	for i := range lessons {
		l := &lessons[i]
		name := unknownStudent
		if l.Profile != nil {
			name = l.Profile.Name
		}
		resp.Eligible = append(resp.Eligible, dto.EligibleLesson{
			LessonID:       l.ID,
			StudentName:    name,
			Category:       l.Category,
			CurrentSession: l.CurrentSession,
		})
	}
	return resp, nil
}

// ProjectMonth 将出勤记录投影到月历，纯函数
// 日期按 "YYYY-MM-DD" 字符串相等匹配；当天存在 4 的倍数课次即标记续费
func ProjectMonth(year int, month time.Month, entries []dto.CalendarEntry) dto.MonthGrid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	byDate := make(map[string][]dto.CalendarEntry)
	for _, e := range entries {
		byDate[e.CompletedDate] = append(byDate[e.CompletedDate], e)
	}

	grid := dto.MonthGrid{
		Year:         year,
		Month:        int(month),
		FirstWeekday: int(first.Weekday()),
		Days:         make([]dto.CalendarDay, 0, daysInMonth),
	}
	for day := 1; day <= daysInMonth; day++ {
		key := fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
		sessions := byDate[key]
		if sessions == nil {
			sessions = []dto.CalendarEntry{}
		}
		renewal := false
		for _, e := range sessions {
			if e.SessionNumber%model.MaxSessions == 0 {
				renewal = true
				break
			}
		}
		grid.Days = append(grid.Days, dto.CalendarDay{
			Day:        day,
			DateKey:    key,
			Sessions:   sessions,
			HasRenewal: renewal,
		})
	}
	return grid
}

// toCalendarEntries 关联缺失时使用占位姓名与默认分类
func toCalendarEntries(rows []model.LessonHistory) []dto.CalendarEntry {
	entries := make([]dto.CalendarEntry, 0, len(rows))
	for i := range rows {
		h := &rows[i]
		name, category := unknownStudent, model.DefaultLessonCategory
		if h.Lesson != nil {
			if h.Lesson.Category != "" {
				category = h.Lesson.Category
			}
			if h.Lesson.Profile != nil && h.Lesson.Profile.Name != "" {
				name = h.Lesson.Profile.Name
			}
		}
		entries = append(entries, dto.CalendarEntry{
			ID:            h.ID,
			LessonID:      h.LessonID,
			SessionNumber: h.SessionNumber,
			CompletedDate: h.CompletedDate.String(),
			StudentName:   name,
			Category:      category,
		})
	}
	return entries
}
