package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/model"
	"github.com/KDrAmina/gimpogugak/internal/repository"
	pkgerrors "github.com/KDrAmina/gimpogugak/pkg/errors"
	"github.com/KDrAmina/gimpogugak/pkg/messaging"
	"github.com/KDrAmina/gimpogugak/pkg/metrics"
)

// ── 课程模块业务错误 ──

var (
	ErrLessonNotFound         = errors.New("课程不存在")
	ErrSessionLimitReached    = errors.New("4 次课已全部完成，请先续费")
	ErrNoSessionToUndo        = errors.New("没有可撤销的课次")
	ErrLessonInactive         = errors.New("课程已结束")
	ErrActiveLessonExists     = errors.New("该学员已有进行中的课程")
	ErrLessonAlreadyAssigned  = errors.New("该学员已分配过课程")
	ErrProfileNotEligible     = errors.New("仅已激活的普通学员可分配课程")
	ErrInvalidCategory        = errors.New("课程分类无效")
	ErrInvalidTuition         = errors.New("学费不能为负数")
	ErrInvalidDate            = errors.New("日期格式无效")
	ErrSessionAlreadyRecorded = errors.New("该课次已有出勤记录")
)

const unknownStudent = "Unknown"

// 课程列表排序方式
const (
	LessonSortRemaining = "remaining"
	LessonSortName      = "name"
	LessonSortDate      = "date"
)

// LessonService 课程与课次管理业务接口
type LessonService interface {
	List(ctx context.Context, query *dto.LessonListQuery) ([]dto.LessonResponse, error)
	ListUnassigned(ctx context.Context, query *dto.UnassignedQuery) ([]dto.ProfileResponse, error)
	Create(ctx context.Context, req *dto.CreateLessonRequest, callerID string) (*dto.LessonResponse, error)

	CheckIn(ctx context.Context, lessonID, callerID string) (*dto.SessionResult, error)
	Undo(ctx context.Context, lessonID, callerID string) (*dto.LessonResponse, error)
	RecordAtDate(ctx context.Context, lessonID string, req *dto.RecordSessionRequest, callerID string) (*dto.SessionResult, error)
	Renew(ctx context.Context, lessonID, callerID string) (*dto.LessonResponse, error)
	End(ctx context.Context, lessonID, callerID string) (*dto.LessonResponse, error)
	Restore(ctx context.Context, lessonID, callerID string) (*dto.LessonResponse, error)
	Delete(ctx context.Context, lessonID, callerID string) error

	UpdateCategory(ctx context.Context, lessonID string, req *dto.UpdateCategoryRequest) (*dto.LessonResponse, error)
	UpdateTuition(ctx context.Context, lessonID string, req *dto.UpdateTuitionRequest) (*dto.LessonResponse, error)
	UpdatePaymentDate(ctx context.Context, lessonID string, req *dto.UpdatePaymentDateRequest) (*dto.LessonResponse, error)

	Messages(ctx context.Context, lessonID string) (*dto.LessonMessagesResponse, error)
	MyLesson(ctx context.Context, profileID string) (*dto.MyLessonResponse, error)
}

type lessonService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
	loc    *time.Location
}

// NewLessonService 创建 LessonService 实例
// loc 为站点时区，"今天" 按该时区计算
func NewLessonService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) LessonService {
	return &lessonService{repo: repo, logger: logger, now: time.Now, loc: loc}
}

func (s *lessonService) today() model.Date {
	return model.DateOf(s.now(), s.loc)
}

// ────────────────────── List / Create ──────────────────────

func (s *lessonService) List(ctx context.Context, query *dto.LessonListQuery) ([]dto.LessonResponse, error) {
	filter := repository.LessonFilter{}
	switch query.Status {
	case "", "active":
		active := true
		filter.Active = &active
	case "inactive":
		inactive := false
		filter.Active = &inactive
	}

	lessons, err := s.repo.Lesson.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.Error(err))
		return nil, err
	}

	list := make([]dto.LessonResponse, 0, len(lessons))
	for i := range lessons {
		if query.Category != "" && query.Category != "all" && !model.HasCategory(lessons[i].Category, query.Category) {
			continue
		}
		list = append(list, toLessonResponse(&lessons[i]))
	}
	sortLessons(list, query.Sort)
	return list, nil
}

// sortLessons 默认按剩余课次升序；name 按韩文排序规则；date 按缴费日倒序，无日期排最后
func sortLessons(list []dto.LessonResponse, sortBy string) {
	switch sortBy {
	case LessonSortName:
		col := collate.New(language.Korean)
		sort.SliceStable(list, func(i, j int) bool {
			return col.CompareString(list[i].StudentName, list[j].StudentName) < 0
		})
	case LessonSortDate:
		key := func(l dto.LessonResponse) string {
			if l.PaymentDate == nil {
				return ""
			}
			return *l.PaymentDate
		}
		sort.SliceStable(list, func(i, j int) bool {
			return key(list[i]) > key(list[j])
		})
	default:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Remaining < list[j].Remaining
		})
	}
}

func (s *lessonService) ListUnassigned(ctx context.Context, query *dto.UnassignedQuery) ([]dto.ProfileResponse, error) {
	profiles, err := s.repo.Profile.ListUnassigned(ctx, query.Q)
	if err != nil {
		s.logger.Error("查询未分配学员失败", zap.Error(err))
		return nil, err
	}
	list := make([]dto.ProfileResponse, 0, len(profiles))
	for i := range profiles {
		list = append(list, toProfileResponse(&profiles[i]))
	}
	return list, nil
}

func (s *lessonService) Create(ctx context.Context, req *dto.CreateLessonRequest, callerID string) (*dto.LessonResponse, error) {
	category, err := canonicalCategory(req.Categories)
	if err != nil {
		return nil, err
	}
	if req.TuitionAmount < 0 {
		return nil, ErrInvalidTuition
	}
	var paymentDate *model.Date
	if req.PaymentDate != "" {
		d, err := model.ParseDate(req.PaymentDate)
		if err != nil {
			return nil, ErrInvalidDate
		}
		paymentDate = &d
	}

	profile, err := s.repo.Profile.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		s.logger.Error("查询档案失败", zap.String("profile_id", req.UserID), zap.Error(err))
		return nil, err
	}
	if !profile.IsActive() || profile.Role != model.RoleUser {
		return nil, ErrProfileNotEligible
	}

	exists, err := s.repo.Lesson.ExistsByUser(ctx, req.UserID)
	if err != nil {
		s.logger.Error("查询学员课程失败", zap.String("profile_id", req.UserID), zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, ErrLessonAlreadyAssigned
	}

	lesson := &model.Lesson{
		UserID:        req.UserID,
		Category:      category,
		TuitionAmount: req.TuitionAmount,
		PaymentDate:   paymentDate,
		IsActive:      true,
		Cycle:         1,
	}
	if err := s.repo.Lesson.Create(ctx, lesson); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrActiveLessonExists
		}
		s.logger.Error("创建课程失败", zap.String("profile_id", req.UserID), zap.Error(err))
		return nil, err
	}
	lesson.Profile = profile

	s.logger.Info("课程已创建",
		zap.String("lesson_id", lesson.ID),
		zap.String("profile_id", req.UserID),
		zap.String("operator", callerID),
	)
	resp := toLessonResponse(lesson)
	return &resp, nil
}

// ────────────────────── Session tracker ──────────────────────

// mutate 在单个事务内读取课程并执行 fn，fn 返回错误时整体回滚
func (s *lessonService) mutate(
	ctx context.Context,
	lessonID, op string,
	fn func(txRepo *repository.Repository, lesson *model.Lesson) error,
) (*model.Lesson, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)

	lesson, err := txRepo.Lesson.GetByID(ctx, lessonID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		s.logger.Error("查询课程失败", zap.String("lesson_id", lessonID), zap.Error(err))
		return nil, err
	}

	if err := fn(txRepo, lesson); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		switch {
		case errors.Is(err, pkgerrors.ErrOptimisticLock):
			metrics.IncLockConflict()
			s.logger.Warn("课程并发修改冲突", zap.String("lesson_id", lessonID), zap.String("op", op))
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrSessionAlreadyRecorded
		case isLessonPrecondition(err):
		default:
			s.logger.Error("课程操作失败", zap.String("lesson_id", lessonID), zap.String("op", op), zap.Error(err))
		}
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.String("lesson_id", lessonID), zap.String("op", op), zap.Error(err))
			return nil, err
		}
	}
	return lesson, nil
}

func isLessonPrecondition(err error) bool {
	return errors.Is(err, ErrSessionLimitReached) ||
		errors.Is(err, ErrNoSessionToUndo) ||
		errors.Is(err, ErrLessonInactive) ||
		errors.Is(err, ErrActiveLessonExists)
}

func (s *lessonService) CheckIn(ctx context.Context, lessonID, callerID string) (*dto.SessionResult, error) {
	return s.recordSession(ctx, lessonID, s.today(), nil, false, metrics.EventCheckIn, callerID)
}

func (s *lessonService) RecordAtDate(ctx context.Context, lessonID string, req *dto.RecordSessionRequest, callerID string) (*dto.SessionResult, error) {
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	return s.recordSession(ctx, lessonID, date, req.Note, true, metrics.EventRecord, callerID)
}

// recordSession 课次 +1 并写入对应出勤记录
// requireActive 为 true 时仅允许进行中的课程（按日期补录）
func (s *lessonService) recordSession(
	ctx context.Context,
	lessonID string,
	date model.Date,
	note *string,
	requireActive bool,
	event, callerID string,
) (*dto.SessionResult, error) {
	lesson, err := s.mutate(ctx, lessonID, event, func(txRepo *repository.Repository, lesson *model.Lesson) error {
		if requireActive && !lesson.IsActive {
			return ErrLessonInactive
		}
		if lesson.CurrentSession >= model.MaxSessions {
			return ErrSessionLimitReached
		}

		lesson.CurrentSession++
		if err := txRepo.Lesson.Update(ctx, lesson); err != nil {
			return err
		}
		return txRepo.LessonHistory.Create(ctx, &model.LessonHistory{
			LessonID:      lesson.ID,
			Cycle:         lesson.Cycle,
			SessionNumber: lesson.CurrentSession,
			CompletedDate: date,
			Note:          note,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.IncSessionEvent(event)
	s.logger.Info("课次已记录",
		zap.String("lesson_id", lessonID),
		zap.Int("session", lesson.CurrentSession),
		zap.String("date", date.String()),
		zap.String("operator", callerID),
	)

	return &dto.SessionResult{
		Lesson:        toLessonResponse(lesson),
		SessionNumber: lesson.CurrentSession,
		CompletedDate: date.String(),
		RenewalNeeded: lesson.RenewalNeeded(),
	}, nil
}

func (s *lessonService) Undo(ctx context.Context, lessonID, callerID string) (*dto.LessonResponse, error) {
	lesson, err := s.mutate(ctx, lessonID, metrics.EventUndo, func(txRepo *repository.Repository, lesson *model.Lesson) error {
		if lesson.CurrentSession <= 0 {
			return ErrNoSessionToUndo
		}

		removed := lesson.CurrentSession
		lesson.CurrentSession--
		if err := txRepo.Lesson.Update(ctx, lesson); err != nil {
			return err
		}
		n, err := txRepo.LessonHistory.DeleteBySession(ctx, lesson.ID, lesson.Cycle, removed)
		if err != nil {
			return err
		}
		if n == 0 {
			s.logger.Warn("撤销课次时未找到对应出勤记录",
				zap.String("lesson_id", lesson.ID),
				zap.Int("cycle", lesson.Cycle),
				zap.Int("session", removed),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncSessionEvent(metrics.EventUndo)
	s.logger.Info("课次已撤销",
		zap.String("lesson_id", lessonID),
		zap.Int("session", lesson.CurrentSession),
		zap.String("operator", callerID),
	)
	resp := toLessonResponse(lesson)
	return &resp, nil
}

func (s *lessonService) Renew(ctx context.Context, lessonID, callerID string) (*dto.LessonResponse, error) {
	today := s.today()
	lesson, err := s.mutate(ctx, lessonID, metrics.EventRenew, func(txRepo *repository.Repository, lesson *model.Lesson) error {
		// 新一期的课次从 1 重新编号
		lesson.CurrentSession = 0
		lesson.Cycle++
		lesson.PaymentDate = &today
		return txRepo.Lesson.Update(ctx, lesson)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncSessionEvent(metrics.EventRenew)
	s.logger.Info("课程已续费", zap.String("lesson_id", lessonID), zap.String("operator", callerID))
	resp := toLessonResponse(lesson)
	return &resp, nil
}

func (s *lessonService) End(ctx context.Context, lessonID, callerID string) (*dto.LessonResponse, error) {
	lesson, err := s.mutate(ctx, lessonID, "end", func(txRepo *repository.Repository, lesson *model.Lesson) error {
		if !lesson.IsActive {
			return nil
		}
		lesson.IsActive = false
		return txRepo.Lesson.Update(ctx, lesson)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("课程已结束", zap.String("lesson_id", lessonID), zap.String("operator", callerID))
	resp := toLessonResponse(lesson)
	return &resp, nil
}

func (s *lessonService) Restore(ctx context.Context, lessonID, callerID string) (*dto.LessonResponse, error) {
	lesson, err := s.mutate(ctx, lessonID, "restore", func(txRepo *repository.Repository, lesson *model.Lesson) error {
		if lesson.IsActive {
			return nil
		}
		other, err := txRepo.Lesson.HasOtherActive(ctx, lesson.UserID, lesson.ID)
		if err != nil {
			return err
		}
		if other {
			return ErrActiveLessonExists
		}
		lesson.IsActive = true
		if err := txRepo.Lesson.Update(ctx, lesson); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrActiveLessonExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("课程已恢复", zap.String("lesson_id", lessonID), zap.String("operator", callerID))
	resp := toLessonResponse(lesson)
	return &resp, nil
}

func (s *lessonService) Delete(ctx context.Context, lessonID, callerID string) error {
	_, err := s.mutate(ctx, lessonID, "delete", func(txRepo *repository.Repository, lesson *model.Lesson) error {
		if err := txRepo.LessonHistory.DeleteByLesson(ctx, lesson.ID); err != nil {
			return err
		}
		return txRepo.Lesson.Delete(ctx, lesson.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("课程已删除", zap.String("lesson_id", lessonID), zap.String("operator", callerID))
	return nil
}

// ────────────────────── Edits ──────────────────────

func (s *lessonService) UpdateCategory(ctx context.Context, lessonID string, req *dto.UpdateCategoryRequest) (*dto.LessonResponse, error) {
	category, err := canonicalCategory(req.Categories)
	if err != nil {
		return nil, err
	}
	return s.edit(ctx, lessonID, "category", func(l *model.Lesson) { l.Category = category })
}

func (s *lessonService) UpdateTuition(ctx context.Context, lessonID string, req *dto.UpdateTuitionRequest) (*dto.LessonResponse, error) {
	if req.TuitionAmount == nil || *req.TuitionAmount < 0 {
		return nil, ErrInvalidTuition
	}
	amount := *req.TuitionAmount
	return s.edit(ctx, lessonID, "tuition", func(l *model.Lesson) { l.TuitionAmount = amount })
}

func (s *lessonService) UpdatePaymentDate(ctx context.Context, lessonID string, req *dto.UpdatePaymentDateRequest) (*dto.LessonResponse, error) {
	date, err := model.ParseDate(req.PaymentDate)
	if err != nil {
		return nil, ErrInvalidDate
	}
	return s.edit(ctx, lessonID, "payment_date", func(l *model.Lesson) { l.PaymentDate = &date })
}

func (s *lessonService) edit(ctx context.Context, lessonID, op string, apply func(*model.Lesson)) (*dto.LessonResponse, error) {
	lesson, err := s.mutate(ctx, lessonID, op, func(txRepo *repository.Repository, lesson *model.Lesson) error {
		apply(lesson)
		return txRepo.Lesson.Update(ctx, lesson)
	})
	if err != nil {
		return nil, err
	}
	resp := toLessonResponse(lesson)
	return &resp, nil
}

// canonicalCategory 校验并规范化多选分类
func canonicalCategory(categories []string) (string, error) {
	if len(categories) == 0 {
		return "", ErrInvalidCategory
	}
	for _, c := range categories {
		valid := false
		for _, known := range model.LessonCategories {
			if c == known {
				valid = true
				break
			}
		}
		if !valid {
			return "", ErrInvalidCategory
		}
	}
	return model.JoinCategories(categories), nil
}

// ────────────────────── Messages / My lesson ──────────────────────

func (s *lessonService) Messages(ctx context.Context, lessonID string) (*dto.LessonMessagesResponse, error) {
	lesson, err := s.repo.Lesson.GetByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		s.logger.Error("查询课程失败", zap.String("lesson_id", lessonID), zap.Error(err))
		return nil, err
	}

	name, phone := unknownStudent, ""
	if lesson.Profile != nil {
		name, phone = lesson.Profile.Name, lesson.Profile.Phone
	}

	resp := &dto.LessonMessagesResponse{
		StudentName: name,
		Phone:       phone,
		Greeting:    messaging.PersonalGreeting(name),
		TuitionDue:  messaging.TuitionDueMessage(name, lesson.Category),
		Reminder:    messaging.TuitionReminderMessage(name, s.now().In(s.loc)),
	}
	if u, ok := messaging.SMSURL(phone, resp.TuitionDue); ok {
		resp.SMSURL = &u
	}
	if u, ok := messaging.KakaoTalkURL(phone); ok {
		resp.KakaoURL = &u
	}
	return resp, nil
}

func (s *lessonService) MyLesson(ctx context.Context, profileID string) (*dto.MyLessonResponse, error) {
	resp := &dto.MyLessonResponse{History: []dto.HistoryResponse{}}

	lesson, err := s.repo.Lesson.GetActiveByUser(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resp, nil
		}
		s.logger.Error("查询本人课程失败", zap.String("profile_id", profileID), zap.Error(err))
		return nil, err
	}

	rows, err := s.repo.LessonHistory.ListByLesson(ctx, lesson.ID)
	if err != nil {
		s.logger.Error("查询出勤记录失败", zap.String("lesson_id", lesson.ID), zap.Error(err))
		return nil, err
	}

	l := toLessonResponse(lesson)
	resp.Lesson = &l
	for i := range rows {
		resp.History = append(resp.History, toHistoryResponse(&rows[i]))
	}
	return resp, nil
}

// ────────────────────── Converters ──────────────────────

func toLessonResponse(l *model.Lesson) dto.LessonResponse {
	resp := dto.LessonResponse{
		ID:             l.ID,
		UserID:         l.UserID,
		StudentName:    unknownStudent,
		Category:       l.Category,
		Categories:     l.Categories(),
		CurrentSession: l.CurrentSession,
		Remaining:      l.Remaining(),
		Cycle:          l.Cycle,
		TuitionAmount:  l.TuitionAmount,
		IsActive:       l.IsActive,
		RenewalNeeded:  l.RenewalNeeded(),
		Version:        l.Version,
		CreatedAt:      l.CreatedAt.Format(time.RFC3339),
	}
	if l.Profile != nil {
		resp.StudentName = l.Profile.Name
		resp.StudentEmail = l.Profile.Email
		resp.StudentPhone = l.Profile.Phone
	}
	if l.PaymentDate != nil && *l.PaymentDate != "" {
		d := l.PaymentDate.String()
		resp.PaymentDate = &d
	}
	return resp
}

func toHistoryResponse(h *model.LessonHistory) dto.HistoryResponse {
	return dto.HistoryResponse{
		ID:            h.ID,
		LessonID:      h.LessonID,
		Cycle:         h.Cycle,
		SessionNumber: h.SessionNumber,
		CompletedDate: h.CompletedDate.String(),
		Note:          h.Note,
	}
}
