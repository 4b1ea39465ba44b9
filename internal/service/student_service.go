package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/model"
	"github.com/KDrAmina/gimpogugak/internal/repository"
	"github.com/KDrAmina/gimpogugak/pkg/messaging"
)

// ── 学员模块业务错误 ──

var (
	ErrEmptyTemplate = errors.New("群发文案不能为空")
	ErrNoRecipients  = errors.New("所选学员均无联系方式")
)

// StudentService 学员管理业务接口
type StudentService interface {
	Dashboard(ctx context.Context) (*dto.DashboardResponse, error)
	ListActive(ctx context.Context, query *dto.StudentListQuery) ([]dto.StudentResponse, error)
	// Outreach 为所选学员生成个性化文案和短信 / KakaoTalk 链接，不实际发送
	Outreach(ctx context.Context, req *dto.OutreachRequest) (*dto.OutreachResponse, error)
}

type studentService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
	loc    *time.Location
}

// NewStudentService 创建 StudentService 实例
func NewStudentService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) StudentService {
	return &studentService{repo: repo, logger: logger, now: time.Now, loc: loc}
}

func (s *studentService) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	pending, err := s.repo.Profile.CountByStatus(ctx, model.ProfileStatusPending)
	if err != nil {
		s.logger.Error("统计待审批人数失败", zap.Error(err))
		return nil, err
	}
	active, err := s.repo.Lesson.CountActive(ctx)
	if err != nil {
		s.logger.Error("统计进行中课程失败", zap.Error(err))
		return nil, err
	}
	renewal, err := s.repo.Lesson.CountRenewalNeeded(ctx)
	if err != nil {
		s.logger.Error("统计待续费课程失败", zap.Error(err))
		return nil, err
	}
	return &dto.DashboardResponse{
		PendingCount:       pending,
		ActiveLessonCount:  active,
		RenewalNeededCount: renewal,
	}, nil
}

func (s *studentService) ListActive(ctx context.Context, query *dto.StudentListQuery) ([]dto.StudentResponse, error) {
	sortBy := query.Sort
	if sortBy == "" {
		sortBy = "created_at"
	}
	asc := query.Order == "asc"

	profiles, err := s.repo.Profile.ListActiveUsers(ctx, sortBy, asc)
	if err != nil {
		s.logger.Error("查询学员列表失败", zap.Error(err))
		return nil, err
	}

	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	lessons, err := s.repo.Lesson.ListByUsers(ctx, ids)
	if err != nil {
		s.logger.Error("查询学员课程失败", zap.Error(err))
		return nil, err
	}

	// 进行中的课程优先，其次为最近结束的课程
	byUser := make(map[string]*model.Lesson, len(lessons))
	for i := range lessons {
		l := &lessons[i]
		cur, ok := byUser[l.UserID]
		if !ok || (l.IsActive && !cur.IsActive) {
			byUser[l.UserID] = l
		}
	}

	list := make([]dto.StudentResponse, 0, len(profiles))
	for i := range profiles {
		item := dto.StudentResponse{
			ProfileResponse: toProfileResponse(&profiles[i]),
			LessonStatus:    dto.LessonStatusNone,
		}
		if l, ok := byUser[profiles[i].ID]; ok {
			id := l.ID
			item.LessonID = &id
			item.LessonStatus = dto.LessonStatusEnded
			if l.IsActive {
				item.LessonStatus = dto.LessonStatusActive
			}
		}
		list = append(list, item)
	}
	return list, nil
}

func (s *studentService) Outreach(ctx context.Context, req *dto.OutreachRequest) (*dto.OutreachResponse, error) {
	var template string
	switch req.Type {
	case dto.OutreachTuition:
		template = messaging.TuitionReminderTemplate(s.now().In(s.loc))
	case dto.OutreachCustom:
		template = req.Template
	default:
		template = messaging.GeneralTemplate()
	}
	if strings.TrimSpace(template) == "" {
		return nil, ErrEmptyTemplate
	}

	resp := &dto.OutreachResponse{
		Template: template,
		Items:    make([]dto.OutreachItem, 0, len(req.ProfileIDs)),
		Skipped:  []string{},
	}
	seen := make(map[string]bool, len(req.ProfileIDs))
	for _, id := range req.ProfileIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		profile, err := s.repo.Profile.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				resp.Skipped = append(resp.Skipped, id)
				continue
			}
			s.logger.Error("查询学员失败", zap.String("profile_id", id), zap.Error(err))
			return nil, err
		}
		if !profile.IsActive() || strings.TrimSpace(profile.Phone) == "" {
			resp.Skipped = append(resp.Skipped, id)
			continue
		}

		message := messaging.Personalize(template, profile.Name)
		item := dto.OutreachItem{
			ProfileID: profile.ID,
			Name:      profile.Name,
			Phone:     profile.Phone,
			Message:   message,
		}
		if u, ok := messaging.SMSURL(profile.Phone, message); ok {
			item.SMSURL = &u
		}
		if u, ok := messaging.KakaoTalkURL(profile.Phone); ok {
			item.KakaoURL = &u
		}
		resp.Items = append(resp.Items, item)
	}

	if len(resp.Items) == 0 {
		return nil, ErrNoRecipients
	}
	return resp, nil
}
