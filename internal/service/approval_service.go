package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/model"
	"github.com/KDrAmina/gimpogugak/internal/repository"
	pkgerrors "github.com/KDrAmina/gimpogugak/pkg/errors"
)

// ErrInvalidStatusTransition 只允许 pending → active / rejected
var ErrInvalidStatusTransition = errors.New("无效的审批状态变更")

// ApprovalService 注册审批业务接口
type ApprovalService interface {
	ListPending(ctx context.Context) ([]dto.ProfileResponse, error)
	Approve(ctx context.Context, profileID, callerID string) (*dto.ProfileResponse, error)
	Reject(ctx context.Context, profileID, callerID string) (*dto.ProfileResponse, error)
}

type approvalService struct {
	repo     *repository.Repository
	session  SessionService
	notifier StatusNotifier
	logger   *zap.Logger
}

// NewApprovalService 创建 ApprovalService 实例
func NewApprovalService(repo *repository.Repository, session SessionService, notifier StatusNotifier, logger *zap.Logger) ApprovalService {
	return &approvalService{repo: repo, session: session, notifier: notifier, logger: logger}
}

func (s *approvalService) ListPending(ctx context.Context) ([]dto.ProfileResponse, error) {
	profiles, err := s.repo.Profile.ListByStatus(ctx, model.ProfileStatusPending)
	if err != nil {
		s.logger.Error("查询待审批列表失败", zap.Error(err))
		return nil, err
	}
	list := make([]dto.ProfileResponse, 0, len(profiles))
	for i := range profiles {
		list = append(list, toProfileResponse(&profiles[i]))
	}
	return list, nil
}

func (s *approvalService) Approve(ctx context.Context, profileID, callerID string) (*dto.ProfileResponse, error) {
	return s.transition(ctx, profileID, callerID, model.ProfileStatusActive)
}

func (s *approvalService) Reject(ctx context.Context, profileID, callerID string) (*dto.ProfileResponse, error) {
	return s.transition(ctx, profileID, callerID, model.ProfileStatusRejected)
}

func (s *approvalService) transition(ctx context.Context, profileID, callerID, to string) (*dto.ProfileResponse, error) {
	profile, err := s.repo.Profile.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		s.logger.Error("查询档案失败", zap.String("profile_id", profileID), zap.Error(err))
		return nil, err
	}
	if !profile.CanTransitionTo(to) {
		return nil, ErrInvalidStatusTransition
	}

	if err := s.repo.Profile.UpdateStatus(ctx, profileID, profile.Status, to); err != nil {
		// 另一位管理员已先处理
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrInvalidStatusTransition
		}
		s.logger.Error("更新审批状态失败", zap.String("profile_id", profileID), zap.Error(err))
		return nil, err
	}
	profile.Status = to

	s.session.Invalidate(ctx, profileID)
	if err := s.notifier.Publish(ctx, profileID, to); err != nil {
		s.logger.Warn("推送审批状态失败", zap.String("profile_id", profileID), zap.Error(err))
	}

	s.logger.Info("审批状态已变更",
		zap.String("profile_id", profileID),
		zap.String("status", to),
		zap.String("operator", callerID),
	)
	resp := toProfileResponse(profile)
	return &resp, nil
}
