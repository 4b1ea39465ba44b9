package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KDrAmina/gimpogugak/internal/model"
	"github.com/KDrAmina/gimpogugak/internal/repository"
)

// ProfileCache 会话档案缓存（由 pkg/redis.Client 实现）
type ProfileCache interface {
	GetSessionProfile(ctx context.Context, profileID string) ([]byte, error)
	SetSessionProfile(ctx context.Context, profileID string, payload []byte, ttl time.Duration) error
	DeleteSessionProfile(ctx context.Context, profileID string) error
}

// SessionService 每个请求解析一次当前档案，结果短期缓存
type SessionService interface {
	Resolve(ctx context.Context, profileID string) (*model.Profile, error)
	Invalidate(ctx context.Context, profileID string)
}

type sessionService struct {
	repo   *repository.Repository
	cache  ProfileCache // 可为 nil
	ttl    time.Duration
	logger *zap.Logger
}

// NewSessionService 创建 SessionService，cache 为 nil 时每次读库
func NewSessionService(repo *repository.Repository, cache ProfileCache, ttl time.Duration, logger *zap.Logger) SessionService {
	return &sessionService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

func (s *sessionService) Resolve(ctx context.Context, profileID string) (*model.Profile, error) {
	if s.cache != nil {
		if b, err := s.cache.GetSessionProfile(ctx, profileID); err == nil {
			var p model.Profile
			if err := json.Unmarshal(b, &p); err == nil && p.ID == profileID {
				return &p, nil
			}
		}
	}

	profile, err := s.repo.Profile.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		s.logger.Error("查询会话档案失败", zap.String("profile_id", profileID), zap.Error(err))
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		if b, err := json.Marshal(profile); err == nil {
			if err := s.cache.SetSessionProfile(ctx, profileID, b, s.ttl); err != nil {
				s.logger.Warn("写入会话档案缓存失败", zap.String("profile_id", profileID), zap.Error(err))
			}
		}
	}
	return profile, nil
}

func (s *sessionService) Invalidate(ctx context.Context, profileID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteSessionProfile(ctx, profileID); err != nil {
		s.logger.Warn("清除会话档案缓存失败", zap.String("profile_id", profileID), zap.Error(err))
	}
}
