package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/KDrAmina/gimpogugak/config"
	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/model"
	"github.com/KDrAmina/gimpogugak/internal/repository"
	"github.com/KDrAmina/gimpogugak/pkg/jwt"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrProfileNotFound    = errors.New("档案不存在")
	ErrEmailTaken         = errors.New("邮箱已被使用")
	ErrWrongPassword      = errors.New("当前密码错误")
	ErrSamePassword       = errors.New("新密码不能与当前密码相同")
	ErrPasswordTooShort   = errors.New("新密码长度不足")
	ErrTokenRevoked       = errors.New("token 已注销")
	ErrTokenTypeInvalid   = errors.New("token 类型无效")
)

const minPasswordLen = 4

// TokenBlacklist Token 黑名单（由 pkg/redis.Client 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AuthService 认证业务接口
type AuthService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.ProfileResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, access *jwt.Claims, refreshToken string) error
	Me(ctx context.Context, profileID string) (*dto.ProfileResponse, error)
	ChangePassword(ctx context.Context, profileID string, req *dto.ChangePasswordRequest) error
	ChangeEmail(ctx context.Context, profileID string, req *dto.ChangeEmailRequest) (*dto.ProfileResponse, error)
	// EnsureAdmin 启动时创建或提升配置中的管理员账号
	EnsureAdmin(ctx context.Context) error
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist // 可为 nil
	session   SessionService
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	session SessionService,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		session:   session,
		logger:    logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ────────────────────── Signup ──────────────────────

func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.ProfileResponse, error) {
	email := normalizeEmail(req.Email)

	if _, err := s.repo.Profile.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询邮箱失败", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	profile := &model.Profile{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: string(hash),
		Status:       model.ProfileStatusPending,
		Role:         model.RoleUser,
	}
	if err := s.repo.Profile.Create(ctx, profile); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		s.logger.Error("创建档案失败", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("新用户注册", zap.String("profile_id", profile.ID))
	resp := toProfileResponse(profile)
	return &resp, nil
}

// ────────────────────── Login / Refresh / Logout ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	profile, err := s.repo.Profile.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询档案失败", zap.Error(err))
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(profile)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrTokenTypeInvalid
	}
	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("检查黑名单失败", zap.Error(err))
		} else if revoked {
			return nil, ErrTokenRevoked
		}
	}

	profile, err := s.repo.Profile.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		s.logger.Error("查询档案失败", zap.String("profile_id", claims.UserID), zap.Error(err))
		return nil, err
	}

	// 轮换：旧 refresh token 作废
	s.revoke(ctx, claims)

	return s.issueTokens(profile)
}

func (s *authService) Logout(ctx context.Context, access *jwt.Claims, refreshToken string) error {
	if access == nil {
		return nil
	}
	s.revoke(ctx, access)
	if refreshToken != "" {
		if claims, err := s.jwtMgr.ParseToken(refreshToken); err == nil && claims.UserID == access.UserID {
			s.revoke(ctx, claims)
		}
	}
	return nil
}

func (s *authService) revoke(ctx context.Context, claims *jwt.Claims) {
	if s.blacklist == nil {
		return
	}
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, jwt.RemainingTTL(claims)); err != nil {
		s.logger.Warn("Token 加入黑名单失败", zap.String("jti", claims.ID), zap.Error(err))
	}
}

func (s *authService) issueTokens(profile *model.Profile) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(profile.ID, profile.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(profile.ID, profile.Role)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		Profile:      toProfileResponse(profile),
	}, nil
}

// ────────────────────── My info ──────────────────────

func (s *authService) Me(ctx context.Context, profileID string) (*dto.ProfileResponse, error) {
	profile, err := s.repo.Profile.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		s.logger.Error("查询档案失败", zap.String("profile_id", profileID), zap.Error(err))
		return nil, err
	}
	resp := toProfileResponse(profile)
	return &resp, nil
}

func (s *authService) ChangePassword(ctx context.Context, profileID string, req *dto.ChangePasswordRequest) error {
	if len(req.NewPassword) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if req.NewPassword == req.CurrentPassword {
		return ErrSamePassword
	}

	profile, err := s.repo.Profile.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProfileNotFound
		}
		s.logger.Error("查询档案失败", zap.String("profile_id", profileID), zap.Error(err))
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}
	if err := s.repo.Profile.UpdatePassword(ctx, profileID, string(hash)); err != nil {
		s.logger.Error("更新密码失败", zap.String("profile_id", profileID), zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) ChangeEmail(ctx context.Context, profileID string, req *dto.ChangeEmailRequest) (*dto.ProfileResponse, error) {
	email := normalizeEmail(req.Email)

	profile, err := s.repo.Profile.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		s.logger.Error("查询档案失败", zap.String("profile_id", profileID), zap.Error(err))
		return nil, err
	}
	if profile.Email == email {
		resp := toProfileResponse(profile)
		return &resp, nil
	}

	if other, err := s.repo.Profile.GetByEmail(ctx, email); err == nil && other.ID != profileID {
		return nil, ErrEmailTaken
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询邮箱失败", zap.Error(err))
		return nil, err
	}

	if err := s.repo.Profile.UpdateEmail(ctx, profileID, email); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		s.logger.Error("更新邮箱失败", zap.String("profile_id", profileID), zap.Error(err))
		return nil, err
	}
	s.session.Invalidate(ctx, profileID)

	profile.Email = email
	resp := toProfileResponse(profile)
	return &resp, nil
}

// ────────────────────── Admin bootstrap ──────────────────────

func (s *authService) EnsureAdmin(ctx context.Context) error {
	email := normalizeEmail(s.cfg.Auth.AdminEmail)
	if email == "" {
		return nil
	}

	profile, err := s.repo.Profile.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if profile.Role == model.RoleAdmin && profile.Status == model.ProfileStatusActive {
			return nil
		}
		profile.Role = model.RoleAdmin
		profile.Status = model.ProfileStatusActive
		if err := s.repo.Profile.Update(ctx, profile); err != nil {
			s.logger.Error("提升管理员失败", zap.String("email", email), zap.Error(err))
			return err
		}
		s.session.Invalidate(ctx, profile.ID)
		s.logger.Info("已提升为管理员", zap.String("profile_id", profile.ID))
		return nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		if len(s.cfg.Auth.AdminPassword) < minPasswordLen {
			return ErrPasswordTooShort
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.Auth.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin := &model.Profile{
			Email:        email,
			Name:         s.cfg.Auth.AdminName,
			PasswordHash: string(hash),
			Status:       model.ProfileStatusActive,
			Role:         model.RoleAdmin,
		}
		if err := s.repo.Profile.Create(ctx, admin); err != nil {
			s.logger.Error("创建管理员失败", zap.String("email", email), zap.Error(err))
			return err
		}
		s.logger.Info("已创建管理员账号", zap.String("profile_id", admin.ID))
		return nil

	default:
		s.logger.Error("查询管理员失败", zap.Error(err))
		return err
	}
}

func toProfileResponse(p *model.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		Name:      p.Name,
		Phone:     p.Phone,
		Status:    p.Status,
		Role:      p.Role,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}
