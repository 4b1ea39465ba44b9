package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/KDrAmina/gimpogugak/config"
	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/model"
	"github.com/KDrAmina/gimpogugak/pkg/jwt"
)

// ── 测试用黑名单 ──

type memoryBlacklist struct {
	revoked map[string]time.Duration
}

func newMemoryBlacklist() *memoryBlacklist {
	return &memoryBlacklist{revoked: make(map[string]time.Duration)}
}

func (b *memoryBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	b.revoked[jti] = ttl
	return nil
}

func (b *memoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := b.revoked[jti]
	return ok, nil
}

func testAuthConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			AdminEmail:      "Director@Gugak.kr",
			AdminPassword:   "admin1234",
			AdminName:       "원장",
		},
	}
}

func setupTestAuthService() (AuthService, *mockRepos, *memoryBlacklist, *jwt.Manager) {
	cfg := testAuthConfig()
	m := newMockRepos()
	bl := newMemoryBlacklist()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	session := NewSessionService(m.repo, nil, 0, zap.NewNop())

	svc := NewAuthService(cfg, m.repo, jwtMgr, bl, session, zap.NewNop())
	return svc, m, bl, jwtMgr
}

func createTestProfile(m *mockRepos, email, password, status string) *model.Profile {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	p := &model.Profile{
		Email:        email,
		Name:         "테스트",
		PasswordHash: string(hash),
		Status:       status,
		Role:         model.RoleUser,
	}
	_ = m.profiles.Create(context.Background(), p)
	return p
}

// ── Signup ──

func TestSignup_CreatesPendingProfile(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()

	resp, err := svc.Signup(context.Background(), &dto.SignupRequest{
		Email:    "  New@Example.com ",
		Password: "1234",
		Name:     "김신입",
		Phone:    "010-1111-2222",
	})
	if err != nil {
		t.Fatalf("Signup 应成功: %v", err)
	}
	if resp.Status != model.ProfileStatusPending || resp.Role != model.RoleUser {
		t.Errorf("注册后应为 pending/user，实际=%s/%s", resp.Status, resp.Role)
	}
	if resp.Email != "new@example.com" {
		t.Errorf("邮箱应规范化为小写，实际=%s", resp.Email)
	}
	stored, _ := m.profiles.GetByID(context.Background(), resp.ID)
	if stored.PasswordHash == "1234" {
		t.Error("密码不应明文保存")
	}
}

func TestSignup_EmailTaken(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	createTestProfile(m, "dup@example.com", "pass", model.ProfileStatusActive)

	_, err := svc.Signup(context.Background(), &dto.SignupRequest{Email: "DUP@example.com", Password: "1234", Name: "중복"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("期望 ErrEmailTaken，实际: %v", err)
	}
}

// ── Login / Refresh / Logout ──

func TestLogin_Success(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	createTestProfile(m, "user@example.com", "password123", model.ProfileStatusPending)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "user@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login 应成功，但返回错误: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Error("Token 不应为空")
	}
	if result.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", result.ExpiresIn)
	}
	// 待审批用户可以登录，由路由层限制可访问范围
	if result.Profile.Status != model.ProfileStatusPending {
		t.Errorf("期望 Status=pending，实际=%s", result.Profile.Status)
	}
}

func TestLogin_Failures(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	createTestProfile(m, "user@example.com", "password123", model.ProfileStatusActive)

	cases := map[string]dto.LoginRequest{
		"密码错误":  {Email: "user@example.com", Password: "wrong"},
		"用户不存在": {Email: "nobody@example.com", Password: "password123"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			req := req
			if _, err := svc.Login(context.Background(), &req); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
			}
		})
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	createTestProfile(m, "user@example.com", "password123", model.ProfileStatusActive)
	ctx := context.Background()

	tokens, _ := svc.Login(ctx, &dto.LoginRequest{Email: "user@example.com", Password: "password123"})

	next, err := svc.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh 应成功: %v", err)
	}
	if next.RefreshToken == tokens.RefreshToken {
		t.Error("Refresh 应签发新的 refresh token")
	}

	if _, err := svc.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("旧 refresh token 应已作废，实际: %v", err)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	createTestProfile(m, "user@example.com", "password123", model.ProfileStatusActive)
	ctx := context.Background()

	tokens, _ := svc.Login(ctx, &dto.LoginRequest{Email: "user@example.com", Password: "password123"})
	if _, err := svc.Refresh(ctx, tokens.AccessToken); !errors.Is(err, ErrTokenTypeInvalid) {
		t.Errorf("期望 ErrTokenTypeInvalid，实际: %v", err)
	}
}

func TestLogout_BlacklistsBothTokens(t *testing.T) {
	svc, m, bl, jwtMgr := setupTestAuthService()
	createTestProfile(m, "user@example.com", "password123", model.ProfileStatusActive)
	ctx := context.Background()

	tokens, _ := svc.Login(ctx, &dto.LoginRequest{Email: "user@example.com", Password: "password123"})
	access, err := jwtMgr.ParseToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("解析 access token 失败: %v", err)
	}

	if err := svc.Logout(ctx, access, tokens.RefreshToken); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	if len(bl.revoked) != 2 {
		t.Errorf("access 与 refresh 都应加入黑名单，实际 %d 个", len(bl.revoked))
	}
	if err := svc.Logout(ctx, nil, ""); err != nil {
		t.Errorf("无凭证登出不应报错: %v", err)
	}
}

// ── My info ──

func TestChangePassword(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	p := createTestProfile(m, "user@example.com", "old-pass", model.ProfileStatusActive)
	ctx := context.Background()

	cases := []struct {
		name string
		req  dto.ChangePasswordRequest
		want error
	}{
		{"新密码过短", dto.ChangePasswordRequest{CurrentPassword: "old-pass", NewPassword: "abc"}, ErrPasswordTooShort},
		{"与旧密码相同", dto.ChangePasswordRequest{CurrentPassword: "old-pass", NewPassword: "old-pass"}, ErrSamePassword},
		{"当前密码错误", dto.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "new-pass"}, ErrWrongPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			if err := svc.ChangePassword(ctx, p.ID, &req); !errors.Is(err, tc.want) {
				t.Errorf("期望 %v，实际: %v", tc.want, err)
			}
		})
	}

	if err := svc.ChangePassword(ctx, p.ID, &dto.ChangePasswordRequest{CurrentPassword: "old-pass", NewPassword: "new-pass"}); err != nil {
		t.Fatalf("修改密码应成功: %v", err)
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "user@example.com", Password: "new-pass"}); err != nil {
		t.Errorf("新密码应可登录: %v", err)
	}
}

func TestChangeEmail(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	p := createTestProfile(m, "me@example.com", "pass", model.ProfileStatusActive)
	createTestProfile(m, "taken@example.com", "pass", model.ProfileStatusActive)
	ctx := context.Background()

	if _, err := svc.ChangeEmail(ctx, p.ID, &dto.ChangeEmailRequest{Email: "Taken@example.com"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("期望 ErrEmailTaken，实际: %v", err)
	}

	resp, err := svc.ChangeEmail(ctx, p.ID, &dto.ChangeEmailRequest{Email: "Fresh@example.com"})
	if err != nil {
		t.Fatalf("修改邮箱应成功: %v", err)
	}
	if resp.Email != "fresh@example.com" {
		t.Errorf("期望 fresh@example.com，实际=%s", resp.Email)
	}
}

// ── Admin bootstrap ──

func TestEnsureAdmin_CreatesThenIsIdempotent(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx); err != nil {
		t.Fatalf("EnsureAdmin 应成功: %v", err)
	}
	admin, err := m.profiles.GetByEmail(ctx, "director@gugak.kr")
	if err != nil {
		t.Fatalf("应已创建管理员: %v", err)
	}
	if !admin.IsAdmin() {
		t.Error("管理员应为 active/admin")
	}

	if err := svc.EnsureAdmin(ctx); err != nil {
		t.Fatalf("重复执行应无副作用: %v", err)
	}
	if len(m.profiles.profiles) != 1 {
		t.Errorf("不应重复创建，实际 %d 个档案", len(m.profiles.profiles))
	}
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	p := createTestProfile(m, "director@gugak.kr", "pass", model.ProfileStatusPending)

	if err := svc.EnsureAdmin(context.Background()); err != nil {
		t.Fatalf("EnsureAdmin 应成功: %v", err)
	}
	stored, _ := m.profiles.GetByID(context.Background(), p.ID)
	if !stored.IsAdmin() {
		t.Error("已有账号应被提升为管理员")
	}
}
