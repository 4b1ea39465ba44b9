package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/service"
	"github.com/KDrAmina/gimpogugak/pkg/jwt"
	"github.com/KDrAmina/gimpogugak/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Signup 注册，创建后等待管理员审批
// POST /api/v1/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	profile, err := h.authSvc.Signup(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.Created(c, profile)
}

// Login 登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.OK(c, result)
}

// Refresh 刷新 Token，旧 refresh token 作废
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.OK(c, result)
}

// Logout 登出，access token 与可选的 refresh token 加入黑名单
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	// body 可为空
	_ = c.ShouldBindJSON(&req)

	if err := h.authSvc.Logout(c.Request.Context(), GetClaims(c), req.RefreshToken); err != nil {
		internalError(c, err)
		return
	}
	response.OK(c, nil)
}

// Me 当前档案
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	profile, err := h.authSvc.Me(c.Request.Context(), userID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.OK(c, profile)
}

// ChangePassword 修改密码
// PUT /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.OK(c, nil)
}

// ChangeEmail 修改邮箱
// PUT /api/v1/auth/email
func (h *AuthHandler) ChangeEmail(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.ChangeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	profile, err := h.authSvc.ChangeEmail(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.OK(c, profile)
}

func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, 11001, "이메일 또는 비밀번호가 올바르지 않습니다.")
	case errors.Is(err, service.ErrEmailTaken):
		response.Conflict(c, 11002, "이미 사용 중인 이메일입니다.")
	case errors.Is(err, service.ErrWrongPassword):
		response.BadRequest(c, 11003, "현재 비밀번호가 올바르지 않습니다.")
	case errors.Is(err, service.ErrSamePassword):
		response.BadRequest(c, 11004, "새 비밀번호가 현재 비밀번호와 같습니다.")
	case errors.Is(err, service.ErrPasswordTooShort):
		response.BadRequest(c, 11005, "비밀번호는 4자 이상이어야 합니다.")
	case errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, service.ErrTokenTypeInvalid),
		errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenInvalid):
		response.Unauthorized(c, 11006, "로그인이 만료되었습니다. 다시 로그인해주세요.")
	case errors.Is(err, service.ErrProfileNotFound):
		response.Error(c, http.StatusNotFound, 12001, "회원 정보를 찾을 수 없습니다.")
	default:
		internalError(c, err)
	}
}
