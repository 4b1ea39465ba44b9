package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/KDrAmina/gimpogugak/internal/model"
	"github.com/KDrAmina/gimpogugak/pkg/jwt"
	"github.com/KDrAmina/gimpogugak/pkg/response"
	"github.com/KDrAmina/gimpogugak/pkg/validator"
)

// 中间件写入 gin.Context 的键
const (
	CtxUserID  = "user_id"
	CtxRole    = "role"
	CtxProfile = "profile"
	CtxClaims  = "token_claims"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(CtxUserID)
	if !exists {
		response.Unauthorized(c, 10002, "로그인이 필요합니다.")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "로그인이 필요합니다.")
		return "", false
	}
	return s, true
}

// MustGetProfile 提取本次请求解析出的档案
func MustGetProfile(c *gin.Context) (*model.Profile, bool) {
	v, exists := c.Get(CtxProfile)
	if !exists {
		response.Unauthorized(c, 10002, "로그인이 필요합니다.")
		return nil, false
	}
	p, ok := v.(*model.Profile)
	if !ok || p == nil {
		response.Unauthorized(c, 10002, "로그인이 필요합니다.")
		return nil, false
	}
	return p, true
}

// GetClaims 提取 access token 声明，未认证时返回 nil
func GetClaims(c *gin.Context) *jwt.Claims {
	v, exists := c.Get(CtxClaims)
	if !exists {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}

// badRequest 参数绑定失败，details 列出字段与规则
func badRequest(c *gin.Context, err error) {
	response.ErrorWithDetails(c, 400, 10001, "입력값을 확인해주세요.", validator.Describe(err))
}

// internalError 记录错误供日志与 Sentry 中间件使用
func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	response.InternalError(c)
}

// pathID 读取路径参数 :id，非 UUID 时返回 notFound，避免数据库类型错误变成 500
func pathID(c *gin.Context, notFound error) (string, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", notFound
	}
	return id, nil
}
