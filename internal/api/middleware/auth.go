package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/KDrAmina/gimpogugak/internal/api/handler"
	"github.com/KDrAmina/gimpogugak/internal/model"
	"github.com/KDrAmina/gimpogugak/internal/service"
	"github.com/KDrAmina/gimpogugak/pkg/jwt"
	"github.com/KDrAmina/gimpogugak/pkg/response"
)

// Blacklist 已注销 Token 查询（由 pkg/redis.Client 实现）
type Blacklist interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token，
// WebSocket 升级请求可改用 access_token 查询参数。
// 档案每次请求经 SessionService 解析，状态与角色以档案为准。
// blacklist 为 nil 时跳过黑名单检查
func JWTAuth(jwtMgr *jwt.Manager, blacklist Blacklist, sessions service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			response.Unauthorized(c, 10002, "로그인이 필요합니다.")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, 10002, "로그인이 만료되었습니다. 다시 로그인해주세요.")
			c.Abort()
			return
		}
		if claims.TokenType != jwt.TokenTypeAccess {
			response.Unauthorized(c, 10002, "유효하지 않은 인증 정보입니다.")
			c.Abort()
			return
		}

		if blacklist != nil {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			// Redis 出错时降级放行
			if err == nil && revoked {
				response.Unauthorized(c, 10002, "로그아웃된 인증 정보입니다. 다시 로그인해주세요.")
				c.Abort()
				return
			}
		}

		profile, err := sessions.Resolve(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, service.ErrProfileNotFound) {
				response.Unauthorized(c, 10002, "회원 정보를 찾을 수 없습니다.")
			} else {
				_ = c.Error(err)
				response.InternalError(c)
			}
			c.Abort()
			return
		}

		c.Set(handler.CtxUserID, profile.ID)
		c.Set(handler.CtxRole, profile.Role)
		c.Set(handler.CtxProfile, profile)
		c.Set(handler.CtxClaims, claims)

		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	// 浏览器 WebSocket 无法设置请求头
	if websocket.IsWebSocketUpgrade(c.Request) {
		if token := c.Query("access_token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// RequireActive 仅允许审批通过的档案
func RequireActive() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := currentProfile(c)
		if !ok {
			return
		}
		if !profile.IsActive() {
			response.Forbidden(c, 10003, "관리자 승인 후 이용할 수 있습니다.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminOnly 仅允许已激活的管理员
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := currentProfile(c)
		if !ok {
			return
		}
		if !profile.IsAdmin() {
			response.Forbidden(c, 10003, "관리자만 접근할 수 있습니다.")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentProfile(c *gin.Context) (*model.Profile, bool) {
	profile, ok := handler.MustGetProfile(c)
	if !ok {
		c.Abort()
	}
	return profile, ok
}
