package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KDrAmina/gimpogugak/config"
	"github.com/KDrAmina/gimpogugak/internal/api/handler"
	"github.com/KDrAmina/gimpogugak/internal/api/middleware"
	"github.com/KDrAmina/gimpogugak/internal/service"
	"github.com/KDrAmina/gimpogugak/pkg/jwt"
	"github.com/KDrAmina/gimpogugak/pkg/metrics"
	"github.com/KDrAmina/gimpogugak/pkg/redis"
)

// 登录与注册限流：每个 IP 每分钟 10 次
const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时不启用黑名单与限流
func Setup(cfg *config.Config, h *handler.Handler, sessions service.SessionService, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 避免把 nil 指针装进接口
	var (
		blacklist middleware.Blacklist
		limiter   middleware.Limiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", healthCheck(db, rdb))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		v1.GET("/site", h.Site.Info)

		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", middleware.RateLimit(limiter, authRateLimit, authRateWindow), h.Auth.Signup)
			auth.POST("/login", middleware.RateLimit(limiter, authRateLimit, authRateWindow), h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的路由（任意审批状态）
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist, sessions))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)
			authorized.PUT("/auth/email", h.Auth.ChangeEmail)
			authorized.GET("/auth/status/ws", h.Status.Watch)
		}

		// 已审批会员
		member := authorized.Group("")
		member.Use(middleware.RequireActive())
		{
			member.GET("/posts", h.Post.List)
			member.GET("/posts/:id", h.Post.Get)
			member.GET("/my/lesson", h.Lesson.MyLesson)
			member.GET("/my/lesson/inquiry", h.Lesson.MyInquiry)
		}

		// 管理员
		admin := authorized.Group("/admin")
		admin.Use(middleware.AdminOnly())
		{
			admin.GET("/dashboard", h.Approval.Dashboard)

			approvals := admin.Group("/approvals")
			{
				approvals.GET("", h.Approval.ListPending)
				approvals.POST("/:id/approve", h.Approval.Approve)
				approvals.POST("/:id/reject", h.Approval.Reject)
			}

			students := admin.Group("/students")
			{
				students.GET("", h.Approval.ListStudents)
				students.POST("/outreach", h.Approval.Outreach)
			}

			lessons := admin.Group("/lessons")
			{
				lessons.GET("", h.Lesson.List)
				lessons.GET("/unassigned", h.Lesson.ListUnassigned)
				lessons.GET("/history", h.Calendar.Recent)
				lessons.POST("", h.Lesson.Create)
				lessons.POST("/:id/check-in", h.Lesson.CheckIn)
				lessons.POST("/:id/undo", h.Lesson.Undo)
				lessons.POST("/:id/sessions", h.Lesson.RecordSession)
				lessons.POST("/:id/renew", h.Lesson.Renew)
				lessons.POST("/:id/end", h.Lesson.End)
				lessons.POST("/:id/restore", h.Lesson.Restore)
				lessons.DELETE("/:id", h.Lesson.Delete)
				lessons.PUT("/:id/category", h.Lesson.UpdateCategory)
				lessons.PUT("/:id/tuition", h.Lesson.UpdateTuition)
				lessons.PUT("/:id/payment-date", h.Lesson.UpdatePaymentDate)
				lessons.GET("/:id/messages", h.Lesson.Messages)
			}

			calendar := admin.Group("/calendar")
			{
				calendar.GET("", h.Calendar.Month)
				calendar.GET("/:date", h.Calendar.Day)
			}

			posts := admin.Group("/posts")
			{
				posts.GET("", h.Post.List)
				posts.POST("", h.Post.Create)
				posts.PUT("/:id", h.Post.Update)
				posts.DELETE("/:id", h.Post.Delete)
				posts.PUT("/:id/pin", h.Post.Pin)
			}

			export := admin.Group("/export")
			{
				export.GET("/lessons.xlsx", h.Export.ExportLessons)
				export.GET("/calendar.ics", h.Export.ExportCalendar)
			}
		}
	}

	return r
}

// healthCheck 数据库不可用时返回 503；Redis 为可选依赖，只报告状态
func healthCheck(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "db": "ok", "redis": "disabled"}
		code := http.StatusOK

		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
				status["status"], status["db"] = "degraded", "down"
				code = http.StatusServiceUnavailable
			}
		}
		if rdb != nil {
			status["redis"] = "ok"
			if err := rdb.Ping(ctx); err != nil {
				status["redis"] = "down"
			}
		}
		c.JSON(code, status)
	}
}
