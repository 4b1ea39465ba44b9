package handler

import (
	"go.uber.org/zap"

	"github.com/KDrAmina/gimpogugak/config"
	"github.com/KDrAmina/gimpogugak/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	Status   *StatusHandler
	Approval *ApprovalHandler
	Lesson   *LessonHandler
	Calendar *CalendarHandler
	Post     *PostHandler
	Export   *ExportHandler
	Site     *SiteHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth),
		Status:   NewStatusHandler(svc.Session, svc.Notifier, cfg.Server.CORS.AllowOrigins, logger),
		Approval: NewApprovalHandler(svc.Approval, svc.Student),
		Lesson:   NewLessonHandler(svc.Lesson, svc.Site),
		Calendar: NewCalendarHandler(svc.Calendar),
		Post:     NewPostHandler(svc.Post),
		Export:   NewExportHandler(svc.Export),
		Site:     NewSiteHandler(svc.Site),
	}
}
