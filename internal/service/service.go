package service

import (
	"go.uber.org/zap"

	"github.com/KDrAmina/gimpogugak/config"
	"github.com/KDrAmina/gimpogugak/internal/repository"
	"github.com/KDrAmina/gimpogugak/pkg/jwt"
	"github.com/KDrAmina/gimpogugak/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth     AuthService
	Session  SessionService
	Notifier StatusNotifier
	Approval ApprovalService
	Student  StudentService
	Lesson   LessonService
	Calendar CalendarService
	Post     PostService
	Export   ExportService
	Site     SiteService
}

// NewService 创建 Service 聚合
// rdb 为 nil 时不启用 Token 黑名单与档案缓存，状态推送退化为进程内实现
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	var (
		blacklist TokenBlacklist
		cache     ProfileCache
		notifier  StatusNotifier
	)
	if rdb != nil {
		blacklist = rdb
		cache = rdb
		notifier = NewRedisStatusNotifier(rdb)
	} else {
		notifier = NewMemoryStatusNotifier()
	}

	loc := cfg.Site.Location()
	session := NewSessionService(repo, cache, cfg.Auth.SessionCacheTTL, logger)

	return &Service{
		Auth:     NewAuthService(cfg, repo, jwtMgr, blacklist, session, logger),
		Session:  session,
		Notifier: notifier,
		Approval: NewApprovalService(repo, session, notifier, logger),
		Student:  NewStudentService(repo, loc, logger),
		Lesson:   NewLessonService(repo, loc, logger),
		Calendar: NewCalendarService(repo, cfg.Lesson.HistoryLimit, loc, logger),
		Post:     NewPostService(repo, logger),
		Export:   NewExportService(repo, cfg.Site.Name, loc, logger),
		Site:     NewSiteService(&cfg.Site),
	}
}
