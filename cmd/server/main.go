package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/KDrAmina/gimpogugak/config"
	"github.com/KDrAmina/gimpogugak/internal/api/handler"
	"github.com/KDrAmina/gimpogugak/internal/api/router"
	"github.com/KDrAmina/gimpogugak/internal/model"
	"github.com/KDrAmina/gimpogugak/internal/repository"
	"github.com/KDrAmina/gimpogugak/internal/service"
	"github.com/KDrAmina/gimpogugak/pkg/database"
	"github.com/KDrAmina/gimpogugak/pkg/jwt"
	applogger "github.com/KDrAmina/gimpogugak/pkg/logger"
	"github.com/KDrAmina/gimpogugak/pkg/observability"
	"github.com/KDrAmina/gimpogugak/pkg/redis"
	"github.com/KDrAmina/gimpogugak/pkg/validator"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("GUGAK_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Site.Timezone),
	)

	// 2.1 错误上报（DSN 为空时不启用）
	flushSentry, err := observability.InitSentry(&cfg.Sentry)
	if err != nil {
		logger.Warn("Sentry 初始化失败，错误上报不可用", zap.Error(err))
	}
	defer flushSentry()

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单、限流与档案缓存将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 初始化 JWT 管理器与绑定校验标签
	jwtMgr := jwt.NewManager(&cfg.Auth)
	if err := validator.RegisterGin(validator.Options{
		LessonCategories: model.LessonCategories,
		PostCategories:   model.PostCategories,
	}); err != nil {
		logger.Fatal("注册校验规则失败", zap.Error(err))
	}

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, rdb, logger)
	h := handler.NewHandler(cfg, svc, logger)

	// 6.1 初始管理员
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := svc.Auth.EnsureAdmin(bootCtx); err != nil {
		logger.Error("初始化管理员账号失败", zap.Error(err))
	}
	bootCancel()

	// 7. 初始化路由
	engine := router.Setup(cfg, h, svc.Session, jwtMgr, rdb, db, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
