package observability

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/KDrAmina/gimpogugak/config"
)

// InitSentry 初始化错误上报，DSN 为空时返回空操作
// 返回的 flush 函数应在进程退出前调用
func InitSentry(cfg *config.SentryConfig) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureErr 上报错误，附带请求标签
func CaptureErr(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// CapturePanic 上报 panic 值
func CapturePanic(rec interface{}, tags map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CurrentHub().Recover(rec)
	})
}
