package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KDrAmina/gimpogugak/pkg/observability"
	"github.com/KDrAmina/gimpogugak/pkg/response"
)

// Recovery panic 恢复中间件
// panic 与 5xx 响应中记录的错误上报 Sentry（未配置 DSN 时为空操作）
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				tags := requestTags(c)
				observability.CapturePanic(rec, tags)
				logger.Error("请求处理 panic",
					zap.Any("panic", rec),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", tags["request_id"]),
					zap.Stack("stack"),
				)
				if !c.Writer.Written() {
					response.InternalError(c)
				}
				c.Abort()
			}
		}()

		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			tags := requestTags(c)
			for _, e := range c.Errors.ByType(gin.ErrorTypePrivate) {
				observability.CaptureErr(e.Err, tags)
			}
		}
	}
}

func requestTags(c *gin.Context) map[string]string {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	return map[string]string{
		"method":     c.Request.Method,
		"route":      route,
		"request_id": c.GetString(RequestIDKey),
	}
}
