package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KDrAmina/gimpogugak/pkg/metrics"
)

// Metrics 按路由模板统计请求数与耗时，未匹配的路径归为 unmatched 防止标签膨胀
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
