package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KDrAmina/gimpogugak/pkg/response"
)

// BodyLimit 全局请求体大小限制中间件
// 超出限制时 Content-Length 可知的请求直接拒绝，其余在读取时由 MaxBytesReader 截断
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			tooLarge(c)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		for _, err := range c.Errors {
			var maxErr *http.MaxBytesError
			if errors.As(err.Err, &maxErr) {
				tooLarge(c)
				return
			}
		}
	}
}

func tooLarge(c *gin.Context) {
	response.Error(c, http.StatusRequestEntityTooLarge, 10005, "요청 크기가 너무 큽니다.")
	c.Abort()
}
