package handler

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/service"
	"github.com/KDrAmina/gimpogugak/pkg/messaging"
	"github.com/KDrAmina/gimpogugak/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportLessons 导出课程名单与出勤记录
// GET /api/v1/admin/export/lessons.xlsx
func (h *ExportHandler) ExportLessons(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportLessons(c.Request.Context())
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	attachment(c, buf, filename, contentTypeXLSX)
}

// ExportCalendar 导出某月出勤日历
// GET /api/v1/admin/export/calendar.ics?month=YYYY-MM
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	var query dto.CalendarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}
	buf, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), query.Month)
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	attachment(c, buf, filename, contentTypeICS)
}

func attachment(c *gin.Context, buf *bytes.Buffer, filename, contentType string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+messaging.EncodeURIComponent(filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidMonth) {
		response.BadRequest(c, 13013, "월 형식이 올바르지 않습니다. (예: 2026-03)")
		return
	}
	internalError(c, err)
}
