package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/service"
	"github.com/KDrAmina/gimpogugak/pkg/response"
)

// CalendarHandler 出勤日历 HTTP 处理器
type CalendarHandler struct {
	calendarSvc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc}
}

// Month 月视图
// GET /api/v1/admin/calendar?month=YYYY-MM
func (h *CalendarHandler) Month(c *gin.Context) {
	var query dto.CalendarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}
	grid, err := h.calendarSvc.Month(c.Request.Context(), query.Month)
	if err != nil {
		h.handleCalendarError(c, err)
		return
	}
	response.OK(c, grid)
}

// Day 某日详情
// GET /api/v1/admin/calendar/:date
func (h *CalendarHandler) Day(c *gin.Context) {
	day, err := h.calendarSvc.Day(c.Request.Context(), c.Param("date"))
	if err != nil {
		h.handleCalendarError(c, err)
		return
	}
	response.OK(c, day)
}

// Recent 最近的出勤记录
// GET /api/v1/admin/lessons/history
func (h *CalendarHandler) Recent(c *gin.Context) {
	list, err := h.calendarSvc.Recent(c.Request.Context())
	if err != nil {
		h.handleCalendarError(c, err)
		return
	}
	response.OKList(c, list, len(list))
}

func (h *CalendarHandler) handleCalendarError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 13010, "날짜 형식이 올바르지 않습니다.")
	case errors.Is(err, service.ErrInvalidMonth):
		response.BadRequest(c, 13013, "월 형식이 올바르지 않습니다. (예: 2026-03)")
	default:
		internalError(c, err)
	}
}
