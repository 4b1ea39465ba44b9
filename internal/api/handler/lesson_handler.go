package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/service"
	pkgerrors "github.com/KDrAmina/gimpogugak/pkg/errors"
	"github.com/KDrAmina/gimpogugak/pkg/response"
)

// LessonHandler 课程与课次 HTTP 处理器
type LessonHandler struct {
	lessonSvc service.LessonService
	siteSvc   service.SiteService
}

// NewLessonHandler 创建 LessonHandler
func NewLessonHandler(lessonSvc service.LessonService, siteSvc service.SiteService) *LessonHandler {
	return &LessonHandler{lessonSvc: lessonSvc, siteSvc: siteSvc}
}

// ────────────────────── 列表 / 创建 ──────────────────────

// List 课程列表
// GET /api/v1/admin/lessons?status=active|inactive|all&category=&sort=remaining|name|date
func (h *LessonHandler) List(c *gin.Context) {
	var query dto.LessonListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.lessonSvc.List(c.Request.Context(), &query)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	response.OKList(c, list, len(list))
}

// ListUnassigned 尚未分配课程的学员
// GET /api/v1/admin/lessons/unassigned?q=
func (h *LessonHandler) ListUnassigned(c *gin.Context) {
	var query dto.UnassignedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.lessonSvc.ListUnassigned(c.Request.Context(), &query)
	if err != nil {
		internalError(c, err)
		return
	}
	response.OKList(c, list, len(list))
}

// Create 为学员创建课程
// POST /api/v1/admin/lessons
func (h *LessonHandler) Create(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	lesson, err := h.lessonSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	response.Created(c, lesson)
}

// ────────────────────── 课次 ──────────────────────

// CheckIn 今日签到
// POST /api/v1/admin/lessons/:id/check-in
func (h *LessonHandler) CheckIn(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	lessonID, err := pathID(c, service.ErrLessonNotFound)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	result, err := h.lessonSvc.CheckIn(c.Request.Context(), lessonID, callerID)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	response.OK(c, result)
}

// Undo 撤销最近一次课次
// POST /api/v1/admin/lessons/:id/undo
func (h *LessonHandler) Undo(c *gin.Context) {
	h.mutate(c, h.lessonSvc.Undo)
}

// RecordSession 按日期补录课次
// POST /api/v1/admin/lessons/:id/sessions
func (h *LessonHandler) RecordSession(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	lessonID, err := pathID(c, service.ErrLessonNotFound)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	var req dto.RecordSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.lessonSvc.RecordAtDate(c.Request.Context(), lessonID, &req, callerID)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	response.OK(c, result)
}

// Renew 续费，课次归零
// POST /api/v1/admin/lessons/:id/renew
func (h *LessonHandler) Renew(c *gin.Context) {
	h.mutate(c, h.lessonSvc.Renew)
}

// End 结束课程
// POST /api/v1/admin/lessons/:id/end
func (h *LessonHandler) End(c *gin.Context) {
	h.mutate(c, h.lessonSvc.End)
}

// Restore 恢复已结束的课程
// POST /api/v1/admin/lessons/:id/restore
func (h *LessonHandler) Restore(c *gin.Context) {
	h.mutate(c, h.lessonSvc.Restore)
}

// Delete 删除课程及其出勤记录
// DELETE /api/v1/admin/lessons/:id
func (h *LessonHandler) Delete(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	lessonID, err := pathID(c, service.ErrLessonNotFound)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	if err := h.lessonSvc.Delete(c.Request.Context(), lessonID, callerID); err != nil {
		h.handleLessonError(c, err)
		return
	}
	response.OK(c, nil)
}

type lessonMutation func(ctx context.Context, lessonID, callerID string) (*dto.LessonResponse, error)

func (h *LessonHandler) mutate(c *gin.Context, fn lessonMutation) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	lessonID, err := pathID(c, service.ErrLessonNotFound)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	lesson, err := fn(c.Request.Context(), lessonID, callerID)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	response.OK(c, lesson)
}

// ────────────────────── 字段修改 ──────────────────────

// UpdateCategory 修改分类
// PUT /api/v1/admin/lessons/:id/category
func (h *LessonHandler) UpdateCategory(c *gin.Context) {
	lessonID, err := pathID(c, service.ErrLessonNotFound)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	var req dto.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	lesson, err := h.lessonSvc.UpdateCategory(c.Request.Context(), lessonID, &req)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	response.OK(c, lesson)
}

// UpdateTuition 修改学费
// PUT /api/v1/admin/lessons/:id/tuition
func (h *LessonHandler) UpdateTuition(c *gin.Context) {
	lessonID, err := pathID(c, service.ErrLessonNotFound)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	var req dto.UpdateTuitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	lesson, err := h.lessonSvc.UpdateTuition(c.Request.Context(), lessonID, &req)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	response.OK(c, lesson)
}

// UpdatePaymentDate 修改缴费日期
// PUT /api/v1/admin/lessons/:id/payment-date
func (h *LessonHandler) UpdatePaymentDate(c *gin.Context) {
	lessonID, err := pathID(c, service.ErrLessonNotFound)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	var req dto.UpdatePaymentDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	lesson, err := h.lessonSvc.UpdatePaymentDate(c.Request.Context(), lessonID, &req)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	response.OK(c, lesson)
}

// ────────────────────── 文案 / 本人课程 ──────────────────────

// Messages 单个课程的缴费通知文案
// GET /api/v1/admin/lessons/:id/messages
func (h *LessonHandler) Messages(c *gin.Context) {
	lessonID, err := pathID(c, service.ErrLessonNotFound)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	msgs, err := h.lessonSvc.Messages(c.Request.Context(), lessonID)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}
	response.OK(c, msgs)
}

// MyLesson 学员本人的进行中课程与出勤记录
// GET /api/v1/my/lesson
func (h *LessonHandler) MyLesson(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	result, err := h.lessonSvc.MyLesson(c.Request.Context(), userID)
	if err != nil {
		internalError(c, err)
		return
	}
	response.OK(c, result)
}

// MyInquiry 学员咨询文案与联系链接
// GET /api/v1/my/lesson/inquiry
func (h *LessonHandler) MyInquiry(c *gin.Context) {
	profile, ok := MustGetProfile(c)
	if !ok {
		return
	}
	response.OK(c, h.siteSvc.Inquiry(profile.Name))
}

func (h *LessonHandler) handleLessonError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLessonNotFound):
		response.NotFound(c, 13001, "수업 정보를 찾을 수 없습니다.")
	case errors.Is(err, service.ErrSessionLimitReached):
		response.Conflict(c, 13002, "이미 4회차를 모두 완료했습니다. 재등록 후 출석 처리해주세요.")
	case errors.Is(err, service.ErrNoSessionToUndo):
		response.Conflict(c, 13003, "취소할 출석 기록이 없습니다.")
	case errors.Is(err, service.ErrLessonInactive):
		response.Conflict(c, 13004, "종료된 수업입니다.")
	case errors.Is(err, service.ErrActiveLessonExists):
		response.Conflict(c, 13005, "이미 수강 중인 다른 수업이 있습니다.")
	case errors.Is(err, service.ErrLessonAlreadyAssigned):
		response.Conflict(c, 13006, "이미 수업이 배정된 회원입니다.")
	case errors.Is(err, service.ErrProfileNotEligible):
		response.BadRequest(c, 13007, "승인된 일반 회원에게만 수업을 배정할 수 있습니다.")
	case errors.Is(err, service.ErrInvalidCategory):
		response.BadRequest(c, 13008, "수업 분류를 확인해주세요.")
	case errors.Is(err, service.ErrInvalidTuition):
		response.BadRequest(c, 13009, "수강료는 0 이상이어야 합니다.")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 13010, "날짜 형식이 올바르지 않습니다.")
	case errors.Is(err, service.ErrSessionAlreadyRecorded):
		response.Conflict(c, 13011, "이미 기록된 회차입니다. 새로고침 후 다시 시도해주세요.")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 13012, "다른 곳에서 수업 정보가 변경되었습니다. 새로고침 후 다시 시도해주세요.")
	default:
		internalError(c, err)
	}
}
