package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/service"
	"github.com/KDrAmina/gimpogugak/pkg/response"
)

// ApprovalHandler 会员审批与学员管理 HTTP 处理器
type ApprovalHandler struct {
	approvalSvc service.ApprovalService
	studentSvc  service.StudentService
}

// NewApprovalHandler 创建 ApprovalHandler
func NewApprovalHandler(approvalSvc service.ApprovalService, studentSvc service.StudentService) *ApprovalHandler {
	return &ApprovalHandler{approvalSvc: approvalSvc, studentSvc: studentSvc}
}

// Dashboard 管理首页统计
// GET /api/v1/admin/dashboard
func (h *ApprovalHandler) Dashboard(c *gin.Context) {
	stats, err := h.studentSvc.Dashboard(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	response.OK(c, stats)
}

// ListPending 待审批列表
// GET /api/v1/admin/approvals
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	list, err := h.approvalSvc.ListPending(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	response.OKList(c, list, len(list))
}

// Approve 通过审批
// POST /api/v1/admin/approvals/:id/approve
func (h *ApprovalHandler) Approve(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	profileID, err := pathID(c, service.ErrProfileNotFound)
	if err != nil {
		h.handleApprovalError(c, err, "승인")
		return
	}
	profile, err := h.approvalSvc.Approve(c.Request.Context(), profileID, callerID)
	if err != nil {
		h.handleApprovalError(c, err, "승인")
		return
	}
	response.OK(c, profile)
}

// Reject 拒绝审批
// POST /api/v1/admin/approvals/:id/reject
func (h *ApprovalHandler) Reject(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	profileID, err := pathID(c, service.ErrProfileNotFound)
	if err != nil {
		h.handleApprovalError(c, err, "거절")
		return
	}
	profile, err := h.approvalSvc.Reject(c.Request.Context(), profileID, callerID)
	if err != nil {
		h.handleApprovalError(c, err, "거절")
		return
	}
	response.OK(c, profile)
}

// ListStudents 已激活学员列表
// GET /api/v1/admin/students?sort=name|created_at&order=asc|desc
func (h *ApprovalHandler) ListStudents(c *gin.Context) {
	var query dto.StudentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.studentSvc.ListActive(c.Request.Context(), &query)
	if err != nil {
		internalError(c, err)
		return
	}
	response.OKList(c, list, len(list))
}

// Outreach 生成群发文案与链接，不实际发送
// POST /api/v1/admin/students/outreach
func (h *ApprovalHandler) Outreach(c *gin.Context) {
	var req dto.OutreachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.studentSvc.Outreach(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyTemplate):
			response.BadRequest(c, 12003, "메시지 내용을 입력해주세요.")
		case errors.Is(err, service.ErrNoRecipients):
			response.BadRequest(c, 12004, "선택한 수강생 중 연락처가 있는 사람이 없습니다.")
		default:
			internalError(c, err)
		}
		return
	}
	response.OK(c, result)
}

func (h *ApprovalHandler) handleApprovalError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		response.NotFound(c, 12001, "회원 정보를 찾을 수 없습니다.")
	case errors.Is(err, service.ErrInvalidStatusTransition):
		response.Conflict(c, 12002, action+"할 수 없는 상태입니다. 새로고침 후 다시 시도해주세요.")
	default:
		internalError(c, err)
	}
}
