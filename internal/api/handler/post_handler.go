package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/service"
	"github.com/KDrAmina/gimpogugak/pkg/response"
)

// PostHandler 公告 HTTP 处理器
type PostHandler struct {
	postSvc service.PostService
}

// NewPostHandler 创建 PostHandler
func NewPostHandler(postSvc service.PostService) *PostHandler {
	return &PostHandler{postSvc: postSvc}
}

// List 公告列表，置顶在前
// GET /api/v1/posts?category=일반|수업|행사|공연|모집|전체
func (h *PostHandler) List(c *gin.Context) {
	var query dto.PostListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.postSvc.List(c.Request.Context(), &query)
	if err != nil {
		internalError(c, err)
		return
	}
	response.OKList(c, list, len(list))
}

// Get 公告详情，附带渲染后的 HTML
// GET /api/v1/posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	postID, err := pathID(c, service.ErrPostNotFound)
	if err != nil {
		h.handlePostError(c, err)
		return
	}
	post, err := h.postSvc.Get(c.Request.Context(), postID)
	if err != nil {
		h.handlePostError(c, err)
		return
	}
	response.OK(c, post)
}

// Create 发布公告
// POST /api/v1/admin/posts
func (h *PostHandler) Create(c *gin.Context) {
	authorID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	post, err := h.postSvc.Create(c.Request.Context(), &req, authorID)
	if err != nil {
		h.handlePostError(c, err)
		return
	}
	response.Created(c, post)
}

// Update 修改公告
// PUT /api/v1/admin/posts/:id
func (h *PostHandler) Update(c *gin.Context) {
	postID, err := pathID(c, service.ErrPostNotFound)
	if err != nil {
		h.handlePostError(c, err)
		return
	}
	var req dto.PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	post, err := h.postSvc.Update(c.Request.Context(), postID, &req)
	if err != nil {
		h.handlePostError(c, err)
		return
	}
	response.OK(c, post)
}

// Pin 置顶开关
// PUT /api/v1/admin/posts/:id/pin
func (h *PostHandler) Pin(c *gin.Context) {
	postID, err := pathID(c, service.ErrPostNotFound)
	if err != nil {
		h.handlePostError(c, err)
		return
	}
	var req dto.PinPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.postSvc.SetPinned(c.Request.Context(), postID, *req.IsPinned); err != nil {
		h.handlePostError(c, err)
		return
	}
	response.OK(c, nil)
}

// Delete 删除公告
// DELETE /api/v1/admin/posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	postID, err := pathID(c, service.ErrPostNotFound)
	if err != nil {
		h.handlePostError(c, err)
		return
	}
	if err := h.postSvc.Delete(c.Request.Context(), postID); err != nil {
		h.handlePostError(c, err)
		return
	}
	response.OK(c, nil)
}

func (h *PostHandler) handlePostError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrPostNotFound) {
		response.NotFound(c, 14001, "게시글을 찾을 수 없습니다.")
		return
	}
	internalError(c, err)
}
