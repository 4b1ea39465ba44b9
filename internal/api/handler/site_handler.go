package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/KDrAmina/gimpogugak/internal/service"
	"github.com/KDrAmina/gimpogugak/pkg/response"
)

// SiteHandler 站点公开信息
type SiteHandler struct {
	siteSvc service.SiteService
}

// NewSiteHandler 创建 SiteHandler
func NewSiteHandler(siteSvc service.SiteService) *SiteHandler {
	return &SiteHandler{siteSvc: siteSvc}
}

// Info 站点名称、联系方式与联系链接
// GET /api/v1/site
func (h *SiteHandler) Info(c *gin.Context) {
	response.OK(c, h.siteSvc.Info())
}
