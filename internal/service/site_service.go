package service

import (
	"github.com/KDrAmina/gimpogugak/config"
	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/pkg/messaging"
)

// SiteService 站点公开信息与学员咨询文案
type SiteService interface {
	Info() *dto.SiteInfoResponse
	Inquiry(studentName string) *dto.InquiryResponse
}

type siteService struct {
	cfg *config.SiteConfig
}

// NewSiteService 创建 SiteService 实例
func NewSiteService(cfg *config.SiteConfig) SiteService {
	return &siteService{cfg: cfg}
}

func (s *siteService) Info() *dto.SiteInfoResponse {
	resp := &dto.SiteInfoResponse{
		Name:         s.cfg.Name,
		BaseURL:      s.cfg.BaseURL,
		ContactPhone: s.cfg.ContactPhone,
		ChatURL:      s.cfg.ChatURL,
		Address:      s.cfg.Address,
	}
	if u, ok := messaging.KakaoTalkURL(s.cfg.ContactPhone); ok {
		resp.KakaoURL = &u
	}
	if u, ok := messaging.SMSURL(s.cfg.ContactPhone, ""); ok {
		resp.SMSURL = &u
	}
	return resp
}

func (s *siteService) Inquiry(studentName string) *dto.InquiryResponse {
	msg := messaging.InquiryMessage(studentName)
	resp := &dto.InquiryResponse{
		Message:      msg,
		ContactPhone: s.cfg.ContactPhone,
	}
	if u, ok := messaging.KakaoTalkURL(s.cfg.ContactPhone); ok {
		resp.KakaoURL = &u
	}
	if u, ok := messaging.SMSURL(s.cfg.ContactPhone, msg); ok {
		resp.SMSURL = &u
	}
	return resp
}
