package dto

// ── 档案 / 学员模块 DTO ──

// ProfileResponse 档案信息（脱敏）
type ProfileResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// StudentListQuery 学员列表查询参数
type StudentListQuery struct {
	Sort  string `form:"sort"  binding:"omitempty,oneof=name created_at"`
	Order string `form:"order" binding:"omitempty,oneof=asc desc"`
}

// 学员课程状态
const (
	LessonStatusActive = "active"
	LessonStatusEnded  = "ended"
	LessonStatusNone   = "none"
)

// StudentResponse 学员列表项
type StudentResponse struct {
	ProfileResponse
	LessonStatus string  `json:"lesson_status"` // active | ended | none
	LessonID     *string `json:"lesson_id,omitempty"`
}

// 群发模板类型
const (
	OutreachGeneral = "general"
	OutreachTuition = "tuition"
	OutreachCustom  = "custom"
)

// OutreachRequest 群发文案请求
type OutreachRequest struct {
	ProfileIDs []string `json:"profile_ids" binding:"required,min=1,dive,uuid"`
	Type       string   `json:"type"        binding:"required,oneof=general tuition custom"`
	Template   string   `json:"template"    binding:"omitempty,max=2000"` // custom 时必填，[이름] 为姓名占位符
}

// OutreachItem 单个学员的文案与链接
type OutreachItem struct {
	ProfileID string  `json:"profile_id"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Message   string  `json:"message"`
	SMSURL    *string `json:"sms_url"`
	KakaoURL  *string `json:"kakao_url"`
}

// OutreachResponse 群发结果，按请求顺序
type OutreachResponse struct {
	Template string         `json:"template"`
	Items    []OutreachItem `json:"items"`
	Skipped  []string       `json:"skipped"` // 无联系方式或不可发送的档案 ID
}

// DashboardResponse 管理首页统计
type DashboardResponse struct {
	PendingCount       int64 `json:"pending_count"`
	ActiveLessonCount  int64 `json:"active_lesson_count"`
	RenewalNeededCount int64 `json:"renewal_needed_count"`
}

// SiteInfoResponse 站点公开信息
type SiteInfoResponse struct {
	Name         string  `json:"name"`
	BaseURL      string  `json:"base_url"`
	ContactPhone string  `json:"contact_phone"`
	ChatURL      string  `json:"chat_url"`
	Address      string  `json:"address"`
	KakaoURL     *string `json:"kakao_url"`
	SMSURL       *string `json:"sms_url"`
}
