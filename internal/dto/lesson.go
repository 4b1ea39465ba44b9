package dto

// ── 课程模块 DTO ──

// CreateLessonRequest 为未分配学员创建课程
type CreateLessonRequest struct {
	UserID        string   `json:"user_id"        binding:"required,uuid"`
	Categories    []string `json:"categories"     binding:"required,lesson_category"`
	TuitionAmount int      `json:"tuition_amount" binding:"min=0"`
	PaymentDate   string   `json:"payment_date"   binding:"omitempty,ymd"`
}

// LessonListQuery 课程列表查询参数
type LessonListQuery struct {
	Status   string `form:"status"   binding:"omitempty,oneof=active inactive all"`
	Category string `form:"category" binding:"omitempty,max=32"`
	Sort     string `form:"sort"     binding:"omitempty,oneof=remaining name date"`
}

// UnassignedQuery 未分配学员搜索
type UnassignedQuery struct {
	Q string `form:"q" binding:"omitempty,max=100"`
}

// RecordSessionRequest 按日期补录课次
type RecordSessionRequest struct {
	Date string  `json:"date" binding:"required,ymd"`
	Note *string `json:"note" binding:"omitempty,max=500"`
}

// UpdateCategoryRequest 修改课程分类
type UpdateCategoryRequest struct {
	Categories []string `json:"categories" binding:"required,lesson_category"`
}

// UpdateTuitionRequest 修改学费
type UpdateTuitionRequest struct {
	TuitionAmount *int `json:"tuition_amount" binding:"required,min=0"`
}

// UpdatePaymentDateRequest 修改缴费日期
type UpdatePaymentDateRequest struct {
	PaymentDate string `json:"payment_date" binding:"required,ymd"`
}

// LessonResponse 课程信息
type LessonResponse struct {
	ID             string   `json:"id"`
	UserID         string   `json:"user_id"`
	StudentName    string   `json:"student_name"`
	StudentEmail   string   `json:"student_email"`
	StudentPhone   string   `json:"student_phone"`
	Category       string   `json:"category"`
	Categories     []string `json:"categories"`
	CurrentSession int      `json:"current_session"`
	Remaining      int      `json:"remaining"`
	Cycle          int      `json:"cycle"`
	TuitionAmount  int      `json:"tuition_amount"`
	PaymentDate    *string  `json:"payment_date"`
	IsActive       bool     `json:"is_active"`
	RenewalNeeded  bool     `json:"renewal_needed"`
	Version        int      `json:"version"`
	CreatedAt      string   `json:"created_at"`
}

// SessionResult 签到 / 补录结果
type SessionResult struct {
	Lesson        LessonResponse `json:"lesson"`
	SessionNumber int            `json:"session_number"`
	CompletedDate string         `json:"completed_date"`
	RenewalNeeded bool           `json:"renewal_needed"`
}

// HistoryResponse 出勤记录
type HistoryResponse struct {
	ID            string  `json:"id"`
	LessonID      string  `json:"lesson_id"`
	Cycle         int     `json:"cycle"`
	SessionNumber int     `json:"session_number"`
	CompletedDate string  `json:"completed_date"`
	Note          *string `json:"note,omitempty"`
}

// LessonMessagesResponse 单个课程的联络文案
type LessonMessagesResponse struct {
	StudentName string  `json:"student_name"`
	Phone       string  `json:"phone"`
	Greeting    string  `json:"greeting"`
	TuitionDue  string  `json:"tuition_due"`
	Reminder    string  `json:"reminder"`
	SMSURL      *string `json:"sms_url"` // 正文为 tuition_due
	KakaoURL    *string `json:"kakao_url"`
}

// MyLessonResponse 学员本人的课程
type MyLessonResponse struct {
	Lesson  *LessonResponse   `json:"lesson"`
	History []HistoryResponse `json:"history"`
}

// InquiryResponse 学员咨询文案
type InquiryResponse struct {
	Message      string  `json:"message"`
	ContactPhone string  `json:"contact_phone"`
	KakaoURL     *string `json:"kakao_url"`
	SMSURL       *string `json:"sms_url"`
}
