package dto

// ── 日历模块 DTO ──

// CalendarQuery 月份参数，格式 YYYY-MM，缺省为本月
type CalendarQuery struct {
	Month string `form:"month" binding:"omitempty,len=7"`
}

// CalendarEntry 日历中的一条出勤记录（已关联学员与分类）
type CalendarEntry struct {
	ID            string `json:"id"`
	LessonID      string `json:"lesson_id"`
	SessionNumber int    `json:"session_number"`
	CompletedDate string `json:"completed_date"`
	StudentName   string `json:"student_name"`
	Category      string `json:"category"`
}

// CalendarDay 月视图中的一天
type CalendarDay struct {
	Day        int             `json:"day"`
	DateKey    string          `json:"date_key"`
	Sessions   []CalendarEntry `json:"sessions"`
	HasRenewal bool            `json:"has_renewal"` // 当天有第 4 的倍数课次
}

// MonthGrid 月视图
type MonthGrid struct {
	Year         int           `json:"year"`
	Month        int           `json:"month"`
	FirstWeekday int           `json:"first_weekday"` // 0=周日
	Days         []CalendarDay `json:"days"`
}

// EligibleLesson 可按日期补录的课程
type EligibleLesson struct {
	LessonID       string `json:"lesson_id"`
	StudentName    string `json:"student_name"`
	Category       string `json:"category"`
	CurrentSession int    `json:"current_session"`
}

// CalendarDayResponse 某日详情；无记录时给出可补录的课程
type CalendarDayResponse struct {
	Date     string           `json:"date"`
	Sessions []CalendarEntry  `json:"sessions"`
	Eligible []EligibleLesson `json:"eligible"`
}
