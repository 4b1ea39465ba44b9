package model

import (
	"strconv"
	"strings"

	pkgerrors "github.com/KDrAmina/gimpogugak/pkg/errors"
)

// MaxSessions 一期课程的课次数
const MaxSessions = 4

// LessonCategories 课程分类（可多选）
var LessonCategories = []string{"성인단체", "성인개인", "어린이개인", "어린이단체"}

// DefaultLessonCategory 关联缺失时的占位分类
const DefaultLessonCategory = "성인개인"

const categorySeparator = ", "

// Lesson 课程表，对应 lessons
type Lesson struct {
	ID             string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID         string `gorm:"type:uuid;not null"                             json:"user_id"`
	Category       string `gorm:"type:varchar(64);not null"                      json:"category"` // 多个分类以 ", " 连接
	CurrentSession int    `gorm:"type:smallint;not null;default:0"               json:"current_session"`
	TuitionAmount  int    `gorm:"not null;default:0"                             json:"tuition_amount"`
	PaymentDate    *Date  `gorm:"type:date"                                      json:"payment_date"`
	IsActive       bool   `gorm:"not null;default:true"                          json:"is_active"`
	Cycle          int    `gorm:"not null;default:1"                             json:"cycle"` // 第几期，续费时递增
	VersionedModel

	// 关联
	Profile *Profile `gorm:"foreignKey:UserID;references:ID" json:"profile,omitempty"`
}

// TableName 指定表名
func (Lesson) TableName() string { return "lessons" }

// Categories 拆分分类字符串
func (l *Lesson) Categories() []string {
	return SplitCategories(l.Category)
}

// RenewalNeeded 4 次课已全部完成
func (l *Lesson) RenewalNeeded() bool { return l.CurrentSession >= MaxSessions }

// Eligible 可按日期补录课次
func (l *Lesson) Eligible() bool { return l.IsActive && l.CurrentSession < MaxSessions }

// Remaining 剩余课次
func (l *Lesson) Remaining() int { return MaxSessions - l.CurrentSession }

// Validate 校验从数据库读出的行
func (l *Lesson) Validate() error {
	rowErr := func(field, reason string) error {
		return &pkgerrors.RowError{Table: "lessons", ID: l.ID, Field: field, Reason: reason}
	}
	if l.CurrentSession < 0 || l.CurrentSession > MaxSessions {
		return rowErr("current_session", "超出 0-"+strconv.Itoa(MaxSessions))
	}
	if l.TuitionAmount < 0 {
		return rowErr("tuition_amount", "不能为负数")
	}
	if strings.TrimSpace(l.Category) == "" {
		return rowErr("category", "不能为空")
	}
	if l.PaymentDate != nil && *l.PaymentDate != "" {
		if _, err := ParseDate(string(*l.PaymentDate)); err != nil {
			return rowErr("payment_date", err.Error())
		}
	}
	return nil
}

// SplitCategories 按 "," 拆分并去空白
func SplitCategories(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinCategories 按固定顺序去重后以 ", " 连接
func JoinCategories(categories []string) string {
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		seen[strings.TrimSpace(c)] = true
	}
	ordered := make([]string, 0, len(categories))
	for _, c := range LessonCategories {
		if seen[c] {
			ordered = append(ordered, c)
			delete(seen, c)
		}
	}
	// 未知分类保持原样追加，由上层校验拒绝
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if seen[c] && c != "" {
			ordered = append(ordered, c)
			delete(seen, c)
		}
	}
	return strings.Join(ordered, categorySeparator)
}

// HasCategory 分类字符串中是否包含 tag
func HasCategory(category, tag string) bool {
	for _, c := range SplitCategories(category) {
		if c == tag {
			return true
		}
	}
	return false
}
