package model

import (
	"strconv"
	"time"

	pkgerrors "github.com/KDrAmina/gimpogugak/pkg/errors"
)

// LessonHistory 出勤记录表，对应 lesson_history
type LessonHistory struct {
	ID            string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	LessonID      string    `gorm:"type:uuid;not null"                             json:"lesson_id"`
	Cycle         int       `gorm:"not null;default:1"                             json:"cycle"`
	SessionNumber int       `gorm:"type:smallint;not null"                         json:"session_number"`
	CompletedDate Date      `gorm:"type:date;not null"                             json:"completed_date"`
	Note          *string   `gorm:"type:text"                                      json:"note,omitempty"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Lesson *Lesson `gorm:"foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
}

// TableName 指定表名
func (LessonHistory) TableName() string { return "lesson_history" }

// Validate 校验从数据库读出的行
func (h *LessonHistory) Validate() error {
	if h.SessionNumber < 1 || h.SessionNumber > MaxSessions {
		return &pkgerrors.RowError{Table: "lesson_history", ID: h.ID, Field: "session_number", Reason: "超出 1-" + strconv.Itoa(MaxSessions)}
	}
	if _, err := ParseDate(string(h.CompletedDate)); err != nil {
		return &pkgerrors.RowError{Table: "lesson_history", ID: h.ID, Field: "completed_date", Reason: err.Error()}
	}
	return nil
}
