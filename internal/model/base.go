package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DateLayout 日期统一格式
const DateLayout = "2006-01-02"

// ── PostgreSQL DATE 自定义类型 ──

// Date 对应 PostgreSQL DATE，以 "YYYY-MM-DD" 文本保存，避免时区换算。
// 日历按字符串相等匹配日期，因此统一使用该表示。
type Date string

// ParseDate 校验并构造 Date
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("日期格式无效 %q: %w", s, err)
	}
	return Date(s), nil
}

// DateOf 取 t 在 loc 时区下的日期
func DateOf(t time.Time, loc *time.Location) Date {
	return Date(t.In(loc).Format(DateLayout))
}

// String 实现 fmt.Stringer
func (d Date) String() string { return string(d) }

// Time 解析为当天 00:00 UTC
func (d Date) Time() (time.Time, error) {
	return time.Parse(DateLayout, string(d))
}

// Scan 兼容驱动返回的 time.Time / []byte / string。
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = Date(v.Format(DateLayout))
	case []byte:
		*d = Date(trimDate(string(v)))
	case string:
		*d = Date(trimDate(v))
	default:
		return fmt.Errorf("Date.Scan: unsupported type %T", src)
	}
	return nil
}

// Value 空串写入 NULL。
func (d Date) Value() (driver.Value, error) {
	if d == "" {
		return nil, nil
	}
	return string(d), nil
}

// trimDate 截掉 "2026-03-05T00:00:00Z" 之类的时间部分
func trimDate(s string) string {
	if len(s) > len(DateLayout) {
		return s[:len(DateLayout)]
	}
	return s
}

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// VersionedModel 支持乐观锁的模型
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}
