package model

// 档案审批状态
const (
	ProfileStatusPending  = "pending"
	ProfileStatusActive   = "active"
	ProfileStatusRejected = "rejected"
)

// 档案角色
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Profile 用户档案表，对应 profiles
type Profile struct {
	ID           string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Phone        string `gorm:"type:varchar(32);not null;default:''"           json:"phone"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Status       string `gorm:"type:varchar(16);not null;default:'pending'"    json:"status"` // pending | active | rejected
	Role         string `gorm:"type:varchar(16);not null;default:'user'"       json:"role"`   // user | admin
	BaseModel
}

// TableName 指定表名
func (Profile) TableName() string { return "profiles" }

// IsActive 是否已通过审批
func (p *Profile) IsActive() bool { return p.Status == ProfileStatusActive }

// IsAdmin 已激活的管理员
func (p *Profile) IsAdmin() bool { return p.IsActive() && p.Role == RoleAdmin }

// CanTransitionTo 只允许 pending → active / rejected
func (p *Profile) CanTransitionTo(status string) bool {
	if p.Status != ProfileStatusPending {
		return false
	}
	return status == ProfileStatusActive || status == ProfileStatusRejected
}
