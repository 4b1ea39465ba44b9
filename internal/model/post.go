package model

// PostCategories 公告分类
var PostCategories = []string{"일반", "수업", "행사", "공연", "모집"}

// PostCategoryAll 列表筛选时表示不限分类
const PostCategoryAll = "전체"

// Post 公告表，对应 posts
type Post struct {
	ID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title    string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Content  string  `gorm:"type:text;not null"                             json:"content"` // Markdown
	Category string  `gorm:"type:varchar(16);not null"                      json:"category"`
	Tag      string  `gorm:"type:varchar(32);not null;default:''"           json:"tag"`
	IsPinned bool    `gorm:"not null;default:false"                         json:"is_pinned"`
	AuthorID *string `gorm:"type:uuid"                                      json:"author_id,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Post) TableName() string { return "posts" }
