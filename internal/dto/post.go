package dto

// ── 公告模块 DTO ──

// PostRequest 创建 / 修改公告
type PostRequest struct {
	Title    string `json:"title"    binding:"required,max=200"`
	Content  string `json:"content"  binding:"required"`
	Category string `json:"category" binding:"required,post_category"`
	Tag      string `json:"tag"      binding:"omitempty,max=32"`
	IsPinned bool   `json:"is_pinned"`
}

// PinPostRequest 置顶开关
type PinPostRequest struct {
	IsPinned *bool `json:"is_pinned" binding:"required"`
}

// PostListQuery 公告列表筛选，category 为空或 전체 时不限分类
type PostListQuery struct {
	Category string `form:"category" binding:"omitempty,post_category|eq=전체"`
}

// PostResponse 公告
type PostResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	ContentHTML string  `json:"content_html,omitempty"`
	Category    string  `json:"category"`
	Tag         string  `json:"tag"`
	IsPinned    bool    `json:"is_pinned"`
	AuthorID    *string `json:"author_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}
