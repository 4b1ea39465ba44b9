package dto

// ── 认证模块 DTO ──

// SignupRequest 注册请求，注册后状态为 pending
type SignupRequest struct {
	Email    string `json:"email"    binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=4,max=72"`
	Name     string `json:"name"     binding:"required,max=100"`
	Phone    string `json:"phone"    binding:"omitempty,max=32"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest 登出请求，refresh token 可选
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password"     binding:"required,min=4,max=72"`
}

// ChangeEmailRequest 修改邮箱请求
type ChangeEmailRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int             `json:"expires_in"` // Access Token 有效期（秒）
	Profile      ProfileResponse `json:"profile"`
}

// StatusEvent 审批状态推送帧
type StatusEvent struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
