package dto

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"priya@example.com"`
	Password string `json:"password" validate:"required,min=1,max=100" example:"secret123"`
}

// RefreshTokenRequest exchanges a refresh token for a new pair
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RequestPasswordResetRequest starts the password reset flow
type RequestPasswordResetRequest struct {
	Email string `json:"email" validate:"required,email,max=255" example:"priya@example.com"`
}

// ResetPasswordRequest sets a new password using the emailed token
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6,max=100" example:"newsecret"`
}
