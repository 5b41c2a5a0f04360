package dto

// CaptchaInitResponse carries a rotate challenge for the admin login page
type CaptchaInitResponse struct {
	ChallengeID       string `json:"challenge_id"`
	MasterImageBase64 string `json:"master_image_base64"`
	ThumbImageBase64  string `json:"thumb_image_base64"`
}

// AdminLoginRequest represents the admin login payload
type AdminLoginRequest struct {
	Email       string  `json:"email" validate:"required,email,max=255"`
	Password    string  `json:"password" validate:"required,min=1,max=100"`
	ChallengeID string  `json:"challenge_id" validate:"required"`
	UserAngle   float64 `json:"user_angle" validate:"min=0,max=360"`
}

// AdminCreateUserRequest creates a user from the admin panel
type AdminCreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
	IsAdmin  bool   `json:"is_admin"`
}

// AdminUpdateUserRequest is a partial update of a user
type AdminUpdateUserRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6,max=100"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
	IsAdmin  *bool   `json:"is_admin,omitempty"`
}

type AdminListUsersRequest struct {
	Search string `query:"search"`
	Role   string `query:"role" validate:"omitempty,oneof=user admin"`
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=1000"`
}

type AdminListUsersResponse struct {
	Users      []UserDTO `json:"users"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}
