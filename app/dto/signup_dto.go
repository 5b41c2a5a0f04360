// Package dto contains Data Transfer Objects for API request and response structures
package dto

// SignupRequest represents the request payload for account creation
type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255" example:"Priya Sharma"`
	Email    string `json:"email" validate:"required,email,max=255" example:"priya@example.com"`
	Password string `json:"password" validate:"required,min=6,max=100" example:"secret123"`
}

// AuthResponse is returned by signup, login and refresh
type AuthResponse struct {
	Token        string  `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string  `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string  `json:"token_type" example:"Bearer"`
	ExpiresIn    int     `json:"expires_in" example:"3600"`
	User         UserDTO `json:"user"`
}
