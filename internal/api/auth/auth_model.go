package auth

// RegisterRequest represents the register request body
type RegisterRequest struct {
	Username string `json:"username" example:"alice"`
	Email    string `json:"email" example:"a@x.io"`
	Password string `json:"password" example:"pw1"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" example:"a@x.io"`
	Password string `json:"password" example:"pw1"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

type MessageResponse struct {
	Message string `json:"message" example:"User registered successfully"`
}

const (
	MsgRegistered         = "User registered successfully"
	MsgUserNotFound       = "User not found"
	MsgInvalidCredentials = "Invalid credentials"
)
