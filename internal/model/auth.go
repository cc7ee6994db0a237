package model

// Error codes for authentication failures
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
)

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
	ExpiresInS  int    `json:"expires_in"`
}
