package admin

// Service names registered by the admin module.
const (
	ServiceLogin         = "login"
	ServiceValidateToken = "validate-token"
)

// Error codes carried in service responses.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeExpiredToken       = "expired_token"
)

// LoginRequest is an admin sign-in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries an admin token or the reason sign-in failed.
type LoginResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	AdminID     string `json:"admin_id,omitempty"`
	Email       string `json:"email,omitempty"`
	Error       string `json:"error,omitempty"`
	Message     string `json:"message,omitempty"`
}

// ValidateTokenRequest asks whether a token belongs to an admin.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse is the outcome of a token check.
type ValidateTokenResponse struct {
	Valid   bool   `json:"valid"`
	AdminID string `json:"admin_id,omitempty"`
	Email   string `json:"email,omitempty"`
	Error   string `json:"error,omitempty"`
}
