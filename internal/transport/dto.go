package transport

type SignupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type SignupResponse struct {
	ID uint `json:"id"`
}

type AuthenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the body of both /refreshAccessToken and /logout.
type RefreshRequest struct {
	Username     string `json:"username"`
	RefreshToken string `json:"refreshToken"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refreshToken"`
}

type MessageResponse struct {
	Message any `json:"message"`
}
