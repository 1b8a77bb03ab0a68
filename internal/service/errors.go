package service

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateUsername = errors.New("DUPLICATE_USERNAME")
	ErrDuplicateEmail    = errors.New("DUPLICATE_EMAIL")
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials  = errors.New("INVALID_CREDENTIALS")
	ErrMissingRefreshToken = errors.New("NO_REFRESH_TOKEN")
	ErrInvalidRefreshToken = errors.New("INVALID_REFRESH_TOKEN")
	ErrRefreshTokenExpired = errors.New("REFRESH_TOKEN_EXPIRED")
	ErrUserNotFound        = errors.New("USER_NOT_FOUND")
	// ErrPersistence marks a failed write of a user or refresh token row.
	ErrPersistence = errors.New("persistence failed")
)

// ValidationError carries the first rule an input broke.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
