package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Skotchmaster/notes_auth/internal/hash"
	"github.com/Skotchmaster/notes_auth/internal/logging"
	"github.com/Skotchmaster/notes_auth/internal/models"
	"github.com/Skotchmaster/notes_auth/internal/repo"
	"github.com/Skotchmaster/notes_auth/internal/tokengen"
	"github.com/Skotchmaster/notes_auth/internal/tokens"
)

const (
	DefaultEventsTopic = "user_events"
	publishTimeout     = 5 * time.Second
)

type CredentialStore interface {
	RefreshStore
	CountByUsername(ctx context.Context, username string) (int64, error)
	CountByEmail(ctx context.Context, email string) (int64, error)
	CountByAccountToken(ctx context.Context, token string) (int64, error)
	InsertUser(ctx context.Context, u *models.User) (uint, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]models.User, error)
}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type SignupInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
}

type AuthenticateInput struct {
	Username string
	Password string
}

type RefreshInput struct {
	Username     string
	RefreshToken string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type AuthService struct {
	Store   CredentialStore
	Hasher  *hash.Hasher
	Tokens  *tokengen.Generator
	Issuer  *tokens.Issuer
	Refresh *RefreshManager
	// Events is optional; nil disables publishing.
	Events Publisher
	Topic  string
}

func (s *AuthService) accountTokenTaken(ctx context.Context, token string) (bool, error) {
	n, err := s.Store.CountByAccountToken(ctx, token)
	return n > 0, err
}

// checkDuplicates runs the advisory pre-checks, username first.
func (s *AuthService) checkDuplicates(ctx context.Context, username, email string) error {
	n, err := s.Store.CountByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("count username: %w", err)
	}
	if n > 0 {
		return ErrDuplicateUsername
	}
	n, err = s.Store.CountByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("count email: %w", err)
	}
	if n > 0 {
		return ErrDuplicateEmail
	}
	return nil
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput, meta ClientMeta) (uint, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup", "username", in.Username)

	if err := ValidateSignup(in); err != nil {
		l.Warn("signup_failed", "status", 404, "reason", "validation", "error", err)
		return 0, err
	}

	if err := s.checkDuplicates(ctx, in.Username, in.Email); err != nil {
		l.Warn("signup_failed", "reason", "duplicate", "error", err)
		return 0, err
	}

	token, err := s.Tokens.GenerateUniqueAccountToken(ctx, s.accountTokenTaken)
	if err != nil {
		l.Error("signup_failed", "status", 500, "reason", "cannot generate account token", "error", err)
		return 0, err
	}

	pwHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Warn("signup_failed", "status", 400, "reason", "cannot hash the password", "error", err)
		return 0, err
	}

	user := models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: pwHash,
		Token:        token,
		IPAddress:    meta.IP,
	}

	id, err := s.insertUser(ctx, l, &user)
	if err != nil {
		return 0, err
	}

	s.publish(ctx, user.Username, map[string]any{
		"type":     "user_signed_up",
		"userID":   id,
		"username": user.Username,
		"email":    user.Email,
	})

	l.Info("signup_success", "user_id", id)
	return id, nil
}

// insertUser stores u, retrying once with a fresh account token when a
// concurrent signup claimed the same one between generation and insert.
func (s *AuthService) insertUser(ctx context.Context, l *slog.Logger, u *models.User) (uint, error) {
	for attempt := 1; ; attempt++ {
		id, err := s.Store.InsertUser(ctx, u)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, repo.ErrConstraintViolation) {
			l.Warn("signup_failed", "status", 400, "reason", "cannot insert user", "error", err)
			return 0, fmt.Errorf("%w: insert user: %w", ErrPersistence, err)
		}

		// lost the race against a concurrent signup; report what the pre-check would have
		if dupErr := s.checkDuplicates(ctx, u.Username, u.Email); errors.Is(dupErr, ErrDuplicateUsername) || errors.Is(dupErr, ErrDuplicateEmail) {
			l.Warn("signup_failed", "reason", "constraint violation", "error", err)
			return 0, fmt.Errorf("%w: %w", dupErr, err)
		}

		taken, takenErr := s.accountTokenTaken(ctx, u.Token)
		if attempt > 1 || takenErr != nil || !taken {
			l.Warn("signup_failed", "status", 400, "reason", "cannot insert user", "error", err)
			return 0, fmt.Errorf("%w: insert user: %w", ErrPersistence, err)
		}

		l.Warn("account_token_collision", "attempt", attempt)
		token, genErr := s.Tokens.GenerateUniqueAccountToken(ctx, s.accountTokenTaken)
		if genErr != nil {
			l.Error("signup_failed", "status", 500, "reason", "cannot generate account token", "error", genErr)
			return 0, genErr
		}
		u.ID = 0
		u.Token = token
	}
}

func claimsOf(u *models.User) tokens.UserClaims {
	return tokens.UserClaims{
		ID:       u.ID,
		Token:    u.Token,
		Username: u.Username,
		Email:    u.Email,
	}
}

func (s *AuthService) Authenticate(ctx context.Context, in AuthenticateInput, meta ClientMeta) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.authenticate", "username", in.Username)

	if err := ValidateAuthenticate(in); err != nil {
		l.Warn("authenticate_failed", "status", 404, "reason", "validation", "error", err)
		return nil, err
	}

	user, err := s.Store.FindUserByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("authenticate_failed", "status", 401, "reason", "invalid username or password")
			return nil, ErrInvalidCredentials
		}
		l.Error("authenticate_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := s.Hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		l.Error("authenticate_failed", "status", 500, "reason", "stored hash unreadable", "error", err)
		return nil, err
	}
	if !ok {
		l.Warn("authenticate_failed", "status", 401, "reason", "invalid username or password")
		return nil, ErrInvalidCredentials
	}

	user.PasswordHash = ""

	rt, err := s.Refresh.Issue(ctx, user.Username, meta)
	if err != nil {
		l.Error("authenticate_failed", "status", 400, "reason", "cannot store refresh token", "error", err)
		return nil, err
	}

	access, accessExp, err := s.Issuer.IssueAccessToken(claimsOf(user))
	if err != nil {
		l.Error("authenticate_failed", "status", 500, "reason", "cannot create token", "error", err)
		return nil, err
	}

	s.publish(ctx, user.Username, map[string]any{
		"type":     "user_authenticated",
		"userID":   user.ID,
		"username": user.Username,
		"device":   rt.Info,
		"ip":       rt.IPAddress,
	})

	l.Info("authenticate_success")
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: rt.RefreshToken,
		AccessExp:    accessExp,
		RefreshExp:   rt.Expiration,
	}, nil
}

func (s *AuthService) RefreshAccessToken(ctx context.Context, in RefreshInput, meta ClientMeta) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh", "username", in.Username)

	if in.Username == "" || in.RefreshToken == "" {
		l.Warn("refresh_failed", "status", 401, "reason", "missing username or refresh token")
		return nil, ErrMissingRefreshToken
	}

	current, err := s.Refresh.Validate(ctx, in.Username, in.RefreshToken)
	if err != nil {
		l.Warn("refresh_failed", "error", err)
		return nil, err
	}

	user, err := s.Store.FindUserByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh_failed", "status", 404, "reason", "token owner no longer exists")
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	user.PasswordHash = ""

	next, err := s.Refresh.Rotate(ctx, current, meta)
	if err != nil {
		l.Warn("refresh_failed", "error", err)
		return nil, err
	}

	access, accessExp, err := s.Issuer.IssueAccessToken(claimsOf(user))
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "cannot create token", "error", err)
		return nil, err
	}

	s.publish(ctx, user.Username, map[string]any{
		"type":     "refresh_token_rotated",
		"userID":   user.ID,
		"username": user.Username,
		"device":   next.Info,
	})

	l.Info("refresh_success")
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: next.RefreshToken,
		AccessExp:    accessExp,
		RefreshExp:   next.Expiration,
	}, nil
}

// Logout invalidates the presented refresh token. Unknown or already
// invalidated tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, in RefreshInput) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout", "username", in.Username)

	if in.Username == "" || in.RefreshToken == "" {
		return ErrMissingRefreshToken
	}
	revoked, err := s.Refresh.Invalidate(ctx, in.Username, in.RefreshToken)
	if err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot revoke refreshToken", "error", err)
		return err
	}
	l.Info("logout_success", "revoked", revoked)
	return nil
}

func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Store.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *AuthService) ListUsers(ctx context.Context, offset, limit int) ([]models.User, error) {
	users, err := s.Store.ListUsers(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *AuthService) publish(ctx context.Context, key string, event map[string]any) {
	if s.Events == nil {
		return
	}
	topic := s.Topic
	if topic == "" {
		topic = DefaultEventsTopic
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := s.Events.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "topic", topic, "type", event["type"], "error", err)
	}
}
