package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/notes_auth/internal/logging"
	"github.com/Skotchmaster/notes_auth/internal/models"
	"github.com/Skotchmaster/notes_auth/internal/repo"
	"github.com/Skotchmaster/notes_auth/internal/tokengen"
)

type RefreshStore interface {
	InsertRefreshToken(ctx context.Context, token *models.RefreshToken, maxActive int) (uint, error)
	FindValidRefreshToken(ctx context.Context, username, value string) (*models.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID uint, next *models.RefreshToken, maxActive int) error
	InvalidateRefreshToken(ctx context.Context, username, value string) (bool, error)
}

// ClientMeta is what the transport knows about the caller.
type ClientMeta struct {
	IP       string
	OS       string
	Platform string
	Browser  string
}

func (m ClientMeta) DeviceInfo() string {
	return strings.TrimSpace(m.OS + " " + m.Platform + " " + m.Browser)
}

// RefreshManager owns the refresh token lifecycle:
//
//	Issued (valid, now < expiration) -> Expired (valid, now >= expiration)
//	Issued -> Invalidated (rotation or logout)
type RefreshManager struct {
	Store     RefreshStore
	Gen       *tokengen.Generator
	Months    int
	MaxActive int
	Now       func() time.Time
}

func (m *RefreshManager) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

func (m *RefreshManager) months() int {
	if m.Months <= 0 {
		return 1
	}
	return m.Months
}

// addMonths clamps the day to the end of the target month, so Jan 31 + 1 is Feb 28/29.
func addMonths(t time.Time, n int) time.Time {
	y, mo, d := t.Date()
	first := time.Date(y, mo+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func (m *RefreshManager) newRecord(username string, meta ClientMeta) (*models.RefreshToken, error) {
	value, err := m.Gen.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	return &models.RefreshToken{
		Username:     username,
		RefreshToken: value,
		Info:         meta.DeviceInfo(),
		IPAddress:    meta.IP,
		Expiration:   addMonths(m.now(), m.months()),
		IsValid:      true,
	}, nil
}

func (m *RefreshManager) Issue(ctx context.Context, username string, meta ClientMeta) (*models.RefreshToken, error) {
	rec, err := m.newRecord(username, meta)
	if err != nil {
		return nil, err
	}
	if _, err := m.Store.InsertRefreshToken(ctx, rec, m.MaxActive); err != nil {
		return nil, fmt.Errorf("%w: insert refresh token: %w", ErrPersistence, err)
	}
	return rec, nil
}

// Validate returns the Issued record for (username, value). The expiration
// instant itself already counts as expired.
func (m *RefreshManager) Validate(ctx context.Context, username, value string) (*models.RefreshToken, error) {
	rec, err := m.Store.FindValidRefreshToken(ctx, username, value)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	if !m.now().Before(rec.Expiration) {
		return nil, ErrRefreshTokenExpired
	}
	return rec, nil
}

// Rotate invalidates current and issues its replacement atomically.
func (m *RefreshManager) Rotate(ctx context.Context, current *models.RefreshToken, meta ClientMeta) (*models.RefreshToken, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh_rotate", "username", current.Username)

	next, err := m.newRecord(current.Username, meta)
	if err != nil {
		return nil, err
	}
	if err := m.Store.RotateRefreshToken(ctx, current.ID, next, m.MaxActive); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("rotate_failed", "reason", "token already rotated or revoked")
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("%w: rotate refresh token: %w", ErrPersistence, err)
	}
	return next, nil
}

func (m *RefreshManager) Invalidate(ctx context.Context, username, value string) (bool, error) {
	ok, err := m.Store.InvalidateRefreshToken(ctx, username, value)
	if err != nil {
		return false, fmt.Errorf("%w: invalidate refresh token: %w", ErrPersistence, err)
	}
	return ok, nil
}
