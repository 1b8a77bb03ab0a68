package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/notes_auth/internal/db"
	"github.com/Skotchmaster/notes_auth/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	ctx := context.Background()
	gdb, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	return New(gdb)
}

// findRefreshToken loads a row regardless of its validity flag.
func findRefreshToken(t *testing.T, r *GormRepo, value string) (*models.RefreshToken, error) {
	t.Helper()

	var token models.RefreshToken
	if err := r.DB.Where("refresh_token = ?", value).Take(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}

func testUser(username, email, token string) *models.User {
	return &models.User{
		FirstName:    "Ann",
		LastName:     "Lee",
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
		Token:        token,
		IPAddress:    "127.0.0.1",
	}
}

func testRefresh(username, value string, exp time.Time) *models.RefreshToken {
	return &models.RefreshToken{
		Username:     username,
		RefreshToken: value,
		Info:         "Linux X11 Firefox",
		IPAddress:    "127.0.0.1",
		Expiration:   exp,
		IsValid:      true,
	}
}

func TestGormRepo_UserCountsAndInsert(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	id, err := r.InsertUser(ctx, testUser("annlee1", "a@x.com", "tok0001"))
	require.NoError(t, err)
	assert.Positive(t, id)

	n, err := r.CountByUsername(ctx, "annlee1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = r.CountByUsername(ctx, "AnnLee1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "username match is case-sensitive")

	n, err = r.CountByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = r.CountByAccountToken(ctx, "tok0001")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestGormRepo_InsertUser_ConstraintViolation(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.InsertUser(ctx, testUser("annlee1", "a@x.com", "tok0001"))
	require.NoError(t, err)

	tests := []struct {
		name string
		user *models.User
	}{
		{name: "username", user: testUser("annlee1", "b@x.com", "tok0002")},
		{name: "email", user: testUser("other", "a@x.com", "tok0003")},
		{name: "account token", user: testUser("third", "c@x.com", "tok0001")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.InsertUser(ctx, tt.user)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConstraintViolation)
		})
	}
}

func TestGormRepo_FindUser(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	id, err := r.InsertUser(ctx, testUser("annlee1", "a@x.com", "tok0001"))
	require.NoError(t, err)

	u, err := r.FindUserByUsername(ctx, "annlee1")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.NotEmpty(t, u.PasswordHash)

	u, err = r.FindUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "annlee1", u.Username)

	_, err = r.FindUserByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.FindUserByID(ctx, id+100)
	assert.ErrorIs(t, err, ErrNotFound)

	users, err := r.ListUsers(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestGormRepo_ListUsers_Paged(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := r.InsertUser(ctx, testUser(fmt.Sprintf("user%d", i), fmt.Sprintf("u%d@x.com", i), fmt.Sprintf("tok000%d", i)))
		require.NoError(t, err)
	}

	all, err := r.ListUsers(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	page, err := r.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "user2", page[0].Username)
	assert.Equal(t, "user3", page[1].Username)
}

func TestGormRepo_FindValidRefreshToken_IgnoresInvalidated(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).UTC()

	_, err := r.InsertRefreshToken(ctx, testRefresh("annlee1", "value-1", exp), 0)
	require.NoError(t, err)

	got, err := r.FindValidRefreshToken(ctx, "annlee1", "value-1")
	require.NoError(t, err)
	assert.True(t, got.IsValid)
	assert.WithinDuration(t, exp, got.Expiration, time.Second)

	_, err = r.FindValidRefreshToken(ctx, "someone-else", "value-1")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := r.InvalidateRefreshToken(ctx, "annlee1", "value-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.InvalidateRefreshToken(ctx, "annlee1", "value-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.FindValidRefreshToken(ctx, "annlee1", "value-1")
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := findRefreshToken(t, r, "value-1")
	require.NoError(t, err)
	assert.False(t, stored.IsValid)
}

func TestGormRepo_InsertRefreshToken_KeepsInvalidFlag(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	tok := testRefresh("annlee1", "born-invalid", time.Now().Add(time.Hour).UTC())
	tok.IsValid = false
	_, err := r.InsertRefreshToken(ctx, tok, 0)
	require.NoError(t, err)

	stored, err := findRefreshToken(t, r, "born-invalid")
	require.NoError(t, err)
	assert.False(t, stored.IsValid)

	_, err = r.FindValidRefreshToken(ctx, "annlee1", "born-invalid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepo_RotateRefreshToken(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).UTC()

	oldID, err := r.InsertRefreshToken(ctx, testRefresh("annlee1", "old", exp), 0)
	require.NoError(t, err)

	require.NoError(t, r.RotateRefreshToken(ctx, oldID, testRefresh("annlee1", "new", exp), 0))

	old, err := findRefreshToken(t, r, "old")
	require.NoError(t, err)
	assert.False(t, old.IsValid)

	_, err = r.FindValidRefreshToken(ctx, "annlee1", "new")
	require.NoError(t, err)

	err = r.RotateRefreshToken(ctx, oldID, testRefresh("annlee1", "newer", exp), 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = findRefreshToken(t, r, "newer")
	assert.ErrorIs(t, err, ErrNotFound, "a failed rotation must not leave the new row behind")
}

func TestGormRepo_RotateRefreshToken_RollsBackOnInsertFailure(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).UTC()

	oldID, err := r.InsertRefreshToken(ctx, testRefresh("annlee1", "old", exp), 0)
	require.NoError(t, err)
	_, err = r.InsertRefreshToken(ctx, testRefresh("annlee1", "taken", exp), 0)
	require.NoError(t, err)

	err = r.RotateRefreshToken(ctx, oldID, testRefresh("annlee1", "taken", exp), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	old, err := r.FindValidRefreshToken(ctx, "annlee1", "old")
	require.NoError(t, err, "old token must stay valid when rotation fails")
	assert.True(t, old.IsValid)
}

func TestGormRepo_InsertRefreshToken_Cap(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).UTC()

	for i := 0; i < 4; i++ {
		_, err := r.InsertRefreshToken(ctx, testRefresh("annlee1", fmt.Sprintf("v%d", i), exp), 2)
		require.NoError(t, err)
	}
	_, err := r.InsertRefreshToken(ctx, testRefresh("other", "o1", exp), 2)
	require.NoError(t, err)

	for i, wantValid := range []bool{false, false, true, true} {
		_, err := r.FindValidRefreshToken(ctx, "annlee1", fmt.Sprintf("v%d", i))
		if wantValid {
			assert.NoError(t, err, "v%d", i)
		} else {
			assert.True(t, errors.Is(err, ErrNotFound), "v%d should be invalidated", i)
		}
	}

	_, err = r.FindValidRefreshToken(ctx, "other", "o1")
	assert.NoError(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.True(t, isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)")))
}
