package auth_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpost/inkpost/server/internal/auth"
	"github.com/inkpost/inkpost/server/internal/testutil"
)

func newService(t *testing.T) auth.UserService {
	db := testutil.OpenDB(t, &auth.User{})
	return auth.NewUserService(db)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice@Example.com", "secret123", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "active", user.Status)
	assert.True(t, strings.HasPrefix(user.APIKey, "sk-"))
	assert.NotEqual(t, "secret123", user.Password)

	// Duplicate email rejected.
	_, err = svc.Register(ctx, "alice@example.com", "other", "dup")
	assert.ErrorIs(t, err, auth.ErrEmailExists)

	// Login is case-insensitive on email.
	got, err := svc.LoginEmail(ctx, "ALICE@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.LoginEmail(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)

	_, err = svc.LoginEmail(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)
}

func TestGetByAPIKeyAndReset(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "bob@example.com", "secret123", "bob")
	require.NoError(t, err)

	got, err := svc.GetByAPIKey(ctx, user.APIKey)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	reset, err := svc.ResetAPIKey(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, user.APIKey, reset.APIKey)

	// Old key no longer works.
	_, err = svc.GetByAPIKey(ctx, user.APIKey)
	assert.ErrorIs(t, err, auth.ErrInvalidAPIKey)

	_, err = svc.GetByAPIKey(ctx, reset.APIKey)
	assert.NoError(t, err)
}

func TestSetStatus(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "carol@example.com", "secret123", "carol")
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(ctx, user.ID, "disabled"))

	got, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "disabled", got.Status)

	assert.ErrorIs(t, svc.SetStatus(ctx, "missing", "disabled"), auth.ErrUserNotFound)
}

func TestUpdateLastCheckin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "dave@example.com", "secret123", "dave")
	require.NoError(t, err)
	assert.Nil(t, user.LastCheckinAt)

	require.NoError(t, svc.UpdateLastCheckin(ctx, user.ID))

	got, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastCheckinAt)
}
