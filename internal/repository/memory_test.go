package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telhawk-systems/mirror-notify/internal/models"
)

func TestInMemoryRepository_Users(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, &models.User{ID: "u1", VerifyToken: "t1"}))

	t.Run("duplicate user", func(t *testing.T) {
		err := repo.CreateUser(ctx, &models.User{ID: "u1", VerifyToken: "other"})
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("get existing user", func(t *testing.T) {
		user, err := repo.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "t1", user.VerifyToken)
		assert.False(t, user.HasLocation())
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.GetUser(ctx, "missing")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		user, err := repo.GetUser(ctx, "u1")
		require.NoError(t, err)
		user.VerifyToken = "mutated"

		again, err := repo.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "t1", again.VerifyToken)
	})
}

func TestInMemoryRepository_UpdateUserLocation(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateUser(ctx, &models.User{ID: "u1", VerifyToken: "t1"}))

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateUserLocation(ctx, "u1", models.Location{Latitude: 37.0, Longitude: -122.0, UpdatedAt: at}))

	user, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.True(t, user.HasLocation())
	assert.Equal(t, 37.0, *user.Latitude)
	assert.Equal(t, -122.0, *user.Longitude)
	assert.True(t, at.Equal(*user.LocationUpdate))

	err = repo.UpdateUserLocation(ctx, "missing", models.Location{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestInMemoryRepository_Credentials(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	err := repo.PutCredential(ctx, &models.Credential{UserID: "u1", AccessToken: "a"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, repo.CreateUser(ctx, &models.User{ID: "u1", VerifyToken: "t1"}))

	_, err = repo.GetCredential(ctx, "u1")
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	require.NoError(t, repo.PutCredential(ctx, &models.Credential{UserID: "u1", AccessToken: "a", TokenType: "Bearer"}))
	require.NoError(t, repo.PutCredential(ctx, &models.Credential{UserID: "u1", AccessToken: "b", TokenType: "Bearer"}))

	cred, err := repo.GetCredential(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "b", cred.AccessToken)
}
