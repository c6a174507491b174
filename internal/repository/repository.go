package repository

import (
	"context"
	"errors"

	"github.com/telhawk-systems/mirror-notify/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrCredentialNotFound = errors.New("credential not found")
)

// Repository stores subscription users and their upstream credentials.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpdateUserLocation(ctx context.Context, id string, loc models.Location) error

	PutCredential(ctx context.Context, cred *models.Credential) error
	GetCredential(ctx context.Context, userID string) (*models.Credential, error)

	Close()
}
