package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/telhawk-systems/mirror-notify/internal/models"
	"github.com/telhawk-systems/mirror-notify/internal/repository"
)

var (
	ErrUnknownUser   = errors.New("unknown user")
	ErrTokenMismatch = errors.New("verify token mismatch")
)

// UserStore is the part of the repository the pipeline touches: one lookup
// and at most one location write per request.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpdateUserLocation(ctx context.Context, id string, loc models.Location) error
}

// Validate looks up the user behind userToken and checks the notification's
// verify token against the stored one. Store failures other than not-found
// are returned wrapped.
func Validate(ctx context.Context, users UserStore, userToken, verifyToken string) (*models.User, error) {
	if userToken == "" {
		return nil, ErrUnknownUser
	}

	user, err := users.GetUser(ctx, userToken)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(user.VerifyToken), []byte(verifyToken)) != 1 {
		return nil, ErrTokenMismatch
	}

	return user, nil
}
