package repository

import (
	"context"
	"sync"
	"time"

	"github.com/telhawk-systems/mirror-notify/internal/models"
)

// InMemoryRepository is a development and test store. Records are copied on
// the way in and out so callers never share state with the map.
type InMemoryRepository struct {
	users       map[string]*models.User
	credentials map[string]*models.Credential
	mu          sync.RWMutex
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:       make(map[string]*models.User),
		credentials: make(map[string]*models.Credential),
	}
}

func (r *InMemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.ID]; exists {
		return ErrUserExists
	}

	now := time.Now().UTC()
	stored := *user
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.users[user.ID] = &stored
	return nil
}

func (r *InMemoryRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (r *InMemoryRepository) UpdateUserLocation(ctx context.Context, id string, loc models.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[id]
	if !exists {
		return ErrUserNotFound
	}

	lat, lon, at := loc.Latitude, loc.Longitude, loc.UpdatedAt
	user.Latitude = &lat
	user.Longitude = &lon
	user.LocationUpdate = &at
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) PutCredential(ctx context.Context, cred *models.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[cred.UserID]; !exists {
		return ErrUserNotFound
	}

	stored := *cred
	stored.UpdatedAt = time.Now().UTC()
	r.credentials[cred.UserID] = &stored
	return nil
}

func (r *InMemoryRepository) GetCredential(ctx context.Context, userID string) (*models.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, exists := r.credentials[userID]
	if !exists {
		return nil, ErrCredentialNotFound
	}
	out := *cred
	return &out, nil
}

func (r *InMemoryRepository) Close() {}
