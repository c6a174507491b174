// Package credentials turns a validated user identity into an authenticated
// Mirror API client using the stored OAuth access token.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/telhawk-systems/mirror-notify/internal/mirror"
	"github.com/telhawk-systems/mirror-notify/internal/models"
	"github.com/telhawk-systems/mirror-notify/internal/repository"
)

// expirySkew treats tokens that are about to expire as already expired so a
// request does not start with a token that lapses mid-flight.
const expirySkew = 30 * time.Second

// Store is the read side of the credential repository.
type Store interface {
	GetCredential(ctx context.Context, userID string) (*models.Credential, error)
}

// Resolver builds a mirror.Service per request. It never caches.
type Resolver struct {
	store      Store
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

func NewResolver(store Store, baseURL string, timeout time.Duration) *Resolver {
	return &Resolver{
		store:      store,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Resolve returns nil, nil when the user has no usable credential. Errors are
// reserved for store failures.
func (r *Resolver) Resolve(ctx context.Context, userID string) (mirror.Service, error) {
	cred, err := r.store.GetCredential(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}

	if cred.AccessToken == "" || r.expired(cred) {
		return nil, nil
	}

	return mirror.New(r.baseURL, r.httpClient, cred.TokenType, cred.AccessToken), nil
}

func (r *Resolver) expired(cred *models.Credential) bool {
	expiry := cred.Expiry
	if expiry == nil {
		expiry = tokenExpiry(cred.AccessToken)
	}
	if expiry == nil {
		return false
	}
	return !r.now().Add(expirySkew).Before(*expiry)
}

// tokenExpiry reads the exp claim of a JWT-shaped access token. Opaque tokens
// return nil. The signature is not checked; the upstream does that.
func tokenExpiry(accessToken string) *time.Time {
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}
