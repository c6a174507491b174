// Package mirror is a minimal REST client for the Mirror API collections the
// notify service reads from and writes to.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/telhawk-systems/mirror-notify/internal/metrics"
	"github.com/telhawk-systems/mirror-notify/internal/models"
)

// DefaultBaseURL is the public Mirror API endpoint.
const DefaultBaseURL = "https://www.googleapis.com/mirror/v1"

var (
	ErrNotFound          = errors.New("mirror: resource not found")
	ErrUnauthorized      = errors.New("mirror: unauthorized")
	ErrInsertUnsupported = errors.New("mirror: collection does not support insert")
)

// APIError is returned for any non-2xx upstream response.
type APIError struct {
	Collection string
	Method     string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mirror %s %s: status %d", e.Method, e.Collection, e.StatusCode)
	}
	return fmt.Sprintf("mirror %s %s: status %d: %s", e.Method, e.Collection, e.StatusCode, e.Message)
}

// Is maps status codes onto the package's sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// Collection is one upstream resource family.
type Collection interface {
	Get(ctx context.Context, id string) (models.Resource, error)
	Insert(ctx context.Context, item models.Resource) (models.Resource, error)
}

// Service is an authenticated view of the Mirror API for a single user.
type Service interface {
	Timeline() Collection
	Locations() Collection
}

// Client implements Service with bearer-token authentication.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokenType   string
	accessToken string
}

// New returns a Client that authenticates every call with accessToken.
// httpClient is shared across users; its Timeout bounds every call.
func New(baseURL string, httpClient *http.Client, tokenType, accessToken string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		tokenType:   tokenType,
		accessToken: accessToken,
	}
}

func (c *Client) Timeline() Collection {
	return &collection{client: c, name: models.CollectionTimeline, insertable: true}
}

func (c *Client) Locations() Collection {
	return &collection{client: c, name: models.CollectionLocations}
}

type collection struct {
	client     *Client
	name       string
	insertable bool
}

func (col *collection) Get(ctx context.Context, id string) (models.Resource, error) {
	if id == "" {
		return nil, fmt.Errorf("mirror get %s: empty id", col.name)
	}
	endpoint := col.client.baseURL + "/" + col.name + "/" + url.PathEscape(id)
	return col.client.do(ctx, col.name, http.MethodGet, endpoint, nil)
}

func (col *collection) Insert(ctx context.Context, item models.Resource) (models.Resource, error) {
	if !col.insertable {
		return nil, fmt.Errorf("%w: %s", ErrInsertUnsupported, col.name)
	}
	endpoint := col.client.baseURL + "/" + col.name
	return col.client.do(ctx, col.name, http.MethodPost, endpoint, item)
}

func (c *Client) do(ctx context.Context, collection, method, endpoint string, body models.Resource) (res models.Resource, err error) {
	start := time.Now()
	defer func() {
		metrics.UpstreamDuration.WithLabelValues(collection, method).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.UpstreamErrors.WithLabelValues(collection, method).Inc()
		}
	}()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s item: %w", collection, err)
		}
		reader = bytes.NewReader(buf)
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Authorization", c.tokenType+" "+c.accessToken)
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Collection: collection,
			Method:     method,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	var result models.Resource
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return result, nil
}

// errorMessage extracts {"error":{"message":...}} from an upstream error body.
func errorMessage(r io.Reader) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil {
		return ""
	}
	return body.Error.Message
}
