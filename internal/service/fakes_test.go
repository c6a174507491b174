package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/telhawk-systems/mirror-notify/internal/mirror"
	"github.com/telhawk-systems/mirror-notify/internal/models"
)

// fakeCollection records every upstream call.
type fakeCollection struct {
	mu        sync.Mutex
	items     map[string]models.Resource
	getErr    error
	insertErr error
	gets      []string
	inserts   []models.Resource
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{items: make(map[string]models.Resource)}
}

func (c *fakeCollection) Get(ctx context.Context, id string) (models.Resource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets = append(c.gets, id)
	if c.getErr != nil {
		return nil, c.getErr
	}
	item, ok := c.items[id]
	if !ok {
		return nil, &mirror.APIError{StatusCode: 404, Message: "Not Found"}
	}
	return item, nil
}

func (c *fakeCollection) Insert(ctx context.Context, item models.Resource) (models.Resource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inserts = append(c.inserts, item)
	if c.insertErr != nil {
		return nil, c.insertErr
	}
	created := models.Resource{"id": fmt.Sprintf("inserted-%d", len(c.inserts))}
	for k, v := range item {
		created[k] = v
	}
	return created, nil
}

func (c *fakeCollection) getCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.gets)
}

type fakeMirror struct {
	timeline  *fakeCollection
	locations *fakeCollection
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{timeline: newFakeCollection(), locations: newFakeCollection()}
}

func (m *fakeMirror) Timeline() mirror.Collection  { return m.timeline }
func (m *fakeMirror) Locations() mirror.Collection { return m.locations }

func (m *fakeMirror) calls() int {
	return m.timeline.getCount() + m.locations.getCount() + len(m.timeline.inserts)
}

// MockResolver is a mock implementation of CredentialResolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, userID string) (mirror.Service, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(mirror.Service), args.Error(1)
}

// MockPublisher is a mock implementation of EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) TimelineInserted(ctx context.Context, event models.TimelineInsertedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) LocationUpdated(ctx context.Context, event models.LocationUpdatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// stubDemo returns a fixed result and counts its invocations.
type stubDemo struct {
	name   string
	out    models.Resource
	err    error
	panics bool
	seen   []models.Resource
}

func (d *stubDemo) Name() string { return d.name }

func (d *stubDemo) HandleItem(ctx context.Context, item models.Resource) (models.Resource, error) {
	d.seen = append(d.seen, item)
	if d.panics {
		panic("boom")
	}
	return d.out, d.err
}

// mutatingDemo rewrites its input before returning nothing.
type mutatingDemo struct{}

func (mutatingDemo) Name() string { return "mutating" }

func (mutatingDemo) HandleItem(ctx context.Context, item models.Resource) (models.Resource, error) {
	item["text"] = "changed"
	if nested, ok := item["notification"].(map[string]any); ok {
		nested["level"] = "changed"
	}
	return nil, nil
}

// passiveDemo does not implement ItemHandler.
type passiveDemo struct{}

func (passiveDemo) Name() string { return "passive" }

// failingUsers wraps a store and fails every call.
type failingUsers struct{}

var errStoreDown = errors.New("store unavailable")

func (failingUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	return nil, errStoreDown
}

func (failingUsers) UpdateUserLocation(ctx context.Context, id string, loc models.Location) error {
	return errStoreDown
}
