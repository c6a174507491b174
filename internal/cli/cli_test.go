package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/mirror-notify/common/messaging"
	"github.com/telhawk-systems/mirror-notify/internal/config"
	"github.com/telhawk-systems/mirror-notify/internal/models"
	"github.com/telhawk-systems/mirror-notify/internal/repository"
	"github.com/telhawk-systems/mirror-notify/internal/usage"
)

func useRepository(t *testing.T, repo repository.Repository) {
	t.Helper()
	original := OpenRepository
	OpenRepository = func(ctx context.Context, cfg *config.Config) (repository.Repository, error) {
		return repo, nil
	}
	t.Cleanup(func() { OpenRepository = original })
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestUserCreateAndGet(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	useRepository(t, repo)

	out, err := run(t, "user", "create", "--id", "u1", "--verify-token", "t1")
	require.NoError(t, err)
	assert.Contains(t, out, "User created")

	user, err := repo.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "t1", user.VerifyToken)

	out, err = run(t, "user", "get", "u1", "-o", "json")
	require.NoError(t, err)
	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "u1", view["id"])
	assert.NotContains(t, view, "verify_token")

	out, err = run(t, "user", "get", "u1", "-o", "yaml", "--show-token")
	require.NoError(t, err)
	var yamlView map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &yamlView))
	assert.Equal(t, "t1", yamlView["verify_token"])

	out, err = run(t, "user", "get", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "LOCATION UPDATE")
	assert.Contains(t, out, "u1")
}

func TestUserCreate_GeneratesToken(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	useRepository(t, repo)

	out, err := run(t, "user", "create", "--id", "u2", "-o", "json")
	require.NoError(t, err)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	token, _ := view["verify_token"].(string)
	assert.Len(t, token, 32)

	user, err := repo.GetUser(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, token, user.VerifyToken)
}

func TestUserCreate_Duplicate(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	useRepository(t, repo)

	_, err := run(t, "user", "create", "--id", "u1")
	require.NoError(t, err)
	_, err = run(t, "user", "create", "--id", "u1")
	assert.ErrorIs(t, err, repository.ErrUserExists)
}

func TestUserGet_Unknown(t *testing.T) {
	useRepository(t, repository.NewInMemoryRepository())

	_, err := run(t, "user", "get", "nobody")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestCredentialSetAndGet(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInMemoryRepository()
	require.NoError(t, repo.CreateUser(ctx, &models.User{ID: "u1", VerifyToken: "t1"}))
	useRepository(t, repo)

	_, err := run(t, "credential", "set", "--user", "u1", "--access-token", "ya29.a0AfH6SMBexample", "--expires-in", "1h")
	require.NoError(t, err)

	cred, err := repo.GetCredential(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ya29.a0AfH6SMBexample", cred.AccessToken)
	assert.Equal(t, "Bearer", cred.TokenType)
	require.NotNil(t, cred.Expiry)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *cred.Expiry, time.Minute)

	out, err := run(t, "credential", "get", "u1", "-o", "json")
	require.NoError(t, err)
	assert.NotContains(t, out, "ya29.a0AfH6SMBexample")
	assert.Contains(t, out, "ya29")
}

func TestCredentialSet_UnknownUser(t *testing.T) {
	useRepository(t, repository.NewInMemoryRepository())

	_, err := run(t, "credential", "set", "--user", "ghost", "--access-token", "x")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestOpenRepository_RequiresPostgres(t *testing.T) {
	_, err := OpenRepository(context.Background(), &config.Config{Database: config.DatabaseConfig{Type: "memory"}})
	assert.Error(t, err)
}

func TestSimulateTimeline(t *testing.T) {
	var received models.Notification
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("X-Request-ID", "req-42")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	out, err := run(t, "simulate", "timeline", "--url", server.URL, "--user", "u1", "--verify-token", "t1", "-o", "json")
	require.NoError(t, err)

	assert.Equal(t, "/timeline_update", path)
	assert.Equal(t, "u1", received.UserToken)
	assert.Equal(t, "t1", received.VerifyToken)
	assert.Equal(t, models.OperationUpdate, received.Operation)
	assert.NotEmpty(t, received.ItemID)
	require.Len(t, received.UserActions, 1)
	assert.Equal(t, models.ActionShare, received.UserActions[0].Type)

	var result simulateResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, "req-42", result.RequestID)
}

func TestSimulateLocation(t *testing.T) {
	var received models.Notification
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations_update", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))
	defer server.Close()

	out, err := run(t, "simulate", "location", "--url", server.URL+"/", "--user", "u1", "--verify-token", "t1")
	require.NoError(t, err)
	assert.Contains(t, out, "-> 200")

	assert.Equal(t, models.CollectionLocations, received.Collection)
	assert.Equal(t, "latest", received.ItemID)
	assert.Empty(t, received.UserActions)
}

func TestSimulate_RequiresUser(t *testing.T) {
	_, err := run(t, "simulate", "timeline", "--url", "http://127.0.0.1:1")
	assert.Error(t, err)
}

type fakeSubscriber struct {
	messages []*messaging.Message
	subject  string
}

type fakeSubscription struct{ subject string }

func (f fakeSubscription) Unsubscribe() error { return nil }
func (f fakeSubscription) Subject() string    { return f.subject }
func (f fakeSubscription) IsValid() bool      { return true }

func (f *fakeSubscriber) Subscribe(subject string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	f.subject = subject
	for _, msg := range f.messages {
		if err := handler(context.Background(), msg); err != nil {
			return nil, err
		}
	}
	return fakeSubscription{subject: subject}, nil
}

func (f *fakeSubscriber) Close() error { return nil }

func TestWatch(t *testing.T) {
	sub := &fakeSubscriber{messages: []*messaging.Message{{
		Subject:   messaging.SubjectLocationsUpdated,
		Data:      []byte(`{"user_id":"u1"}`),
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, watch(cmd, sub, messaging.SubjectAll, "table"))
	assert.Equal(t, messaging.SubjectAll, sub.subject)

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "2024-05-01T12:00:00Z"))
	assert.Contains(t, line, messaging.SubjectLocationsUpdated)
	assert.Contains(t, line, `{"user_id":"u1"}`)
}

func TestStats(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("NOTIFY_REDIS_URL", "redis://"+mr.Addr())

	client := usage.NewClientFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "notify-a")
	defer client.Close()
	batch := usage.NewBatch("u1")
	batch.Add(models.CollectionTimeline, time.Now())
	batch.Add(models.CollectionLocations, time.Now())
	require.NoError(t, client.FlushBatch(context.Background(), batch))

	out, err := run(t, "stats", "user", "u1", "-o", "json")
	require.NoError(t, err)
	var stats usage.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, int64(2), stats.TotalNotifications)
	assert.Equal(t, models.CollectionLocations, stats.LastCollection)

	out, err = run(t, "stats", "user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "LAST NOTIFIED")

	out, err = run(t, "stats", "active", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `["u1"]`, out)
}

func TestStats_RedisUnavailable(t *testing.T) {
	t.Setenv("NOTIFY_REDIS_URL", "redis://127.0.0.1:1")

	_, err := run(t, "stats", "active")
	assert.Error(t, err)
}
