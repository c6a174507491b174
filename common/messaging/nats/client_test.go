package nats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/telhawk-systems/mirror-notify/common/messaging"
)

// setupNATS starts a JetStream-enabled NATS server and returns its URL.
func setupNATS(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping NATS container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			Cmd:          []string{"-js"},
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start NATS container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)

	return fmt.Sprintf("nats://%s:%s", host, port.Port())
}

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.Name = "mirror-notify-test"
	return cfg
}

func TestClient_PublishMsgDeliversHeaders(t *testing.T) {
	client, err := NewClient(testConfig(setupNATS(t)), nil)
	require.NoError(t, err)
	defer client.Close()
	require.True(t, client.IsConnected())

	received := make(chan *messaging.Message, 1)
	sub, err := client.Subscribe(messaging.SubjectAll, func(ctx context.Context, msg *messaging.Message) error {
		received <- msg
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, messaging.SubjectAll, sub.Subject())
	assert.True(t, sub.IsValid())

	err = client.PublishMsg(context.Background(), &messaging.Message{
		Subject:  messaging.SubjectTimelineInserted,
		Data:     []byte(`{"user_id":"u1"}`),
		Metadata: map[string]string{messaging.HeaderUserToken: "u1"},
	})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, messaging.SubjectTimelineInserted, msg.Subject)
		assert.JSONEq(t, `{"user_id":"u1"}`, string(msg.Data))
		assert.Equal(t, "u1", msg.Metadata[messaging.HeaderUserToken])
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	require.NoError(t, sub.Unsubscribe())
	assert.False(t, sub.IsValid())
}

func TestClient_PublishHonoursCancelledContext(t *testing.T) {
	client, err := NewClient(testConfig(setupNATS(t)), nil)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, client.Publish(ctx, messaging.SubjectLocationsUpdated, nil), context.Canceled)
}

func TestJetStreamClient_EventsStreamCapturesPublishes(t *testing.T) {
	client, err := NewJetStreamClient(testConfig(setupNATS(t)), nil)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	stream, err := client.CreateOrUpdateStream(ctx, EventsStream(time.Hour))
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, messaging.SubjectLocationsUpdated, []byte(`{}`)))
	require.NoError(t, client.conn.Flush())

	assert.Eventually(t, func() bool {
		info, err := stream.Info(ctx)
		return err == nil && info.State.Msgs == 1
	}, 5*time.Second, 100*time.Millisecond)
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := testConfig("nats://127.0.0.1:1")
	cfg.Timeout = 200 * time.Millisecond
	_, err := NewClient(cfg, nil)
	assert.Error(t, err)
}
