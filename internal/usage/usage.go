// Package usage keeps per-user notification statistics in Redis.
//
// Several notify instances write concurrently; any of them, or notifyctl,
// can read the result.
//
// Redis key structure:
//
//	notify:stats:{user_id}               - hash with current stats
//	notify:hourly:{user_id}:{YYYYMMDDHH} - notification count for the hour (expires 48h)
//	notify:instances:{user_id}           - hash of notify instance -> last seen unix time (expires 24h)
package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statsPrefix     = "notify:stats:"
	hourlyPrefix    = "notify:hourly:"
	instancesPrefix = "notify:instances:"

	hourLayout = "2006010215"
)

// Stats is the usage summary for one subscription user.
type Stats struct {
	UserID                string            `json:"user_id" yaml:"user_id"`
	LastNotifiedAt        *time.Time        `json:"last_notified_at,omitempty" yaml:"last_notified_at,omitempty"`
	LastCollection        string            `json:"last_collection,omitempty" yaml:"last_collection,omitempty"`
	TotalNotifications    int64             `json:"total_notifications" yaml:"total_notifications"`
	NotificationsLastHour int64             `json:"notifications_last_hour" yaml:"notifications_last_hour"`
	NotificationsLast24h  int64             `json:"notifications_last_24h" yaml:"notifications_last_24h"`
	Instances             map[string]string `json:"instances,omitempty" yaml:"instances,omitempty"`
	RetrievedAt           time.Time         `json:"retrieved_at" yaml:"retrieved_at"`
}

// Client records and reads usage statistics.
type Client struct {
	redis      *redis.Client
	instanceID string
	now        func() time.Time
}

// NewClient connects to Redis. instanceID should be unique per notify
// instance (hostname, pod name).
func NewClient(redisURL string, instanceID string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewClientFromRedis(client, instanceID), nil
}

// NewClientFromRedis wraps an existing connection.
func NewClientFromRedis(client *redis.Client, instanceID string) *Client {
	return &Client{
		redis:      client,
		instanceID: instanceID,
		now:        time.Now,
	}
}

// Batch accumulates notifications for one user between flushes.
type Batch struct {
	UserID         string
	Count          int64
	LastCollection string
	LastAt         time.Time
}

func NewBatch(userID string) *Batch {
	return &Batch{UserID: userID}
}

// Add counts one notification for collection received at at.
func (b *Batch) Add(collection string, at time.Time) {
	b.Count++
	if !at.Before(b.LastAt) {
		b.LastAt = at
		b.LastCollection = collection
	}
}

func (b *Batch) merge(other *Batch) {
	b.Count += other.Count
	if !other.LastAt.Before(b.LastAt) {
		b.LastAt = other.LastAt
		b.LastCollection = other.LastCollection
	}
}

// FlushBatch writes accumulated stats to Redis in one pipeline.
func (c *Client) FlushBatch(ctx context.Context, batch *Batch) error {
	if batch.Count == 0 {
		return nil
	}

	at := batch.LastAt
	if at.IsZero() {
		at = c.now()
	}
	atUnix := strconv.FormatInt(at.Unix(), 10)

	pipe := c.redis.Pipeline()

	statsKey := statsPrefix + batch.UserID
	pipe.HSet(ctx, statsKey, map[string]interface{}{
		"last_notified_at": atUnix,
		"last_collection":  batch.LastCollection,
	})
	pipe.HIncrBy(ctx, statsKey, "total_notifications", batch.Count)

	hourlyKey := hourlyPrefix + batch.UserID + ":" + at.UTC().Format(hourLayout)
	pipe.IncrBy(ctx, hourlyKey, batch.Count)
	pipe.Expire(ctx, hourlyKey, 48*time.Hour)

	instancesKey := instancesPrefix + batch.UserID
	pipe.HSet(ctx, instancesKey, c.instanceID, strconv.FormatInt(c.now().Unix(), 10))
	pipe.Expire(ctx, instancesKey, 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to flush usage batch: %w", err)
	}
	return nil
}

// GetStats reads the usage summary for userID. Unknown users yield zero stats.
func (c *Client) GetStats(ctx context.Context, userID string) (*Stats, error) {
	now := c.now().UTC()

	pipe := c.redis.Pipeline()
	statsCmd := pipe.HGetAll(ctx, statsPrefix+userID)

	hourlyCmds := make([]*redis.StringCmd, 24)
	for i := range hourlyCmds {
		hour := now.Add(-time.Duration(i) * time.Hour).Format(hourLayout)
		hourlyCmds[i] = pipe.Get(ctx, hourlyPrefix+userID+":"+hour)
	}

	instancesCmd := pipe.HGetAll(ctx, instancesPrefix+userID)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get usage stats: %w", err)
	}

	stats := &Stats{
		UserID:      userID,
		RetrievedAt: now,
		Instances:   make(map[string]string),
	}

	if fields, err := statsCmd.Result(); err == nil {
		if unix, err := strconv.ParseInt(fields["last_notified_at"], 10, 64); err == nil {
			t := time.Unix(unix, 0).UTC()
			stats.LastNotifiedAt = &t
		}
		stats.LastCollection = fields["last_collection"]
		stats.TotalNotifications, _ = strconv.ParseInt(fields["total_notifications"], 10, 64)
	}

	for i, cmd := range hourlyCmds {
		if val, err := cmd.Int64(); err == nil {
			if i == 0 {
				stats.NotificationsLastHour = val
			}
			stats.NotificationsLast24h += val
		}
	}

	if instances, err := instancesCmd.Result(); err == nil {
		for instance, lastSeen := range instances {
			if unix, err := strconv.ParseInt(lastSeen, 10, 64); err == nil {
				stats.Instances[instance] = time.Unix(unix, 0).UTC().Format(time.RFC3339)
			}
		}
	}

	return stats, nil
}

// ListActiveUsers returns users notified within since.
func (c *Client) ListActiveUsers(ctx context.Context, since time.Duration) ([]string, error) {
	cutoff := c.now().Add(-since).Unix()

	var users []string
	iter := c.redis.Scan(ctx, 0, statsPrefix+"*", 1000).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		lastNotified, err := c.redis.HGet(ctx, key, "last_notified_at").Int64()
		if err == nil && lastNotified >= cutoff {
			users = append(users, strings.TrimPrefix(key, statsPrefix))
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan usage stats: %w", err)
	}

	return users, nil
}

func (c *Client) Close() error {
	return c.redis.Close()
}
