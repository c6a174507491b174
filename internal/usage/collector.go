package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Collector accumulates notifications in memory and flushes them to Redis
// periodically. Safe for concurrent use.
type Collector struct {
	client        *Client
	flushInterval time.Duration
	logger        *slog.Logger
	now           func() time.Time

	mu      sync.Mutex
	batches map[string]*Batch

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCollector starts the background flush loop. Call Stop to flush the
// remainder and release it.
func NewCollector(client *Client, flushInterval time.Duration, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Collector{
		client:        client,
		flushInterval: flushInterval,
		logger:        logger,
		now:           time.Now,
		batches:       make(map[string]*Batch),
		ctx:           ctx,
		cancel:        cancel,
	}

	c.wg.Add(1)
	go c.flushLoop()

	return c
}

// Record counts one notification for userID.
func (c *Collector) Record(userID, collection string) {
	at := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	batch, ok := c.batches[userID]
	if !ok {
		batch = NewBatch(userID)
		c.batches[userID] = batch
	}
	batch.Add(collection, at)
}

func (c *Collector) flushLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			c.flush()
			return
		case <-ticker.C:
			c.flush()
		}
	}
}

func (c *Collector) flush() {
	c.mu.Lock()
	batches := c.batches
	c.batches = make(map[string]*Batch)
	c.mu.Unlock()

	if len(batches) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	flushed := 0
	for _, batch := range batches {
		if err := c.client.FlushBatch(ctx, batch); err != nil {
			c.logger.Error("failed to flush usage batch",
				slog.String("user_id", batch.UserID),
				slog.Int64("count", batch.Count),
				slog.String("error", err.Error()),
			)
			// Merge back for the next tick.
			c.mu.Lock()
			if existing, ok := c.batches[batch.UserID]; ok {
				existing.merge(batch)
			} else {
				c.batches[batch.UserID] = batch
			}
			c.mu.Unlock()
			continue
		}
		flushed++
	}

	if flushed > 0 {
		c.logger.Debug("flushed usage stats", slog.Int("users", flushed))
	}
}

// FlushNow forces an immediate flush.
func (c *Collector) FlushNow() {
	c.flush()
}

// Stop ends the flush loop after a final flush.
func (c *Collector) Stop() {
	c.cancel()
	c.wg.Wait()
}

// Pending returns unflushed notification counts per user.
func (c *Collector) Pending() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := make(map[string]int64, len(c.batches))
	for userID, batch := range c.batches {
		pending[userID] = batch.Count
	}
	return pending
}
