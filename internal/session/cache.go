package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kvadminer/kvadminer/internal/kverr"
	"github.com/kvadminer/kvadminer/internal/metrics"
	"github.com/kvadminer/kvadminer/internal/store"
)

// ErrClosed is returned by GetOrCreate after Close has been called.
var ErrClosed = errors.New("session: cache closed")

// Connector builds a store handle for an endpoint. *store.Factory implements it.
type Connector interface {
	Connect(ep store.Endpoint) (*redis.Client, error)
}

// ConnectorFunc adapts a plain function to the Connector interface.
type ConnectorFunc func(ep store.Endpoint) (*redis.Client, error)

// Connect calls f(ep).
func (f ConnectorFunc) Connect(ep store.Endpoint) (*redis.Client, error) {
	return f(ep)
}

// record is the cached state of one session.
type record struct {
	client     *redis.Client
	endpoint   store.Endpoint
	lastActive time.Time
}

// retiredHandle is a handle replaced by an endpoint change. Requests that
// obtained it before the change may still be using it, so it is closed by a
// later sweep instead of immediately.
type retiredHandle struct {
	client    *redis.Client
	sessionID string
	retiredAt time.Time
}

// Cache is the single owner of every cached store handle. All bookkeeping
// happens under one mutex; the mutex is never held across store I/O, and
// handles are always closed after it is released.
type Cache struct {
	mu        sync.Mutex
	records   map[string]*record // session_id -> record
	retired   []retiredHandle
	connector Connector
	now       func() time.Time
	log       zerolog.Logger
	closed    bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger used for creation and eviction events.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// NewCache creates an empty cache that builds handles with connector.
func NewCache(connector Connector, opts ...Option) *Cache {
	c := &Cache{
		records:   make(map[string]*record),
		connector: connector,
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCreate returns the handle cached for sessionID, refreshing its
// last-active time. If none exists, or the cached one points at a different
// endpoint, a new handle is built and cached. A replaced handle is retired,
// not closed, so callers still holding it can finish; Sweep closes it later.
// Concurrent first use of the same sessionID builds exactly one handle. A
// failed build leaves no record.
func (c *Cache) GetOrCreate(sessionID string, ep store.Endpoint) (*redis.Client, error) {
	if sessionID == "" {
		return nil, kverr.Invalid("session: get or create", "session id is empty")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}

	rec, ok := c.records[sessionID]
	if ok && rec.endpoint == ep {
		rec.lastActive = c.now()
		client := rec.client
		c.mu.Unlock()
		c.log.Debug().Str("session", sessionID).Msg("reusing store connection")
		return client, nil
	}

	// Building a handle performs no network I/O, so it is safe under the lock.
	client, err := c.connector.Connect(ep)
	if err != nil {
		c.mu.Unlock()
		metrics.ConnectionsCreated.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("session: create connection for %s: %w", sessionID, err)
	}

	if ok {
		c.retired = append(c.retired, retiredHandle{
			client:    rec.client,
			sessionID: sessionID,
			retiredAt: c.now(),
		})
	}
	c.records[sessionID] = &record{
		client:     client,
		endpoint:   ep,
		lastActive: c.now(),
	}
	n := len(c.records)
	c.mu.Unlock()

	metrics.ConnectionsCreated.WithLabelValues("ok").Inc()
	metrics.ActiveSessions.Set(float64(n))

	if ok {
		c.log.Info().Str("session", sessionID).Str("endpoint", ep.String()).Msg("endpoint changed, replaced store connection")
	} else {
		c.log.Info().Str("session", sessionID).Str("endpoint", ep.String()).Msg("created store connection")
	}
	return client, nil
}

// Sweep removes every session idle for longer than timeout and closes its
// handle. Handles retired by an endpoint change are closed once they have
// been retired for longer than timeout. It returns the number of sessions
// removed.
func (c *Cache) Sweep(timeout time.Duration) int {
	now := c.now()

	c.mu.Lock()
	var stale []*redis.Client
	var ids []string
	for id, rec := range c.records {
		if now.Sub(rec.lastActive) > timeout {
			stale = append(stale, rec.client)
			ids = append(ids, id)
			delete(c.records, id)
		}
	}
	var expired []retiredHandle
	kept := c.retired[:0]
	for _, r := range c.retired {
		if now.Sub(r.retiredAt) > timeout {
			expired = append(expired, r)
		} else {
			kept = append(kept, r)
		}
	}
	c.retired = kept
	n := len(c.records)
	c.mu.Unlock()

	for _, r := range expired {
		if err := r.client.Close(); err != nil {
			c.log.Warn().Err(err).Str("session", r.sessionID).Msg("closing replaced store connection")
		}
	}

	if len(stale) == 0 {
		return 0
	}

	for i, client := range stale {
		if err := client.Close(); err != nil {
			c.log.Warn().Err(err).Str("session", ids[i]).Msg("closing evicted store connection")
		}
		c.log.Info().Str("session", ids[i]).Msg("session evicted after inactivity")
	}

	metrics.SessionsEvicted.Add(float64(len(stale)))
	metrics.ActiveSessions.Set(float64(n))
	return len(stale)
}

// Run sweeps the cache every interval until ctx is cancelled. It blocks, so
// callers run it on its own goroutine and wait for it before calling Close.
func (c *Cache) Run(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.log.Info().Dur("interval", interval).Dur("timeout", timeout).Msg("session sweeper started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("session sweeper stopped")
			return
		case <-ticker.C:
			if removed := c.Sweep(timeout); removed > 0 {
				c.log.Info().Int("removed", removed).Int("remaining", c.Len()).Msg("sweep finished")
			}
		}
	}
}

// Len returns the number of cached sessions.
func (c *Cache) Len() int {
	c.mu.Lock()
	n := len(c.records)
	c.mu.Unlock()
	return n
}

// Close closes every cached handle and rejects later GetOrCreate calls.
// Calling Close more than once is a no-op.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	records := c.records
	retired := c.retired
	c.records = make(map[string]*record)
	c.retired = nil
	c.mu.Unlock()

	var errs []error
	for id, rec := range records {
		if err := rec.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}
	for _, r := range retired {
		if err := r.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session %s (replaced): %w", r.sessionID, err))
		}
	}
	metrics.ActiveSessions.Set(0)
	c.log.Info().Int("closed", len(records)).Msg("session cache closed")
	return errors.Join(errs...)
}
