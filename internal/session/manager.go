// Package session owns the per-session cart engines. Each session holds its
// own product set, cart and snapshot key; nothing is shared between sessions.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AlwanWZ/shophub/internal/domain"
	"github.com/AlwanWZ/shophub/internal/engine"
	"github.com/AlwanWZ/shophub/internal/repository"
	apperrors "github.com/AlwanWZ/shophub/pkg/errors"
)

// DefaultIdleTTL is how long an untouched session stays in memory.
const DefaultIdleTTL = 30 * time.Minute

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "shophub_sessions_active",
	Help: "Number of cart sessions held in memory",
})

// CatalogSource produces a fresh product set for a new session.
type CatalogSource interface {
	Fetch(ctx context.Context) (*domain.Catalog, error)
}

// CartPublisher is notified after every successful cart mutation.
type CartPublisher interface {
	PublishCartUpdated(ctx context.Context, sessionID, operation string, cart *domain.Cart) error
}

type session struct {
	id       string
	mu       sync.Mutex
	engine   *engine.Engine
	lastSeen atomic.Int64
	retired  bool // guarded by mu; set once the session is replaced or ended
}

// Manager creates, looks up and evicts sessions.
type Manager struct {
	source    CatalogSource
	store     repository.SnapshotStore
	publisher CartPublisher
	idleTTL   time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// Option configures a Manager.
type Option func(*Manager)

// WithPublisher enables cart.updated notifications.
func WithPublisher(p CartPublisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithIdleTTL sets the idle eviction timeout.
func WithIdleTTL(d time.Duration) Option {
	return func(m *Manager) { m.idleTTL = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager.
func NewManager(source CatalogSource, store repository.SnapshotStore, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		source:   source,
		store:    store,
		idleTTL:  DefaultIdleTTL,
		now:      time.Now,
		logger:   logger,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins a session, as a page load would: it fetches a new product set,
// restores the snapshot stored under id and reconciles it against the new
// quotas. An empty id gets a generated one. Starting an id that is already
// live replaces its engine, so quotas are rolled again. The old engine's lock
// is held across the restore, so an operation still running on it finishes
// and persists before the snapshot is read.
func (m *Manager) Start(ctx context.Context, id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	catalog, err := m.source.Fetch(ctx)
	if err != nil {
		return "", err
	}

	l := m.logger.With(slog.String("session_id", id))
	for {
		old, _ := m.lookup(id)
		if old != nil {
			old.mu.Lock()
			if old.retired {
				old.mu.Unlock()
				continue
			}
		}

		eng := engine.Restore(ctx, catalog, repository.ForKey(m.store, id), l)
		s := &session{id: id, engine: eng}
		s.lastSeen.Store(m.now().UnixNano())

		m.mu.Lock()
		m.sessions[id] = s
		n := len(m.sessions)
		m.mu.Unlock()
		activeSessions.Set(float64(n))

		if old != nil {
			old.retired = true
			old.mu.Unlock()
		}

		l.InfoContext(ctx, "session started",
			slog.Int("products", catalog.Len()),
			slog.Int("cart_lines", len(eng.Cart().Lines)),
			slog.Bool("replaced", old != nil),
		)
		return id, nil
	}
}

// With runs fn against the session's engine while holding the session lock.
// It returns an apperrors.ErrNotFound error for an unknown or evicted id.
// A session replaced while fn was waiting for the lock is looked up again.
func (m *Manager) With(ctx context.Context, id string, fn func(*engine.Engine) error) error {
	for {
		s, err := m.lookup(id)
		if err != nil {
			return err
		}

		s.mu.Lock()
		if s.retired {
			s.mu.Unlock()
			continue
		}
		defer s.mu.Unlock()
		s.lastSeen.Store(m.now().UnixNano())
		return fn(s.engine)
	}
}

// Mutate is With for operations that change the cart. When fn succeeds and a
// publisher is configured, a cart.updated event is published for operation.
// Publish failures are logged and never returned.
func (m *Manager) Mutate(ctx context.Context, id, operation string, fn func(*engine.Engine) error) error {
	var cart *domain.Cart
	err := m.With(ctx, id, func(e *engine.Engine) error {
		if err := fn(e); err != nil {
			return err
		}
		cart = e.Cart()
		return nil
	})
	if err != nil || m.publisher == nil {
		return err
	}

	if perr := m.publisher.PublishCartUpdated(ctx, id, operation, cart); perr != nil {
		m.logger.WarnContext(ctx, "failed to publish cart event",
			slog.String("session_id", id),
			slog.String("operation", operation),
			slog.String("error", perr.Error()),
		)
	}
	return nil
}

// End drops the session and deletes its snapshot.
func (m *Manager) End(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	activeSessions.Set(float64(n))

	if !ok {
		return apperrors.NotFound("session", id)
	}

	// Wait for an in-flight operation so its write cannot outlive the delete.
	s.mu.Lock()
	s.retired = true
	defer s.mu.Unlock()

	if err := m.store.Delete(ctx, id); err != nil {
		return apperrors.Wrap(err, "delete cart snapshot")
	}
	m.logger.InfoContext(ctx, "session ended", slog.String("session_id", id))
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle for longer than the idle TTL and returns how
// many were removed. Snapshots are kept, so an evicted session can be
// started again.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.idleTTL).UnixNano()

	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if s.lastSeen.Load() < cutoff {
			delete(m.sessions, id)
			removed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()
	activeSessions.Set(float64(n))

	return removed
}

// Run sweeps idle sessions periodically until ctx is canceled.
func (m *Manager) Run(ctx context.Context) {
	interval := max(m.idleTTL/2, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("evicted idle sessions", slog.Int("count", n))
			}
		}
	}
}

func (m *Manager) lookup(id string) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("session", id)
	}
	return s, nil
}
