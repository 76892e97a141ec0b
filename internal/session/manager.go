// Package session owns one note store per signed-in user. It is the
// application root through which transports reach a user's store.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/journal/internal/metrics"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/notestore"
	"github.com/starford/journal/internal/persistence"
	"github.com/starford/journal/internal/sse"
)

// Publisher delivers store events to a user's live streams.
type Publisher interface {
	Publish(user string, event sse.Event)
	PublishNoteEvent(user string, event sse.Event)
	Disconnect(user string)
}

// Option configures a Manager.
type Option func(*Manager)

// WithPublisher forwards store events and notifications to p.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.pub = p }
}

// WithLogger sets the logger used for store failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithMetrics records active sessions and store failures in mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithStoreOptions appends options applied to every store.
func WithStoreOptions(opts ...notestore.Option) Option {
	return func(m *Manager) { m.storeOpts = append(m.storeOpts, opts...) }
}

type entry struct {
	store *notestore.Store
	ready chan struct{}
	err   error
}

// Manager maps user ids to loaded stores.
type Manager struct {
	backend   persistence.Backend
	pub       Publisher
	log       *slog.Logger
	metrics   *metrics.Metrics
	storeOpts []notestore.Option

	mu      sync.Mutex
	entries map[string]*entry
}

// NewManager returns a Manager whose stores persist through backend.
func NewManager(backend persistence.Backend, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		log:     slog.Default(),
		entries: make(map[string]*entry),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Open returns the store of user, building and loading it on first use.
// Concurrent callers for the same user share one load. A failed load is
// not cached.
func (m *Manager) Open(ctx context.Context, user models.User) (*notestore.Store, error) {
	m.mu.Lock()
	if e, ok := m.entries[user.ID]; ok {
		m.mu.Unlock()
		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if e.err != nil {
			return nil, e.err
		}
		return e.store, nil
	}
	e := &entry{ready: make(chan struct{})}
	m.entries[user.ID] = e
	m.mu.Unlock()

	opts := append([]notestore.Option{notestore.WithListener(m.listenerFor(user))}, m.storeOpts...)
	e.store = notestore.New(persistence.Scope(m.backend, user.ID), user, opts...)
	e.err = e.store.Load(ctx)
	close(e.ready)

	if e.err != nil {
		m.mu.Lock()
		if m.entries[user.ID] == e {
			delete(m.entries, user.ID)
		}
		m.mu.Unlock()
		return nil, fmt.Errorf("session: open %s: %w", user.Email, e.err)
	}

	m.log.Info("session opened", slog.String("user", user.ID))
	m.setGauge()
	return e.store, nil
}

// Get returns the already loaded store of userID.
func (m *Manager) Get(userID string) (*notestore.Store, bool) {
	m.mu.Lock()
	e, ok := m.entries[userID]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	select {
	case <-e.ready:
		return e.store, e.err == nil
	default:
		return nil, false
	}
}

// Close logs user out: its store is reset and dropped and its event
// streams are closed.
func (m *Manager) Close(user models.User) {
	m.mu.Lock()
	e, ok := m.entries[user.ID]
	delete(m.entries, user.ID)
	m.mu.Unlock()

	if ok {
		<-e.ready
		if e.store != nil {
			e.store.Reset()
		}
		m.log.Info("session closed", slog.String("user", user.ID))
	}
	if m.pub != nil {
		m.pub.Disconnect(user.ID)
	}
	m.setGauge()
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manager) setGauge() {
	if m.metrics == nil {
		return
	}
	m.metrics.ActiveSessions.Set(float64(m.Len()))
}

func (m *Manager) listenerFor(user models.User) notestore.Listener {
	return &listener{user: user, pub: m.pub, log: m.log, metrics: m.metrics}
}
