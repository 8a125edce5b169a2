package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sockbridge/server/internal/bus"
	"github.com/sockbridge/server/internal/frame"
	"github.com/sockbridge/server/internal/model"
	"github.com/sockbridge/server/internal/polling"
	"github.com/sockbridge/server/internal/repository"
	"github.com/sockbridge/server/internal/transport"
)

// Config holds the per-session timings handed to new actors.
type Config struct {
	// HeartbeatInterval of 0 disables session heartbeats.
	HeartbeatInterval time.Duration
	PollInterval      time.Duration
	CloseTimeout      time.Duration
}

// Entry is the live actor pair for one session. Transport is nil for
// WebSocket-only sessions.
type Entry struct {
	Session   *Session
	Transport *polling.Transport
}

// Manager creates, resolves and reaps sessions. It owns the id-to-actor
// map; the actors own their own state.
type Manager struct {
	bus  *bus.Bus
	repo *repository.SessionRepository
	cfg  Config
	log  zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Entry
}

// NewManager creates a session manager. repo may be nil to run without
// the session ledger.
func NewManager(b *bus.Bus, repo *repository.SessionRepository, cfg Config, log zerolog.Logger) *Manager {
	return &Manager{
		bus:      b,
		repo:     repo,
		cfg:      cfg,
		log:      log,
		sessions: make(map[string]*Entry),
	}
}

// CreatePolling establishes a new session served by a polling transport
// of the given kind and returns its actor pair.
func (m *Manager) CreatePolling(ctx context.Context, kind transport.Kind) (*Entry, error) {
	id := uuid.New().String()

	t := polling.New(id, m.bus, polling.Config{
		PollInterval: m.cfg.PollInterval,
		CloseTimeout: m.cfg.CloseTimeout,
	}, m.log, func(reason model.CloseReason) {
		m.reap(id, reason)
	})

	s := New(id, m.inboundHandler(), m.cfg.HeartbeatInterval, m.log)
	s.AttachPolling(t)

	entry := &Entry{Session: s, Transport: t}
	m.mu.Lock()
	m.sessions[id] = entry
	m.mu.Unlock()

	if err := m.record(ctx, id, kind); err != nil {
		return nil, err
	}
	return entry, nil
}

// CreateWebSocket establishes a new session for a WebSocket client. The
// caller attaches the write handle once the socket is up.
func (m *Manager) CreateWebSocket(ctx context.Context) (*Session, error) {
	id := uuid.New().String()
	s := New(id, m.inboundHandler(), m.cfg.HeartbeatInterval, m.log)

	m.mu.Lock()
	m.sessions[id] = &Entry{Session: s}
	m.mu.Unlock()

	if err := m.record(ctx, id, transport.KindWebSocket); err != nil {
		return nil, err
	}
	return s, nil
}

// inboundHandler publishes decoded WebSocket data frames on the event
// bus, so application code sees inbound traffic from both transports in
// one place.
func (m *Manager) inboundHandler() MessageHandler {
	return MessageHandlerFunc(func(s *Session, f frame.Frame) {
		m.bus.Publish(bus.Event{SessionID: s.ID(), Frame: f})
	})
}

func (m *Manager) record(ctx context.Context, id string, kind transport.Kind) error {
	if m.repo == nil {
		return nil
	}
	now := time.Now()
	return m.repo.Create(ctx, &model.Session{
		ID:        id,
		Transport: string(kind),
		Status:    model.SessionStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Get returns the live actor pair for a session id.
func (m *Manager) Get(id string) (*Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[id]
	return entry, ok
}

// Transport resolves the polling transport actor for a session id.
func (m *Manager) Transport(id string) (*polling.Transport, error) {
	entry, ok := m.Get(id)
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	if entry.Transport == nil {
		return nil, model.ErrUnknownTransport
	}
	return entry.Transport, nil
}

// Stop terminates a session explicitly. For polling sessions the
// transport actor's shutdown drives the reap; WebSocket-only sessions
// are reaped directly.
func (m *Manager) Stop(id string, reason model.CloseReason) error {
	entry, ok := m.Get(id)
	if !ok {
		return model.ErrSessionNotFound
	}
	if entry.Transport != nil {
		entry.Transport.Stop()
		return nil
	}
	m.reap(id, reason)
	return nil
}

// reap removes a terminated session: stops its actor, drops its bus
// subscriptions and closes its ledger record.
func (m *Manager) reap(id string, reason model.CloseReason) {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return
	}

	entry.Session.Stop()
	m.bus.Drop(id)
	m.log.Info().Str("session", id).Str("reason", string(reason)).Msg("session reaped")

	if m.repo != nil {
		if err := m.repo.MarkClosed(context.Background(), id, reason); err != nil {
			m.log.Warn().Err(err).Str("session", id).Msg("failed to close ledger record")
		}
	}
}

// List returns the session ledger, newest first.
func (m *Manager) List(ctx context.Context) ([]*model.Session, error) {
	if m.repo == nil {
		return nil, nil
	}
	return m.repo.List(ctx)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops all live sessions.
func (m *Manager) Close() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.Stop(id, model.CloseReasonStopped)
	}
}
