package viewer

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/molscope/molscope/internal/infrastructure/monitoring/logging"
	"github.com/molscope/molscope/internal/infrastructure/monitoring/metrics"
	"github.com/molscope/molscope/internal/infrastructure/render"
	"github.com/molscope/molscope/pkg/errors"
	vtypes "github.com/molscope/molscope/pkg/types/viewer"
)

// ManagerConfig carries the registry-level settings plus the template every
// new session is stamped from.
type ManagerConfig struct {
	Session Config

	// Width and Height are the default mount surface dimensions, used when a
	// create request does not name its own.
	Width  int
	Height int

	// MaxSessions caps concurrently open sessions.
	MaxSessions int
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.Width <= 0 {
		c.Width = 640
	}
	if c.Height <= 0 {
		c.Height = 480
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = 64
	}
	return c
}

// ManagerOption customises manager construction.
type ManagerOption func(*Manager)

// WithManagerLogger sets the manager logger; sessions derive theirs from it.
func WithManagerLogger(logger logging.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithManagerMetrics sets the application metric set shared with sessions.
func WithManagerMetrics(am *metrics.AppMetrics) ManagerOption {
	return func(m *Manager) {
		if am != nil {
			m.metrics = am
		}
	}
}

type managedSession struct {
	session *Session
	surface *render.Surface
}

// Manager is the viewer session registry.  It owns each session's mount
// surface: opening a session creates one, closing a session detaches it.
type Manager struct {
	cfg      ManagerConfig
	provider *render.Provider
	logger   logging.Logger
	metrics  *metrics.AppMetrics

	mu       sync.RWMutex
	sessions map[string]*managedSession
}

// NewManager creates an empty session registry backed by the given engine
// provider.
func NewManager(provider *render.Provider, cfg ManagerConfig, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:      cfg.withDefaults(),
		provider: provider,
		logger:   logging.NewNopLogger(),
		metrics:  metrics.NewNopAppMetrics(),
		sessions: make(map[string]*managedSession),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open creates and initializes a new session.  The session limit and request
// validation are the only Open errors; an engine-level initialization
// failure leaves the session registered in the Error state, observable
// through its Info, so callers can inspect and close it.
func (m *Manager) Open(ctx context.Context, req vtypes.CreateSessionRequest) (*Session, error) {
	if req.Width < 0 || req.Height < 0 {
		return nil, errors.New(errors.CodeInvalidParam, "surface dimensions must not be negative")
	}

	width, height := req.Width, req.Height
	if width == 0 {
		width = m.cfg.Width
	}
	if height == 0 {
		height = m.cfg.Height
	}

	sessionCfg := m.cfg.Session
	if req.Engine != "" {
		sessionCfg.Engine = req.Engine
	}

	m.mu.Lock()
	if len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return nil, errors.New(errors.CodeSessionLimit,
			"viewer session limit reached, close an existing session first")
	}

	surface := render.NewSurface(width, height)
	sess := NewSession(uuid.NewString(), surface, m.provider, sessionCfg,
		WithLogger(m.logger), WithMetrics(m.metrics))
	m.sessions[sess.ID()] = &managedSession{session: sess, surface: surface}
	m.metrics.SessionsActive.WithLabelValues().Inc()
	m.metrics.SessionsOpenedTotal.WithLabelValues().Inc()
	m.mu.Unlock()

	m.logger.Info("viewer session opened",
		logging.String("session_id", sess.ID()),
		logging.String("engine", sessionCfg.Engine),
		logging.Int("width", width),
		logging.Int("height", height))

	// Initialization runs outside the registry lock: engine acquisition may
	// block on a shared load, and other sessions must stay reachable.
	if err := sess.Initialize(ctx); err != nil {
		m.logger.Warn("session initialization failed",
			logging.String("session_id", sess.ID()), logging.Err(err))
	}
	return sess, nil
}

// Get returns a registered session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[id]
	if !ok {
		return nil, errors.New(errors.CodeSessionNotFound, "viewer session not found")
	}
	return entry.session, nil
}

// Close tears a session down, detaches its surface, and removes it from the
// registry.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return errors.New(errors.CodeSessionNotFound, "viewer session not found")
	}

	entry.session.Teardown()
	entry.surface.Detach()
	m.metrics.SessionsActive.WithLabelValues().Dec()
	m.logger.Info("viewer session closed", logging.String("session_id", id))
	return nil
}

// CloseAll tears down every open session.  Used on server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	entries := make([]*managedSession, 0, len(m.sessions))
	for id, entry := range m.sessions {
		entries = append(entries, entry)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, entry := range entries {
		entry.session.Teardown()
		entry.surface.Detach()
		m.metrics.SessionsActive.WithLabelValues().Dec()
	}
	if len(entries) > 0 {
		m.logger.Info("all viewer sessions closed", logging.Int("count", len(entries)))
	}
}

// List returns the open sessions ordered by creation time, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, entry := range m.sessions {
		out = append(out, entry.session)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].ID() < out[j].ID()
		}
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out
}

// Len reports the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
