package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrSessionNotFound = errors.New("session not found")

// Manager keeps the open form sessions and expires the ones left idle.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ctx          context.Context
	opts         Options
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type ManagerOption func(*Manager)

func WithIdleTTL(d time.Duration) ManagerOption {
	return func(m *Manager) { m.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) ManagerOption {
	return func(m *Manager) { m.cleanupEvery = d }
}

// NewManager creates sessions as children of ctx, so cancelling it discards
// every open session.
func NewManager(ctx context.Context, opts Options, mopts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:     make(map[string]*Session),
		ctx:          ctx,
		opts:         opts,
		idleTTL:      30 * time.Minute,
		cleanupEvery: time.Minute,
	}
	for _, opt := range mopts {
		opt(m)
	}
	return m
}

func (m *Manager) Create() *Session {
	s := Start(m.ctx, uuid.NewString(), m.opts)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	logrus.WithField("session_id", s.ID()).Debug("Session created")
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Discard(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Cleanup closes sessions idle for longer than the TTL.
func (m *Manager) Cleanup() {
	cutoff := time.Now().Add(-m.idleTTL)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		logrus.WithField("count", len(expired)).Info("Expired idle sessions")
	}
}

// Run expires idle sessions until ctx is done, then closes the rest.
func (m *Manager) Run(ctx context.Context) error {
	t := time.NewTicker(m.cleanupEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return nil
		case <-t.C:
			m.Cleanup()
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		open = append(open, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range open {
		s.Close()
	}
}
