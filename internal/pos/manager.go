package pos

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionManager hands out one Session per operator. Sessions left idle longer than the
// idle timeout are dropped by EvictIdle, cart included.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[uint]*managedSession
	loader   *CatalogLoader
	checkout *Orchestrator
	policy   DiscountPolicy
	logger   *zap.Logger
	idle     time.Duration
	now      func() time.Time
}

type managedSession struct {
	session  *Session
	lastSeen time.Time
}

type ManagerOption func(*SessionManager)

// WithIdleTimeout sets how long a session may go unused before EvictIdle drops it.
// Zero keeps sessions for the life of the process.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *SessionManager) { m.idle = d }
}

func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *SessionManager) { m.now = now }
}

func NewSessionManager(loader *CatalogLoader, checkout *Orchestrator, policy DiscountPolicy, logger *zap.Logger, opts ...ManagerOption) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &SessionManager{
		sessions: make(map[uint]*managedSession),
		loader:   loader,
		checkout: checkout,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the operator's session, creating it and loading its catalog on first use.
func (m *SessionManager) Get(ctx context.Context, operatorID uint) (*Session, error) {
	if operatorID == 0 {
		return nil, ErrNoOperator
	}

	m.mu.Lock()
	entry, ok := m.sessions[operatorID]
	if !ok {
		entry = &managedSession{session: NewSession(operatorID, m.loader, m.checkout, m.policy, m.logger)}
		m.sessions[operatorID] = entry
		m.logger.Info("pos session opened", zap.Uint("operator_id", operatorID))
	}
	entry.lastSeen = m.now()
	s := entry.session
	m.mu.Unlock()

	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset discards the operator's session, cart included.
func (m *SessionManager) Reset(operatorID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[operatorID]; ok {
		delete(m.sessions, operatorID)
		m.logger.Info("pos session reset", zap.Uint("operator_id", operatorID))
	}
}

// Len is the number of open sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle drops sessions unused for longer than the idle timeout and returns how many
// went. A session with a checkout in flight is kept.
func (m *SessionManager) EvictIdle() int {
	if m.idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idle)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, entry := range m.sessions {
		if entry.lastSeen.After(cutoff) || entry.session.Processing() {
			continue
		}
		delete(m.sessions, id)
		evicted++
		m.logger.Info("idle pos session dropped",
			zap.Uint("operator_id", id), zap.Time("last_seen", entry.lastSeen))
	}
	return evicted
}

// RunEviction calls EvictIdle every interval until ctx is done.
func (m *SessionManager) RunEviction(ctx context.Context, interval time.Duration) {
	if m.idle <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}
