// Package session управляет сессиями синхронизации: не больше одной живой
// сессии на ключ, идентификация по случайному sync ID, истечение по TTL.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrSessionAlreadyActive indicates that a live session already exists for the key
	ErrSessionAlreadyActive = errors.New("sync session already active")

	// ErrInvalidSyncID indicates a missing, expired or mismatched sync id
	ErrInvalidSyncID = errors.New("invalid sync id")
)

// DefaultTTL время жизни сессии синхронизации по умолчанию
const DefaultTTL = 30 * time.Minute

// Session данные сессии, которые нужны менеджеру.
type Session interface {
	SyncID() string
	Started() time.Time
}

// Factory создает сессию с уже сгенерированным sync ID.
type Factory[S Session] func(syncID string, started time.Time) S

// Option configures a Manager.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
	ttl    time.Duration
}

// WithTTL sets the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Manager хранит активные сессии по ключу K.
type Manager[K comparable, S Session] struct {
	sessions map[K]S
	logger   *slog.Logger
	now      func() time.Time
	ttl      time.Duration
	mu       sync.Mutex
}

// NewManager creates a session manager.
func NewManager[K comparable, S Session](opts ...Option) *Manager[K, S] {
	o := options{
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Manager[K, S]{
		sessions: make(map[K]S),
		logger:   o.logger,
		now:      o.now,
		ttl:      o.ttl,
	}
}

// TTL returns the configured session lifetime.
func (m *Manager[K, S]) TTL() time.Duration {
	return m.ttl
}

func (m *Manager[K, S]) expired(s S, now time.Time) bool {
	return now.Sub(s.Started()) > m.ttl
}

// liveLocked возвращает живую сессию, истекшую удаляет.
func (m *Manager[K, S]) liveLocked(key K, now time.Time) (S, bool) {
	s, ok := m.sessions[key]
	if !ok {
		var zero S
		return zero, false
	}
	if m.expired(s, now) {
		delete(m.sessions, key)
		m.logger.Info("sync session expired", "session_key", fmt.Sprint(key))
		var zero S
		return zero, false
	}
	return s, true
}

// HasActiveSyncSession reports whether a live session exists for the key.
func (m *Manager[K, S]) HasActiveSyncSession(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.liveLocked(key, m.now())
	return ok
}

// CreateNewSession creates a session with a fresh sync id.
// Returns ErrSessionAlreadyActive if a live session exists for the key.
func (m *Manager[K, S]) CreateNewSession(key K, factory Factory[S]) (S, error) {
	var zero S

	syncID, err := GenerateSyncID()
	if err != nil {
		return zero, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, ok := m.liveLocked(key, now); ok {
		return zero, ErrSessionAlreadyActive
	}

	s := factory(syncID, now)
	m.sessions[key] = s
	return s, nil
}

// ValidateSyncID checks that a live session exists for the key and that its
// sync id matches.
func (m *Manager[K, S]) ValidateSyncID(key K, syncID string) (S, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero S
	s, ok := m.liveLocked(key, m.now())
	if !ok || syncID == "" || s.SyncID() != syncID {
		return zero, ErrInvalidSyncID
	}
	return s, nil
}

// FindSession returns the live session for the key, if any.
func (m *Manager[K, S]) FindSession(key K) (S, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.liveLocked(key, m.now())
}

// TerminateSession removes the session for the key and reports whether one
// existed. An expired session that was not yet evicted counts as existing.
func (m *Manager[K, S]) TerminateSession(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[key]
	delete(m.sessions, key)
	return ok
}

// Sweep удаляет все истекшие сессии и возвращает их количество.
func (m *Manager[K, S]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, key)
			removed++
		}
	}
	return removed
}

// StartCleanup периодически удаляет истекшие сессии, пока не отменен ctx.
func (m *Manager[K, S]) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					m.logger.Info("expired sync sessions removed", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// GenerateSyncID returns 32 random bytes encoded as URL-safe base64.
func GenerateSyncID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate sync id: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
