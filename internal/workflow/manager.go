package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/minuta/internal/apperr"
	"github.com/starford/minuta/internal/storage"
)

// Manager keeps the live review sessions in memory.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	uploads  storage.Provider
	maxBytes int64
	logger   *slog.Logger
}

// NewManager creates a Manager that stores uploaded documents in uploads,
// one folder per session. maxBytes <= 0 uses DefaultMaxDocumentBytes.
func NewManager(uploads storage.Provider, maxBytes int64, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentBytes
	}
	return &Manager{
		sessions: make(map[string]*Session),
		uploads:  uploads,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// MaxBytes returns the per-document upload limit.
func (m *Manager) MaxBytes() int64 { return m.maxBytes }

// Create starts a new session at the select-template step.
func (m *Manager) Create() *Session {
	s := newSession(uuid.NewString(), m.uploads, m.maxBytes, m.logger)
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	return s
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Delete ends a session and removes its uploaded documents.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return apperr.ErrNotFound
	}
	s.close()
	if err := m.uploads.RemoveAll(id); err != nil {
		m.logger.Warn("remove session uploads failed",
			slog.String("session", id), slog.String("error", err.Error()))
	}
	return nil
}

// Sweep deletes sessions idle for longer than maxIdle, skipping any with an
// extraction in flight. It returns how many were removed.
func (m *Manager) Sweep(now time.Time, maxIdle time.Duration) int {
	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if !s.busy() && now.Sub(s.idleSince()) > maxIdle {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	removed := 0
	for _, id := range stale {
		if m.Delete(id) == nil {
			removed++
		}
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval, maxIdle time.Duration) error {
	if interval <= 0 || maxIdle <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := m.Sweep(now.UTC(), maxIdle); n > 0 {
				m.logger.Info("expired idle sessions", slog.Int("count", n))
			}
		}
	}
}
