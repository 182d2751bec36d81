package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/cityguesser/internal/game"
	"github.com/playperu/cityguesser/internal/geoquiz"
	"github.com/playperu/cityguesser/internal/metrics"
)

type registryEntry struct {
	session  *game.Session
	lastSeen time.Time
}

// Registry holds the live game sessions. Sessions not touched for idleTTL
// are dropped by Sweep.
type Registry struct {
	locations    game.LocationStore
	ledger       game.ScoreLedger
	logger       *slog.Logger
	storeTimeout time.Duration
	idleTTL      time.Duration
	now          func() time.Time

	mu       sync.RWMutex
	sessions map[string]*registryEntry
}

func NewRegistry(locations game.LocationStore, ledger game.ScoreLedger, logger *slog.Logger, storeTimeout, idleTTL time.Duration) *Registry {
	return &Registry{
		locations:    locations,
		ledger:       ledger,
		logger:       logger,
		storeTimeout: storeTimeout,
		idleTTL:      idleTTL,
		now:          time.Now,
		sessions:     make(map[string]*registryEntry),
	}
}

// Create registers a fresh session and returns its ID.
func (r *Registry) Create() (string, *game.Session) {
	id := uuid.NewString()
	sess := game.NewSession(r.locations, r.ledger, r.logger.With("session_id", id), r.storeTimeout)

	r.mu.Lock()
	r.sessions[id] = &registryEntry{session: sess, lastSeen: r.now()}
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return id, sess
}

// Get returns the session and marks it as seen.
func (r *Registry) Get(id string) (*game.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, geoquiz.ErrNotFound
	}
	e.lastSeen = r.now()
	return e.session, nil
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than idleTTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	removed := 0
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return removed
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	interval := max(r.idleTTL/4, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("dropped idle sessions", "count", n, "remaining", r.Len())
			}
		}
	}
}
