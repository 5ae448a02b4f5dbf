package cart

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const flushConcurrency = 8

type openSession struct {
	session  *Session
	listener *Listener
}

// Registry owns the live sessions of the process. A session is rehydrated
// from its snapshot on first use and keeps a stock listener while open.
type Registry struct {
	store  SnapshotStore
	feed   StockFeed
	logger types.Logger

	mu       sync.RWMutex
	sessions map[string]*openSession
	loads    singleflight.Group
}

// NewRegistry creates a registry. feed may be nil, in which case sessions
// are not reconciled with stock updates.
func NewRegistry(store SnapshotStore, feed StockFeed, logger types.Logger) *Registry {
	return &Registry{
		store:    store,
		feed:     feed,
		logger:   logger,
		sessions: make(map[string]*openSession),
	}
}

// Open returns the live session for id, loading it from its snapshot if needed.
func (r *Registry) Open(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidSessionID
	}
	if s, ok := r.Get(id); ok {
		return s, nil
	}

	v, err, _ := r.loads.Do(id, func() (any, error) {
		if s, ok := r.Get(id); ok {
			return s, nil
		}

		state, err := r.store.LoadState(ctx, id)
		if err != nil {
			r.logger.Error("Failed to load cart snapshot", "session", id, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
		}

		session := NewSession(id, state, r.store)
		entry := &openSession{session: session}
		if r.feed != nil {
			entry.listener = NewListener(session, r.feed, r.logger)
			entry.listener.Start()
		}

		r.mu.Lock()
		r.sessions[id] = entry
		r.mu.Unlock()

		r.logger.Debug("Opened cart session", "session", id)
		return session, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Get returns an already open session.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return entry.session, true
}

// Close stops the session's listener and forgets it. The snapshot is kept.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	if entry.listener != nil {
		entry.listener.Stop()
	}
	r.logger.Debug("Closed cart session", "session", id)
	return true
}

// Reset closes the session and deletes its snapshot.
func (r *Registry) Reset(ctx context.Context, id string) {
	r.Close(id)
	r.store.Delete(ctx, id)
}

// Sessions returns the ids of open sessions, sorted.
func (r *Registry) Sessions() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Flush rewrites every open session's snapshot.
func (r *Registry) Flush(ctx context.Context) error {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, entry := range r.sessions {
		sessions = append(sessions, entry.session)
	}
	r.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(flushConcurrency)
	for _, s := range sessions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.Flush(ctx)
			return nil
		})
	}
	return g.Wait()
}

// EvictIdle closes sessions unused since before cutoff and returns how many were closed.
func (r *Registry) EvictIdle(cutoff time.Time) int {
	r.mu.RLock()
	var idle []string
	for id, entry := range r.sessions {
		if entry.session.idleSince().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	r.mu.RUnlock()

	evicted := 0
	for _, id := range idle {
		if r.Close(id) {
			evicted++
		}
	}
	return evicted
}

// RunJanitor evicts sessions idle for longer than timeout until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, timeout time.Duration) {
	interval := timeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.EvictIdle(now.Add(-timeout)); n > 0 {
				r.logger.Info("Evicted idle cart sessions", "count", n)
			}
		}
	}
}

// CloseAll closes every open session.
func (r *Registry) CloseAll() {
	for _, id := range r.Sessions() {
		r.Close(id)
	}
}
