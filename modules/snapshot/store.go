// Package snapshot persists cart state between sessions.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/storefront-cart/domain/cart"
	"github.com/go-monolith/mono/pkg/types"
)

const keyPrefix = "cart:"

// Store loads and saves full cart snapshots. Missing or malformed snapshots
// read as an empty cart and write problems are logged. Only a failing
// backend read is reported to the caller, through LoadState.
type Store struct {
	backend Backend
	logger  types.Logger
}

// NewStore creates a Store on top of backend.
func NewStore(backend Backend, logger types.Logger) *Store {
	return &Store{backend: backend, logger: logger}
}

// Key returns the backend key for a session.
func Key(sessionID string) string {
	return keyPrefix + sessionID
}

// Load returns the persisted state for sessionID, or an empty cart when it
// cannot be read.
func (s *Store) Load(ctx context.Context, sessionID string) cart.State {
	state, err := s.LoadState(ctx, sessionID)
	if err != nil {
		s.logger.Error("Failed to read cart snapshot", "session", sessionID, "error", err)
		return cart.Empty()
	}
	return state
}

// LoadState returns the persisted state for sessionID. A missing or malformed
// snapshot yields an empty cart; an error means the backend could not be read
// and the stored snapshot, if any, is still intact.
func (s *Store) LoadState(ctx context.Context, sessionID string) (cart.State, error) {
	data, ok, err := s.backend.Get(ctx, Key(sessionID))
	if err != nil {
		return cart.State{}, fmt.Errorf("read snapshot %q: %w", Key(sessionID), err)
	}
	if !ok {
		return cart.Empty(), nil
	}

	state, err := Decode(data)
	if err != nil {
		if errors.Is(err, ErrMalformed) {
			s.logger.Warn("Discarding malformed cart snapshot", "session", sessionID, "error", err)
		}
		return cart.Empty(), nil
	}
	return state, nil
}

// Save writes the full state for sessionID.
func (s *Store) Save(ctx context.Context, sessionID string, state cart.State) {
	data, err := Encode(state)
	if err != nil {
		s.logger.Error("Failed to encode cart snapshot", "session", sessionID, "error", err)
		return
	}
	if err := s.backend.Set(ctx, Key(sessionID), data); err != nil {
		s.logger.Error("Failed to write cart snapshot", "session", sessionID, "error", err)
	}
}

// Delete removes the snapshot for sessionID.
func (s *Store) Delete(ctx context.Context, sessionID string) {
	if err := s.backend.Delete(ctx, Key(sessionID)); err != nil {
		s.logger.Error("Failed to delete cart snapshot", "session", sessionID, "error", err)
	}
}
