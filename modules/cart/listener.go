package cart

import (
	"context"
	"sync"
	"time"

	domain "github.com/example/storefront-cart/domain/cart"
	"github.com/go-monolith/mono/pkg/types"
)

// StockFeed delivers stock updates to subscribers until they unsubscribe.
type StockFeed interface {
	Subscribe(handler func(domain.StockUpdate)) (unsubscribe func())
}

const applyTimeout = 5 * time.Second

// Listener reconciles one session's cached stock with a StockFeed.
// Updates are applied in delivery order. A versioned update whose revision
// is not newer than the last one applied for the same source and product
// is dropped.
type Listener struct {
	session *Session
	feed    StockFeed
	logger  types.Logger

	mu          sync.Mutex
	unsubscribe func()

	// applyMu serializes the revision check with the write it admits.
	applyMu   sync.Mutex
	revisions map[revisionKey]uint64
}

type revisionKey struct {
	source    string
	productID string
}

// NewListener creates a stopped listener for session.
func NewListener(session *Session, feed StockFeed, logger types.Logger) *Listener {
	return &Listener{
		session:   session,
		feed:      feed,
		logger:    logger,
		revisions: make(map[revisionKey]uint64),
	}
}

// Start subscribes to the feed. Calling Start on a running listener is a no-op.
func (l *Listener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsubscribe != nil {
		return
	}
	l.unsubscribe = l.feed.Subscribe(l.apply)
}

// Stop unsubscribes from the feed. Calling Stop on a stopped listener is a no-op.
func (l *Listener) Stop() {
	l.mu.Lock()
	unsubscribe := l.unsubscribe
	l.unsubscribe = nil
	l.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Running reports whether the listener is subscribed.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unsubscribe != nil
}

func (l *Listener) apply(u domain.StockUpdate) {
	l.applyMu.Lock()
	defer l.applyMu.Unlock()

	if !l.accept(u) {
		l.logger.Debug("Dropping stale stock update",
			"session", l.session.ID(), "source", u.Source, "product", u.ProductID, "revision", u.Revision)
		return
	}
	if l.session.ProductQuantity(u.ProductID) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()
	l.session.UpdateProductStock(ctx, u.ProductID, u.Stock)
}

// accept records u's revision. Callers hold applyMu.
func (l *Listener) accept(u domain.StockUpdate) bool {
	if u.Revision == 0 {
		return true
	}
	key := revisionKey{source: u.Source, productID: u.ProductID}
	if u.Revision <= l.revisions[key] {
		return false
	}
	l.revisions[key] = u.Revision
	return true
}
