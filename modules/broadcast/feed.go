package broadcast

import (
	"sync"

	domain "github.com/example/storefront-cart/domain/cart"
)

// Feed fans stock updates out to in-process subscribers, such as the
// reconciliation listeners of open cart sessions.
type Feed struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]func(domain.StockUpdate)
}

// NewFeed creates a feed with no subscribers.
func NewFeed() *Feed {
	return &Feed{handlers: make(map[uint64]func(domain.StockUpdate))}
}

// Subscribe registers handler and returns a function that removes it.
// The returned function is safe to call more than once.
func (f *Feed) Subscribe(handler func(domain.StockUpdate)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.handlers[id] = handler
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.handlers, id)
			f.mu.Unlock()
		})
	}
}

// Publish delivers u to every current subscriber on the caller's goroutine.
func (f *Feed) Publish(u domain.StockUpdate) {
	f.mu.RLock()
	handlers := make([]func(domain.StockUpdate), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.RUnlock()

	for _, h := range handlers {
		h(u)
	}
}

// Subscribers returns the number of active subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.handlers)
}
