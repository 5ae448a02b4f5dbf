package cart

import (
	"context"
	"sync"
	"testing"

	domain "github.com/example/storefront-cart/domain/cart"
)

// fakeFeed delivers updates synchronously to its subscribers.
type fakeFeed struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func(domain.StockUpdate)
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{handlers: make(map[int]func(domain.StockUpdate))}
}

func (f *fakeFeed) Subscribe(h func(domain.StockUpdate)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.handlers[id] = h
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

func (f *fakeFeed) publish(u domain.StockUpdate) {
	f.mu.Lock()
	handlers := make([]func(domain.StockUpdate), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(u)
	}
}

func (f *fakeFeed) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func TestListener_AppliesStockWithoutTouchingQuantity(t *testing.T) {
	ctx := context.Background()
	feed := newFakeFeed()
	s := NewSession("s1", domain.Empty(), newRecordingStore())
	s.AddToCart(ctx, testProduct("1", 100, 5), 3)

	l := NewListener(s, feed, &mockLogger{})
	l.Start()
	defer l.Stop()

	feed.publish(domain.StockUpdate{ProductID: "1", Stock: 2})

	line, ok := s.State().Line("1")
	if !ok {
		t.Fatal("line 1 missing")
	}
	if line.Quantity != 3 || line.Product.Stock != 2 {
		t.Errorf("line = (qty %d, stock %d), want (3, 2)", line.Quantity, line.Product.Stock)
	}
}

func TestListener_IgnoresProductsNotInCart(t *testing.T) {
	ctx := context.Background()
	feed := newFakeFeed()
	store := newRecordingStore()
	s := NewSession("s1", domain.Empty(), store)
	s.AddToCart(ctx, testProduct("1", 100, 5), 1)

	l := NewListener(s, feed, &mockLogger{})
	l.Start()
	defer l.Stop()

	_, before := store.saved("s1")
	feed.publish(domain.StockUpdate{ProductID: "other", Stock: 0})
	_, after := store.saved("s1")

	if after != before {
		t.Errorf("update for absent product caused %d saves", after-before)
	}
}

func TestListener_StartStopLifecycle(t *testing.T) {
	ctx := context.Background()
	feed := newFakeFeed()
	s := NewSession("s1", domain.Empty(), newRecordingStore())
	s.AddToCart(ctx, testProduct("1", 100, 5), 1)

	l := NewListener(s, feed, &mockLogger{})
	if l.Running() {
		t.Fatal("new listener should not be running")
	}

	l.Start()
	l.Start()
	if feed.subscribers() != 1 {
		t.Fatalf("subscribers = %d, want 1", feed.subscribers())
	}

	l.Stop()
	l.Stop()
	if feed.subscribers() != 0 {
		t.Fatalf("subscribers after Stop = %d, want 0", feed.subscribers())
	}

	feed.publish(domain.StockUpdate{ProductID: "1", Stock: 0})
	if line, _ := s.State().Line("1"); line.Product.Stock != 5 {
		t.Errorf("stopped listener applied update: stock = %d", line.Product.Stock)
	}
}

func TestListener_Ordering(t *testing.T) {
	tests := []struct {
		name      string
		updates   []domain.StockUpdate
		wantStock int
	}{
		{
			name: "unversioned updates apply in arrival order",
			updates: []domain.StockUpdate{
				{ProductID: "1", Stock: 7},
				{ProductID: "1", Stock: 3},
			},
			wantStock: 3,
		},
		{
			name: "stale revision is dropped",
			updates: []domain.StockUpdate{
				{ProductID: "1", Stock: 7, Revision: 4},
				{ProductID: "1", Stock: 3, Revision: 2},
			},
			wantStock: 7,
		},
		{
			name: "duplicate delivery is dropped",
			updates: []domain.StockUpdate{
				{ProductID: "1", Stock: 2, Revision: 5},
				{ProductID: "1", Stock: 2, Revision: 5},
				{ProductID: "1", Stock: 1, Revision: 6},
			},
			wantStock: 1,
		},
		{
			name: "revisions are tracked per source",
			updates: []domain.StockUpdate{
				{Source: domain.SourceExternal, ProductID: "1", Stock: 8, Revision: 500},
				{Source: domain.SourceCatalog, ProductID: "1", Stock: 0, Revision: 3},
			},
			wantStock: 0,
		},
		{
			name: "stale revision within a source is dropped after another source",
			updates: []domain.StockUpdate{
				{Source: domain.SourceCatalog, ProductID: "1", Stock: 6, Revision: 4},
				{Source: domain.SourceExternal, ProductID: "1", Stock: 8, Revision: 1},
				{Source: domain.SourceCatalog, ProductID: "1", Stock: 2, Revision: 3},
			},
			wantStock: 8,
		},
		{
			name: "unversioned update after versioned one still applies",
			updates: []domain.StockUpdate{
				{ProductID: "1", Stock: 7, Revision: 9},
				{ProductID: "1", Stock: 4},
			},
			wantStock: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := newFakeFeed()
			s := NewSession("s1", domain.Empty(), newRecordingStore())
			s.AddToCart(context.Background(), testProduct("1", 100, 5), 1)

			l := NewListener(s, feed, &mockLogger{})
			l.Start()
			defer l.Stop()

			for _, u := range tt.updates {
				feed.publish(u)
			}

			line, _ := s.State().Line("1")
			if line.Product.Stock != tt.wantStock {
				t.Errorf("stock = %d, want %d", line.Product.Stock, tt.wantStock)
			}
			if line.Quantity != 1 {
				t.Errorf("quantity = %d, want 1", line.Quantity)
			}
		})
	}
}

func TestListener_ConcurrentDeliveriesKeepNewestRevision(t *testing.T) {
	for round := 0; round < 20; round++ {
		s := NewSession("s1", domain.Empty(), newRecordingStore())
		s.AddToCart(context.Background(), testProduct("1", 100, 5), 1)
		l := NewListener(s, newFakeFeed(), &mockLogger{})

		const revisions = 50
		var wg sync.WaitGroup
		for rev := 1; rev <= revisions; rev++ {
			wg.Add(1)
			go func(rev int) {
				defer wg.Done()
				l.apply(domain.StockUpdate{Source: domain.SourceCatalog, ProductID: "1", Stock: rev, Revision: uint64(rev)})
			}(rev)
		}
		wg.Wait()

		line, _ := s.State().Line("1")
		if line.Product.Stock != revisions {
			t.Fatalf("round %d: stock = %d, want the newest revision's %d", round, line.Product.Stock, revisions)
		}
	}
}
