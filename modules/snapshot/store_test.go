package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/storefront-cart/domain/cart"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/shopspring/decimal"
)

// mockLogger implements types.Logger and records messages by level.
type mockLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (m *mockLogger) Debug(msg string, args ...any) {}
func (m *mockLogger) Info(msg string, args ...any)  {}
func (m *mockLogger) Warn(msg string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}
func (m *mockLogger) Error(msg string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}
func (m *mockLogger) With(args ...any) types.Logger         { return m }
func (m *mockLogger) WithError(err error) types.Logger      { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

// failingBackend fails every operation.
type failingBackend struct{}

var errBackendDown = errors.New("backend down")

func (failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errBackendDown
}
func (failingBackend) Set(context.Context, string, []byte) error { return errBackendDown }
func (failingBackend) Delete(context.Context, string) error      { return errBackendDown }

func twoLineCart() cart.State {
	return cart.State{
		Lines: []cart.Line{
			{Product: cart.Product{ID: "1", Name: "Coffee", Price: decimal.RequireFromString("1000"), Stock: 5, Active: true}, Quantity: 2},
			{Product: cart.Product{ID: "2", Name: "Mug", Price: decimal.RequireFromString("349.90"), Stock: 3, Active: true, ImageURL: "mug.png"}, Quantity: 1},
		},
		IsOpen: true,
	}
}

func assertSameState(t *testing.T, got, want cart.State) {
	t.Helper()
	if got.IsOpen != want.IsOpen {
		t.Errorf("IsOpen = %v, want %v", got.IsOpen, want.IsOpen)
	}
	if len(got.Lines) != len(want.Lines) {
		t.Fatalf("lines = %d, want %d", len(got.Lines), len(want.Lines))
	}
	for i := range want.Lines {
		g, w := got.Lines[i], want.Lines[i]
		if g.Product.ID != w.Product.ID || g.Quantity != w.Quantity {
			t.Errorf("line %d = (%s, %d), want (%s, %d)", i, g.Product.ID, g.Quantity, w.Product.ID, w.Quantity)
		}
		if !g.Product.Price.Equal(w.Product.Price) {
			t.Errorf("line %d price = %s, want %s", i, g.Product.Price, w.Product.Price)
		}
		if g.Product.Stock != w.Product.Stock || g.Product.Name != w.Product.Name || g.Product.ImageURL != w.Product.ImageURL {
			t.Errorf("line %d product = %+v, want %+v", i, g.Product, w.Product)
		}
	}
}

func TestStore_LoadMissingIsEmpty(t *testing.T) {
	store := NewStore(NewMemoryBackend(), &mockLogger{})

	got := store.Load(context.Background(), "nobody")
	if len(got.Lines) != 0 || got.IsOpen {
		t.Errorf("Load() = %+v, want empty", got)
	}
	if got.Lines == nil {
		t.Error("Load() returned nil lines")
	}
}

func TestStore_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	NewStore(backend, &mockLogger{}).Save(ctx, "s1", twoLineCart())

	// A fresh store over the same backend stands in for a process restart.
	got := NewStore(backend, &mockLogger{}).Load(ctx, "s1")
	assertSameState(t, got, twoLineCart())
}

func TestStore_RoundTripLaw(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend, &mockLogger{})

	store.Save(ctx, "s1", twoLineCart())
	first := store.Load(ctx, "s1")
	store.Save(ctx, "s1", first)
	second := store.Load(ctx, "s1")

	assertSameState(t, second, first)

	raw1, _, _ := backend.Get(ctx, Key("s1"))
	store.Save(ctx, "s1", second)
	raw2, _, _ := backend.Get(ctx, Key("s1"))
	if string(raw1) != string(raw2) {
		t.Errorf("snapshot bytes changed across round trip:\n%s\n%s", raw1, raw2)
	}
}

func TestStore_MalformedSnapshotIsDiscarded(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{{{"},
		{"wrong shape", `{"items":"nope"}`},
		{"zero quantity", `{"items":[{"product":{"id":"1","price":"10"},"quantity":0}],"is_open":false}`},
		{"missing id", `{"items":[{"product":{"price":"10"},"quantity":1}]}`},
		{"duplicate id", `{"items":[{"product":{"id":"1"},"quantity":1},{"product":{"id":"1"},"quantity":2}]}`},
		{"bad price", `{"items":[{"product":{"id":"1","price":"ten"},"quantity":1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := NewMemoryBackend()
			_ = backend.Set(ctx, Key("s1"), []byte(tt.data))
			logger := &mockLogger{}

			got := NewStore(backend, logger).Load(ctx, "s1")
			if len(got.Lines) != 0 || got.IsOpen {
				t.Errorf("Load() = %+v, want empty", got)
			}
			if len(logger.warns) != 1 {
				t.Errorf("warnings = %d, want 1", len(logger.warns))
			}
		})
	}
}

func TestStore_AcceptsNumericPrices(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	_ = backend.Set(ctx, Key("s1"), []byte(`{"items":[{"product":{"id":"1","price":1000,"stock":5},"quantity":2}],"is_open":true}`))

	got := NewStore(backend, &mockLogger{}).Load(ctx, "s1")
	if len(got.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(got.Lines))
	}
	if !got.Total().Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Total() = %s, want 2000", got.Total())
	}
}

func TestStore_BackendFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	logger := &mockLogger{}
	store := NewStore(failingBackend{}, logger)

	store.Save(ctx, "s1", twoLineCart())
	got := store.Load(ctx, "s1")
	store.Delete(ctx, "s1")

	if len(got.Lines) != 0 {
		t.Errorf("Load() on failing backend = %+v, want empty", got)
	}
	if len(logger.errors) != 3 {
		t.Errorf("logged errors = %d, want 3", len(logger.errors))
	}
}

func TestStore_LoadStateReportsReadFailures(t *testing.T) {
	ctx := context.Background()

	_, err := NewStore(failingBackend{}, &mockLogger{}).LoadState(ctx, "s1")
	if !errors.Is(err, errBackendDown) {
		t.Errorf("LoadState() error = %v, want %v", err, errBackendDown)
	}

	backend := NewMemoryBackend()
	if err := backend.Set(ctx, Key("s1"), []byte("{not json")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := NewStore(backend, &mockLogger{}).LoadState(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadState() on malformed snapshot error = %v, want nil", err)
	}
	if len(got.Lines) != 0 {
		t.Errorf("LoadState() on malformed snapshot = %+v, want empty", got)
	}

	got, err = NewStore(backend, &mockLogger{}).LoadState(ctx, "nobody")
	if err != nil || len(got.Lines) != 0 {
		t.Errorf("LoadState() on missing snapshot = %+v, %v", got, err)
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend, &mockLogger{})

	store.Save(ctx, "s1", twoLineCart())
	store.Delete(ctx, "s1")

	if backend.Len() != 0 {
		t.Errorf("backend holds %d snapshots after Delete", backend.Len())
	}
}

func TestEncode_NilLinesBecomeEmptyList(t *testing.T) {
	data, err := Encode(cart.State{})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(data) != `{"items":[],"is_open":false}` {
		t.Errorf("Encode() = %s", data)
	}
}
