package cart

import (
	"testing"

	"github.com/shopspring/decimal"
)

func product(id string, price int64, stock int) Product {
	return Product{
		ID:     id,
		Name:   "Product " + id,
		Price:  decimal.NewFromInt(price),
		Stock:  stock,
		Active: true,
	}
}

func stateOf(lines ...Line) State {
	return State{Lines: lines}
}

func TestReduce_AddItem(t *testing.T) {
	tests := []struct {
		name     string
		start    State
		action   AddItem
		wantIDs  []string
		wantQtys []int
	}{
		{
			name:     "appends new line with quantity one",
			start:    Empty(),
			action:   AddItem{Product: product("1", 1000, 5)},
			wantIDs:  []string{"1"},
			wantQtys: []int{1},
		},
		{
			name:     "merges into existing line",
			start:    stateOf(Line{Product: product("1", 1000, 5), Quantity: 2}),
			action:   AddItem{Product: product("1", 1000, 5)},
			wantIDs:  []string{"1"},
			wantQtys: []int{3},
		},
		{
			name:     "explicit quantity",
			start:    stateOf(Line{Product: product("1", 1000, 5), Quantity: 1}),
			action:   AddItem{Product: product("1", 1000, 5), Quantity: 4},
			wantIDs:  []string{"1"},
			wantQtys: []int{5},
		},
		{
			name:     "new products go to the end",
			start:    stateOf(Line{Product: product("2", 10, 5), Quantity: 1}),
			action:   AddItem{Product: product("1", 10, 5)},
			wantIDs:  []string{"2", "1"},
			wantQtys: []int{1, 1},
		},
		{
			name:     "no stock check",
			start:    stateOf(Line{Product: product("1", 10, 1), Quantity: 1}),
			action:   AddItem{Product: product("1", 10, 1)},
			wantIDs:  []string{"1"},
			wantQtys: []int{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reduce(tt.start, tt.action)
			if len(got.Lines) != len(tt.wantIDs) {
				t.Fatalf("Reduce() lines = %d, want %d", len(got.Lines), len(tt.wantIDs))
			}
			for i, l := range got.Lines {
				if l.Product.ID != tt.wantIDs[i] || l.Quantity != tt.wantQtys[i] {
					t.Errorf("line %d = (%s, %d), want (%s, %d)",
						i, l.Product.ID, l.Quantity, tt.wantIDs[i], tt.wantQtys[i])
				}
			}
		})
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	start := stateOf(Line{Product: product("1", 10, 5), Quantity: 1})

	_ = Reduce(start, AddItem{Product: product("1", 10, 5)})
	_ = Reduce(start, UpdateQuantity{ProductID: "1", Quantity: 0})
	_ = Reduce(start, UpdateProductStock{ProductID: "1", Stock: 0})
	_ = Reduce(start, Clear{})

	if len(start.Lines) != 1 || start.Lines[0].Quantity != 1 || start.Lines[0].Product.Stock != 5 {
		t.Errorf("input state was modified: %+v", start)
	}
}

func TestReduce_RemoveItem(t *testing.T) {
	start := stateOf(
		Line{Product: product("1", 10, 5), Quantity: 2},
		Line{Product: product("2", 10, 5), Quantity: 1},
	)

	got := Reduce(start, RemoveItem{ProductID: "1"})
	if len(got.Lines) != 1 || got.Lines[0].Product.ID != "2" {
		t.Fatalf("RemoveItem() lines = %+v", got.Lines)
	}
	if got.ItemsCount() != 1 {
		t.Errorf("ItemsCount() = %d, want 1", got.ItemsCount())
	}

	same := Reduce(start, RemoveItem{ProductID: "missing"})
	if len(same.Lines) != 2 {
		t.Errorf("RemoveItem(missing) changed lines: %+v", same.Lines)
	}
}

func TestReduce_UpdateQuantity(t *testing.T) {
	start := stateOf(Line{Product: product("5", 10, 5), Quantity: 1})

	for _, qty := range []int{0, -1} {
		got := Reduce(start, UpdateQuantity{ProductID: "5", Quantity: qty})
		if len(got.Lines) != 0 {
			t.Errorf("UpdateQuantity(5, %d) lines = %+v, want empty", qty, got.Lines)
		}
		removed := Reduce(start, RemoveItem{ProductID: "5"})
		if len(removed.Lines) != len(got.Lines) {
			t.Errorf("UpdateQuantity(5, %d) differs from RemoveItem", qty)
		}
	}

	got := Reduce(start, UpdateQuantity{ProductID: "5", Quantity: 7})
	if got.Quantity("5") != 7 {
		t.Errorf("Quantity(5) = %d, want 7", got.Quantity("5"))
	}

	got = Reduce(start, UpdateQuantity{ProductID: "9", Quantity: 7})
	if len(got.Lines) != 1 || got.Quantity("5") != 1 {
		t.Errorf("UpdateQuantity(unknown) changed state: %+v", got)
	}
}

func TestReduce_UpdateProductStock(t *testing.T) {
	start := stateOf(Line{Product: product("1", 10, 5), Quantity: 3})

	got := Reduce(start, UpdateProductStock{ProductID: "1", Stock: 2})
	l, ok := got.Line("1")
	if !ok {
		t.Fatal("line 1 missing")
	}
	if l.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", l.Quantity)
	}
	if l.Product.Stock != 2 {
		t.Errorf("stock = %d, want 2", l.Product.Stock)
	}
	if over := got.ExceedsStock(); len(over) != 1 {
		t.Errorf("ExceedsStock() = %d lines, want 1", len(over))
	}

	noop := Reduce(start, UpdateProductStock{ProductID: "2", Stock: 0})
	if noop.Lines[0].Product.Stock != 5 {
		t.Errorf("UpdateProductStock(unknown) changed stock")
	}
}

func TestReduce_PanelFlag(t *testing.T) {
	s := stateOf(Line{Product: product("1", 10, 5), Quantity: 1})

	s = Reduce(s, ToggleOpen{})
	if !s.IsOpen {
		t.Fatal("ToggleOpen did not open the panel")
	}
	s = Reduce(s, Clear{})
	if !s.IsOpen {
		t.Error("Clear closed the panel")
	}
	if len(s.Lines) != 0 {
		t.Errorf("Clear left %d lines", len(s.Lines))
	}
	s = Reduce(s, CloseOpen{})
	if s.IsOpen {
		t.Error("CloseOpen left the panel open")
	}
	s = Reduce(s, CloseOpen{})
	if s.IsOpen {
		t.Error("CloseOpen is not idempotent")
	}
	s = Reduce(s, OpenPanel{})
	if !s.IsOpen {
		t.Error("OpenPanel did not open the panel")
	}
	s = Reduce(s, ToggleOpen{})
	if s.IsOpen {
		t.Error("ToggleOpen did not close the panel")
	}
}

func TestScenario_AddTwiceTotals(t *testing.T) {
	p := Product{ID: "1", Price: decimal.NewFromInt(1000), Stock: 10, Active: true}

	s := Reduce(Empty(), AddItem{Product: p})
	s = Reduce(s, AddItem{Product: p})

	if len(s.Lines) != 1 || s.Lines[0].Quantity != 2 {
		t.Fatalf("lines = %+v, want one line with quantity 2", s.Lines)
	}
	if !s.Total().Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Total() = %s, want 2000", s.Total())
	}
	if s.ItemsCount() != 2 {
		t.Errorf("ItemsCount() = %d, want 2", s.ItemsCount())
	}
}

func TestState_Remaining(t *testing.T) {
	p := product("1", 10, 3)
	s := stateOf(Line{Product: p, Quantity: 2})

	if got := s.Remaining(p); got != 1 {
		t.Errorf("Remaining() = %d, want 1", got)
	}
	s = Reduce(s, UpdateQuantity{ProductID: "1", Quantity: 5})
	if got := s.Remaining(p); got != 0 {
		t.Errorf("Remaining() over stock = %d, want 0", got)
	}
	if got := Empty().Remaining(p); got != 3 {
		t.Errorf("Remaining() empty cart = %d, want 3", got)
	}
}

func TestState_TotalDecimal(t *testing.T) {
	s := stateOf(
		Line{Product: Product{ID: "a", Price: decimal.RequireFromString("0.10")}, Quantity: 3},
		Line{Product: Product{ID: "b", Price: decimal.RequireFromString("19.99")}, Quantity: 2},
	)
	want := decimal.RequireFromString("40.28")
	if !s.Total().Equal(want) {
		t.Errorf("Total() = %s, want %s", s.Total(), want)
	}
}
