package cart

import (
	"github.com/shopspring/decimal"
)

// Product is the denormalized catalog record a cart line carries.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Active   bool            `json:"active"`
	ImageURL string          `json:"image_url,omitempty"`
}

// Line pairs a product snapshot with a positive quantity.
type Line struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal returns price x quantity for the line.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// State is the full cart: lines in insertion order plus the panel flag.
type State struct {
	Lines  []Line `json:"items"`
	IsOpen bool   `json:"is_open"`
}

// Empty returns the initial cart state.
func Empty() State {
	return State{Lines: []Line{}}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	lines := make([]Line, len(s.Lines))
	copy(lines, s.Lines)
	return State{Lines: lines, IsOpen: s.IsOpen}
}

// Total is the sum of price x quantity over all lines.
func (s State) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// ItemsCount is the sum of quantities, not the number of lines.
func (s State) ItemsCount() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}

// Quantity returns the quantity held for productID, or 0.
func (s State) Quantity(productID string) int {
	if i := s.indexOf(productID); i >= 0 {
		return s.Lines[i].Quantity
	}
	return 0
}

// Line returns the line for productID.
func (s State) Line(productID string) (Line, bool) {
	if i := s.indexOf(productID); i >= 0 {
		return s.Lines[i], true
	}
	return Line{}, false
}

// Remaining reports how many more units of p fit under its known stock.
func (s State) Remaining(p Product) int {
	left := p.Stock - s.Quantity(p.ID)
	if left < 0 {
		return 0
	}
	return left
}

// ExceedsStock returns the lines whose quantity is above the embedded stock.
func (s State) ExceedsStock() []Line {
	var over []Line
	for _, l := range s.Lines {
		if l.Quantity > l.Product.Stock {
			over = append(over, l)
		}
	}
	return over
}

func (s State) indexOf(productID string) int {
	for i, l := range s.Lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

// Stock update sources. Revisions are only comparable within one source.
const (
	SourceCatalog  = "catalog"
	SourceExternal = "external"
)

// StockUpdate reports a new available stock for a product.
// Revision grows per product and source; zero means the source does not
// version stock.
type StockUpdate struct {
	Source    string
	ProductID string
	Stock     int
	Revision  uint64
}
