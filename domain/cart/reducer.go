package cart

// Reduce applies a to s and returns the next state. s is never modified.
func Reduce(s State, a Action) State {
	next := s.Clone()

	switch a := a.(type) {
	case AddItem:
		qty := a.Quantity
		if qty <= 0 {
			qty = 1
		}
		if i := next.indexOf(a.Product.ID); i >= 0 {
			next.Lines[i].Quantity += qty
			return next
		}
		next.Lines = append(next.Lines, Line{Product: a.Product, Quantity: qty})

	case RemoveItem:
		next.Lines = filterLines(next.Lines, func(l Line) bool {
			return l.Product.ID != a.ProductID
		})

	case UpdateQuantity:
		if i := next.indexOf(a.ProductID); i >= 0 {
			next.Lines[i].Quantity = a.Quantity
		}
		next.Lines = filterLines(next.Lines, func(l Line) bool {
			return l.Quantity > 0
		})

	case UpdateProductStock:
		if i := next.indexOf(a.ProductID); i >= 0 {
			next.Lines[i].Product.Stock = a.Stock
		}

	case ToggleOpen:
		next.IsOpen = !next.IsOpen

	case CloseOpen:
		next.IsOpen = false

	case OpenPanel:
		next.IsOpen = true

	case Clear:
		next.Lines = []Line{}
	}

	return next
}

func filterLines(lines []Line, keep func(Line) bool) []Line {
	out := lines[:0]
	for _, l := range lines {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}
