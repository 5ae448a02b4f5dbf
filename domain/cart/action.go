package cart

// Action is a cart transition. The set of actions is closed to this package.
type Action interface {
	action()
}

// AddItem merges Quantity units of Product into the cart. Quantity <= 0 adds one.
type AddItem struct {
	Product  Product
	Quantity int
}

// RemoveItem drops the line for ProductID.
type RemoveItem struct {
	ProductID string
}

// UpdateQuantity sets the quantity of a line; values <= 0 remove it.
type UpdateQuantity struct {
	ProductID string
	Quantity  int
}

// UpdateProductStock replaces the embedded stock of a line's product.
type UpdateProductStock struct {
	ProductID string
	Stock     int
}

// ToggleOpen flips the panel flag.
type ToggleOpen struct{}

// CloseOpen forces the panel closed.
type CloseOpen struct{}

// OpenPanel forces the panel open.
type OpenPanel struct{}

// Clear empties the lines and leaves the panel flag alone.
type Clear struct{}

func (AddItem) action()            {}
func (RemoveItem) action()         {}
func (UpdateQuantity) action()     {}
func (UpdateProductStock) action() {}
func (ToggleOpen) action()         {}
func (CloseOpen) action()          {}
func (OpenPanel) action()          {}
func (Clear) action()              {}
