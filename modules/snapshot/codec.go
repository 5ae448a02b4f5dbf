package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/storefront-cart/domain/cart"
)

// ErrMalformed is returned by Decode for snapshots that do not describe a valid cart.
var ErrMalformed = errors.New("malformed cart snapshot")

// Encode serializes the full cart state.
func Encode(s cart.State) ([]byte, error) {
	if s.Lines == nil {
		s.Lines = []cart.Line{}
	}
	return json.Marshal(s)
}

// Decode parses a snapshot. Snapshots with non-positive quantities,
// empty product ids or repeated product ids are rejected, not repaired.
func Decode(data []byte) (cart.State, error) {
	var s cart.State
	if err := json.Unmarshal(data, &s); err != nil {
		return cart.Empty(), fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	seen := make(map[string]struct{}, len(s.Lines))
	for i, l := range s.Lines {
		if l.Product.ID == "" {
			return cart.Empty(), fmt.Errorf("%w: line %d has no product id", ErrMalformed, i)
		}
		if l.Quantity < 1 {
			return cart.Empty(), fmt.Errorf("%w: line %d has quantity %d", ErrMalformed, i, l.Quantity)
		}
		if _, dup := seen[l.Product.ID]; dup {
			return cart.Empty(), fmt.Errorf("%w: duplicate product %s", ErrMalformed, l.Product.ID)
		}
		seen[l.Product.ID] = struct{}{}
	}

	if s.Lines == nil {
		s.Lines = []cart.Line{}
	}
	return s, nil
}
