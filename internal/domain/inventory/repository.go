package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for stock persistence.
//
// Reserve and Release must be implemented as single conditional updates, not
// a read followed by a write: two concurrent reservations of the last unit
// must never both succeed.
type Repository interface {
	// GetStock returns the product's inventory as its concrete shape
	// (FlatStock or VariantStock)
	GetStock(ctx context.Context, productID uuid.UUID) (Stock, error)

	// Reserve atomically decrements stock if enough is available.
	// Returns *InsufficientStockError (stock unchanged) on shortfall.
	Reserve(ctx context.Context, r Reservation) error

	// ReserveAll reserves every line item inside one transaction.
	// Either all reservations apply or none do; the first shortfall aborts
	// the whole batch and is returned as *InsufficientStockError.
	ReserveAll(ctx context.Context, reservations []Reservation) error

	// Release returns previously reserved quantity to stock
	Release(ctx context.Context, r Reservation) error

	// ReleaseAll releases every line item inside one transaction
	ReleaseAll(ctx context.Context, reservations []Reservation) error

	// SaveStock creates or replaces a product's stock rows (admin/seed path)
	SaveStock(ctx context.Context, stock Stock) error
}
