package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Repository defines the interface for invoice persistence
type Repository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByOrderID finds the invoice for an order, if one exists
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*Invoice, error)

	// FindAll finds invoices with filtering (admin listing)
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, error)

	// NextSequence atomically allocates the next invoice sequence for the
	// given calendar day. Allocated values are strictly increasing within
	// a day; a value abandoned by a failed insert leaves a gap.
	NextSequence(ctx context.Context, day time.Time) (int, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, inv *Invoice) error
}
