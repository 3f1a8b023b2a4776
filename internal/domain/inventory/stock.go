package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// StockLevel is a single inventory counter row. Flat-mode products have one
// row with an empty variant code; variant-mode products have one row per
// variant. The quantity is mutated only through the repository's conditional
// reserve and release operations.
type StockLevel struct {
	ProductID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	VariantCode string    `gorm:"type:varchar(32);primaryKey;default:''"`
	Quantity    int       `gorm:"not null;check:quantity >= 0"`
	UpdatedAt   time.Time
}

// TableName returns the database table name
func (StockLevel) TableName() string {
	return "stock_levels"
}

// VariantQuantity is one per-variant counter in a variant-mode product
type VariantQuantity struct {
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
}

// Stock is the inventory of one product, in exactly one of two shapes:
// FlatStock (a single counter) or VariantStock (a set of per-variant
// counters). Callers switch on the concrete type; there is no mode flag.
type Stock interface {
	ProductID() uuid.UUID
	// Available returns the quantity on hand for the given variant code.
	// Flat stock ignores the code; variant stock requires a matching code.
	Available(variantCode string) (int, error)

	isStock()
}

// FlatStock is a product tracked as a single counter
type FlatStock struct {
	Product  uuid.UUID
	Quantity int
}

func (s FlatStock) isStock() {}

// ProductID returns the product this stock belongs to
func (s FlatStock) ProductID() uuid.UUID { return s.Product }

// Available returns the flat counter; the variant code is ignored
func (s FlatStock) Available(string) (int, error) {
	return s.Quantity, nil
}

// VariantStock is a product tracked per variant (e.g. per size)
type VariantStock struct {
	Product  uuid.UUID
	Variants []VariantQuantity
}

func (s VariantStock) isStock() {}

// ProductID returns the product this stock belongs to
func (s VariantStock) ProductID() uuid.UUID { return s.Product }

// Available returns the counter for the matching variant code
func (s VariantStock) Available(variantCode string) (int, error) {
	for _, v := range s.Variants {
		if v.Code == variantCode {
			return v.Quantity, nil
		}
	}
	return 0, shared.ErrNotFound
}

// Reservation is a request to atomically decrement one line item's stock
type Reservation struct {
	ProductID   uuid.UUID
	VariantCode string
	Quantity    int
}

// Validate checks the reservation request
func (r Reservation) Validate() error {
	if r.ProductID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Product ID is required")
	}
	if r.Quantity <= 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "Reservation quantity must be positive")
	}
	return nil
}

// InsufficientStockError reports a reservation that could not be satisfied.
// AvailableQty is the exact quantity on hand at the time of the attempt;
// the stock value itself is left unchanged.
type InsufficientStockError struct {
	ProductID    uuid.UUID
	VariantCode  string
	AvailableQty int
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	if e.VariantCode != "" {
		return fmt.Sprintf("insufficient stock for product %s variant %s: %d available", e.ProductID, e.VariantCode, e.AvailableQty)
	}
	return fmt.Sprintf("insufficient stock for product %s: %d available", e.ProductID, e.AvailableQty)
}

// DomainError converts the failure into the transport error taxonomy,
// carrying the item reference and available quantity as details
func (e *InsufficientStockError) DomainError() *shared.DomainError {
	itemID := e.ProductID.String()
	if e.VariantCode != "" {
		itemID = itemID + ":" + e.VariantCode
	}
	return shared.ErrInsufficientStock.WithDetails(map[string]interface{}{
		"item_id":       itemID,
		"available_qty": e.AvailableQty,
	})
}
