package order

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// OrderItem is a line item embedded in an order. The title and unit price are
// snapshots copied at order time and never re-read from the catalog; price and
// discount are immutable after creation for audit integrity.
type OrderItem struct {
	shared.BaseEntity
	OrderID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	Title       string            `gorm:"type:varchar(255);not null"`
	UnitPrice   valueobject.Money `gorm:"type:decimal(14,2);not null"`
	Quantity    int               `gorm:"not null"`
	VariantCode string            `gorm:"type:varchar(32)"`
	Discount    valueobject.Money `gorm:"type:decimal(14,2)"`
}

// TableName returns the database table name
func (OrderItem) TableName() string {
	return "order_items"
}

// NewOrderItem creates a validated order line item
func NewOrderItem(productID uuid.UUID, title string, unitPrice valueobject.Money, quantity int, variantCode string, discount valueobject.Money) (OrderItem, error) {
	if productID == uuid.Nil {
		return OrderItem{}, shared.NewDomainError("VALIDATION_ERROR", "Product ID is required")
	}
	if title == "" {
		return OrderItem{}, shared.NewDomainError("VALIDATION_ERROR", "Item title is required")
	}
	if quantity <= 0 {
		return OrderItem{}, shared.NewDomainError("VALIDATION_ERROR", "Item quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return OrderItem{}, shared.NewDomainError("VALIDATION_ERROR", "Item price cannot be negative")
	}
	if discount.IsNegative() {
		return OrderItem{}, shared.NewDomainError("VALIDATION_ERROR", "Item discount cannot be negative")
	}

	return OrderItem{
		BaseEntity:  shared.NewBaseEntity(),
		ProductID:   productID,
		Title:       title,
		UnitPrice:   unitPrice,
		Quantity:    quantity,
		VariantCode: variantCode,
		Discount:    discount,
	}, nil
}

// LineTotal returns quantity * unit price minus the per-item discount
func (i OrderItem) LineTotal() valueobject.Money {
	gross := i.UnitPrice.MultiplyByInt(int64(i.Quantity))
	total, err := gross.Subtract(i.Discount)
	if err != nil {
		return gross
	}
	return total
}
