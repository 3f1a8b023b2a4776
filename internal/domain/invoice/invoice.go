package invoice

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Status represents the invoice lifecycle state
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusIssued    Status = "ISSUED"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// CanTransitionTo checks if a transition to the target status is allowed
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusIssued || target == StatusCancelled
	case StatusIssued:
		return target == StatusPaid || target == StatusCancelled
	case StatusPaid, StatusCancelled:
		return false
	}
	return false
}

// Invoice is the billing document issued at most once per order.
// Numbers are date-scoped and strictly increasing within a calendar day.
type Invoice struct {
	shared.BaseAggregateRoot
	OrderID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	InvoiceNo string    `gorm:"type:varchar(32);not null;uniqueIndex"`
	Status    Status    `gorm:"type:varchar(16);not null"`
	IssuedAt  time.Time `gorm:"not null"`
}

// TableName returns the database table name
func (Invoice) TableName() string {
	return "invoices"
}

// DayCounter is the per-day sequence row backing invoice numbering.
// It is advanced through a single conditional update, never read-then-write.
type DayCounter struct {
	Day  string `gorm:"type:varchar(8);primaryKey"`
	Next int    `gorm:"not null;default:0"`
}

// TableName returns the database table name
func (DayCounter) TableName() string {
	return "invoice_counters"
}

// FormatNumber renders an invoice number for the given day and sequence,
// e.g. INV-20260901-0001
func FormatNumber(day time.Time, seq int) string {
	return fmt.Sprintf("INV-%s-%04d", day.Format("20060102"), seq)
}

// DayKey renders the counter key for a calendar day
func DayKey(day time.Time) string {
	return day.Format("20060102")
}

// NewInvoice creates an issued invoice for an order
func NewInvoice(orderID uuid.UUID, invoiceNo string) (*Invoice, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Order ID is required")
	}
	if invoiceNo == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invoice number is required")
	}
	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		InvoiceNo:         invoiceNo,
		Status:            StatusIssued,
		IssuedAt:          time.Now(),
	}, nil
}

// MarkPaid transitions an issued invoice to PAID
func (i *Invoice) MarkPaid() error {
	if !i.Status.CanTransitionTo(StatusPaid) {
		return shared.NewDomainError("INVALID_STATE", "Invoice cannot be marked paid in status "+string(i.Status))
	}
	i.Status = StatusPaid
	i.UpdatedAt = time.Now()
	return nil
}

// Cancel voids the invoice
func (i *Invoice) Cancel() error {
	if !i.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", "Invoice cannot be cancelled in status "+string(i.Status))
	}
	i.Status = StatusCancelled
	i.UpdatedAt = time.Now()
	return nil
}
