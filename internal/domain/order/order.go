package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Status represents the lifecycle state of an order
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusReturned  Status = "RETURNED"
	StatusCancelled Status = "CANCELLED"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusReturned, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if a transition to the target status is allowed.
// Transitions are one-way; CANCELLED and RETURNED are terminal.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusPaid || target == StatusCancelled
	case StatusPaid:
		return target == StatusShipped || target == StatusCancelled
	case StatusShipped:
		return target == StatusDelivered
	case StatusDelivered:
		return target == StatusReturned
	case StatusReturned, StatusCancelled:
		return false
	}
	return false
}

// ReturnStatus represents the state of the return sub-flow
type ReturnStatus string

const (
	ReturnNone       ReturnStatus = "NONE"
	ReturnPending    ReturnStatus = "PENDING"
	ReturnProcessing ReturnStatus = "PROCESSING"
	ReturnCompleted  ReturnStatus = "COMPLETED"
	ReturnRejected   ReturnStatus = "REJECTED"
)

// CanTransitionTo checks if a return-state transition is allowed.
// COMPLETED and REJECTED are terminal and never revert.
func (s ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	switch s {
	case ReturnNone:
		return target == ReturnPending
	case ReturnPending:
		return target == ReturnProcessing
	case ReturnProcessing:
		return target == ReturnCompleted || target == ReturnRejected
	case ReturnCompleted, ReturnRejected:
		return false
	}
	return false
}

// PaymentMethod represents how the order was paid
type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "COD"
	PaymentMethodUPI     PaymentMethod = "UPI"
	PaymentMethodGateway PaymentMethod = "GATEWAY"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodUPI, PaymentMethodGateway:
		return true
	}
	return false
}

// Order is the aggregate root for a settled customer order.
// It is created once at settlement time and mutated only through
// status-transition methods; it is never deleted.
type Order struct {
	shared.BaseAggregateRoot
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`

	Items    []OrderItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Shipping ShippingSnapshot `gorm:"embedded;embeddedPrefix:shipping_"`

	PaymentMethod   PaymentMethod `gorm:"type:varchar(16);not null"`
	PaymentOrderRef string        `gorm:"type:varchar(128);index"`
	PaymentRef      string        `gorm:"type:varchar(128);uniqueIndex:uniq_orders_payment_ref,where:payment_ref <> ''"`
	TransactionID   string        `gorm:"type:varchar(128);uniqueIndex:uniq_orders_transaction_id,where:transaction_id <> ''"`

	CouponCode  string            `gorm:"type:varchar(64)"`
	Subtotal    valueobject.Money `gorm:"type:decimal(14,2)"`
	Discount    valueobject.Money `gorm:"type:decimal(14,2)"`
	ShippingFee valueobject.Money `gorm:"type:decimal(14,2)"`
	Tax         valueobject.Money `gorm:"type:decimal(14,2)"`
	Total       valueobject.Money `gorm:"type:decimal(14,2);not null"`

	Status    Status     `gorm:"type:varchar(16);not null;index"`
	InvoiceID *uuid.UUID `gorm:"type:uuid"`

	ReturnStatus      ReturnStatus      `gorm:"type:varchar(16);not null;default:'NONE'"`
	ReturnReason      string            `gorm:"type:varchar(500)"`
	ReturnRequestedAt *time.Time        `gorm:""`
	RefundAmount      valueobject.Money `gorm:"type:decimal(14,2)"`
	RefundMethod      string            `gorm:"type:varchar(32)"`

	PaidAt      *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
}

// TableName returns the database table name
func (Order) TableName() string {
	return "orders"
}

// Amounts groups the monetary fields captured at settlement time
type Amounts struct {
	Subtotal    valueobject.Money
	Discount    valueobject.Money
	ShippingFee valueobject.Money
	Tax         valueobject.Money
	Total       valueobject.Money
}

// NewGatewayOrder creates an order settled through a verified gateway payment.
// The order is born PAID; the caller must have authenticated the payment proof
// and reserved stock before construction.
func NewGatewayOrder(userID uuid.UUID, items []OrderItem, shipping ShippingSnapshot, amounts Amounts, paymentOrderRef, paymentRef string) (*Order, error) {
	if paymentOrderRef == "" || paymentRef == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Payment references are required for gateway orders")
	}

	o, err := newOrder(userID, items, shipping, amounts, PaymentMethodGateway)
	if err != nil {
		return nil, err
	}
	o.PaymentOrderRef = paymentOrderRef
	o.PaymentRef = paymentRef
	o.Status = StatusPaid
	now := time.Now()
	o.PaidAt = &now

	o.AddDomainEvent(NewOrderCreatedEvent(o))
	o.AddDomainEvent(NewOrderPaidEvent(o))
	return o, nil
}

// NewManualOrder creates an order settled against a manual payment reference
// (bank transfer, UPI screenshot, cash on delivery). The order is born PENDING
// until the payment is confirmed out-of-band.
func NewManualOrder(userID uuid.UUID, items []OrderItem, shipping ShippingSnapshot, amounts Amounts, transactionID string, method PaymentMethod) (*Order, error) {
	if transactionID == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Transaction ID is required for manual orders")
	}
	if method == "" {
		method = PaymentMethodUPI
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invalid payment method")
	}

	o, err := newOrder(userID, items, shipping, amounts, method)
	if err != nil {
		return nil, err
	}
	o.TransactionID = transactionID
	o.Status = StatusPending

	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return o, nil
}

func newOrder(userID uuid.UUID, items []OrderItem, shipping ShippingSnapshot, amounts Amounts, method PaymentMethod) (*Order, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "User ID is required")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Order must contain at least one item")
	}
	if err := shipping.Validate(); err != nil {
		return nil, err
	}
	// A zero total after a 100% discount coupon is a valid order.
	if amounts.Total.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Order total cannot be negative")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Shipping:          shipping,
		PaymentMethod:     method,
		Subtotal:          amounts.Subtotal,
		Discount:          amounts.Discount,
		ShippingFee:       amounts.ShippingFee,
		Tax:               amounts.Tax,
		Total:             amounts.Total,
		ReturnStatus:      ReturnNone,
	}
	for i := range items {
		items[i].OrderID = o.ID
		o.Items = append(o.Items, items[i])
	}
	return o, nil
}

// MarkPaid transitions a pending order to PAID
func (o *Order) MarkPaid(paymentRef string) error {
	if !o.Status.CanTransitionTo(StatusPaid) {
		return shared.NewDomainError("INVALID_STATE", "Order cannot be marked paid in status "+string(o.Status))
	}
	o.Status = StatusPaid
	if paymentRef != "" {
		o.PaymentRef = paymentRef
	}
	now := time.Now()
	o.PaidAt = &now
	o.UpdatedAt = now
	o.AddDomainEvent(NewOrderPaidEvent(o))
	return nil
}

// Ship transitions a paid order to SHIPPED
func (o *Order) Ship() error {
	if !o.Status.CanTransitionTo(StatusShipped) {
		return shared.NewDomainError("INVALID_STATE", "Order cannot be shipped in status "+string(o.Status))
	}
	o.Status = StatusShipped
	now := time.Now()
	o.ShippedAt = &now
	o.UpdatedAt = now
	o.AddDomainEvent(NewOrderShippedEvent(o))
	return nil
}

// Deliver transitions a shipped order to DELIVERED
func (o *Order) Deliver() error {
	if !o.Status.CanTransitionTo(StatusDelivered) {
		return shared.NewDomainError("INVALID_STATE", "Order cannot be delivered in status "+string(o.Status))
	}
	o.Status = StatusDelivered
	now := time.Now()
	o.DeliveredAt = &now
	o.UpdatedAt = now
	o.AddDomainEvent(NewOrderDeliveredEvent(o))
	return nil
}

// Cancel transitions a pending or paid order to CANCELLED.
// Reserved stock must be released by the caller after a successful cancel.
func (o *Order) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", "Order cannot be cancelled in status "+string(o.Status))
	}
	o.Status = StatusCancelled
	now := time.Now()
	o.CancelledAt = &now
	o.UpdatedAt = now
	o.AddDomainEvent(NewOrderCancelledEvent(o, reason))
	return nil
}

// RequestReturn opens the return sub-flow for a delivered order
func (o *Order) RequestReturn(reason string) error {
	if o.Status != StatusDelivered {
		return shared.NewDomainError("INVALID_STATE", "Returns can only be requested for delivered orders")
	}
	if !o.ReturnStatus.CanTransitionTo(ReturnPending) {
		return shared.NewDomainError("INVALID_STATE", "Return already requested for this order")
	}
	o.ReturnStatus = ReturnPending
	o.ReturnReason = reason
	now := time.Now()
	o.ReturnRequestedAt = &now
	o.UpdatedAt = now
	o.AddDomainEvent(NewOrderReturnRequestedEvent(o))
	return nil
}

// StartReturnProcessing moves a requested return into processing
func (o *Order) StartReturnProcessing() error {
	if !o.ReturnStatus.CanTransitionTo(ReturnProcessing) {
		return shared.NewDomainError("INVALID_STATE", "Return is not awaiting processing")
	}
	o.ReturnStatus = ReturnProcessing
	o.UpdatedAt = time.Now()
	return nil
}

// CompleteReturn finishes the return with a refund and marks the order RETURNED
func (o *Order) CompleteReturn(refundAmount valueobject.Money, refundMethod string) error {
	if !o.ReturnStatus.CanTransitionTo(ReturnCompleted) {
		return shared.NewDomainError("INVALID_STATE", "Return is not in processing")
	}
	if refundAmount.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Refund amount cannot be negative")
	}
	if gt, err := refundAmount.GreaterThan(o.Total); err != nil || gt {
		return shared.NewDomainError("VALIDATION_ERROR", "Refund amount cannot exceed order total")
	}
	if !o.Status.CanTransitionTo(StatusReturned) {
		return shared.NewDomainError("INVALID_STATE", "Order cannot transition to returned in status "+string(o.Status))
	}
	o.ReturnStatus = ReturnCompleted
	o.Status = StatusReturned
	o.RefundAmount = refundAmount
	o.RefundMethod = refundMethod
	o.UpdatedAt = time.Now()
	o.AddDomainEvent(NewOrderReturnResolvedEvent(o, true))
	return nil
}

// RejectReturn closes the return without a refund; the order stays DELIVERED
func (o *Order) RejectReturn(reason string) error {
	if !o.ReturnStatus.CanTransitionTo(ReturnRejected) {
		return shared.NewDomainError("INVALID_STATE", "Return is not in processing")
	}
	o.ReturnStatus = ReturnRejected
	if reason != "" {
		o.ReturnReason = reason
	}
	o.UpdatedAt = time.Now()
	o.AddDomainEvent(NewOrderReturnResolvedEvent(o, false))
	return nil
}

// AttachInvoice stamps the order with its invoice reference.
// Idempotent for the same invoice; a different invoice is rejected.
func (o *Order) AttachInvoice(invoiceID uuid.UUID) error {
	if o.InvoiceID != nil {
		if *o.InvoiceID == invoiceID {
			return nil
		}
		return shared.NewDomainError("INVALID_STATE", "Order already has an invoice")
	}
	o.InvoiceID = &invoiceID
	o.UpdatedAt = time.Now()
	return nil
}

// DiscountPercent derives the effective discount percentage from the amounts
func (o *Order) DiscountPercent() decimal.Decimal {
	if o.Subtotal.IsZero() {
		return decimal.Zero
	}
	return o.Discount.Amount().Div(o.Subtotal.Amount()).Mul(decimal.NewFromInt(100))
}
