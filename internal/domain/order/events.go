package order

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated         = "OrderCreated"
	EventTypeOrderPaid            = "OrderPaid"
	EventTypeOrderShipped         = "OrderShipped"
	EventTypeOrderDelivered       = "OrderDelivered"
	EventTypeOrderCancelled       = "OrderCancelled"
	EventTypeOrderReturnRequested = "OrderReturnRequested"
	EventTypeOrderReturnResolved  = "OrderReturnResolved"
)

// OrderItemInfo carries line item data on events
type OrderItemInfo struct {
	ProductID   uuid.UUID `json:"product_id"`
	Title       string    `json:"title"`
	Quantity    int       `json:"quantity"`
	VariantCode string    `json:"variant_code,omitempty"`
}

func itemInfos(o *Order) []OrderItemInfo {
	infos := make([]OrderItemInfo, len(o.Items))
	for i, item := range o.Items {
		infos[i] = OrderItemInfo{
			ProductID:   item.ProductID,
			Title:       item.Title,
			Quantity:    item.Quantity,
			VariantCode: item.VariantCode,
		}
	}
	return infos
}

// OrderCreatedEvent is raised when an order is settled and persisted.
// The notification dispatcher subscribes to this event.
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID       `json:"order_id"`
	UserID        uuid.UUID       `json:"user_id"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        Status          `json:"status"`
	Total         string          `json:"total"`
	RecipientName string          `json:"recipient_name"`
	Items         []OrderItemInfo `json:"items"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		UserID:          o.UserID,
		PaymentMethod:   o.PaymentMethod,
		Status:          o.Status,
		Total:           o.Total.StringFixed(2),
		RecipientName:   o.Shipping.Name,
		Items:           itemInfos(o),
	}
}

// EventType returns the event type name
func (e *OrderCreatedEvent) EventType() string {
	return EventTypeOrderCreated
}

// OrderPaidEvent is raised when an order is confirmed as paid
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	PaymentRef string    `json:"payment_ref"`
	Total      string    `json:"total"`
}

// NewOrderPaidEvent creates a new OrderPaidEvent
func NewOrderPaidEvent(o *Order) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaid, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		UserID:          o.UserID,
		PaymentRef:      o.PaymentRef,
		Total:           o.Total.StringFixed(2),
	}
}

// EventType returns the event type name
func (e *OrderPaidEvent) EventType() string {
	return EventTypeOrderPaid
}

// OrderShippedEvent is raised when an order ships
type OrderShippedEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
}

// NewOrderShippedEvent creates a new OrderShippedEvent
func NewOrderShippedEvent(o *Order) *OrderShippedEvent {
	return &OrderShippedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderShipped, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		UserID:          o.UserID,
	}
}

// EventType returns the event type name
func (e *OrderShippedEvent) EventType() string {
	return EventTypeOrderShipped
}

// OrderDeliveredEvent is raised when an order is delivered
type OrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
}

// NewOrderDeliveredEvent creates a new OrderDeliveredEvent
func NewOrderDeliveredEvent(o *Order) *OrderDeliveredEvent {
	return &OrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDelivered, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		UserID:          o.UserID,
	}
}

// EventType returns the event type name
func (e *OrderDeliveredEvent) EventType() string {
	return EventTypeOrderDelivered
}

// OrderCancelledEvent is raised when an order is cancelled.
// Stock release for the cancelled items is driven off this event's items.
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID       `json:"order_id"`
	UserID  uuid.UUID       `json:"user_id"`
	Reason  string          `json:"reason,omitempty"`
	Items   []OrderItemInfo `json:"items"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(o *Order, reason string) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		UserID:          o.UserID,
		Reason:          reason,
		Items:           itemInfos(o),
	}
}

// EventType returns the event type name
func (e *OrderCancelledEvent) EventType() string {
	return EventTypeOrderCancelled
}

// OrderReturnRequestedEvent is raised when a customer opens a return
type OrderReturnRequestedEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
	Reason  string    `json:"reason,omitempty"`
}

// NewOrderReturnRequestedEvent creates a new OrderReturnRequestedEvent
func NewOrderReturnRequestedEvent(o *Order) *OrderReturnRequestedEvent {
	return &OrderReturnRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderReturnRequested, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		UserID:          o.UserID,
		Reason:          o.ReturnReason,
	}
}

// EventType returns the event type name
func (e *OrderReturnRequestedEvent) EventType() string {
	return EventTypeOrderReturnRequested
}

// OrderReturnResolvedEvent is raised when a return completes or is rejected
type OrderReturnResolvedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID `json:"order_id"`
	UserID       uuid.UUID `json:"user_id"`
	Completed    bool      `json:"completed"`
	RefundAmount string    `json:"refund_amount,omitempty"`
	RefundMethod string    `json:"refund_method,omitempty"`
}

// NewOrderReturnResolvedEvent creates a new OrderReturnResolvedEvent
func NewOrderReturnResolvedEvent(o *Order, completed bool) *OrderReturnResolvedEvent {
	e := &OrderReturnResolvedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderReturnResolved, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		UserID:          o.UserID,
		Completed:       completed,
	}
	if completed {
		e.RefundAmount = o.RefundAmount.StringFixed(2)
		e.RefundMethod = o.RefundMethod
	}
	return e
}

// EventType returns the event type name
func (e *OrderReturnResolvedEvent) EventType() string {
	return EventTypeOrderReturnResolved
}
