package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// OrderEventHandler turns order lifecycle events into customer emails.
// It subscribes to the event bus and hands messages to the dispatcher, so a
// slow or failing mail relay never blocks the request that raised the event.
type OrderEventHandler struct {
	users      identity.Repository
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewOrderEventHandler creates a new order event handler
func NewOrderEventHandler(users identity.Repository, dispatcher *Dispatcher, logger *zap.Logger) *OrderEventHandler {
	return &OrderEventHandler{
		users:      users,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// EventTypes returns the subscribed event types
func (h *OrderEventHandler) EventTypes() []string {
	return []string{
		order.EventTypeOrderCreated,
		order.EventTypeOrderShipped,
		order.EventTypeOrderDelivered,
		order.EventTypeOrderCancelled,
	}
}

// Handle processes an order event
func (h *OrderEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *order.OrderCreatedEvent:
		return h.notify(ctx, e.UserID, fmt.Sprintf("Order confirmed: %s", shortID(e.OrderID.String())), h.createdBody(e))
	case *order.OrderShippedEvent:
		return h.notify(ctx, e.UserID, fmt.Sprintf("Order shipped: %s", shortID(e.OrderID.String())),
			"Good news! Your order is on its way.")
	case *order.OrderDeliveredEvent:
		return h.notify(ctx, e.UserID, fmt.Sprintf("Order delivered: %s", shortID(e.OrderID.String())),
			"Your order has been delivered. Thank you for shopping with us.")
	case *order.OrderCancelledEvent:
		body := "Your order has been cancelled."
		if e.Reason != "" {
			body += " Reason: " + e.Reason
		}
		return h.notify(ctx, e.UserID, fmt.Sprintf("Order cancelled: %s", shortID(e.OrderID.String())), body)
	default:
		h.logger.Debug("ignoring event", zap.String("event_type", event.EventType()))
		return nil
	}
}

func (h *OrderEventHandler) notify(ctx context.Context, userID uuid.UUID, subject, body string) error {
	user, err := h.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("look up recipient: %w", err)
	}

	h.dispatcher.Enqueue(Message{
		To:      user.Email,
		Subject: subject,
		Body:    body,
	})
	return nil
}

func (h *OrderEventHandler) createdBody(e *order.OrderCreatedEvent) string {
	var sb strings.Builder
	sb.WriteString("Hi " + e.RecipientName + ",\n\n")
	sb.WriteString("We have received your order.\n\n")
	for _, item := range e.Items {
		if item.VariantCode != "" {
			sb.WriteString(fmt.Sprintf("  %dx %s (%s)\n", item.Quantity, item.Title, item.VariantCode))
		} else {
			sb.WriteString(fmt.Sprintf("  %dx %s\n", item.Quantity, item.Title))
		}
	}
	sb.WriteString(fmt.Sprintf("\nTotal: %s\n", e.Total))
	if e.Status == order.StatusPending {
		sb.WriteString("\nWe will confirm your payment shortly.\n")
	}
	return sb.String()
}

// shortID trims a UUID down to a customer-friendly reference
func shortID(id string) string {
	if len(id) >= 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

// Ensure OrderEventHandler implements shared.EventHandler
var _ shared.EventHandler = (*OrderEventHandler)(nil)
