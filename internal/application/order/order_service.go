package order

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/shipping"
)

// OrderService drives the order lifecycle after settlement: payment
// confirmation, shipping, delivery, cancellation and returns.
type OrderService struct {
	orders         order.Repository
	stock          inventory.Repository
	carrier        shipping.Carrier
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(orders order.Repository, stock inventory.Repository, carrier shipping.Carrier, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:  orders,
		stock:   stock,
		carrier: carrier,
		logger:  logger,
	}
}

// SetEventPublisher sets the event publisher for lifecycle notifications
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetByID retrieves an order. A non-admin caller only sees their own orders.
func (s *OrderService) GetByID(ctx context.Context, callerID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && o.UserID != callerID {
		// Hide the order's existence from other users.
		return nil, shared.ErrNotFound
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ListByUser retrieves the caller's orders with filtering and pagination
func (s *OrderService) ListByUser(ctx context.Context, userID uuid.UUID, filter OrderListFilter) ([]OrderListItemResponse, int64, error) {
	domainFilter := s.toDomainFilter(filter)

	orders, err := s.orders.FindByUser(ctx, userID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orders.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderListItemResponses(orders), total, nil
}

// List retrieves orders across all users (admin listing)
func (s *OrderService) List(ctx context.Context, filter OrderListFilter) ([]OrderListItemResponse, int64, error) {
	domainFilter := s.toDomainFilter(filter)

	orders, err := s.orders.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orders.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderListItemResponses(orders), total, nil
}

// ConfirmPayment marks a pending manual order as paid once the operator has
// matched the transaction reference against the bank statement.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, paymentRef string) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := o.MarkPaid(paymentRef); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, o)
	resp := ToOrderResponse(o)
	return &resp, nil
}

// Ship books a carrier pickup for a paid order and marks it shipped.
// The status transition is persisted only after the booking succeeds.
func (s *OrderService) Ship(ctx context.Context, orderID uuid.UUID, req ShipOrderRequest) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !o.Status.CanTransitionTo(order.StatusShipped) {
		return nil, shared.NewDomainError("INVALID_STATE", "Order cannot be shipped in status "+string(o.Status))
	}

	if s.carrier != nil {
		shipReq := &shipping.ShipmentRequest{
			OrderID:     o.ID,
			Name:        o.Shipping.Name,
			Phone:       o.Shipping.Phone,
			Address:     o.Shipping.Address,
			City:        o.Shipping.City,
			State:       o.Shipping.State,
			Pincode:     o.Shipping.Pincode,
			WeightGrams: req.WeightGrams,
		}
		if o.PaymentMethod == order.PaymentMethodCOD {
			shipReq.CODAmount = o.Total.Float64()
		}
		if _, err := s.carrier.CreateShipment(ctx, shipReq); err != nil {
			return nil, err
		}
	}

	if err := o.Ship(); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, o)
	resp := ToOrderResponse(o)
	return &resp, nil
}

// Deliver marks a shipped order as delivered
func (s *OrderService) Deliver(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := o.Deliver(); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, o)
	resp := ToOrderResponse(o)
	return &resp, nil
}

// Cancel cancels a pending or paid order and returns its reserved stock.
// A non-admin caller can only cancel their own orders.
func (s *OrderService) Cancel(ctx context.Context, callerID uuid.UUID, isAdmin bool, orderID uuid.UUID, req CancelOrderRequest) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && o.UserID != callerID {
		return nil, shared.ErrNotFound
	}

	if err := o.Cancel(req.Reason); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	// Return the reserved units. The cancellation itself is already
	// durable; a release failure is logged and repaired by reconciliation.
	if err := s.stock.ReleaseAll(ctx, releaseLines(o)); err != nil {
		s.logger.Error("Failed to release stock for cancelled order",
			zap.String("order_id", o.ID.String()), zap.Error(err))
	}

	s.publishEvents(ctx, o)
	resp := ToOrderResponse(o)
	return &resp, nil
}

// RequestReturn opens a return for a delivered order
func (s *OrderService) RequestReturn(ctx context.Context, callerID uuid.UUID, orderID uuid.UUID, req RequestReturnRequest) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != callerID {
		return nil, shared.ErrNotFound
	}

	if err := o.RequestReturn(req.Reason); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, o)
	resp := ToOrderResponse(o)
	return &resp, nil
}

// StartReturnProcessing moves a requested return into processing
func (s *OrderService) StartReturnProcessing(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := o.StartReturnProcessing(); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	resp := ToOrderResponse(o)
	return &resp, nil
}

// CompleteReturn closes a return with a refund and restocks the items
func (s *OrderService) CompleteReturn(ctx context.Context, orderID uuid.UUID, req CompleteReturnRequest) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	refund := valueobject.NewMoneyINR(req.RefundAmount)
	if err := o.CompleteReturn(refund, req.RefundMethod); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	if err := s.stock.ReleaseAll(ctx, releaseLines(o)); err != nil {
		s.logger.Error("Failed to restock returned order",
			zap.String("order_id", o.ID.String()), zap.Error(err))
	}

	s.publishEvents(ctx, o)
	resp := ToOrderResponse(o)
	return &resp, nil
}

// RejectReturn closes a return without a refund
func (s *OrderService) RejectReturn(ctx context.Context, orderID uuid.UUID, req RejectReturnRequest) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := o.RejectReturn(req.Reason); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	resp := ToOrderResponse(o)
	return &resp, nil
}

// CheckServiceability asks the carrier whether it delivers to a pincode
func (s *OrderService) CheckServiceability(ctx context.Context, pincode string) (*ServiceabilityResponse, error) {
	if !order.IsValidPincode(pincode) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Pincode must be 4 to 8 digits")
	}
	if s.carrier == nil {
		return nil, shared.ErrUpstreamFailure
	}

	result, err := s.carrier.CheckServiceability(ctx, pincode)
	if err != nil {
		return nil, err
	}
	return &ServiceabilityResponse{
		Pincode:       result.Pincode,
		Serviceable:   result.Serviceable,
		CODAvailable:  result.CODAvailable,
		EstimatedDays: result.EstimatedDays,
	}, nil
}

func (s *OrderService) toDomainFilter(filter OrderListFilter) shared.Filter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	return domainFilter
}

func (s *OrderService) publishEvents(ctx context.Context, o *order.Order) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range o.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish order event",
				zap.String("event_type", event.EventType()),
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
		}
	}
	o.ClearDomainEvents()
}

func releaseLines(o *order.Order) []inventory.Reservation {
	lines := make([]inventory.Reservation, len(o.Items))
	for i, item := range o.Items {
		lines[i] = inventory.Reservation{
			ProductID:   item.ProductID,
			VariantCode: item.VariantCode,
			Quantity:    item.Quantity,
		}
	}
	return lines
}
