package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// settlementDedupeTTL bounds how long a payment reference is remembered by
// the idempotency store. The order table itself is the durable record; the
// store only absorbs rapid duplicate submissions.
const settlementDedupeTTL = 24 * time.Hour

// CheckoutService settles customer orders. Settlement is the single entry
// point that turns a verified payment into an order: it authenticates the
// payment proof, reserves stock, claims the coupon and inserts the order in
// one database transaction.
type CheckoutService struct {
	gateway        payment.Gateway
	coupons        coupon.Repository
	orders         order.Repository
	scope          TransactionScope
	dedupe         shared.IdempotencyStore
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(
	gateway payment.Gateway,
	coupons coupon.Repository,
	orders order.Repository,
	scope TransactionScope,
	dedupe shared.IdempotencyStore,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		gateway: gateway,
		coupons: coupons,
		orders:  orders,
		scope:   scope,
		dedupe:  dedupe,
		logger:  logger,
	}
}

// SetEventPublisher sets the event publisher for post-commit notifications
func (s *CheckoutService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreatePaymentOrder prices the cart and opens a payment intent at the
// gateway. Nothing is reserved or persisted yet; the intent only fixes the
// amount the client must pay.
func (s *CheckoutService) CreatePaymentOrder(ctx context.Context, userID uuid.UUID, req CreatePaymentOrderRequest) (*PaymentOrderResponse, error) {
	priced, err := s.price(ctx, userID, req.Items, req.CouponCode, req.ShippingFee, req.Tax)
	if err != nil {
		return nil, err
	}
	if !priced.amounts.Total.IsPositive() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Zero-total orders settle without a gateway payment")
	}

	resp, err := s.gateway.CreateOrder(ctx, &payment.CreateOrderRequest{
		Amount:  priced.amounts.Total,
		Receipt: "rcpt_" + uuid.NewString()[:18],
		Notes:   map[string]string{"user_id": userID.String()},
	})
	if err != nil {
		return nil, err
	}

	return &PaymentOrderResponse{
		OrderRef: resp.OrderRef,
		Amount:   resp.Amount.Amount(),
		Currency: resp.Currency,
		KeyID:    resp.KeyID,
	}, nil
}

// VerifyAndSettle authenticates the payment proof and settles the order.
// The proof is checked before any ledger is touched; once it passes, stock
// reservation, coupon claim and order insert commit atomically. Resubmitting
// the same payment reference returns the already settled order.
func (s *CheckoutService) VerifyAndSettle(ctx context.Context, userID uuid.UUID, req VerifyPaymentRequest) (*SettlementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "verify_and_settle",
		telemetry.WithAttribute(telemetry.SpanAttrUserID, userID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrPaymentRef, req.PaymentRef))
	defer span.End()

	proof := &payment.Proof{
		OrderRef:   req.OrderRef,
		PaymentRef: req.PaymentRef,
		Signature:  req.Signature,
	}
	if err := proof.Validate(); err != nil {
		return nil, err
	}
	if err := s.gateway.VerifyProof(ctx, proof); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Idempotent resubmission: the payment reference already settled.
	if existing, err := s.orders.FindByPaymentRef(ctx, req.PaymentRef); err == nil {
		resp := ToSettlementResponse(existing)
		return &resp, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	dedupeKey, fresh := s.markDedupe(ctx, "settlement:"+req.PaymentRef)
	if !fresh {
		// A concurrent settlement of the same reference is in flight.
		return nil, shared.ErrConcurrencyConflict
	}

	priced, err := s.price(ctx, userID, req.Items, req.CouponCode, req.ShippingFee, req.Tax)
	if err != nil {
		s.releaseDedupe(ctx, dedupeKey)
		return nil, err
	}

	shippingSnapshot, err := toShippingSnapshot(req.Shipping)
	if err != nil {
		s.releaseDedupe(ctx, dedupeKey)
		return nil, err
	}

	var settled *order.Order
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Stock().ReserveAll(ctx, priced.reservations); err != nil {
			return err
		}
		if priced.coupon != nil {
			if err := repos.Coupons().Claim(ctx, priced.coupon.ID, userID); err != nil {
				return err
			}
		}

		o, err := order.NewGatewayOrder(userID, priced.items, shippingSnapshot, priced.amounts, req.OrderRef, req.PaymentRef)
		if err != nil {
			return err
		}
		if priced.coupon != nil {
			o.CouponCode = priced.coupon.Code
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		settled = o
		return nil
	})
	if err != nil {
		// Lost the insert race: another request settled this payment
		// reference first. Hand back the winner's order.
		if errors.Is(err, shared.ErrAlreadyExists) {
			if existing, findErr := s.orders.FindByPaymentRef(ctx, req.PaymentRef); findErr == nil {
				resp := ToSettlementResponse(existing)
				return &resp, nil
			}
		}
		s.releaseDedupe(ctx, dedupeKey)
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderID, settled.ID.String())

	s.publishEvents(ctx, settled)

	resp := ToSettlementResponse(settled)
	return &resp, nil
}

// SettleManual settles an order against an out-of-band payment reference.
// The order is born PENDING until the payment is confirmed by an operator.
// A zero total after a 100% discount coupon settles here as well.
func (s *CheckoutService) SettleManual(ctx context.Context, userID uuid.UUID, req ManualOrderRequest) (*SettlementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "settle_manual",
		telemetry.WithAttribute(telemetry.SpanAttrUserID, userID.String()))
	defer span.End()

	dedupeKey, fresh := s.markDedupe(ctx, "settlement:manual:"+req.TransactionID)
	if !fresh {
		return nil, shared.ErrConcurrencyConflict
	}

	priced, err := s.price(ctx, userID, req.Items, req.CouponCode, req.ShippingFee, req.Tax)
	if err != nil {
		s.releaseDedupe(ctx, dedupeKey)
		return nil, err
	}

	shippingSnapshot, err := toShippingSnapshot(req.Shipping)
	if err != nil {
		s.releaseDedupe(ctx, dedupeKey)
		return nil, err
	}

	var settled *order.Order
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Stock().ReserveAll(ctx, priced.reservations); err != nil {
			return err
		}
		if priced.coupon != nil {
			if err := repos.Coupons().Claim(ctx, priced.coupon.ID, userID); err != nil {
				return err
			}
		}

		o, err := order.NewManualOrder(userID, priced.items, shippingSnapshot, priced.amounts, req.TransactionID, order.PaymentMethod(req.Method))
		if err != nil {
			return err
		}
		if priced.coupon != nil {
			o.CouponCode = priced.coupon.Code
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		settled = o
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// The transaction reference already settled an order. Unlike
			// the gateway path there is no verified proof tying this
			// request to that order, so reject rather than return it.
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Transaction reference already settled an order")
		}
		s.releaseDedupe(ctx, dedupeKey)
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderID, settled.ID.String())

	s.publishEvents(ctx, settled)

	resp := ToSettlementResponse(settled)
	return &resp, nil
}

// markDedupe latches key in the idempotency store. It returns the key to
// hand to releaseDedupe on failure, empty when the store is absent or
// unavailable. fresh is false when another settlement already holds the key.
func (s *CheckoutService) markDedupe(ctx context.Context, key string) (string, bool) {
	if s.dedupe == nil {
		return "", true
	}
	fresh, err := s.dedupe.MarkProcessed(ctx, key, settlementDedupeTTL)
	if err != nil {
		s.logger.Warn("Settlement dedupe store unavailable, proceeding",
			zap.String("key", key), zap.Error(err))
		return "", true
	}
	if !fresh {
		return "", false
	}
	return key, true
}

// releaseDedupe unlatches a dedupe key after a failed settlement so the
// same payment reference can be retried once the cause is fixed. A key that
// stayed latched would bounce retries with CONCURRENCY_CONFLICT until the
// TTL ran out.
func (s *CheckoutService) releaseDedupe(ctx context.Context, key string) {
	if s.dedupe == nil || key == "" {
		return
	}
	if err := s.dedupe.Release(ctx, key); err != nil {
		s.logger.Warn("Failed to release settlement dedupe key",
			zap.String("key", key), zap.Error(err))
	}
}

// pricedCart is the outcome of pricing a checkout request
type pricedCart struct {
	items        []order.OrderItem
	reservations []inventory.Reservation
	amounts      order.Amounts
	coupon       *coupon.Coupon
}

// price validates the cart lines, resolves the coupon and computes the
// order amounts. It reads but never writes: coupon claiming happens inside
// the settlement transaction.
func (s *CheckoutService) price(ctx context.Context, userID uuid.UUID, items []CheckoutItemInput, couponCode string, shippingFee, tax decimal.Decimal) (*pricedCart, error) {
	if shippingFee.IsNegative() || tax.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Shipping fee and tax cannot be negative")
	}

	cart := &pricedCart{}
	subtotal := valueobject.ZeroINR()
	for _, in := range items {
		item, err := order.NewOrderItem(
			in.ProductID,
			in.Title,
			valueobject.NewMoneyINR(in.UnitPrice),
			in.Quantity,
			in.VariantCode,
			valueobject.NewMoneyINR(in.Discount),
		)
		if err != nil {
			return nil, err
		}
		cart.items = append(cart.items, item)
		cart.reservations = append(cart.reservations, inventory.Reservation{
			ProductID:   in.ProductID,
			VariantCode: in.VariantCode,
			Quantity:    in.Quantity,
		})
		subtotal = subtotal.MustAdd(item.LineTotal())
	}

	discount := valueobject.ZeroINR()
	if couponCode != "" {
		c, err := s.coupons.FindByCode(ctx, coupon.NormalizeCode(couponCode))
		if err != nil {
			return nil, err
		}
		if err := c.CheckUsable(time.Now()); err != nil {
			return nil, err
		}
		used, err := s.coupons.HasUsed(ctx, c.ID, userID)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, shared.ErrCouponAlreadyUsed
		}
		discount = subtotal.CalculatePercentage(c.DiscountPercent)
		cart.coupon = c
	}

	discounted, err := subtotal.Subtract(discount)
	if err != nil {
		return nil, err
	}
	total := discounted.
		MustAdd(valueobject.NewMoneyINR(shippingFee)).
		MustAdd(valueobject.NewMoneyINR(tax))
	if total.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Order total cannot be negative")
	}

	cart.amounts = order.Amounts{
		Subtotal:    subtotal,
		Discount:    discount,
		ShippingFee: valueobject.NewMoneyINR(shippingFee),
		Tax:         valueobject.NewMoneyINR(tax),
		Total:       total,
	}
	return cart, nil
}

// publishEvents hands the aggregate's domain events to the bus after the
// settlement transaction commits. Publish failures are logged, never
// surfaced: the order is already durable.
func (s *CheckoutService) publishEvents(ctx context.Context, o *order.Order) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range o.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish settlement event",
				zap.String("event_type", event.EventType()),
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
		}
	}
	o.ClearDomainEvents()
}

func toShippingSnapshot(in ShippingInput) (order.ShippingSnapshot, error) {
	snapshot := order.ShippingSnapshot{
		Name:     in.Name,
		Phone:    in.Phone,
		Address:  in.Address,
		City:     in.City,
		State:    in.State,
		Pincode:  in.Pincode,
		Landmark: in.Landmark,
	}
	if err := snapshot.Validate(); err != nil {
		return order.ShippingSnapshot{}, err
	}
	return snapshot, nil
}
