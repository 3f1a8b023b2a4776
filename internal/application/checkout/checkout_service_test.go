package checkout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/persistence"
)

// fakeGateway is a payment.Gateway stub with scriptable outcomes
type fakeGateway struct {
	verifyErr   error
	createResp  *payment.CreateOrderResponse
	createErr   error
	lastRequest *payment.CreateOrderRequest
}

func (g *fakeGateway) CreateOrder(_ context.Context, req *payment.CreateOrderRequest) (*payment.CreateOrderResponse, error) {
	g.lastRequest = req
	if g.createErr != nil {
		return nil, g.createErr
	}
	if g.createResp != nil {
		return g.createResp, nil
	}
	return &payment.CreateOrderResponse{
		OrderRef: "order_fake123",
		Amount:   req.Amount,
		Currency: "INR",
		KeyID:    "rzp_test_key",
	}, nil
}

func (g *fakeGateway) VerifyProof(_ context.Context, _ *payment.Proof) error {
	return g.verifyErr
}

type checkoutFixture struct {
	svc     *checkout.CheckoutService
	gateway *fakeGateway
	db      *gorm.DB
	stock   *persistence.GormStockRepository
	coupons *persistence.GormCouponRepository
	orders  *persistence.GormOrderRepository
}

func setupCheckout(t *testing.T) *checkoutFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&inventory.StockLevel{},
		&coupon.Coupon{},
		&coupon.Usage{},
		&order.Order{},
		&order.OrderItem{},
	))

	gw := &fakeGateway{}
	stockRepo := persistence.NewGormStockRepository(db)
	couponRepo := persistence.NewGormCouponRepository(db)
	orderRepo := persistence.NewGormOrderRepository(db)

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	svc := checkout.NewCheckoutService(
		gw,
		couponRepo,
		orderRepo,
		persistence.NewGormSettlementScope(db),
		store,
		zap.NewNop(),
	)

	return &checkoutFixture{
		svc:     svc,
		gateway: gw,
		db:      db,
		stock:   stockRepo,
		coupons: couponRepo,
		orders:  orderRepo,
	}
}

func seedStock(t *testing.T, f *checkoutFixture, qty int) uuid.UUID {
	t.Helper()
	productID := uuid.New()
	require.NoError(t, f.stock.SaveStock(context.Background(), inventory.FlatStock{
		Product:  productID,
		Quantity: qty,
	}))
	return productID
}

func seedCoupon(t *testing.T, f *checkoutFixture, code string, percent int64) *coupon.Coupon {
	t.Helper()
	c, err := coupon.NewCoupon(code, decimal.NewFromInt(percent), time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, f.coupons.Save(context.Background(), c))
	return c
}

func availableQty(t *testing.T, f *checkoutFixture, productID uuid.UUID) int {
	t.Helper()
	stock, err := f.stock.GetStock(context.Background(), productID)
	require.NoError(t, err)
	qty, err := stock.Available("")
	require.NoError(t, err)
	return qty
}

func testShipping() checkout.ShippingInput {
	return checkout.ShippingInput{
		Name:    "Asha Rao",
		Phone:   "9876543210",
		Address: "14 MG Road",
		City:    "Bengaluru",
		State:   "Karnataka",
		Pincode: "560001",
	}
}

func cartItem(productID uuid.UUID, price int64, qty int) checkout.CheckoutItemInput {
	return checkout.CheckoutItemInput{
		ProductID: productID,
		Title:     "Cotton Kurta",
		UnitPrice: decimal.NewFromInt(price),
		Quantity:  qty,
	}
}

func TestCheckoutService_CreatePaymentOrder(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("opens gateway intent for the priced cart", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 10)

		resp, err := f.svc.CreatePaymentOrder(ctx, userID, checkout.CreatePaymentOrderRequest{
			Items:       []checkout.CheckoutItemInput{cartItem(productID, 499, 2)},
			ShippingFee: decimal.NewFromInt(49),
		})
		require.NoError(t, err)

		assert.Equal(t, "order_fake123", resp.OrderRef)
		assert.Equal(t, "INR", resp.Currency)
		require.NotNil(t, f.gateway.lastRequest)
		assert.Equal(t, "1047", f.gateway.lastRequest.Amount.Amount().String())
	})

	t.Run("applies coupon discount to the intent amount", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 10)
		seedCoupon(t, f, "SAVE10", 10)

		_, err := f.svc.CreatePaymentOrder(ctx, userID, checkout.CreatePaymentOrderRequest{
			Items:      []checkout.CheckoutItemInput{cartItem(productID, 1000, 1)},
			CouponCode: "save10",
		})
		require.NoError(t, err)
		assert.Equal(t, "900", f.gateway.lastRequest.Amount.Amount().String())
	})

	t.Run("rejects zero-total carts", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 10)
		seedCoupon(t, f, "FREE100", 100)

		_, err := f.svc.CreatePaymentOrder(ctx, userID, checkout.CreatePaymentOrderRequest{
			Items:      []checkout.CheckoutItemInput{cartItem(productID, 1000, 1)},
			CouponCode: "FREE100",
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	})

	t.Run("unknown coupon fails with not found", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 10)

		_, err := f.svc.CreatePaymentOrder(ctx, userID, checkout.CreatePaymentOrderRequest{
			Items:      []checkout.CheckoutItemInput{cartItem(productID, 1000, 1)},
			CouponCode: "NOPE",
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestCheckoutService_VerifyAndSettle(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	verifyReq := func(productID uuid.UUID, qty int) checkout.VerifyPaymentRequest {
		return checkout.VerifyPaymentRequest{
			OrderRef:   "order_abc",
			PaymentRef: "pay_" + uuid.NewString()[:8],
			Signature:  "sig",
			Items:      []checkout.CheckoutItemInput{cartItem(productID, 499, qty)},
			Shipping:   testShipping(),
		}
	}

	t.Run("settles order and reserves stock atomically", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 5)

		resp, err := f.svc.VerifyAndSettle(ctx, userID, verifyReq(productID, 2))
		require.NoError(t, err)

		assert.Equal(t, string(order.StatusPaid), resp.Status)
		assert.Equal(t, "998", resp.Total.String())
		assert.Equal(t, 3, availableQty(t, f, productID))

		saved, err := f.orders.FindByID(ctx, resp.OrderID)
		require.NoError(t, err)
		assert.Len(t, saved.Items, 1)
		assert.Equal(t, order.PaymentMethodGateway, saved.PaymentMethod)
		require.NotNil(t, saved.PaidAt)
	})

	t.Run("rejects forged proof before touching any ledger", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 5)
		f.gateway.verifyErr = shared.ErrAuthFailure

		_, err := f.svc.VerifyAndSettle(ctx, userID, verifyReq(productID, 2))
		assert.ErrorIs(t, err, shared.ErrAuthFailure)
		assert.Equal(t, 5, availableQty(t, f, productID))
	})

	t.Run("insufficient stock rolls back the whole settlement", func(t *testing.T) {
		f := setupCheckout(t)
		inStock := seedStock(t, f, 10)
		scarce := seedStock(t, f, 1)
		c := seedCoupon(t, f, "SAVE10", 10)

		req := verifyReq(inStock, 2)
		req.Items = append(req.Items, cartItem(scarce, 999, 3))
		req.CouponCode = "SAVE10"

		_, err := f.svc.VerifyAndSettle(ctx, userID, req)
		var stockErr *inventory.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 1, stockErr.AvailableQty)

		// Nothing committed: first line restored, coupon unclaimed.
		assert.Equal(t, 10, availableQty(t, f, inStock))
		used, err := f.coupons.HasUsed(ctx, c.ID, userID)
		require.NoError(t, err)
		assert.False(t, used)
	})

	t.Run("claimed coupon rolls back stock reservation", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 5)
		c := seedCoupon(t, f, "ONCE", 10)
		require.NoError(t, f.coupons.Claim(ctx, c.ID, userID))

		req := verifyReq(productID, 2)
		req.CouponCode = "ONCE"

		_, err := f.svc.VerifyAndSettle(ctx, userID, req)
		assert.ErrorIs(t, err, shared.ErrCouponAlreadyUsed)
		assert.Equal(t, 5, availableQty(t, f, productID))
	})

	t.Run("resubmitting the same payment reference returns the settled order", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 5)
		req := verifyReq(productID, 2)

		first, err := f.svc.VerifyAndSettle(ctx, userID, req)
		require.NoError(t, err)

		second, err := f.svc.VerifyAndSettle(ctx, userID, req)
		require.NoError(t, err)

		assert.Equal(t, first.OrderID, second.OrderID)
		// Stock reserved once, not twice.
		assert.Equal(t, 3, availableQty(t, f, productID))
	})

	t.Run("failed settlement can be retried once the cause is fixed", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 1)
		req := verifyReq(productID, 2)

		_, err := f.svc.VerifyAndSettle(ctx, userID, req)
		var stockErr *inventory.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)

		// Restocking and resubmitting the same proof must settle, not
		// bounce off a latched dedupe key.
		require.NoError(t, f.stock.SaveStock(ctx, inventory.FlatStock{Product: productID, Quantity: 5}))

		resp, err := f.svc.VerifyAndSettle(ctx, userID, req)
		require.NoError(t, err)
		assert.Equal(t, string(order.StatusPaid), resp.Status)
		assert.Equal(t, 3, availableQty(t, f, productID))
	})

	t.Run("losing the insert race returns the winner's order", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 5)
		req := verifyReq(productID, 1)

		scope := &racingScope{orders: f.orders, paymentRef: req.PaymentRef}
		svc := checkout.NewCheckoutService(f.gateway, f.coupons, f.orders, scope, nil, zap.NewNop())

		resp, err := svc.VerifyAndSettle(ctx, userID, req)
		require.NoError(t, err)
		assert.Equal(t, scope.winnerID, resp.OrderID)
	})

	t.Run("missing proof fields are an auth failure", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 5)
		req := verifyReq(productID, 1)
		req.Signature = ""

		_, err := f.svc.VerifyAndSettle(ctx, userID, req)
		assert.ErrorIs(t, err, shared.ErrAuthFailure)
	})
}

// racingScope simulates losing the settlement insert race: a concurrent
// request settles the same payment reference before this transaction runs,
// so the unique index rejects the insert.
type racingScope struct {
	orders     *persistence.GormOrderRepository
	paymentRef string
	winnerID   uuid.UUID
}

func (s *racingScope) Execute(ctx context.Context, _ func(checkout.TransactionalRepositories) error) error {
	price := valueobject.NewMoneyINR(decimal.NewFromInt(499))
	item, err := order.NewOrderItem(uuid.New(), "Cotton Kurta", price, 1, "", valueobject.ZeroINR())
	if err != nil {
		return err
	}
	winner, err := order.NewGatewayOrder(uuid.New(), []order.OrderItem{item}, order.ShippingSnapshot{
		Name: "Asha Rao", Phone: "9876543210", Address: "14 MG Road",
		City: "Bengaluru", State: "Karnataka", Pincode: "560001",
	}, order.Amounts{Subtotal: price, Total: price}, "order_abc", s.paymentRef)
	if err != nil {
		return err
	}
	winner.ClearDomainEvents()
	if err := s.orders.Save(ctx, winner); err != nil {
		return err
	}
	s.winnerID = winner.ID
	return shared.ErrAlreadyExists
}

func TestCheckoutService_SettleManual(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("settles pending order against a transaction reference", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 4)

		resp, err := f.svc.SettleManual(ctx, userID, checkout.ManualOrderRequest{
			TransactionID: "UTR123456",
			Method:        "UPI",
			Items:         []checkout.CheckoutItemInput{cartItem(productID, 250, 2)},
			Shipping:      testShipping(),
		})
		require.NoError(t, err)

		assert.Equal(t, string(order.StatusPending), resp.Status)
		assert.Equal(t, "UTR123456", resp.TransactionID)
		assert.Equal(t, 2, availableQty(t, f, productID))
	})

	t.Run("zero total after full discount is a valid order", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 4)
		seedCoupon(t, f, "FREE100", 100)

		resp, err := f.svc.SettleManual(ctx, userID, checkout.ManualOrderRequest{
			TransactionID: "FREE-ORDER-1",
			Items:         []checkout.CheckoutItemInput{cartItem(productID, 1000, 1)},
			Shipping:      testShipping(),
			CouponCode:    "FREE100",
		})
		require.NoError(t, err)

		assert.True(t, resp.Total.IsZero())
		assert.Equal(t, "1000", resp.Discount.String())
		assert.Equal(t, 3, availableQty(t, f, productID))
	})

	t.Run("duplicate transaction reference is rejected", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 10)

		req := checkout.ManualOrderRequest{
			TransactionID: "UTR-DUP",
			Items:         []checkout.CheckoutItemInput{cartItem(productID, 250, 1)},
			Shipping:      testShipping(),
		}
		_, err := f.svc.SettleManual(ctx, userID, req)
		require.NoError(t, err)

		_, err = f.svc.SettleManual(ctx, userID, req)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("duplicate transaction reference is rejected without the dedupe store", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 10)
		svc := checkout.NewCheckoutService(f.gateway, f.coupons, f.orders,
			persistence.NewGormSettlementScope(f.db), nil, zap.NewNop())

		req := checkout.ManualOrderRequest{
			TransactionID: "UTR-REPLAY",
			Items:         []checkout.CheckoutItemInput{cartItem(productID, 250, 1)},
			Shipping:      testShipping(),
		}
		_, err := svc.SettleManual(ctx, userID, req)
		require.NoError(t, err)

		_, err = svc.SettleManual(ctx, userID, req)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
		// The unique index rolled back the second reservation.
		assert.Equal(t, 9, availableQty(t, f, productID))
	})

	t.Run("failed manual settlement can be retried", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 1)

		req := checkout.ManualOrderRequest{
			TransactionID: "UTR-RETRY",
			Items:         []checkout.CheckoutItemInput{cartItem(productID, 250, 2)},
			Shipping:      testShipping(),
		}
		_, err := f.svc.SettleManual(ctx, userID, req)
		var stockErr *inventory.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)

		require.NoError(t, f.stock.SaveStock(ctx, inventory.FlatStock{Product: productID, Quantity: 3}))

		resp, err := f.svc.SettleManual(ctx, userID, req)
		require.NoError(t, err)
		assert.Equal(t, "UTR-RETRY", resp.TransactionID)
		assert.Equal(t, 1, availableQty(t, f, productID))
	})

	t.Run("invalid pincode fails validation", func(t *testing.T) {
		f := setupCheckout(t)
		productID := seedStock(t, f, 10)

		shipping := testShipping()
		shipping.Pincode = "12"

		_, err := f.svc.SettleManual(ctx, userID, checkout.ManualOrderRequest{
			TransactionID: "UTR-PIN",
			Items:         []checkout.CheckoutItemInput{cartItem(productID, 250, 1)},
			Shipping:      shipping,
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	})
}
