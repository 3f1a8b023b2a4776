package integration

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/checkout"
	invoiceapp "github.com/storefront/backend/internal/application/invoice"
	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/cache"
	gwpayment "github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/storefront/backend/internal/infrastructure/persistence"
)

const testGatewaySecret = "integration_test_secret"

// settlementEnv wires the checkout and invoice services against a real
// PostgreSQL container, exactly as the server does at startup.
type settlementEnv struct {
	tdb      *TestDB
	checkout *checkout.CheckoutService
	invoices *invoiceapp.InvoiceService
	orders   *persistence.GormOrderRepository
	stock    *persistence.GormStockRepository
	coupons  *persistence.GormCouponRepository
}

func newSettlementEnv(t *testing.T) *settlementEnv {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := NewTestDB(t)

	orders := persistence.NewGormOrderRepository(tdb.DB)
	stock := persistence.NewGormStockRepository(tdb.DB)
	coupons := persistence.NewGormCouponRepository(tdb.DB)
	invoices := persistence.NewGormInvoiceRepository(tdb.DB)
	settings := persistence.NewGormSettingsRepository(tdb.DB)

	gateway, err := gwpayment.NewRazorpayAdapter(&gwpayment.RazorpayConfig{
		KeyID:     "rzp_test_integration",
		KeySecret: testGatewaySecret,
	}, settings)
	require.NoError(t, err)

	logger := zap.NewNop()
	checkoutSvc := checkout.NewCheckoutService(
		gateway,
		coupons,
		orders,
		persistence.NewGormSettlementScope(tdb.DB),
		cache.NewInMemoryIdempotencyStore(),
		logger,
	)
	invoiceSvc := invoiceapp.NewInvoiceService(invoices, orders, logger)

	return &settlementEnv{
		tdb:      tdb,
		checkout: checkoutSvc,
		invoices: invoiceSvc,
		orders:   orders,
		stock:    stock,
		coupons:  coupons,
	}
}

func (e *settlementEnv) seedStock(t *testing.T, productID uuid.UUID, variantCode string, qty int) {
	t.Helper()
	require.NoError(t, e.tdb.DB.Create(&inventory.StockLevel{
		ProductID:   productID,
		VariantCode: variantCode,
		Quantity:    qty,
		UpdatedAt:   time.Now(),
	}).Error)
}

func (e *settlementEnv) stockQty(t *testing.T, productID uuid.UUID, variantCode string) int {
	t.Helper()
	var level inventory.StockLevel
	require.NoError(t, e.tdb.DB.
		Where("product_id = ? AND variant_code = ?", productID, variantCode).
		First(&level).Error)
	return level.Quantity
}

func signProof(orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, []byte(testGatewaySecret))
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

func testShipping() checkout.ShippingInput {
	return checkout.ShippingInput{
		Name:    "Asha Rao",
		Phone:   "+91-9876543210",
		Address: "14 MG Road",
		City:    "Bengaluru",
		State:   "Karnataka",
		Pincode: "560001",
	}
}

func TestSettlementFlow_GatewayPayment(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()

	userID := uuid.New()
	productID := uuid.New()
	env.seedStock(t, productID, "", 10)

	items := []checkout.CheckoutItemInput{{
		ProductID: productID,
		Title:     "Kanchipuram Silk Saree",
		UnitPrice: decimal.NewFromInt(2499),
		Quantity:  2,
	}}

	req := checkout.VerifyPaymentRequest{
		OrderRef:   "order_intg_1",
		PaymentRef: "pay_intg_1",
		Signature:  signProof("order_intg_1", "pay_intg_1"),
		Items:      items,
		Shipping:   testShipping(),
	}

	resp, err := env.checkout.VerifyAndSettle(ctx, userID, req)
	require.NoError(t, err)
	assert.Equal(t, "PAID", resp.Status)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(4998)),
		"total was %s", resp.Total)
	assert.Equal(t, 8, env.stockQty(t, productID, ""))

	t.Run("resubmitting the same proof returns the settled order", func(t *testing.T) {
		again, err := env.checkout.VerifyAndSettle(ctx, userID, req)
		require.NoError(t, err)
		assert.Equal(t, resp.OrderID, again.OrderID)
		assert.Equal(t, 8, env.stockQty(t, productID, ""), "stock reserved twice")
	})

	t.Run("forged signature is rejected before any side effect", func(t *testing.T) {
		forged := req
		forged.PaymentRef = "pay_intg_forged"
		forged.Signature = "deadbeef"
		_, err := env.checkout.VerifyAndSettle(ctx, userID, forged)
		require.ErrorIs(t, err, shared.ErrAuthFailure)
		assert.Equal(t, 8, env.stockQty(t, productID, ""))
	})
}

func TestSettlementFlow_InsufficientStock(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()

	userID := uuid.New()
	scarce := uuid.New()
	plenty := uuid.New()
	env.seedStock(t, scarce, "", 1)
	env.seedStock(t, plenty, "", 100)

	req := checkout.VerifyPaymentRequest{
		OrderRef:   "order_intg_2",
		PaymentRef: "pay_intg_2",
		Signature:  signProof("order_intg_2", "pay_intg_2"),
		Items: []checkout.CheckoutItemInput{
			{ProductID: plenty, Title: "Cotton Kurta", UnitPrice: decimal.NewFromInt(799), Quantity: 3},
			{ProductID: scarce, Title: "Silver Jhumka", UnitPrice: decimal.NewFromInt(1299), Quantity: 2},
		},
		Shipping: testShipping(),
	}

	_, err := env.checkout.VerifyAndSettle(ctx, userID, req)
	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, scarce, stockErr.ProductID)
	assert.Equal(t, 1, stockErr.AvailableQty)

	// The whole reservation rolls back, including the line that fit.
	assert.Equal(t, 100, env.stockQty(t, plenty, ""))
	assert.Equal(t, 1, env.stockQty(t, scarce, ""))

	_, err = env.orders.FindByPaymentRef(ctx, "pay_intg_2")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSettlementFlow_CouponClaimOnce(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()

	userID := uuid.New()
	productID := uuid.New()
	env.seedStock(t, productID, "", 20)

	c, err := coupon.NewCoupon("FESTIVE10", decimal.NewFromInt(10), time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, env.coupons.Save(ctx, c))

	settle := func(orderRef, paymentRef string, uid uuid.UUID) (*checkout.SettlementResponse, error) {
		return env.checkout.VerifyAndSettle(ctx, uid, checkout.VerifyPaymentRequest{
			OrderRef:   orderRef,
			PaymentRef: paymentRef,
			Signature:  signProof(orderRef, paymentRef),
			Items: []checkout.CheckoutItemInput{{
				ProductID: productID,
				Title:     "Brass Diya Set",
				UnitPrice: decimal.NewFromInt(1000),
				Quantity:  1,
			}},
			Shipping:   testShipping(),
			CouponCode: "festive10",
		})
	}

	resp, err := settle("order_intg_3a", "pay_intg_3a", userID)
	require.NoError(t, err)
	assert.True(t, resp.Discount.Equal(decimal.NewFromInt(100)),
		"discount was %s", resp.Discount)

	_, err = settle("order_intg_3b", "pay_intg_3b", userID)
	require.ErrorIs(t, err, shared.ErrCouponAlreadyUsed)
	assert.Equal(t, 19, env.stockQty(t, productID, ""), "failed claim must roll back the reservation")

	otherUser := uuid.New()
	resp, err = settle("order_intg_3c", "pay_intg_3c", otherUser)
	require.NoError(t, err)
	assert.True(t, resp.Discount.Equal(decimal.NewFromInt(100)))
}

func TestSettlementFlow_InvoiceSequence(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()

	userID := uuid.New()
	productID := uuid.New()
	env.seedStock(t, productID, "", 30)

	var orderIDs []uuid.UUID
	for i := 0; i < 3; i++ {
		orderRef := fmt.Sprintf("order_intg_4_%d", i)
		paymentRef := fmt.Sprintf("pay_intg_4_%d", i)
		resp, err := env.checkout.VerifyAndSettle(ctx, userID, checkout.VerifyPaymentRequest{
			OrderRef:   orderRef,
			PaymentRef: paymentRef,
			Signature:  signProof(orderRef, paymentRef),
			Items: []checkout.CheckoutItemInput{{
				ProductID: productID,
				Title:     "Terracotta Planter",
				UnitPrice: decimal.NewFromInt(450),
				Quantity:  1,
			}},
			Shipping: testShipping(),
		})
		require.NoError(t, err)
		orderIDs = append(orderIDs, resp.OrderID)
	}

	day := time.Now().Format("20060102")
	for i, orderID := range orderIDs {
		inv, err := env.invoices.Generate(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("INV-%s-%04d", day, i+1), inv.InvoiceNo)
	}

	t.Run("regenerating returns the same invoice", func(t *testing.T) {
		inv, err := env.invoices.Generate(ctx, orderIDs[0])
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("INV-%s-0001", day), inv.InvoiceNo)
	})
}
