package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/storefront/backend/internal/application/checkout"
	appcoupon "github.com/storefront/backend/internal/application/coupon"
	appidentity "github.com/storefront/backend/internal/application/identity"
	appinvoice "github.com/storefront/backend/internal/application/invoice"
	apporder "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/invoice"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shipping"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
)

type stubGateway struct{}

func (stubGateway) CreateOrder(_ context.Context, req *payment.CreateOrderRequest) (*payment.CreateOrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &payment.CreateOrderResponse{
		OrderRef: "order_stub1",
		Amount:   req.Amount,
		Currency: "INR",
		KeyID:    "rzp_test_key",
	}, nil
}

// VerifyProof accepts only the literal signature "valid"
func (stubGateway) VerifyProof(_ context.Context, proof *payment.Proof) error {
	if err := proof.Validate(); err != nil {
		return err
	}
	if proof.Signature != "valid" {
		return shared.ErrAuthFailure
	}
	return nil
}

type stubCarrier struct{}

func (stubCarrier) CheckServiceability(_ context.Context, pincode string) (*shipping.Serviceability, error) {
	return &shipping.Serviceability{Pincode: pincode, Serviceable: true, CODAvailable: true, EstimatedDays: 3}, nil
}

func (stubCarrier) CreateShipment(_ context.Context, _ *shipping.ShipmentRequest) (*shipping.Shipment, error) {
	return &shipping.Shipment{ShipmentID: "shp_1", TrackingNo: "TRK001"}, nil
}

type testApp struct {
	engine *gin.Engine
	db     *gorm.DB
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&identity.User{},
		&order.Order{}, &order.OrderItem{},
		&inventory.StockLevel{},
		&coupon.Coupon{}, &coupon.Usage{},
		&invoice.Invoice{}, &invoice.DayCounter{},
	))

	log := zap.NewNop()
	orders := persistence.NewGormOrderRepository(db)
	stock := persistence.NewGormStockRepository(db)
	coupons := persistence.NewGormCouponRepository(db)
	invoices := persistence.NewGormInvoiceRepository(db)
	users := persistence.NewGormUserRepository(db)

	dedupe := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = dedupe.Close() })

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-0123456789abcdef",
		Issuer:                 "storefront-test",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
	})
	blacklist := auth.NewInMemoryTokenBlacklist()

	checkoutSvc := checkout.NewCheckoutService(stubGateway{}, coupons, orders,
		persistence.NewGormSettlementScope(db), dedupe, log)
	orderSvc := apporder.NewOrderService(orders, stock, stubCarrier{}, log)
	invoiceSvc := appinvoice.NewInvoiceService(invoices, orders, log)
	couponSvc := appcoupon.NewCouponService(coupons, log)
	authSvc := appidentity.NewAuthService(users, jwtService, blacklist, log)

	engine := gin.New()
	middleware.SetupValidator()
	engine.Use(middleware.RequestID())

	authn := middleware.JWTAuthMiddleware(middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		Logger:         log,
	})
	router.Setup(engine, router.Handlers{
		System:   handler.NewSystemHandler(db),
		Auth:     handler.NewAuthHandler(authSvc),
		Checkout: handler.NewCheckoutHandler(checkoutSvc),
		Order:    handler.NewOrderHandler(orderSvc),
		Coupon:   handler.NewCouponHandler(couponSvc),
		Invoice:  handler.NewInvoiceHandler(invoiceSvc),
	}, authn)

	return &testApp{engine: engine, db: db}
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) register(t *testing.T, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.AccessToken
}

func (a *testApp) adminToken(t *testing.T) string {
	t.Helper()
	email := fmt.Sprintf("admin-%s@example.com", uuid.NewString()[:8])
	a.register(t, email)
	require.NoError(t, a.db.Model(&identity.User{}).
		Where("email = ?", email).
		Update("is_admin", true).Error)

	w := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.AccessToken
}

func (a *testApp) seedStock(t *testing.T, productID uuid.UUID, qty int) {
	t.Helper()
	require.NoError(t, persistence.NewGormStockRepository(a.db).
		SaveStock(context.Background(), inventory.FlatStock{Product: productID, Quantity: qty}))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code    string                 `json:"code"`
			Details map[string]interface{} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Code
}

func cartBody(productID uuid.UUID, qty int, pincode string) map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{{
			"product_id": productID.String(),
			"title":      "Cotton Kurta",
			"unit_price": "499",
			"quantity":   qty,
		}},
		"shipping": map[string]string{
			"name":    "Asha Rao",
			"phone":   "9876543210",
			"address": "14 MG Road",
			"city":    "Bengaluru",
			"state":   "Karnataka",
			"pincode": pincode,
		},
	}
}

func TestRoutes_Health(t *testing.T) {
	app := setupApp(t)
	w := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_AuthRequired(t *testing.T) {
	app := setupApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/payment/create-order", "", map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/orders", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoutes_Settlement(t *testing.T) {
	app := setupApp(t)
	token := app.register(t, "asha@example.com")
	productID := uuid.New()
	app.seedStock(t, productID, 5)

	t.Run("verified payment settles the order", func(t *testing.T) {
		body := cartBody(productID, 2, "560001")
		body["order_ref"] = "order_stub1"
		body["payment_ref"] = "pay_001"
		body["signature"] = "valid"

		w := app.do(t, http.MethodPost, "/api/v1/payment/verify", token, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp struct {
			Data struct {
				Status string `json:"status"`
				Total  string `json:"total"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "PAID", resp.Data.Status)
		assert.Equal(t, "998", resp.Data.Total)
	})

	t.Run("forged signature returns 401 AUTH_FAILURE", func(t *testing.T) {
		body := cartBody(productID, 1, "560001")
		body["order_ref"] = "order_stub1"
		body["payment_ref"] = "pay_002"
		body["signature"] = "forged"

		w := app.do(t, http.MethodPost, "/api/v1/payment/verify", token, body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "AUTH_FAILURE", errorCode(t, w))
	})

	t.Run("insufficient stock returns 409 with available quantity", func(t *testing.T) {
		body := cartBody(productID, 50, "560001")
		body["order_ref"] = "order_stub1"
		body["payment_ref"] = "pay_003"
		body["signature"] = "valid"

		w := app.do(t, http.MethodPost, "/api/v1/payment/verify", token, body)
		assert.Equal(t, http.StatusConflict, w.Code)

		var resp struct {
			Error struct {
				Code    string                 `json:"code"`
				Details map[string]interface{} `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
		assert.Equal(t, float64(3), resp.Error.Details["available_qty"])
	})

	t.Run("malformed pincode returns 400 VALIDATION_ERROR", func(t *testing.T) {
		body := cartBody(productID, 1, "12")
		body["order_ref"] = "order_stub1"
		body["payment_ref"] = "pay_004"
		body["signature"] = "valid"

		w := app.do(t, http.MethodPost, "/api/v1/payment/verify", token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})

	t.Run("manual settlement creates a pending order", func(t *testing.T) {
		body := cartBody(productID, 1, "560001")
		body["transaction_id"] = "UTR777"
		body["method"] = "UPI"

		w := app.do(t, http.MethodPost, "/api/v1/payment/manual", token, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp struct {
			Data struct {
				Status string `json:"status"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "PENDING", resp.Data.Status)
	})
}

func TestRoutes_CouponTaxonomy(t *testing.T) {
	app := setupApp(t)
	token := app.register(t, "asha@example.com")

	expired, err := coupon.NewCoupon("OLD10", decimal.NewFromInt(10), time.Now().Add(time.Hour))
	require.NoError(t, err)
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, persistence.NewGormCouponRepository(app.db).Save(context.Background(), expired))

	t.Run("expired coupon returns 410", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/coupons/validate", token, map[string]interface{}{"code": "OLD10"})
		assert.Equal(t, http.StatusGone, w.Code)
		assert.Equal(t, "COUPON_EXPIRED", errorCode(t, w))
	})

	t.Run("unknown coupon returns 404", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/coupons/validate", token, map[string]interface{}{"code": "NOPE"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", errorCode(t, w))
	})
}

func TestRoutes_AdminGuard(t *testing.T) {
	app := setupApp(t)
	userToken := app.register(t, "asha@example.com")

	w := app.do(t, http.MethodPost, "/api/v1/admin/coupons", userToken, map[string]interface{}{
		"code":             "NEW10",
		"discount_percent": "10",
		"expires_at":       time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken := app.adminToken(t)
	w = app.do(t, http.MethodPost, "/api/v1/admin/coupons", adminToken, map[string]interface{}{
		"code":             "NEW10",
		"discount_percent": "10",
		"expires_at":       time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestRoutes_Serviceability(t *testing.T) {
	app := setupApp(t)

	w := app.do(t, http.MethodGet, "/api/v1/shipping/serviceability/560001", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/shipping/serviceability/12", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}
