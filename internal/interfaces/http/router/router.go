package router

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// Handlers bundles the HTTP handlers the router wires up
type Handlers struct {
	System   *handler.SystemHandler
	Auth     *handler.AuthHandler
	Checkout *handler.CheckoutHandler
	Order    *handler.OrderHandler
	Coupon   *handler.CouponHandler
	Invoice  *handler.InvoiceHandler
}

// Setup registers all routes on the engine. authn protects endpoints
// that need a signed-in account; the admin group additionally requires
// the admin flag on the token.
func Setup(engine *gin.Engine, h Handlers, authn gin.HandlerFunc) {
	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)

	api := engine.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", authn, h.Auth.Logout)
		auth.GET("/profile", authn, h.Auth.Profile)
	}

	api.GET("/shipping/serviceability/:pincode", h.Order.CheckServiceability)

	payment := api.Group("/payment", authn)
	{
		payment.POST("/create-order", h.Checkout.CreatePaymentOrder)
		payment.POST("/verify", h.Checkout.VerifyPayment)
		payment.POST("/manual", h.Checkout.SettleManual)
	}

	orders := api.Group("/orders", authn)
	{
		orders.GET("", h.Order.List)
		orders.GET("/:id", h.Order.Get)
		orders.POST("/:id/cancel", h.Order.Cancel)
		orders.POST("/:id/return", h.Order.RequestReturn)
		orders.GET("/:id/invoice", h.Invoice.GetByOrder)
	}

	coupons := api.Group("/coupons", authn)
	{
		coupons.POST("/validate", h.Coupon.Validate)
		coupons.POST("/apply", h.Coupon.Apply)
	}

	admin := api.Group("/admin", authn, middleware.RequireAdmin())
	{
		admin.POST("/orders/:id/confirm-payment", h.Order.ConfirmPayment)
		admin.POST("/orders/:id/ship", h.Order.Ship)
		admin.POST("/orders/:id/deliver", h.Order.Deliver)
		admin.POST("/orders/:id/cancel", h.Order.Cancel)
		admin.POST("/orders/:id/return/process", h.Order.StartReturnProcessing)
		admin.POST("/orders/:id/return/complete", h.Order.CompleteReturn)
		admin.POST("/orders/:id/return/reject", h.Order.RejectReturn)
		admin.POST("/orders/:id/invoice", h.Invoice.Generate)

		admin.POST("/coupons", h.Coupon.Create)
		admin.GET("/coupons", h.Coupon.List)
		admin.POST("/coupons/:id/deactivate", h.Coupon.Deactivate)

		admin.POST("/invoices/generate", h.Invoice.GenerateForOrder)
		admin.GET("/invoices", h.Invoice.List)
		admin.GET("/invoices/:id", h.Invoice.Get)
	}
}
