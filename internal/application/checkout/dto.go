package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/order"
)

// CheckoutItemInput is one line item of a checkout request. Title and price
// are snapshots taken by the storefront at the moment of checkout.
type CheckoutItemInput struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	Title       string          `json:"title" binding:"required,min=1,max=200"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	VariantCode string          `json:"variant_code" binding:"omitempty,max=64"`
	Discount    decimal.Decimal `json:"discount"`
}

// ShippingInput is the delivery address captured at checkout
type ShippingInput struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Phone    string `json:"phone" binding:"required,min=8,max=20"`
	Address  string `json:"address" binding:"required,min=1,max=500"`
	City     string `json:"city" binding:"required,min=1,max=100"`
	State    string `json:"state" binding:"required,min=1,max=100"`
	Pincode  string `json:"pincode" binding:"required,pincode"`
	Landmark string `json:"landmark" binding:"omitempty,max=200"`
}

// CreatePaymentOrderRequest asks the gateway to open a payment intent for
// the priced cart
type CreatePaymentOrderRequest struct {
	Items       []CheckoutItemInput `json:"items" binding:"required,min=1,dive"`
	CouponCode  string              `json:"coupon_code"`
	ShippingFee decimal.Decimal     `json:"shipping_fee"`
	Tax         decimal.Decimal     `json:"tax"`
}

// PaymentOrderResponse carries the gateway payment intent to the client
type PaymentOrderResponse struct {
	OrderRef string          `json:"order_ref"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	KeyID    string          `json:"key_id"`
}

// VerifyPaymentRequest submits the signed payment proof together with the
// cart it pays for
type VerifyPaymentRequest struct {
	OrderRef   string `json:"order_ref" binding:"required"`
	PaymentRef string `json:"payment_ref" binding:"required"`
	Signature  string `json:"signature" binding:"required"`

	Items       []CheckoutItemInput `json:"items" binding:"required,min=1,dive"`
	Shipping    ShippingInput       `json:"shipping" binding:"required"`
	CouponCode  string              `json:"coupon_code"`
	ShippingFee decimal.Decimal     `json:"shipping_fee"`
	Tax         decimal.Decimal     `json:"tax"`
}

// ManualOrderRequest settles an order against an out-of-band payment
// reference (bank transfer, UPI screenshot, cash on delivery)
type ManualOrderRequest struct {
	TransactionID string `json:"transaction_id" binding:"required,min=1,max=128"`
	Method        string `json:"method" binding:"omitempty,oneof=COD UPI"`

	Items       []CheckoutItemInput `json:"items" binding:"required,min=1,dive"`
	Shipping    ShippingInput       `json:"shipping" binding:"required"`
	CouponCode  string              `json:"coupon_code"`
	ShippingFee decimal.Decimal     `json:"shipping_fee"`
	Tax         decimal.Decimal     `json:"tax"`
}

// SettlementResponse reports the settled order back to the client
type SettlementResponse struct {
	OrderID       uuid.UUID       `json:"order_id"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	PaymentRef    string          `json:"payment_ref,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToSettlementResponse maps a settled order to its response
func ToSettlementResponse(o *order.Order) SettlementResponse {
	return SettlementResponse{
		OrderID:       o.ID,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		PaymentRef:    o.PaymentRef,
		TransactionID: o.TransactionID,
		Subtotal:      o.Subtotal.Amount(),
		Discount:      o.Discount.Amount(),
		ShippingFee:   o.ShippingFee.Amount(),
		Tax:           o.Tax.Amount(),
		Total:         o.Total.Amount(),
		Currency:      string(o.Total.Currency()),
		CreatedAt:     o.CreatedAt,
	}
}
