package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/order"
)

// OrderListFilter narrows and pages an order listing
type OrderListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Status   string `form:"status"`
}

// ShipOrderRequest books the carrier pickup for a paid order
type ShipOrderRequest struct {
	WeightGrams int `json:"weight_grams" binding:"omitempty,min=1"`
}

// CancelOrderRequest cancels a pending or paid order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// RequestReturnRequest opens a return for a delivered order
type RequestReturnRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// CompleteReturnRequest closes a return with a refund
type CompleteReturnRequest struct {
	RefundAmount decimal.Decimal `json:"refund_amount" binding:"required"`
	RefundMethod string          `json:"refund_method" binding:"required,oneof=ORIGINAL BANK_TRANSFER STORE_CREDIT"`
}

// RejectReturnRequest closes a return without a refund
type RejectReturnRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// OrderItemResponse is one line item of an order response
type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Title       string          `json:"title"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	VariantCode string          `json:"variant_code,omitempty"`
	Discount    decimal.Decimal `json:"discount"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// ShippingResponse is the delivery address snapshot of an order response
type ShippingResponse struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
	Landmark string `json:"landmark,omitempty"`
}

// OrderResponse is the full representation of an order
type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	Status        string              `json:"status"`
	Items         []OrderItemResponse `json:"items"`
	Shipping      ShippingResponse    `json:"shipping"`
	PaymentMethod string              `json:"payment_method"`
	PaymentRef    string              `json:"payment_ref,omitempty"`
	TransactionID string              `json:"transaction_id,omitempty"`
	CouponCode    string              `json:"coupon_code,omitempty"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Discount      decimal.Decimal     `json:"discount"`
	ShippingFee   decimal.Decimal     `json:"shipping_fee"`
	Tax           decimal.Decimal     `json:"tax"`
	Total         decimal.Decimal     `json:"total"`
	Currency      string              `json:"currency"`
	InvoiceID     *uuid.UUID          `json:"invoice_id,omitempty"`
	ReturnStatus  string              `json:"return_status"`
	ReturnReason  string              `json:"return_reason,omitempty"`
	RefundAmount  decimal.Decimal     `json:"refund_amount"`
	RefundMethod  string              `json:"refund_method,omitempty"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	ShippedAt     *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt   *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// OrderListItemResponse is the compact representation used in listings
type OrderListItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	ItemCount     int             `json:"item_count"`
	Total         decimal.Decimal `json:"total"`
	ReturnStatus  string          `json:"return_status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ServiceabilityResponse answers a delivery pincode check
type ServiceabilityResponse struct {
	Pincode       string `json:"pincode"`
	Serviceable   bool   `json:"serviceable"`
	CODAvailable  bool   `json:"cod_available"`
	EstimatedDays int    `json:"estimated_days,omitempty"`
}

// ToOrderResponse maps an order aggregate to its response
func ToOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			Title:       item.Title,
			UnitPrice:   item.UnitPrice.Amount(),
			Quantity:    item.Quantity,
			VariantCode: item.VariantCode,
			Discount:    item.Discount.Amount(),
			LineTotal:   item.LineTotal().Amount(),
		}
	}

	return OrderResponse{
		ID:     o.ID,
		UserID: o.UserID,
		Status: string(o.Status),
		Items:  items,
		Shipping: ShippingResponse{
			Name:     o.Shipping.Name,
			Phone:    o.Shipping.Phone,
			Address:  o.Shipping.Address,
			City:     o.Shipping.City,
			State:    o.Shipping.State,
			Pincode:  o.Shipping.Pincode,
			Landmark: o.Shipping.Landmark,
		},
		PaymentMethod: string(o.PaymentMethod),
		PaymentRef:    o.PaymentRef,
		TransactionID: o.TransactionID,
		CouponCode:    o.CouponCode,
		Subtotal:      o.Subtotal.Amount(),
		Discount:      o.Discount.Amount(),
		ShippingFee:   o.ShippingFee.Amount(),
		Tax:           o.Tax.Amount(),
		Total:         o.Total.Amount(),
		Currency:      string(o.Total.Currency()),
		InvoiceID:     o.InvoiceID,
		ReturnStatus:  string(o.ReturnStatus),
		ReturnReason:  o.ReturnReason,
		RefundAmount:  o.RefundAmount.Amount(),
		RefundMethod:  o.RefundMethod,
		PaidAt:        o.PaidAt,
		ShippedAt:     o.ShippedAt,
		DeliveredAt:   o.DeliveredAt,
		CancelledAt:   o.CancelledAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// ToOrderListItemResponses maps orders to their listing representation
func ToOrderListItemResponses(orders []order.Order) []OrderListItemResponse {
	out := make([]OrderListItemResponse, len(orders))
	for i := range orders {
		o := &orders[i]
		out[i] = OrderListItemResponse{
			ID:            o.ID,
			Status:        string(o.Status),
			PaymentMethod: string(o.PaymentMethod),
			ItemCount:     len(o.Items),
			Total:         o.Total.Amount(),
			ReturnStatus:  string(o.ReturnStatus),
			CreatedAt:     o.CreatedAt,
		}
	}
	return out
}
