package invoice

import (
	"time"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/invoice"
)

// InvoiceListFilter is the query filter for admin invoice listings
type InvoiceListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status" binding:"omitempty,oneof=DRAFT ISSUED PAID CANCELLED"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// InvoiceResponse is the representation of an invoice
type InvoiceResponse struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	InvoiceNo string    `json:"invoice_no"`
	Status    string    `json:"status"`
	IssuedAt  time.Time `json:"issued_at"`
	CreatedAt time.Time `json:"created_at"`
}

// ToInvoiceResponse maps an invoice aggregate to its response
func ToInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:        inv.ID,
		OrderID:   inv.OrderID,
		InvoiceNo: inv.InvoiceNo,
		Status:    string(inv.Status),
		IssuedAt:  inv.IssuedAt,
		CreatedAt: inv.CreatedAt,
	}
}

// ToInvoiceResponses maps a slice of invoices
func ToInvoiceResponses(invoices []invoice.Invoice) []InvoiceResponse {
	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = *ToInvoiceResponse(&invoices[i])
	}
	return responses
}
