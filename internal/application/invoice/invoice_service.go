package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/invoice"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// InvoiceService issues billing documents for settled orders
type InvoiceService struct {
	invoices invoice.Repository
	orders   order.Repository
	logger   *zap.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(invoices invoice.Repository, orders order.Repository, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{
		invoices: invoices,
		orders:   orders,
		logger:   logger,
	}
}

// Generate issues the invoice for an order. The operation is idempotent:
// repeated calls for the same order return the invoice issued first, never
// a second number.
func (s *InvoiceService) Generate(ctx context.Context, orderID uuid.UUID) (*InvoiceResponse, error) {
	existing, err := s.invoices.FindByOrderID(ctx, orderID)
	if err == nil {
		return ToInvoiceResponse(existing), nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch o.Status {
	case order.StatusPending:
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot invoice an unpaid order")
	case order.StatusCancelled:
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot invoice a cancelled order")
	}

	day := time.Now()
	seq, err := s.invoices.NextSequence(ctx, day)
	if err != nil {
		return nil, err
	}

	inv, err := invoice.NewInvoice(orderID, invoice.FormatNumber(day, seq))
	if err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		// A concurrent caller may have issued the invoice between our
		// existence check and the insert. The unique index on order_id
		// rejects the second row; the allocated sequence stays unused.
		if winner, findErr := s.invoices.FindByOrderID(ctx, orderID); findErr == nil {
			s.logger.Info("invoice already issued by concurrent request",
				zap.String("order_id", orderID.String()),
				zap.String("invoice_no", winner.InvoiceNo))
			return ToInvoiceResponse(winner), nil
		}
		return nil, err
	}

	if err := o.AttachInvoice(inv.ID); err == nil {
		if err := s.orders.SaveWithLock(ctx, o); err != nil {
			s.logger.Warn("failed to attach invoice to order",
				zap.String("order_id", orderID.String()),
				zap.String("invoice_id", inv.ID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("invoice issued",
		zap.String("order_id", orderID.String()),
		zap.String("invoice_no", inv.InvoiceNo))
	return ToInvoiceResponse(inv), nil
}

// GetByID returns an invoice. Non-admin callers only see invoices for
// their own orders.
func (s *InvoiceService) GetByID(ctx context.Context, callerID uuid.UUID, isAdmin bool, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		o, err := s.orders.FindByID(ctx, inv.OrderID)
		if err != nil || o.UserID != callerID {
			return nil, shared.ErrNotFound
		}
	}
	return ToInvoiceResponse(inv), nil
}

// GetByOrderID returns the invoice issued for an order
func (s *InvoiceService) GetByOrderID(ctx context.Context, callerID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*InvoiceResponse, error) {
	if !isAdmin {
		o, err := s.orders.FindByID(ctx, orderID)
		if err != nil || o.UserID != callerID {
			return nil, shared.ErrNotFound
		}
	}
	inv, err := s.invoices.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(inv), nil
}

// List returns invoices for the admin listing
func (s *InvoiceService) List(ctx context.Context, filter InvoiceListFilter) ([]InvoiceResponse, error) {
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

	invoices, err := s.invoices.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponses(invoices), nil
}
