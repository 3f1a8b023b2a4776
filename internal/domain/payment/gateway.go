package payment

import (
	"context"
	"errors"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Gateway errors
var (
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrGatewayRequestFailed = errors.New("payment gateway request failed")
	ErrSecretNotConfigured  = errors.New("payment secret not configured")
)

// CreateOrderRequest asks the gateway to open a payment intent
type CreateOrderRequest struct {
	Amount  valueobject.Money
	Receipt string
	Notes   map[string]string
}

// Validate checks the create request
func (r *CreateOrderRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return shared.NewDomainError("VALIDATION_ERROR", "Payment amount must be positive")
	}
	if r.Receipt == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Receipt reference is required")
	}
	return nil
}

// CreateOrderResponse carries the gateway's payment intent back to the client
type CreateOrderResponse struct {
	OrderRef    string
	Amount      valueobject.Money
	Currency    string
	KeyID       string
	RawResponse string
}

// Proof is the payment evidence the client submits after paying out-of-band.
// It is authenticated before any ledger is touched.
type Proof struct {
	OrderRef   string
	PaymentRef string
	Signature  string
}

// Validate checks that every proof field is present
func (p *Proof) Validate() error {
	if p.OrderRef == "" || p.PaymentRef == "" || p.Signature == "" {
		return shared.ErrAuthFailure
	}
	return nil
}

// Gateway is the outbound port to the payment provider
type Gateway interface {
	// CreateOrder opens a payment intent at the gateway
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error)
	// VerifyProof authenticates a payment proof against the shared secret.
	// It is a pure check: it never mutates any state, and any mismatch or
	// missing configuration returns shared.ErrAuthFailure.
	VerifyProof(ctx context.Context, proof *Proof) error
}
