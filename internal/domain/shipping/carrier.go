package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Carrier errors
var (
	ErrCarrierUnavailable   = errors.New("shipping carrier unavailable")
	ErrCarrierRequestFailed = errors.New("shipping carrier request failed")
	ErrNotServiceable       = errors.New("pincode not serviceable")
)

// AuthToken is a cached carrier credential. It is an immutable value: a
// refresh produces a new token rather than mutating the old one.
type AuthToken struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the token can still be used at the given instant
func (t AuthToken) Valid(now time.Time) bool {
	return t.Token != "" && now.Before(t.ExpiresAt)
}

// Serviceability is the carrier's answer for a delivery pincode
type Serviceability struct {
	Pincode       string
	Serviceable   bool
	CODAvailable  bool
	EstimatedDays int
}

// ShipmentRequest asks the carrier to pick up an order
type ShipmentRequest struct {
	OrderID     uuid.UUID
	Name        string
	Phone       string
	Address     string
	City        string
	State       string
	Pincode     string
	WeightGrams int
	CODAmount   float64
}

// Shipment is the carrier's booking confirmation
type Shipment struct {
	ShipmentID string
	TrackingNo string
	CourierRef string
}

// Carrier is the outbound port to the shipping provider
type Carrier interface {
	// CheckServiceability asks whether the carrier delivers to a pincode
	CheckServiceability(ctx context.Context, pincode string) (*Serviceability, error)
	// CreateShipment books a pickup for a shipped order
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*Shipment, error)
}
