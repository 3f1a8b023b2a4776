package order

import (
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
)

// Pincode digit-length bounds. The check is a generic digit policy rather
// than a locale-specific postal format.
const (
	MinPincodeDigits = 4
	MaxPincodeDigits = 8
)

// ShippingSnapshot is the delivery address captured at settlement time.
// It is a snapshot; later edits to the user's address book never touch it.
type ShippingSnapshot struct {
	Name     string `gorm:"type:varchar(100);not null"`
	Phone    string `gorm:"type:varchar(20);not null"`
	Address  string `gorm:"type:varchar(500);not null"`
	City     string `gorm:"type:varchar(100);not null"`
	State    string `gorm:"type:varchar(100);not null"`
	Pincode  string `gorm:"type:varchar(8);not null"`
	Landmark string `gorm:"type:varchar(255)"`
}

// NewShippingSnapshot creates a validated shipping snapshot
func NewShippingSnapshot(name, phone, address, city, state, pincode, landmark string) (ShippingSnapshot, error) {
	s := ShippingSnapshot{
		Name:     strings.TrimSpace(name),
		Phone:    strings.TrimSpace(phone),
		Address:  strings.TrimSpace(address),
		City:     strings.TrimSpace(city),
		State:    strings.TrimSpace(state),
		Pincode:  strings.TrimSpace(pincode),
		Landmark: strings.TrimSpace(landmark),
	}
	if err := s.Validate(); err != nil {
		return ShippingSnapshot{}, err
	}
	return s, nil
}

// Validate checks the required fields and the pincode digit policy
func (s ShippingSnapshot) Validate() error {
	if s.Name == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Recipient name is required")
	}
	if s.Phone == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Phone number is required")
	}
	if s.Address == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Address is required")
	}
	if s.City == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "City is required")
	}
	if s.State == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "State is required")
	}
	if !IsValidPincode(s.Pincode) {
		return shared.NewDomainError("VALIDATION_ERROR", "Pincode must be 4 to 8 digits")
	}
	return nil
}

// IsValidPincode reports whether pin is a string of 4 to 8 ASCII digits
func IsValidPincode(pin string) bool {
	if len(pin) < MinPincodeDigits || len(pin) > MaxPincodeDigits {
		return false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
