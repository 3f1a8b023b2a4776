package payment

import (
	"github.com/storefront/backend/internal/domain/shared"
)

const defaultCurrency = "INR"

// RazorpayConfig holds static gateway credentials. KeyID, KeySecret and
// Currency may each be left blank, in which case the adapter falls back to
// the settings store at call time, and for currency to the hard default.
type RazorpayConfig struct {
	KeyID     string `mapstructure:"key_id"`
	KeySecret string `mapstructure:"key_secret"`
	Currency  string `mapstructure:"currency"`
	BaseURL   string `mapstructure:"base_url"`
	IsSandbox bool   `mapstructure:"is_sandbox"`
}

// Validate checks the configuration
func (c *RazorpayConfig) Validate() error {
	if c == nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Payment gateway configuration is required")
	}
	// Credentials are optional here: missing values resolve through the
	// settings store, and a still-missing secret fails the individual call.
	return nil
}
