package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shipping"
)

const (
	authPath           = "/v1/external/auth/login"
	serviceabilityPath = "/v1/external/courier/serviceability"
	shipmentPath       = "/v1/external/shipments"

	// Tokens are refreshed slightly early so an in-flight request never
	// crosses the expiry boundary.
	tokenExpirySlack = 5 * time.Minute
)

// CarrierConfig holds carrier API credentials
type CarrierConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// Validate checks the configuration
func (c *CarrierConfig) Validate() error {
	if c == nil || c.BaseURL == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Carrier base URL is required")
	}
	if c.Email == "" || c.Password == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Carrier credentials are required")
	}
	return nil
}

// CarrierClient implements shipping.Carrier against an aggregator-style HTTP
// API that authenticates with a short-lived bearer token. The token is held
// as an immutable AuthToken value guarded by a mutex; callers always go
// through token(), which refreshes lazily on expiry.
type CarrierClient struct {
	config     *CarrierConfig
	httpClient *http.Client

	mu        sync.Mutex
	authToken shipping.AuthToken

	now func() time.Time
}

// NewCarrierClient creates a new carrier client
func NewCarrierClient(config *CarrierConfig) (*CarrierClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &CarrierClient{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}, nil
}

// CheckServiceability asks whether the carrier delivers to a pincode
func (c *CarrierClient) CheckServiceability(ctx context.Context, pincode string) (*shipping.Serviceability, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, serviceabilityPath+"?delivery_postcode="+pincode, nil)
	if err != nil {
		return nil, err
	}

	var respData serviceabilityResponse
	if err := json.Unmarshal(respBody, &respData); err != nil {
		return nil, fmt.Errorf("carrier: failed to parse response: %w", err)
	}

	result := &shipping.Serviceability{
		Pincode:     pincode,
		Serviceable: len(respData.Data.AvailableCouriers) > 0,
	}
	for _, courier := range respData.Data.AvailableCouriers {
		if courier.CODAvailable {
			result.CODAvailable = true
		}
		if result.EstimatedDays == 0 || courier.EstimatedDays < result.EstimatedDays {
			result.EstimatedDays = courier.EstimatedDays
		}
	}
	return result, nil
}

// CreateShipment books a pickup for a shipped order
func (c *CarrierClient) CreateShipment(ctx context.Context, req *shipping.ShipmentRequest) (*shipping.Shipment, error) {
	body := shipmentRequestBody{
		OrderRef:    req.OrderID.String(),
		Name:        req.Name,
		Phone:       req.Phone,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		Pincode:     req.Pincode,
		WeightGrams: req.WeightGrams,
		CODAmount:   req.CODAmount,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("carrier: failed to marshal request: %w", err)
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, shipmentPath, bodyBytes)
	if err != nil {
		return nil, err
	}

	var respData shipmentResponse
	if err := json.Unmarshal(respBody, &respData); err != nil {
		return nil, fmt.Errorf("carrier: failed to parse response: %w", err)
	}
	if respData.ShipmentID == "" {
		return nil, fmt.Errorf("%w: response missing shipment id", shipping.ErrCarrierRequestFailed)
	}

	return &shipping.Shipment{
		ShipmentID: respData.ShipmentID,
		TrackingNo: respData.TrackingNo,
		CourierRef: respData.CourierRef,
	}, nil
}

// token returns a valid bearer token, refreshing it when missing or expired
func (c *CarrierClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.authToken.Valid(c.now().Add(tokenExpirySlack)) {
		return c.authToken.Token, nil
	}

	fresh, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	c.authToken = fresh
	return fresh.Token, nil
}

func (c *CarrierClient) login(ctx context.Context) (shipping.AuthToken, error) {
	body, err := json.Marshal(map[string]string{
		"email":    c.config.Email,
		"password": c.config.Password,
	})
	if err != nil {
		return shipping.AuthToken{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+authPath, bytes.NewReader(body))
	if err != nil {
		return shipping.AuthToken{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shipping.AuthToken{}, fmt.Errorf("%w: %v", shipping.ErrCarrierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return shipping.AuthToken{}, fmt.Errorf("%w: auth HTTP %d", shipping.ErrCarrierRequestFailed, resp.StatusCode)
	}

	var respData authResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return shipping.AuthToken{}, fmt.Errorf("carrier: failed to parse auth response: %w", err)
	}
	if respData.Token == "" {
		return shipping.AuthToken{}, fmt.Errorf("%w: auth response missing token", shipping.ErrCarrierRequestFailed)
	}

	expiresAt := c.now().Add(time.Duration(respData.ExpiresIn) * time.Second)
	if respData.ExpiresIn <= 0 {
		expiresAt = c.now().Add(24 * time.Hour)
	}

	return shipping.AuthToken{Token: respData.Token, ExpiresAt: expiresAt}, nil
}

func (c *CarrierClient) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("carrier: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrCarrierUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("carrier: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", shipping.ErrCarrierRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}

// Ensure CarrierClient implements shipping.Carrier
var _ shipping.Carrier = (*CarrierClient)(nil)
