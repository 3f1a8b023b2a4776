package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

const (
	razorpayAPIBaseURL = "https://api.razorpay.com"
	razorpayOrdersPath = "/v1/orders"
)

// SettingsSource resolves runtime-managed gateway settings, typically backed
// by the gateway_settings table. A missing key returns shared.ErrNotFound.
type SettingsSource interface {
	Get(ctx context.Context, key string) (string, error)
}

// Setting keys consulted when static configuration leaves a value blank
const (
	settingKeySecret = "payment.key_secret"
	settingKeyID     = "payment.key_id"
	settingCurrency  = "payment.currency"
)

// RazorpayAdapter implements payment.Gateway against the Razorpay Orders API.
//
// Credentials resolve per call: the static configuration wins, then the
// settings store, and for the currency a hard default. Proof verification is
// a pure keyed-hash check and never talks to the network.
type RazorpayAdapter struct {
	config     *RazorpayConfig
	settings   SettingsSource
	httpClient *http.Client
}

// NewRazorpayAdapter creates a new Razorpay adapter
func NewRazorpayAdapter(config *RazorpayConfig, settings SettingsSource) (*RazorpayAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &RazorpayAdapter{
		config:   config,
		settings: settings,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// CreateOrder opens a payment intent at the gateway
func (a *RazorpayAdapter) CreateOrder(ctx context.Context, req *payment.CreateOrderRequest) (*payment.CreateOrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	keyID, keySecret, err := a.credentials(ctx)
	if err != nil {
		return nil, err
	}
	currency := a.currency(ctx)

	body := razorpayOrderRequest{
		Amount:   req.Amount.Amount().Mul(decimal.NewFromInt(100)).IntPart(),
		Currency: currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to marshal request: %w", err)
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, razorpayOrdersPath, bodyBytes, keyID, keySecret)
	if err != nil {
		return nil, err
	}

	var respData razorpayOrderResponse
	if err := json.Unmarshal(respBody, &respData); err != nil {
		return nil, fmt.Errorf("razorpay: failed to parse response: %w", err)
	}
	if respData.ID == "" {
		return nil, fmt.Errorf("%w: response missing order id", payment.ErrGatewayRequestFailed)
	}

	amount, err := valueobject.NewMoney(
		decimal.NewFromInt(respData.Amount).Div(decimal.NewFromInt(100)),
		valueobject.Currency(respData.Currency),
	)
	if err != nil {
		amount = req.Amount
	}

	return &payment.CreateOrderResponse{
		OrderRef:    respData.ID,
		Amount:      amount,
		Currency:    respData.Currency,
		KeyID:       keyID,
		RawResponse: string(respBody),
	}, nil
}

// VerifyProof authenticates a payment proof. The expected signature is the
// hex HMAC-SHA256 of "orderRef|paymentRef" under the key secret, compared in
// constant time. Missing fields, an unconfigured secret, or any mismatch all
// collapse to the same hard rejection.
func (a *RazorpayAdapter) VerifyProof(ctx context.Context, proof *payment.Proof) error {
	if err := proof.Validate(); err != nil {
		return err
	}

	secret, err := a.keySecret(ctx)
	if err != nil {
		return shared.ErrAuthFailure
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(proof.OrderRef + "|" + proof.PaymentRef))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(proof.Signature)) {
		return shared.ErrAuthFailure
	}
	return nil
}

// credentials resolves the key pair, preferring static configuration
func (a *RazorpayAdapter) credentials(ctx context.Context) (string, string, error) {
	keySecret, err := a.keySecret(ctx)
	if err != nil {
		return "", "", err
	}

	keyID := a.config.KeyID
	if keyID == "" && a.settings != nil {
		if v, err := a.settings.Get(ctx, settingKeyID); err == nil {
			keyID = v
		}
	}
	if keyID == "" {
		return "", "", payment.ErrSecretNotConfigured
	}
	return keyID, keySecret, nil
}

func (a *RazorpayAdapter) keySecret(ctx context.Context) (string, error) {
	if a.config.KeySecret != "" {
		return a.config.KeySecret, nil
	}
	if a.settings != nil {
		v, err := a.settings.Get(ctx, settingKeySecret)
		if err == nil && v != "" {
			return v, nil
		}
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return "", err
		}
	}
	return "", payment.ErrSecretNotConfigured
}

func (a *RazorpayAdapter) currency(ctx context.Context) string {
	if a.config.Currency != "" {
		return a.config.Currency
	}
	if a.settings != nil {
		if v, err := a.settings.Get(ctx, settingCurrency); err == nil && v != "" {
			return v
		}
	}
	return defaultCurrency
}

// doRequest performs a basic-auth HTTP request to the Razorpay API
func (a *RazorpayAdapter) doRequest(ctx context.Context, method, path string, body []byte, keyID, keySecret string) ([]byte, error) {
	baseURL := a.config.BaseURL
	if baseURL == "" {
		baseURL = razorpayAPIBaseURL
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(keyID, keySecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp razorpayErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Code != "" {
			return nil, fmt.Errorf("%w: %s - %s", payment.ErrGatewayRequestFailed, errResp.Error.Code, errResp.Error.Description)
		}
		return nil, fmt.Errorf("%w: HTTP %d", payment.ErrGatewayRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}

// Ensure RazorpayAdapter implements payment.Gateway
var _ payment.Gateway = (*RazorpayAdapter)(nil)
