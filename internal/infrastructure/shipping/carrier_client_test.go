package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/shipping"
)

// fakeCarrier stands in for the aggregator API, counting logins
type fakeCarrier struct {
	server      *httptest.Server
	loginCount  atomic.Int32
	tokenExpiry int
}

func newFakeCarrier(t *testing.T) *fakeCarrier {
	t.Helper()
	f := &fakeCarrier{tokenExpiry: 3600}

	mux := http.NewServeMux()
	mux.HandleFunc(authPath, func(w http.ResponseWriter, r *http.Request) {
		f.loginCount.Add(1)
		_ = json.NewEncoder(w).Encode(authResponse{Token: "tok-123", ExpiresIn: f.tokenExpiry})
	})
	mux.HandleFunc(serviceabilityPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		resp := serviceabilityResponse{}
		if r.URL.Query().Get("delivery_postcode") == "560001" {
			resp.Data.AvailableCouriers = []struct {
				CourierName   string `json:"courier_name"`
				CODAvailable  bool   `json:"cod_available"`
				EstimatedDays int    `json:"estimated_delivery_days"`
			}{
				{CourierName: "BlueDart", CODAvailable: true, EstimatedDays: 2},
				{CourierName: "Delhivery", CODAvailable: false, EstimatedDays: 4},
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc(shipmentPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(shipmentResponse{
			ShipmentID: "shp-1",
			TrackingNo: "TRK-9000",
			CourierRef: "BlueDart",
		})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestClient(t *testing.T, f *fakeCarrier) *CarrierClient {
	t.Helper()
	client, err := NewCarrierClient(&CarrierConfig{
		BaseURL:  f.server.URL,
		Email:    "ops@example.com",
		Password: "secret",
	})
	require.NoError(t, err)
	return client
}

func TestAuthToken_Valid(t *testing.T) {
	now := time.Now()

	assert.True(t, shipping.AuthToken{Token: "t", ExpiresAt: now.Add(time.Hour)}.Valid(now))
	assert.False(t, shipping.AuthToken{Token: "t", ExpiresAt: now.Add(-time.Second)}.Valid(now))
	assert.False(t, shipping.AuthToken{ExpiresAt: now.Add(time.Hour)}.Valid(now), "empty token is never valid")
}

func TestCarrierClient_TokenReuse(t *testing.T) {
	ctx := context.Background()

	t.Run("logs in once and reuses the token", func(t *testing.T) {
		fake := newFakeCarrier(t)
		client := newTestClient(t, fake)

		for range 3 {
			_, err := client.CheckServiceability(ctx, "560001")
			require.NoError(t, err)
		}

		assert.Equal(t, int32(1), fake.loginCount.Load())
	})

	t.Run("refreshes after the token expires", func(t *testing.T) {
		fake := newFakeCarrier(t)
		client := newTestClient(t, fake)

		_, err := client.CheckServiceability(ctx, "560001")
		require.NoError(t, err)

		// Jump past the expiry and call again
		client.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		_, err = client.CheckServiceability(ctx, "560001")
		require.NoError(t, err)

		assert.Equal(t, int32(2), fake.loginCount.Load())
	})
}

func TestCarrierClient_CheckServiceability(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCarrier(t)
	client := newTestClient(t, fake)

	t.Run("serviceable pincode with COD", func(t *testing.T) {
		result, err := client.CheckServiceability(ctx, "560001")
		require.NoError(t, err)

		assert.True(t, result.Serviceable)
		assert.True(t, result.CODAvailable)
		assert.Equal(t, 2, result.EstimatedDays)
	})

	t.Run("unserviceable pincode", func(t *testing.T) {
		result, err := client.CheckServiceability(ctx, "999999")
		require.NoError(t, err)

		assert.False(t, result.Serviceable)
		assert.False(t, result.CODAvailable)
	})
}

func TestCarrierClient_CreateShipment(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCarrier(t)
	client := newTestClient(t, fake)

	shipment, err := client.CreateShipment(ctx, &shipping.ShipmentRequest{
		OrderID:     uuid.New(),
		Name:        "Asha Rao",
		Phone:       "9876543210",
		Address:     "12 MG Road",
		City:        "Bengaluru",
		State:       "Karnataka",
		Pincode:     "560001",
		WeightGrams: 500,
	})
	require.NoError(t, err)

	assert.Equal(t, "shp-1", shipment.ShipmentID)
	assert.Equal(t, "TRK-9000", shipment.TrackingNo)
}

func TestCarrierClient_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unreachable carrier", func(t *testing.T) {
		client, err := NewCarrierClient(&CarrierConfig{
			BaseURL:  "http://127.0.0.1:1",
			Email:    "ops@example.com",
			Password: "secret",
		})
		require.NoError(t, err)

		_, err = client.CheckServiceability(ctx, "560001")
		assert.ErrorIs(t, err, shipping.ErrCarrierUnavailable)
	})

	t.Run("rejects incomplete configuration", func(t *testing.T) {
		_, err := NewCarrierClient(&CarrierConfig{BaseURL: "http://example.com"})
		require.Error(t, err)
	})
}
