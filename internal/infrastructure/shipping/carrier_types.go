package shipping

// authResponse is the carrier login response body
type authResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// serviceabilityResponse is the courier serviceability response body
type serviceabilityResponse struct {
	Data struct {
		AvailableCouriers []struct {
			CourierName   string `json:"courier_name"`
			CODAvailable  bool   `json:"cod_available"`
			EstimatedDays int    `json:"estimated_delivery_days"`
		} `json:"available_courier_companies"`
	} `json:"data"`
}

// shipmentRequestBody is the create-shipment request body
type shipmentRequestBody struct {
	OrderRef    string  `json:"order_ref"`
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	Address     string  `json:"address"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	Pincode     string  `json:"pincode"`
	WeightGrams int     `json:"weight_grams"`
	CODAmount   float64 `json:"cod_amount"`
}

// shipmentResponse is the create-shipment response body
type shipmentResponse struct {
	ShipmentID string `json:"shipment_id"`
	TrackingNo string `json:"tracking_no"`
	CourierRef string `json:"courier_ref"`
}
