package models

type CreateOrderRequest struct {
	CustomizationID string `json:"customization_id" binding:"required"`
	// OrderType is "base", "upsell" or "bundle". Defaults to "base".
	OrderType string `json:"order_type,omitempty"`
	// Amount in cents.
	Amount int64 `json:"amount"`
	// PaymentMethod is "card" or "credit". "credit" attempts to redeem a
	// prepaid bundle credit and falls back to card checkout if none is left.
	PaymentMethod string `json:"payment_method,omitempty"`
	// OccasionDate in RFC 3339, optional.
	OccasionDate string `json:"occasion_date,omitempty"`
}

type SelectVariantRequest struct {
	// Intentionally empty: selection is expressed by the URL. Kept so the
	// endpoint can grow options (e.g. a rating) without breaking clients.
}

type ResolveFailedJobRequest struct {
	Notes string `json:"notes,omitempty"`
}
