package models

import "time"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type OrderResponse struct {
	ID             string    `json:"order_id"`
	Status         string    `json:"status"`
	OrderType      string    `json:"order_type"`
	Amount         int64     `json:"amount"`
	PaymentMethod  string    `json:"payment_method"`
	TweakCount     int       `json:"tweak_count"`
	CreditRedeemed bool      `json:"credit_redeemed"`
	CreditsLeft    int       `json:"credits_left,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type GenerateResponse struct {
	OrderID          string `json:"order_id"`
	Signal           string `json:"signal"`
	VariantNumber    int    `json:"variant_number,omitempty"`
	RemainingPending int    `json:"remaining_pending"`
}

type VariantResponse struct {
	ID            string     `json:"variant_id"`
	VariantNumber int        `json:"variant_number"`
	Status        string     `json:"status"`
	Selected      bool       `json:"selected"`
	ShareToken    string     `json:"share_token,omitempty"`
	PlaybackURL   string     `json:"playback_url,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// StatusResponse is the polling payload: the order's own status plus the
// per-status variant counts, so a client can distinguish "still generating,
// N of M done" from a finalized order.
type StatusResponse struct {
	OrderID   string            `json:"order_id"`
	Status    string            `json:"status"`
	Counts    map[string]int    `json:"counts"`
	Total     int               `json:"total_variants"`
	Done      int               `json:"done"`
	Variants  []VariantResponse `json:"variants"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type VariantListResponse struct {
	OrderID  string            `json:"order_id"`
	Variants []VariantResponse `json:"variants"`
}

type BalanceResponse struct {
	CreditsRemaining int `json:"credits_remaining"`
}

type TweakResponse struct {
	OrderID       string `json:"order_id"`
	VariantID     string `json:"variant_id"`
	VariantNumber int    `json:"variant_number"`
	OrderStatus   string `json:"order_status"`
	TweakCount    int    `json:"tweak_count"`
}

type SharePlaybackResponse struct {
	VariantNumber int    `json:"variant_number"`
	PlaybackURL   string `json:"playback_url"`
}
