package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Order statuses. An order only moves forward: pending -> paid -> generating
// -> completed/failed. A completed order may re-enter generating when a tweak
// or upsell appends a new variant.
const (
	OrderStatusPending    = "pending"
	OrderStatusPaid       = "paid"
	OrderStatusGenerating = "generating"
	OrderStatusCompleted  = "completed"
	OrderStatusFailed     = "failed"
)

// Order types.
const (
	OrderTypeBase   = "base"
	OrderTypeUpsell = "upsell"
	OrderTypeBundle = "bundle"
)

// Payment methods.
const (
	PaymentMethodCard   = "card"
	PaymentMethodCredit = "credit"
)

// Variant generation statuses. pending -> generating -> complete/failed,
// never backwards (the reconciler's generating -> pending requeue is the one
// operator-sanctioned exception).
const (
	VariantStatusPending    = "pending"
	VariantStatusGenerating = "generating"
	VariantStatusComplete   = "complete"
	VariantStatusFailed     = "failed"
)

// VariantsPerBaseOrder is how many renditions a base order gets; tweaks and
// upsells append one at a time.
const VariantsPerBaseOrder = 3

type Order struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	CustomizationID uuid.UUID
	Status          string
	Amount          int64
	OrderType       string
	PaymentMethod   string
	TweakCount      int
	OccasionDate    sql.NullTime
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type SongVariant struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	UserID           uuid.UUID
	VariantNumber    int
	StoragePath      string
	GenerationStatus string
	ShareToken       string
	Selected         bool
	CompletedAt      sql.NullTime
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Bundle struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	OrderID           uuid.UUID
	BundleTier        string
	QuantityPurchased int
	QuantityRemaining int
	PurchasedAt       time.Time
	ExpiresAt         sql.NullTime
}

// FailedJob is a dead-letter row written when a generation attempt fails
// outright or exhausts its retry budget. Append-only except for operator
// resolution.
type FailedJob struct {
	ID           uuid.UUID
	JobType      string
	EventData    []byte
	ErrorMessage string
	ErrorStack   sql.NullString
	RetryCount   int
	FailedAt     time.Time
	ResolvedAt   sql.NullTime
	Notes        sql.NullString
}

// Customization holds the personalisation fields forwarded to the song
// provider. Prompt construction itself lives upstream of this service.
type Customization struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	RecipientName string
	Occasion      string
	Genre         string
	Mood          string
	PromptText    string
	CreatedAt     time.Time
}
