package supabase

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
)

type RealtimeClient struct {
	client *supabase.Client
}

func NewRealtimeClient(client *supabase.Client) *RealtimeClient {
	return &RealtimeClient{
		client: client,
	}
}

func (r *RealtimeClient) PublishEvent(channel string, event string, payload map[string]interface{}) error {
	// Supabase Go client has no direct Realtime publish; row updates on the
	// orders and song_variants tables trigger Realtime changefeeds, so
	// explicit publishing stays a no-op hook for clients that subscribe to
	// custom channels.
	return nil
}

func (r *RealtimeClient) PublishOrderEvent(orderID uuid.UUID, event string, payload map[string]interface{}) error {
	channel := fmt.Sprintf("order:%s", orderID.String())
	return r.PublishEvent(channel, event, payload)
}

// Event payloads
func VariantCompletedPayload(orderID uuid.UUID, variantNumber int, playbackURL string) map[string]interface{} {
	return map[string]interface{}{
		"order_id":       orderID.String(),
		"status":         "variant_complete",
		"variant_number": variantNumber,
		"playback_url":   playbackURL,
	}
}

func VariantFailedPayload(orderID uuid.UUID, variantNumber int) map[string]interface{} {
	return map[string]interface{}{
		"order_id":       orderID.String(),
		"status":         "variant_failed",
		"variant_number": variantNumber,
	}
}

func OrderFinalizedPayload(orderID uuid.UUID, status string, completeCount int) map[string]interface{} {
	return map[string]interface{}{
		"order_id":       orderID.String(),
		"status":         status,
		"complete_count": completeCount,
	}
}
