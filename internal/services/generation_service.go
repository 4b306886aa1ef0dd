package services

import (
	"fmt"

	"github.com/google/uuid"

	"songcraft-backend/internal/generation"
	"songcraft-backend/internal/models"
	"songcraft-backend/internal/songgen"
	"songcraft-backend/internal/supabase"
)

// Provider renders one audio variant from personalisation fields.
type Provider interface {
	Generate(req songgen.GenerationRequest) ([]byte, error)
}

// VariantStore is the slice of the ledger store the renderer needs.
type VariantStore interface {
	ClaimVariant(variantID uuid.UUID, reclaim bool) (bool, error)
	MarkVariantComplete(variantID uuid.UUID) error
}

// AudioStorage uploads rendered audio and returns its playback URL.
type AudioStorage interface {
	UploadAudio(userID uuid.UUID, storagePath string, data []byte) (string, error)
}

// EventPublisher pushes order progress to subscribed clients; the polling
// status endpoint stays the source of truth.
type EventPublisher interface {
	PublishOrderEvent(orderID uuid.UUID, event string, payload map[string]interface{}) error
}

// GenerationService is the per-variant renderer both drivers share:
// claim -> generate -> upload -> mark complete.
type GenerationService struct {
	provider Provider
	store    VariantStore
	storage  AudioStorage
	events   EventPublisher
}

func NewGenerationService(provider Provider, store VariantStore, storage AudioStorage, events EventPublisher) *GenerationService {
	return &GenerationService{
		provider: provider,
		store:    store,
		storage:  storage,
		events:   events,
	}
}

// RenderVariant drives one variant to complete. The claim is a conditional
// write: losing it returns generation.ErrAlreadyClaimed and the caller moves
// on. Provider errors pass through untouched so the caller can classify
// them; the caller also owns marking the variant failed.
func (s *GenerationService) RenderVariant(order *models.Order, cust *models.Customization, variant *models.SongVariant, reclaim bool) error {
	claimed, err := s.store.ClaimVariant(variant.ID, reclaim)
	if err != nil {
		return fmt.Errorf("failed to claim variant: %w", err)
	}
	if !claimed {
		return generation.ErrAlreadyClaimed
	}

	audio, err := s.provider.Generate(songgen.GenerationRequest{
		RecipientName: cust.RecipientName,
		Occasion:      cust.Occasion,
		Genre:         cust.Genre,
		Mood:          cust.Mood,
		Prompt:        cust.PromptText,
		VariantNumber: variant.VariantNumber,
	})
	if err != nil {
		return err
	}

	playbackURL, err := s.storage.UploadAudio(order.UserID, variant.StoragePath, audio)
	if err != nil {
		return fmt.Errorf("failed to upload audio: %w", err)
	}

	if err := s.store.MarkVariantComplete(variant.ID); err != nil {
		return fmt.Errorf("failed to mark variant complete: %w", err)
	}

	_ = s.events.PublishOrderEvent(order.ID, "variant_complete",
		supabase.VariantCompletedPayload(order.ID, variant.VariantNumber, playbackURL))

	return nil
}
