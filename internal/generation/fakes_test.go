package generation_test

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"songcraft-backend/internal/generation"
	"songcraft-backend/internal/models"
)

// fakeStore is an in-memory generation.Store.
type fakeStore struct {
	mu         sync.Mutex
	orders     map[uuid.UUID]*models.Order
	variants   map[uuid.UUID][]*models.SongVariant
	custs      map[uuid.UUID]*models.Customization
	failedJobs []*models.FailedJob
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   make(map[uuid.UUID]*models.Order),
		variants: make(map[uuid.UUID][]*models.SongVariant),
		custs:    make(map[uuid.UUID]*models.Customization),
	}
}

// addOrder seeds an order with a customization and count pending variants.
func (s *fakeStore) addOrder(status, orderType string, count int) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	cust := &models.Customization{ID: uuid.New(), RecipientName: "Sam"}
	s.custs[cust.ID] = cust

	order := &models.Order{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		CustomizationID: cust.ID,
		Status:          status,
		OrderType:       orderType,
	}
	s.orders[order.ID] = order

	for n := 1; n <= count; n++ {
		s.variants[order.ID] = append(s.variants[order.ID], &models.SongVariant{
			ID:               uuid.New(),
			OrderID:          order.ID,
			UserID:           order.UserID,
			VariantNumber:    n,
			StoragePath:      fmt.Sprintf("%s/variant-%d.mp3", order.ID, n),
			GenerationStatus: models.VariantStatusPending,
			ShareToken:       uuid.NewString(),
		})
	}
	return order
}

func (s *fakeStore) setVariantStatus(orderID uuid.UUID, number int, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.variants[orderID] {
		if v.VariantNumber == number {
			v.GenerationStatus = status
		}
	}
}

func (s *fakeStore) variantStatus(orderID uuid.UUID, number int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.variants[orderID] {
		if v.VariantNumber == number {
			return v.GenerationStatus
		}
	}
	return ""
}

func (s *fakeStore) orderStatus(orderID uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[orderID].Status
}

func (s *fakeStore) GetOrder(orderID uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	copied := *order
	return &copied, nil
}

func (s *fakeStore) UpdateOrderStatus(orderID uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s not found", orderID)
	}
	order.Status = status
	return nil
}

func (s *fakeStore) GetCustomization(customizationID uuid.UUID) (*models.Customization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cust, ok := s.custs[customizationID]
	if !ok {
		return nil, fmt.Errorf("customization %s not found", customizationID)
	}
	return cust, nil
}

func (s *fakeStore) VariantsByOrder(orderID uuid.UUID) ([]models.SongVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SongVariant, 0, len(s.variants[orderID]))
	for _, v := range s.variants[orderID] {
		out = append(out, *v)
	}
	return out, nil
}

func (s *fakeStore) EnsureVariantBatch(order *models.Order, count int) ([]models.SongVariant, error) {
	s.mu.Lock()
	existing := make(map[int]bool)
	for _, v := range s.variants[order.ID] {
		existing[v.VariantNumber] = true
	}
	for n := 1; n <= count; n++ {
		if existing[n] {
			continue
		}
		s.variants[order.ID] = append(s.variants[order.ID], &models.SongVariant{
			ID:               uuid.New(),
			OrderID:          order.ID,
			UserID:           order.UserID,
			VariantNumber:    n,
			StoragePath:      fmt.Sprintf("%s/variant-%d.mp3", order.ID, n),
			GenerationStatus: models.VariantStatusPending,
			ShareToken:       uuid.NewString(),
		})
	}
	s.mu.Unlock()
	return s.VariantsByOrder(order.ID)
}

func (s *fakeStore) MarkVariantFailed(variantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, variants := range s.variants {
		for _, v := range variants {
			if v.ID == variantID {
				v.GenerationStatus = models.VariantStatusFailed
				return nil
			}
		}
	}
	return fmt.Errorf("variant %s not found", variantID)
}

func (s *fakeStore) CreateFailedJob(job *models.FailedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedJobs = append(s.failedJobs, job)
	return nil
}

func (s *fakeStore) RequeueStaleVariants(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var moved int64
	cutoff := time.Now().Add(-olderThan)
	for _, variants := range s.variants {
		for _, v := range variants {
			if v.GenerationStatus == models.VariantStatusGenerating && v.UpdatedAt.Before(cutoff) {
				v.GenerationStatus = models.VariantStatusPending
				moved++
			}
		}
	}
	return moved, nil
}

// fakeRenderer scripts per-variant outcomes. A nil entry (or absent key)
// means success; success marks the variant complete the way the real
// renderer does.
type fakeRenderer struct {
	store *fakeStore
	// errs maps variant number to the error each render attempt returns.
	errs map[int]error
	// errOnce maps variant number to an error returned only on the first
	// attempt for that variant.
	errOnce map[int]error

	mu    sync.Mutex
	calls []int
	seen  map[int]int
}

func newFakeRenderer(store *fakeStore) *fakeRenderer {
	return &fakeRenderer{
		store:   store,
		errs:    make(map[int]error),
		errOnce: make(map[int]error),
		seen:    make(map[int]int),
	}
}

func (r *fakeRenderer) RenderVariant(order *models.Order, cust *models.Customization, variant *models.SongVariant, reclaim bool) error {
	r.mu.Lock()
	r.calls = append(r.calls, variant.VariantNumber)
	r.seen[variant.VariantNumber]++
	attempt := r.seen[variant.VariantNumber]
	err := r.errs[variant.VariantNumber]
	if err == nil && attempt == 1 {
		err = r.errOnce[variant.VariantNumber]
	}
	r.mu.Unlock()

	if err != nil {
		return err
	}
	r.store.setVariantStatus(order.ID, variant.VariantNumber, models.VariantStatusComplete)
	return nil
}

var _ generation.Store = (*fakeStore)(nil)
var _ generation.Renderer = (*fakeRenderer)(nil)
