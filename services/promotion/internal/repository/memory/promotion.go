package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/utafrali/EcommerceGo/services/promotion/internal/domain"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/repository"
)

// PromotionRepository keeps promotions in process memory. It is meant for
// local development and tests.
type PromotionRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.Promotion
}

// NewPromotionRepository creates an empty in-memory repository.
func NewPromotionRepository() *PromotionRepository {
	return &PromotionRepository{items: make(map[int64]domain.Promotion)}
}

func (r *PromotionRepository) Create(_ context.Context, p *domain.Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	p.ID = r.nextID
	r.items[p.ID] = *p
	return nil
}

func (r *PromotionRepository) GetByID(_ context.Context, id int64) (*domain.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return nil, repository.NotFound(id)
	}
	return &p, nil
}

func (r *PromotionRepository) List(_ context.Context, filter repository.PromotionFilter) ([]domain.Promotion, int, error) {
	r.mu.RLock()
	matched := make([]domain.Promotion, 0, len(r.items))
	for _, p := range r.items {
		if filter.Matches(&p) {
			matched = append(matched, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	if filter.Page != nil {
		start, end := filter.Page.Window(total)
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (r *PromotionRepository) Update(_ context.Context, p *domain.Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[p.ID]; !ok {
		return repository.NotFound(p.ID)
	}
	r.items[p.ID] = *p
	return nil
}

func (r *PromotionRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return repository.NotFound(id)
	}
	delete(r.items, id)
	return nil
}
