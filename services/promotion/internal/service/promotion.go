package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/EcommerceGo/pkg/clock"
	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/domain"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/repository"
)

// EventPublisher publishes promotion lifecycle events. *event.Producer
// implements it.
type EventPublisher interface {
	PublishPromotionCreated(ctx context.Context, p *domain.Promotion) error
	PublishPromotionUpdated(ctx context.Context, p *domain.Promotion) error
	PublishEndDateChanged(ctx context.Context, p *domain.Promotion, previous time.Time) error
	PublishPromotionCancelled(ctx context.Context, p *domain.Promotion, previous time.Time) error
	PublishPromotionDeleted(ctx context.Context, id int64) error
}

// PromotionService implements the business logic for promotion operations.
type PromotionService struct {
	repo   repository.PromotionRepository
	events EventPublisher
	clock  clock.Clock
	logger *slog.Logger
}

// NewPromotionService creates a new promotion service.
func NewPromotionService(repo repository.PromotionRepository, events EventPublisher, clk clock.Clock, logger *slog.Logger) *PromotionService {
	return &PromotionService{
		repo:   repo,
		events: events,
		clock:  clk,
		logger: logger,
	}
}

// Today is the current calendar date according to the service clock.
func (s *PromotionService) Today() time.Time {
	return clock.Today(s.clock)
}

// CreatePromotion validates payload and stores it as a new promotion. The
// original end date is always taken from end_date and any id in payload is
// ignored.
func (s *PromotionService) CreatePromotion(ctx context.Context, payload domain.Payload) (*domain.Promotion, error) {
	var p domain.Promotion
	if err := p.Deserialize(payload); err != nil {
		return nil, err
	}
	p.PrepareCreate()

	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, fmt.Errorf("create promotion: %w", err)
	}

	if err := s.events.PublishPromotionCreated(ctx, &p); err != nil {
		s.logPublishFailure(ctx, "promotion.created", p.ID, err)
	}

	s.logger.InfoContext(ctx, "promotion created",
		slog.Int64("promotion_id", p.ID),
		slog.String("name", p.Name),
	)

	return &p, nil
}

// GetPromotion retrieves a promotion by its id.
func (s *PromotionService) GetPromotion(ctx context.Context, id int64) (*domain.Promotion, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get promotion by id: %w", err)
	}
	return p, nil
}

// ListPromotions returns the promotions matching filter and the total
// number of matches.
func (s *PromotionService) ListPromotions(ctx context.Context, filter repository.PromotionFilter) ([]domain.Promotion, int, error) {
	promotions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list promotions: %w", err)
	}
	return promotions, total, nil
}

// UpdatePromotion replaces every caller-owned field of promotion id with
// payload. The stored original end date survives and the promotion is
// marked extended when the new end date passes it.
func (s *PromotionService) UpdatePromotion(ctx context.Context, id int64, payload domain.Payload) (*domain.Promotion, error) {
	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get promotion for update: %w", err)
	}

	var p domain.Promotion
	if err := p.Deserialize(payload); err != nil {
		return nil, err
	}
	p.Supersede(stored)

	if err := s.save(ctx, &p); err != nil {
		return nil, err
	}

	if err := s.events.PublishPromotionUpdated(ctx, &p); err != nil {
		s.logPublishFailure(ctx, "promotion.updated", p.ID, err)
	}

	s.logger.InfoContext(ctx, "promotion updated",
		slog.Int64("promotion_id", p.ID),
		slog.Bool("has_been_extended", p.HasBeenExtended),
	)

	return &p, nil
}

// ChangeEndDate moves the end date of promotion id to payload["end_date"].
// The stored promotion is untouched when the new date is invalid.
func (s *PromotionService) ChangeEndDate(ctx context.Context, id int64, payload domain.Payload) (*domain.Promotion, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get promotion for end date change: %w", err)
	}

	previous := p.EndDate
	if err := p.UpdateEndDate(payload); err != nil {
		return nil, err
	}

	if err := s.save(ctx, p); err != nil {
		return nil, err
	}

	if err := s.events.PublishEndDateChanged(ctx, p, previous); err != nil {
		s.logPublishFailure(ctx, "promotion.end_date_changed", p.ID, err)
	}

	s.logger.InfoContext(ctx, "promotion end date changed",
		slog.Int64("promotion_id", p.ID),
		slog.String("previous_end_date", previous.Format(domain.DateLayout)),
		slog.String("end_date", p.EndDate.Format(domain.DateLayout)),
	)

	return p, nil
}

// CancelPromotion ends promotion id today. A promotion that has not
// started yet cannot be cancelled because its end date would precede its
// start date. Cancelling a promotion that already ended changes nothing.
func (s *PromotionService) CancelPromotion(ctx context.Context, id int64) (*domain.Promotion, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get promotion for cancel: %w", err)
	}

	today := s.Today()
	if p.HasEnded(today) {
		s.logger.InfoContext(ctx, "promotion already ended",
			slog.Int64("promotion_id", p.ID),
			slog.String("end_date", p.EndDate.Format(domain.DateLayout)),
		)
		return p, nil
	}

	previous := p.EndDate
	if err := p.Cancel(today); err != nil {
		return nil, err
	}

	if err := s.save(ctx, p); err != nil {
		return nil, err
	}

	if err := s.events.PublishPromotionCancelled(ctx, p, previous); err != nil {
		s.logPublishFailure(ctx, "promotion.cancelled", p.ID, err)
	}

	s.logger.InfoContext(ctx, "promotion cancelled",
		slog.Int64("promotion_id", p.ID),
		slog.String("end_date", p.EndDate.Format(domain.DateLayout)),
	)

	return p, nil
}

// DeletePromotion removes promotion id. Deleting a promotion that does not
// exist succeeds.
func (s *PromotionService) DeletePromotion(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.logger.DebugContext(ctx, "promotion already absent", slog.Int64("promotion_id", id))
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}

	if err := s.events.PublishPromotionDeleted(ctx, id); err != nil {
		s.logPublishFailure(ctx, "promotion.deleted", id, err)
	}

	s.logger.InfoContext(ctx, "promotion deleted", slog.Int64("promotion_id", id))
	return nil
}

func (s *PromotionService) save(ctx context.Context, p *domain.Promotion) error {
	if err := p.CheckPersisted(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("update promotion: %w", err)
	}
	return nil
}

// Event publishing never fails the request.
func (s *PromotionService) logPublishFailure(ctx context.Context, event string, id int64, err error) {
	s.logger.ErrorContext(ctx, "failed to publish "+event+" event",
		slog.Int64("promotion_id", id),
		slog.String("error", err.Error()),
	)
}
