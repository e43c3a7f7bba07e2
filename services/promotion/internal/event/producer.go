package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/utafrali/EcommerceGo/pkg/clock"
	pkgkafka "github.com/utafrali/EcommerceGo/pkg/kafka"
	"github.com/utafrali/EcommerceGo/pkg/logger"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/domain"
)

// Kafka topic constants for promotion domain events.
var (
	TopicPromotionCreated        = pkgkafka.Topic("promotion", "created")
	TopicPromotionUpdated        = pkgkafka.Topic("promotion", "updated")
	TopicPromotionEndDateChanged = pkgkafka.Topic("promotion", "end_date_changed")
	TopicPromotionCancelled      = pkgkafka.Topic("promotion", "cancelled")
	TopicPromotionDeleted        = pkgkafka.Topic("promotion", "deleted")
)

const (
	AggregateTypePromotion = "promotion"
	SourcePromotionService = "promotion-service"
)

// PromotionData is the payload of every promotion event except deleted.
type PromotionData struct {
	ID                    int64  `json:"id"`
	Name                  string `json:"name"`
	StartDate             string `json:"start_date"`
	EndDate               string `json:"end_date"`
	WholeStore            bool   `json:"whole_store"`
	HasBeenExtended       bool   `json:"has_been_extended"`
	OriginalEndDate       string `json:"original_end_date"`
	Message               string `json:"message"`
	PromotionChangesPrice bool   `json:"promotion_changes_price"`
}

// EndDateChangedData is the payload of promotion.end_date_changed and
// promotion.cancelled.
type EndDateChangedData struct {
	PromotionData
	PreviousEndDate string `json:"previous_end_date"`
}

// DeletedData is the payload of promotion.deleted.
type DeletedData struct {
	ID int64 `json:"id"`
}

func newPromotionData(p *domain.Promotion) PromotionData {
	return PromotionData{
		ID:                    p.ID,
		Name:                  p.Name,
		StartDate:             p.StartDate.Format(domain.DateLayout),
		EndDate:               p.EndDate.Format(domain.DateLayout),
		WholeStore:            p.WholeStore,
		HasBeenExtended:       p.HasBeenExtended,
		OriginalEndDate:       p.OriginalEndDate.Format(domain.DateLayout),
		Message:               p.Message,
		PromotionChangesPrice: p.PromotionChangesPrice,
	}
}

// Producer publishes promotion domain events.
type Producer struct {
	publisher pkgkafka.Publisher
	clock     clock.Clock
	logger    *slog.Logger
}

// NewProducer creates a new event producer for the promotion service.
func NewProducer(publisher pkgkafka.Publisher, clk clock.Clock, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// PublishPromotionCreated publishes a promotion.created event.
func (p *Producer) PublishPromotionCreated(ctx context.Context, promo *domain.Promotion) error {
	return p.publish(ctx, TopicPromotionCreated, promo.ID, newPromotionData(promo))
}

// PublishPromotionUpdated publishes a promotion.updated event.
func (p *Producer) PublishPromotionUpdated(ctx context.Context, promo *domain.Promotion) error {
	return p.publish(ctx, TopicPromotionUpdated, promo.ID, newPromotionData(promo))
}

// PublishEndDateChanged publishes a promotion.end_date_changed event.
func (p *Producer) PublishEndDateChanged(ctx context.Context, promo *domain.Promotion, previous time.Time) error {
	return p.publish(ctx, TopicPromotionEndDateChanged, promo.ID, EndDateChangedData{
		PromotionData:   newPromotionData(promo),
		PreviousEndDate: previous.Format(domain.DateLayout),
	})
}

// PublishPromotionCancelled publishes a promotion.cancelled event.
func (p *Producer) PublishPromotionCancelled(ctx context.Context, promo *domain.Promotion, previous time.Time) error {
	return p.publish(ctx, TopicPromotionCancelled, promo.ID, EndDateChangedData{
		PromotionData:   newPromotionData(promo),
		PreviousEndDate: previous.Format(domain.DateLayout),
	})
}

// PublishPromotionDeleted publishes a promotion.deleted event.
func (p *Producer) PublishPromotionDeleted(ctx context.Context, id int64) error {
	return p.publish(ctx, TopicPromotionDeleted, id, DeletedData{ID: id})
}

func (p *Producer) publish(ctx context.Context, topic string, id int64, data any) error {
	aggregateID := strconv.FormatInt(id, 10)

	evt, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypePromotion, SourcePromotionService, data, p.clock.Now())
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}
	if uid := logger.UserIDFromContext(ctx); uid != "" {
		evt.WithMetadata("user_id", uid)
	}

	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published promotion event",
		slog.String("topic", topic),
		slog.String("promotion_id", aggregateID),
		slog.String("event_id", evt.EventID),
	)
	return nil
}
