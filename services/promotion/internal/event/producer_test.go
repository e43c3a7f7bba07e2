package event

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/EcommerceGo/pkg/clock"
	pkgkafka "github.com/utafrali/EcommerceGo/pkg/kafka"
	"github.com/utafrali/EcommerceGo/pkg/logger"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/domain"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type recordingPublisher struct {
	sent []published
	err  error
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, evt *pkgkafka.Event) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, published{topic: topic, event: evt})
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

var fixedNow = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestProducer() (*Producer, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewProducer(pub, clock.NewMockClock(fixedNow), slog.New(slog.DiscardHandler)), pub
}

func samplePromotion() *domain.Promotion {
	return &domain.Promotion{
		ID:              4,
		Name:            "Spring",
		StartDate:       domain.Date(2024, 3, 1),
		EndDate:         domain.Date(2024, 3, 10),
		OriginalEndDate: domain.Date(2024, 3, 31),
		WholeStore:      true,
		Message:         "Spring sale",
	}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "ecommerce.promotion.created", TopicPromotionCreated)
	assert.Equal(t, "ecommerce.promotion.end_date_changed", TopicPromotionEndDateChanged)
	assert.Equal(t, "ecommerce.promotion.deleted", TopicPromotionDeleted)
}

func TestPublishPromotionCreated(t *testing.T) {
	p, pub := newTestProducer()

	ctx := logger.WithCorrelationID(context.Background(), "req-1")
	ctx = logger.WithUserID(ctx, "admin")
	require.NoError(t, p.PublishPromotionCreated(ctx, samplePromotion()))

	require.Len(t, pub.sent, 1)
	evt := pub.sent[0].event
	assert.Equal(t, TopicPromotionCreated, pub.sent[0].topic)
	assert.Equal(t, TopicPromotionCreated, evt.EventType)
	assert.Equal(t, "4", evt.AggregateID)
	assert.Equal(t, AggregateTypePromotion, evt.AggregateType)
	assert.Equal(t, SourcePromotionService, evt.Source)
	assert.Equal(t, fixedNow, evt.Timestamp)
	assert.Equal(t, "req-1", evt.CorrelationID)
	assert.Equal(t, "admin", evt.Metadata["user_id"])

	var data PromotionData
	require.NoError(t, evt.UnmarshalData(&data))
	assert.Equal(t, "2024-03-01", data.StartDate)
	assert.Equal(t, "2024-03-31", data.OriginalEndDate)
	assert.Equal(t, "Spring sale", data.Message)
	assert.True(t, data.WholeStore)
}

func TestPublishPromotionCancelled_CarriesPreviousEndDate(t *testing.T) {
	p, pub := newTestProducer()

	require.NoError(t, p.PublishPromotionCancelled(context.Background(), samplePromotion(), domain.Date(2024, 3, 31)))

	require.Len(t, pub.sent, 1)
	assert.Equal(t, TopicPromotionCancelled, pub.sent[0].topic)
	assert.Empty(t, pub.sent[0].event.CorrelationID)

	var data EndDateChangedData
	require.NoError(t, pub.sent[0].event.UnmarshalData(&data))
	assert.Equal(t, "2024-03-10", data.EndDate)
	assert.Equal(t, "2024-03-31", data.PreviousEndDate)
}

func TestPublishEndDateChanged(t *testing.T) {
	p, pub := newTestProducer()

	require.NoError(t, p.PublishEndDateChanged(context.Background(), samplePromotion(), domain.Date(2024, 3, 5)))
	require.Len(t, pub.sent, 1)
	assert.Equal(t, TopicPromotionEndDateChanged, pub.sent[0].topic)
}

func TestPublishPromotionDeleted(t *testing.T) {
	p, pub := newTestProducer()

	require.NoError(t, p.PublishPromotionDeleted(context.Background(), 9))

	var data DeletedData
	require.NoError(t, pub.sent[0].event.UnmarshalData(&data))
	assert.Equal(t, int64(9), data.ID)
}

func TestPublish_WrapsPublisherError(t *testing.T) {
	p, pub := newTestProducer()
	pub.err = pkgkafka.ErrCircuitOpen

	err := p.PublishPromotionUpdated(context.Background(), samplePromotion())
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgkafka.ErrCircuitOpen))
	assert.Contains(t, err.Error(), "publish ecommerce.promotion.updated event")
}
