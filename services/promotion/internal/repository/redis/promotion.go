package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/EcommerceGo/pkg/database"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/domain"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/repository"
)

const (
	keyPrefix = "promotion:"
	keySeq    = keyPrefix + "seq"
	// keyIDs is a sorted set of every stored id, scored by the id itself.
	keyIDs = keyPrefix + "ids"
)

func recordKey(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// PromotionRepository implements repository.PromotionRepository on Redis.
// Each promotion is a JSON document under promotion:<id>; ids come from
// INCR on promotion:seq.
type PromotionRepository struct {
	client redis.UniversalClient
}

// NewPromotionRepository creates a new Redis-backed promotion repository.
func NewPromotionRepository(client redis.UniversalClient) *PromotionRepository {
	return &PromotionRepository{client: client}
}

// Create allocates an id and stores the promotion under it.
func (r *PromotionRepository) Create(ctx context.Context, p *domain.Promotion) (err error) {
	ctx, end := database.TraceCommand(ctx, "CreatePromotion", "INCR+SET+ZADD")
	defer func() { end(err) }()

	id, err := r.client.Incr(ctx, keySeq).Result()
	if err != nil {
		return fmt.Errorf("redis incr promotion seq: %w", err)
	}

	stored := *p
	stored.ID = id
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("marshal promotion: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey(id), data, 0)
		pipe.ZAdd(ctx, keyIDs, redis.Z{Score: float64(id), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis store promotion: %w", err)
	}

	p.ID = id
	return nil
}

// GetByID retrieves a promotion by its id.
func (r *PromotionRepository) GetByID(ctx context.Context, id int64) (_ *domain.Promotion, err error) {
	ctx, end := database.TraceCommand(ctx, "GetPromotion", "GET")
	defer func() { end(err) }()

	data, err := r.client.Get(ctx, recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.NotFound(id)
		}
		return nil, fmt.Errorf("redis get promotion: %w", err)
	}

	var p domain.Promotion
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal promotion: %w", err)
	}
	return &p, nil
}

// List loads every promotion in id order and filters in process.
func (r *PromotionRepository) List(ctx context.Context, filter repository.PromotionFilter) (_ []domain.Promotion, _ int, err error) {
	ctx, end := database.TraceCommand(ctx, "ListPromotions", "ZRANGE+MGET")
	defer func() { end(err) }()

	ids, err := r.client.ZRange(ctx, keyIDs, 0, -1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis list promotion ids: %w", err)
	}

	promotions := []domain.Promotion{}
	if len(ids) == 0 {
		return promotions, 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis mget promotions: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Deleted between ZRANGE and MGET.
			continue
		}
		var p domain.Promotion
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return nil, 0, fmt.Errorf("unmarshal promotion %s: %w", keys[i], err)
		}
		if filter.Matches(&p) {
			promotions = append(promotions, p)
		}
	}

	total := len(promotions)
	if filter.Page != nil {
		start, end := filter.Page.Window(total)
		promotions = promotions[start:end]
	}
	return promotions, total, nil
}

// Update overwrites an existing promotion. Missing ids are not created.
func (r *PromotionRepository) Update(ctx context.Context, p *domain.Promotion) (err error) {
	ctx, end := database.TraceCommand(ctx, "UpdatePromotion", "SET XX")
	defer func() { end(err) }()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal promotion: %w", err)
	}

	err = r.client.SetArgs(ctx, recordKey(p.ID), data, redis.SetArgs{Mode: "XX"}).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return repository.NotFound(p.ID)
		}
		return fmt.Errorf("redis update promotion: %w", err)
	}
	return nil
}

// Delete removes a promotion and its index entry.
func (r *PromotionRepository) Delete(ctx context.Context, id int64) (err error) {
	ctx, end := database.TraceCommand(ctx, "DeletePromotion", "DEL+ZREM")
	defer func() { end(err) }()

	var del *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, recordKey(id))
		pipe.ZRem(ctx, keyIDs, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete promotion: %w", err)
	}

	if del.Val() == 0 {
		return repository.NotFound(id)
	}
	return nil
}

// Ping checks the connection for readiness probes.
func (r *PromotionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
