package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/EcommerceGo/pkg/database"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/domain"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/repository"
)

const promotionColumns = `id, name, start_date, end_date, whole_store, has_been_extended,
	original_end_date, message, promotion_changes_price`

// PromotionRepository implements repository.PromotionRepository using PostgreSQL.
type PromotionRepository struct {
	db database.DBTX
}

// NewPromotionRepository creates a new PostgreSQL-backed promotion repository.
func NewPromotionRepository(db database.DBTX) *PromotionRepository {
	return &PromotionRepository{db: db}
}

// Create inserts a new promotion and stores the generated id in p.ID.
func (r *PromotionRepository) Create(ctx context.Context, p *domain.Promotion) (err error) {
	query := `
		INSERT INTO promotions (
			name, start_date, end_date, whole_store, has_been_extended,
			original_end_date, message, promotion_changes_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	ctx, end := database.TraceQuery(ctx, "CreatePromotion", query)
	defer func() { end(err) }()

	var id int64
	err = r.db.QueryRow(ctx, query,
		p.Name,
		p.StartDate,
		p.EndDate,
		p.WholeStore,
		p.HasBeenExtended,
		p.OriginalEndDate,
		p.Message,
		p.PromotionChangesPrice,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert promotion: %w", err)
	}

	p.ID = id
	return nil
}

// GetByID retrieves a promotion by its id.
func (r *PromotionRepository) GetByID(ctx context.Context, id int64) (_ *domain.Promotion, err error) {
	query := `SELECT ` + promotionColumns + `
		FROM promotions
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetPromotion", query)
	defer func() { end(err) }()

	p, err := scanPromotion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.NotFound(id)
		}
		return nil, fmt.Errorf("scan promotion: %w", err)
	}
	return p, nil
}

// List returns promotions matching the filter, ordered by id, with the total
// match count.
func (r *PromotionRepository) List(ctx context.Context, filter repository.PromotionFilter) (_ []domain.Promotion, _ int, err error) {
	var (
		where string
		args  []any
	)
	if column, value := filter.Criterion(); column != "" {
		where = fmt.Sprintf("WHERE %s = $1", column)
		args = append(args, value)
	}

	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM promotions
		%s
		ORDER BY id`,
		promotionColumns, where,
	)
	if filter.Page != nil {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filter.Page.PerPage, filter.Page.Offset())
	}

	ctx, end := database.TraceQuery(ctx, "ListPromotions", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	var (
		promotions = []domain.Promotion{}
		totalCount int
	)
	for rows.Next() {
		var p domain.Promotion
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.StartDate,
			&p.EndDate,
			&p.WholeStore,
			&p.HasBeenExtended,
			&p.OriginalEndDate,
			&p.Message,
			&p.PromotionChangesPrice,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan promotion row: %w", err)
		}
		promotions = append(promotions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate promotion rows: %w", err)
	}

	// A page past the end has no rows to carry the window count.
	if len(promotions) == 0 && filter.Page != nil && filter.Page.Offset() > 0 {
		totalCount, err = r.count(ctx, where, args[:len(args)-2])
		if err != nil {
			return nil, 0, err
		}
	}

	return promotions, totalCount, nil
}

func (r *PromotionRepository) count(ctx context.Context, where string, args []any) (int, error) {
	query := "SELECT count(*) FROM promotions " + where

	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count promotions: %w", err)
	}
	return n, nil
}

// Update overwrites every column of the promotion with p.ID.
func (r *PromotionRepository) Update(ctx context.Context, p *domain.Promotion) (err error) {
	query := `
		UPDATE promotions
		SET name = $1, start_date = $2, end_date = $3, whole_store = $4,
		    has_been_extended = $5, original_end_date = $6, message = $7,
		    promotion_changes_price = $8
		WHERE id = $9`

	ctx, end := database.TraceQuery(ctx, "UpdatePromotion", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query,
		p.Name,
		p.StartDate,
		p.EndDate,
		p.WholeStore,
		p.HasBeenExtended,
		p.OriginalEndDate,
		p.Message,
		p.PromotionChangesPrice,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update promotion: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.NotFound(p.ID)
	}
	return nil
}

// Delete removes the promotion with the given id.
func (r *PromotionRepository) Delete(ctx context.Context, id int64) (err error) {
	query := `DELETE FROM promotions WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeletePromotion", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.NotFound(id)
	}
	return nil
}

func scanPromotion(row pgx.Row) (*domain.Promotion, error) {
	var p domain.Promotion
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.StartDate,
		&p.EndDate,
		&p.WholeStore,
		&p.HasBeenExtended,
		&p.OriginalEndDate,
		&p.Message,
		&p.PromotionChangesPrice,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
