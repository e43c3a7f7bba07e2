package repository

import (
	"context"
	"strconv"
	"time"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/pkg/pagination"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/domain"
)

// PromotionFilter selects promotions for List. At most one field criterion
// applies, taken in the order Name, Message, StartDate, EndDate. With none
// set every promotion matches.
type PromotionFilter struct {
	Name      *string
	Message   *string
	StartDate *time.Time
	EndDate   *time.Time

	// Page limits the result to one page. Nil returns every match.
	Page *pagination.Params
}

// Criterion reports which field the filter selects on and its value, or
// ("", nil) when the filter matches everything.
func (f PromotionFilter) Criterion() (string, any) {
	switch {
	case f.Name != nil:
		return domain.FieldName, *f.Name
	case f.Message != nil:
		return domain.FieldMessage, *f.Message
	case f.StartDate != nil:
		return domain.FieldStartDate, domain.DateOf(*f.StartDate)
	case f.EndDate != nil:
		return domain.FieldEndDate, domain.DateOf(*f.EndDate)
	default:
		return "", nil
	}
}

// Matches reports whether p satisfies the filter criterion. Stores without
// a query language use it to filter in process.
func (f PromotionFilter) Matches(p *domain.Promotion) bool {
	field, value := f.Criterion()
	switch field {
	case domain.FieldName:
		return p.Name == value
	case domain.FieldMessage:
		return p.Message == value
	case domain.FieldStartDate:
		return p.StartDate.Equal(value.(time.Time))
	case domain.FieldEndDate:
		return p.EndDate.Equal(value.(time.Time))
	default:
		return true
	}
}

// PromotionRepository defines the persistence operations for promotions.
// Promotions are returned in ascending id order.
type PromotionRepository interface {
	// Create inserts p and sets p.ID to the id assigned by the store.
	Create(ctx context.Context, p *domain.Promotion) error

	// GetByID retrieves a promotion by its id.
	GetByID(ctx context.Context, id int64) (*domain.Promotion, error)

	// List returns the promotions matching filter and the total number of
	// matches before paging.
	List(ctx context.Context, filter PromotionFilter) ([]domain.Promotion, int, error)

	// Update overwrites the stored promotion with p.ID.
	Update(ctx context.Context, p *domain.Promotion) error

	// Delete removes the promotion with the given id.
	Delete(ctx context.Context, id int64) error
}

// NotFound builds the error every store returns for a missing promotion.
func NotFound(id int64) error {
	return apperrors.NotFound("Promotion", strconv.FormatInt(id, 10))
}
