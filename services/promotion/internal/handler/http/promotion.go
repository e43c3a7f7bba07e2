package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/pkg/httputil"
	"github.com/utafrali/EcommerceGo/pkg/pagination"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/domain"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/repository"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/service"
)

const (
	maxBodyBytes = 1 << 20

	fieldResourceURL = "resource_url"
)

// PromotionHandler handles HTTP requests for promotion endpoints.
type PromotionHandler struct {
	service *service.PromotionService
	baseURL string
	logger  *slog.Logger
}

// NewPromotionHandler creates a new promotion HTTP handler. baseURL prefixes
// resource_url values; when empty it is derived from each request.
func NewPromotionHandler(svc *service.PromotionService, baseURL string, logger *slog.Logger) *PromotionHandler {
	return &PromotionHandler{
		service: svc,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// CreatePromotion handles POST /promotions
func (h *PromotionHandler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	payload, err := h.decodePayload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	promo, err := h.service.CreatePromotion(r.Context(), payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	body, err := outbound(promo)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	location := h.resourceURL(r, promo.ID)
	body[fieldResourceURL] = location
	w.Header().Set("Location", location)
	httputil.WriteJSON(w, http.StatusCreated, body)
}

// GetPromotion handles GET /promotions/{id}
func (h *PromotionHandler) GetPromotion(w http.ResponseWriter, r *http.Request) {
	id, err := promotionID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	promo, err := h.service.GetPromotion(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writePromotion(w, r, http.StatusOK, promo)
}

// UpdatePromotion handles PUT /promotions/{id}
func (h *PromotionHandler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := promotionID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	payload, err := h.decodePayload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	promo, err := h.service.UpdatePromotion(r.Context(), id, payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writePromotion(w, r, http.StatusOK, promo)
}

// ListPromotions handles GET /promotions. Only the first of name, message,
// start_date and end_date given is used as a filter.
func (h *PromotionHandler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page, paged := pagination.FromRequest(r)
	if paged {
		filter.Page = &page
	}

	promotions, total, err := h.service.ListPromotions(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	body := make([]domain.Payload, 0, len(promotions))
	for i := range promotions {
		out, err := outbound(&promotions[i])
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		body = append(body, out)
	}

	if paged {
		pagination.SetHeaders(w, total, page)
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

// DeletePromotion handles DELETE /promotions/{id}
func (h *PromotionHandler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := promotionID(r)
	if errors.Is(err, apperrors.ErrNotFound) {
		httputil.WriteNoContent(w)
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.DeletePromotion(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}

// ChangeEndDate handles PUT /promotions/change_end_date/{id}
func (h *PromotionHandler) ChangeEndDate(w http.ResponseWriter, r *http.Request) {
	id, err := promotionID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	payload, err := h.decodePayload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	promo, err := h.service.ChangeEndDate(r.Context(), id, payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writePromotion(w, r, http.StatusOK, promo)
}

// CancelPromotion handles GET /promotions/cancel/{id}
func (h *PromotionHandler) CancelPromotion(w http.ResponseWriter, r *http.Request) {
	id, err := promotionID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	promo, err := h.service.CancelPromotion(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writePromotion(w, r, http.StatusOK, promo)
}

// --- Helpers ---

// decodePayload reads a JSON object from the body and converts its wire
// values with domain.Inbound.
func (h *PromotionHandler) decodePayload(w http.ResponseWriter, r *http.Request) (domain.Payload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var payload domain.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	if payload == nil {
		return nil, apperrors.InvalidInput("request body must be a JSON object")
	}

	if err := domain.Inbound(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (h *PromotionHandler) writePromotion(w http.ResponseWriter, r *http.Request, status int, p *domain.Promotion) {
	body, err := outbound(p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, status, body)
}

func (h *PromotionHandler) resourceURL(r *http.Request, id int64) string {
	base := h.baseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
			scheme = fwd
		}
		base = scheme + "://" + r.Host
	}
	return fmt.Sprintf("%s/promotions/%d", base, id)
}

// writeError maps domain failures onto the shared error envelope.
func (h *PromotionHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		err = apperrors.Validation(ve.Reason, map[string]string{ve.Field: ve.Reason})
	case errors.Is(err, domain.ErrEmptyID):
		err = apperrors.Internal(err)
	}
	httputil.WriteError(w, r, err, h.logger)
}

func outbound(p *domain.Promotion) (domain.Payload, error) {
	body := p.Serialize()
	if err := domain.Outbound(body); err != nil {
		return nil, err
	}
	return body, nil
}

// promotionID parses the {id} route parameter. Ids too large for int64 are
// never assigned by a store, so they are reported as not found.
func promotionID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, apperrors.NotFound("Promotion", raw)
	}
	if err != nil {
		return 0, apperrors.InvalidInput(fmt.Sprintf("invalid promotion id %q", raw))
	}
	return id, nil
}

func parseFilter(r *http.Request) (repository.PromotionFilter, error) {
	q := r.URL.Query()

	var filter repository.PromotionFilter
	switch {
	case q.Get(domain.FieldName) != "":
		v := q.Get(domain.FieldName)
		filter.Name = &v
	case q.Get(domain.FieldMessage) != "":
		v := q.Get(domain.FieldMessage)
		filter.Message = &v
	case q.Get(domain.FieldStartDate) != "":
		d, err := parseDateParam(q.Get(domain.FieldStartDate), domain.FieldStartDate)
		if err != nil {
			return filter, err
		}
		filter.StartDate = &d
	case q.Get(domain.FieldEndDate) != "":
		d, err := parseDateParam(q.Get(domain.FieldEndDate), domain.FieldEndDate)
		if err != nil {
			return filter, err
		}
		filter.EndDate = &d
	}
	return filter, nil
}

func parseDateParam(raw, field string) (time.Time, error) {
	p := domain.Payload{field: raw}
	if err := domain.Inbound(p); err != nil {
		return time.Time{}, err
	}
	return p[field].(time.Time), nil
}
