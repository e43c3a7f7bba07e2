package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/EcommerceGo/pkg/clock"
	"github.com/utafrali/EcommerceGo/pkg/health"
	"github.com/utafrali/EcommerceGo/pkg/httputil"
	pkgkafka "github.com/utafrali/EcommerceGo/pkg/kafka"
	"github.com/utafrali/EcommerceGo/pkg/middleware"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/event"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/repository/memory"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/service"
)

// --- Test Helpers ---

var now = time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	clk := clock.NewMockClock(now)
	producer := event.NewProducer(pkgkafka.NopPublisher{}, clk, logger)
	svc := service.NewPromotionService(memory.NewPromotionRepository(), producer, clk, logger)

	reg := prometheus.NewRegistry()
	return NewRouter(svc, health.NewHandler(), RouterConfig{
		ServiceName: "promotion-service",
		Version:     "test",
		CORS:        middleware.DefaultCORSConfig(),
		Metrics:     middleware.NewHTTPMetrics(reg),
		Gatherer:    reg,
	}, logger)
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var env httputil.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NotNil(t, env.Error)
	return env.Error
}

func promotionBody() map[string]any {
	return map[string]any{
		"name":                    "20% Off",
		"start_date":              "2024-03-01",
		"end_date":                "2024-03-31",
		"whole_store":             "True",
		"message":                 "m",
		"promotion_changes_price": "True",
	}
}

func createPromotion(t *testing.T, h http.Handler, body map[string]any) int64 {
	t.Helper()
	rec := doRequest(t, h, http.MethodPost, "/promotions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return int64(decodeObject(t, rec)["id"].(float64))
}

func promotionPath(id int64) string {
	return "/promotions/" + strconv.FormatInt(id, 10)
}

// --- Create ---

func TestCreatePromotion_Created(t *testing.T) {
	h := setupRouter(t)

	body := map[string]any{
		"name":                    "20% Off",
		"start_date":              "2024-01-01",
		"end_date":                "2024-01-02",
		"whole_store":             "True",
		"message":                 "m",
		"promotion_changes_price": "True",
	}
	rec := doRequest(t, h, http.MethodPost, "/promotions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	out := decodeObject(t, rec)
	assert.Equal(t, float64(1), out["id"])
	assert.Equal(t, "http://example.com/promotions/1", out["resource_url"])
	assert.Equal(t, "http://example.com/promotions/1", rec.Header().Get("Location"))
	assert.Equal(t, "2024-01-02", out["original_end_date"])
	assert.Equal(t, "True", out["whole_store"])
	assert.Equal(t, "False", out["has_been_extended"])
	assert.Equal(t, "m", out["message"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestCreatePromotion_CallerOriginalEndDateIgnored(t *testing.T) {
	h := setupRouter(t)

	body := promotionBody()
	body["original_end_date"] = "1999-01-01"
	body["id"] = 500

	rec := doRequest(t, h, http.MethodPost, "/promotions", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	out := decodeObject(t, rec)
	assert.Equal(t, "2024-03-31", out["original_end_date"])
	assert.Equal(t, float64(1), out["id"])
}

func TestCreatePromotion_EndBeforeStart(t *testing.T) {
	h := setupRouter(t)

	body := promotionBody()
	body["end_date"] = "2024-02-01"

	rec := doRequest(t, h, http.MethodPost, "/promotions", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	e := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", e.Code)
	assert.Contains(t, e.Fields, "end_date")
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderCorrelationID))
	assert.Equal(t, rec.Header().Get(middleware.HeaderCorrelationID), e.RequestID)
}

func TestCreatePromotion_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]any)
		code    string
		message string
	}{
		{"missing name", func(b map[string]any) { delete(b, "name") }, "VALIDATION_ERROR", "Invalid promotion: missing name"},
		{"unparsable date", func(b map[string]any) { b["start_date"] = "03/01/2024" }, "VALIDATION_ERROR", "could not convert start_date"},
		{"date wrong type", func(b map[string]any) { b["end_date"] = 20240331 }, "VALIDATION_ERROR", "could not convert end_date"},
		{"name wrong type", func(b map[string]any) { b["name"] = 12 }, "VALIDATION_ERROR", "Invalid type for [name]"},
		{"name too long", func(b map[string]any) { b["name"] = strings.Repeat("x", 64) }, "VALIDATION_ERROR", "request validation failed"},
		{"missing flag", func(b map[string]any) { delete(b, "promotion_changes_price") }, "VALIDATION_ERROR", "missing promotion_changes_price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setupRouter(t)

			body := promotionBody()
			tt.mutate(body)

			rec := doRequest(t, h, http.MethodPost, "/promotions", body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			e := decodeError(t, rec)
			assert.Equal(t, tt.code, e.Code)
			assert.Contains(t, e.Message, tt.message)
		})
	}
}

func TestCreatePromotion_OnlyLiteralTrueIsTrue(t *testing.T) {
	h := setupRouter(t)

	body := promotionBody()
	body["whole_store"] = "true"
	body["promotion_changes_price"] = true

	rec := doRequest(t, h, http.MethodPost, "/promotions", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	out := decodeObject(t, rec)
	assert.Equal(t, "False", out["whole_store"])
	assert.Equal(t, "False", out["promotion_changes_price"])
}

func TestCreatePromotion_InvalidJSON(t *testing.T) {
	h := setupRouter(t)

	for _, body := range []string{"{not json", "[1,2]", "null"} {
		rec := doRequest(t, h, http.MethodPost, "/promotions", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
	}
}

func TestCreatePromotion_WrongContentType(t *testing.T) {
	h := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/promotions", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

// --- Read ---

func TestGetPromotion(t *testing.T) {
	h := setupRouter(t)
	id := createPromotion(t, h, promotionBody())

	rec := doRequest(t, h, http.MethodGet, promotionPath(id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeObject(t, rec)
	assert.Equal(t, "20% Off", out["name"])
	assert.Equal(t, "2024-03-01", out["start_date"])
	assert.NotContains(t, out, "resource_url")
}

func TestGetPromotion_NotFound(t *testing.T) {
	h := setupRouter(t)

	rec := doRequest(t, h, http.MethodGet, "/promotions/99", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	e := decodeError(t, rec)
	assert.Equal(t, "NOT_FOUND", e.Code)
	assert.Contains(t, e.Message, "[99]")
}

func TestGetPromotion_NonNumericIDIsRouteMiss(t *testing.T) {
	h := setupRouter(t)

	rec := doRequest(t, h, http.MethodGet, "/promotions/abc", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := setupRouter(t)

	rec := doRequest(t, h, http.MethodPatch, "/promotions/1", "{}")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, rec).Code)
}

// --- Update ---

func TestUpdatePromotion(t *testing.T) {
	h := setupRouter(t)
	id := createPromotion(t, h, promotionBody())

	body := promotionBody()
	body["name"] = "25% Off"
	body["end_date"] = "2024-04-15"
	body["original_end_date"] = "2030-01-01"

	rec := doRequest(t, h, http.MethodPut, promotionPath(id), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decodeObject(t, rec)
	assert.Equal(t, "25% Off", out["name"])
	assert.Equal(t, "2024-04-15", out["end_date"])
	assert.Equal(t, "2024-03-31", out["original_end_date"])
	assert.Equal(t, "True", out["has_been_extended"])
	assert.Equal(t, float64(id), out["id"])
}

func TestUpdatePromotion_NotFound(t *testing.T) {
	h := setupRouter(t)

	rec := doRequest(t, h, http.MethodPut, "/promotions/5", promotionBody())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePromotion_Invalid(t *testing.T) {
	h := setupRouter(t)
	id := createPromotion(t, h, promotionBody())

	body := promotionBody()
	body["start_date"] = "2024-05-01"

	rec := doRequest(t, h, http.MethodPut, promotionPath(id), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Change end date ---

func TestChangeEndDate(t *testing.T) {
	h := setupRouter(t)
	id := createPromotion(t, h, promotionBody())

	rec := doRequest(t, h, http.MethodPut, "/promotions/change_end_date/"+strconv.FormatInt(id, 10),
		map[string]any{"end_date": "2024-04-30"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decodeObject(t, rec)
	assert.Equal(t, "2024-04-30", out["end_date"])
	assert.Equal(t, "True", out["has_been_extended"])
	assert.Equal(t, "2024-03-31", out["original_end_date"])
}

func TestChangeEndDate_BeforeStartRejected(t *testing.T) {
	h := setupRouter(t)
	id := createPromotion(t, h, promotionBody())

	rec := doRequest(t, h, http.MethodPut, "/promotions/change_end_date/"+strconv.FormatInt(id, 10),
		map[string]any{"end_date": "2024-02-01"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Fields, "end_date")

	rec = doRequest(t, h, http.MethodGet, promotionPath(id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-31", decodeObject(t, rec)["end_date"])
}

func TestChangeEndDate_MissingAndNotFound(t *testing.T) {
	h := setupRouter(t)
	id := createPromotion(t, h, promotionBody())

	rec := doRequest(t, h, http.MethodPut, "/promotions/change_end_date/"+strconv.FormatInt(id, 10), map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid promotion: missing end_date", decodeError(t, rec).Message)

	rec = doRequest(t, h, http.MethodPut, "/promotions/change_end_date/77", map[string]any{"end_date": "2024-04-30"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Cancel ---

func TestCancelPromotion(t *testing.T) {
	h := setupRouter(t)
	id := createPromotion(t, h, promotionBody())

	rec := doRequest(t, h, http.MethodGet, "/promotions/cancel/"+strconv.FormatInt(id, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, now.Format("2006-01-02"), decodeObject(t, rec)["end_date"])
}

func TestCancelPromotion_AlreadyEnded(t *testing.T) {
	h := setupRouter(t)

	body := promotionBody()
	body["start_date"] = "2024-01-01"
	body["end_date"] = "2024-01-31"
	id := createPromotion(t, h, body)

	rec := doRequest(t, h, http.MethodGet, "/promotions/cancel/"+strconv.FormatInt(id, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeObject(t, rec)
	assert.Equal(t, "2024-01-31", got["end_date"])
	assert.Equal(t, "2024-01-31", got["original_end_date"])
	assert.Equal(t, "False", got["has_been_extended"])

	rec = doRequest(t, h, http.MethodGet, promotionPath(id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-01-31", decodeObject(t, rec)["end_date"])
}

func TestPromotionID_OutOfRange(t *testing.T) {
	h := setupRouter(t)
	const huge = "/promotions/99999999999999999999"

	for _, tc := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, huge, nil},
		{http.MethodPut, huge, promotionBody()},
		{http.MethodPut, "/promotions/change_end_date/99999999999999999999", map[string]any{"end_date": "2024-04-30"}},
		{http.MethodGet, "/promotions/cancel/99999999999999999999", nil},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := doRequest(t, h, tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
		})
	}

	rec := doRequest(t, h, http.MethodDelete, huge, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCancelPromotion_NotFound(t *testing.T) {
	h := setupRouter(t)

	rec := doRequest(t, h, http.MethodGet, "/promotions/cancel/12", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelPromotion_NotStarted(t *testing.T) {
	h := setupRouter(t)

	body := promotionBody()
	body["start_date"] = "2024-06-01"
	body["end_date"] = "2024-06-30"
	id := createPromotion(t, h, body)

	rec := doRequest(t, h, http.MethodGet, "/promotions/cancel/"+strconv.FormatInt(id, 10), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Delete ---

func TestDeletePromotion_Idempotent(t *testing.T) {
	h := setupRouter(t)
	id := createPromotion(t, h, promotionBody())

	rec := doRequest(t, h, http.MethodDelete, promotionPath(id), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = doRequest(t, h, http.MethodDelete, promotionPath(id), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodGet, promotionPath(id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- List ---

func listPromotions(t *testing.T, h http.Handler, query string) ([]map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	rec := doRequest(t, h, http.MethodGet, "/promotions"+query, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out, rec
}

func TestListPromotions(t *testing.T) {
	h := setupRouter(t)

	out, _ := listPromotions(t, h, "")
	assert.Empty(t, out)
	assert.NotNil(t, out)

	a := promotionBody()
	b := promotionBody()
	b["name"] = "Clearance"
	b["message"] = "last chance"
	b["start_date"] = "2024-03-05"
	c := promotionBody()
	c["end_date"] = "2024-04-10"
	for _, body := range []map[string]any{a, b, c} {
		createPromotion(t, h, body)
	}

	tests := []struct {
		query string
		want  []float64
	}{
		{"", []float64{1, 2, 3}},
		{"?name=20%25%20Off", []float64{1, 3}},
		{"?message=last%20chance", []float64{2}},
		{"?start_date=2024-03-05", []float64{2}},
		{"?end_date=2024-04-10", []float64{3}},
		{"?name=Clearance&end_date=2024-04-10", []float64{2}},
		{"?name=nobody", []float64{}},
	}

	for _, tt := range tests {
		out, _ := listPromotions(t, h, tt.query)
		ids := make([]float64, 0, len(out))
		for _, p := range out {
			ids = append(ids, p["id"].(float64))
		}
		assert.Equal(t, tt.want, ids, tt.query)
	}
}

func TestListPromotions_BadDateFilter(t *testing.T) {
	h := setupRouter(t)

	rec := doRequest(t, h, http.MethodGet, "/promotions?start_date=yesterday", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "could not convert start_date", decodeError(t, rec).Message)
}

func TestListPromotions_Paged(t *testing.T) {
	h := setupRouter(t)
	for i := 0; i < 5; i++ {
		createPromotion(t, h, promotionBody())
	}

	out, rec := listPromotions(t, h, "?page=2&per_page=2")
	require.Len(t, out, 2)
	assert.Equal(t, float64(3), out[0]["id"])
	assert.Equal(t, "5", rec.Header().Get("X-Total-Count"))
	assert.Equal(t, "3", rec.Header().Get("X-Total-Pages"))

	_, rec = listPromotions(t, h, "")
	assert.Empty(t, rec.Header().Get("X-Total-Count"))
}

// --- System endpoints ---

func TestHealth(t *testing.T) {
	h := setupRouter(t)

	rec := doRequest(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"message":"OK"}`, rec.Body.String())

	rec = doRequest(t, h, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIndex(t *testing.T) {
	h := setupRouter(t)

	rec := doRequest(t, h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out IndexResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "promotion-service", out.Name)
	assert.Contains(t, out.Endpoints, "GET /promotions/cancel/{id}")
}

func TestMetricsEndpoint(t *testing.T) {
	h := setupRouter(t)

	doRequest(t, h, http.MethodGet, "/promotions", nil)
	rec := doRequest(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/promotions")
}

func TestResourceURL_UsesBaseURL(t *testing.T) {
	h := NewPromotionHandler(nil, "https://api.example.org/", slog.New(slog.DiscardHandler))

	req := httptest.NewRequest(http.MethodPost, "/promotions", nil)
	assert.Equal(t, "https://api.example.org/promotions/4", h.resourceURL(req, 4))

	h = NewPromotionHandler(nil, "", slog.New(slog.DiscardHandler))
	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://example.com/promotions/4", h.resourceURL(req, 4))
}
