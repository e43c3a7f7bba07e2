package http

import (
	"net/http"
	"strings"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/pkg/httputil"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Health handles GET /health. It answers 200 whenever the process is up and
// does not look at the store; see /health/ready for that.
func Health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: http.StatusOK, Message: "OK"})
}

// IndexResponse is the body of GET /.
type IndexResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// Index handles GET / with a short description of every endpoint.
func Index(name, version string) http.HandlerFunc {
	body := IndexResponse{
		Name:    name,
		Version: version,
		Endpoints: map[string]string{
			"GET /":                                "Lists the available endpoints.",
			"POST /promotions":                     "Creates a promotion.",
			"GET /promotions":                      "Lists promotions, optionally filtered by name, message, start_date or end_date.",
			"GET /promotions/{id}":                 "Reads a promotion.",
			"PUT /promotions/{id}":                 "Replaces a promotion.",
			"DELETE /promotions/{id}":              "Deletes a promotion.",
			"PUT /promotions/change_end_date/{id}": "Moves the end date of a promotion.",
			"GET /promotions/cancel/{id}":          "Ends a promotion today.",
			"GET /health":                          "Process health.",
		},
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, body)
	}
}

// ContentTypeJSON rejects request bodies that are not declared as JSON.
// Requests without a body or without a Content-Type pass through.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if r.ContentLength != 0 && ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			httputil.WriteError(w, r, &apperrors.AppError{
				Code:    "UNSUPPORTED_MEDIA_TYPE",
				Message: "Content-Type must be application/json",
				Status:  http.StatusUnsupportedMediaType,
				Err:     apperrors.ErrInvalidInput,
			}, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, r, &apperrors.AppError{
		Code:    "NOT_FOUND",
		Message: "the requested URL was not found on the server",
		Status:  http.StatusNotFound,
		Err:     apperrors.ErrNotFound,
	}, nil)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, r, &apperrors.AppError{
		Code:    "METHOD_NOT_ALLOWED",
		Message: r.Method + " is not allowed on " + r.URL.Path,
		Status:  http.StatusMethodNotAllowed,
	}, nil)
}
