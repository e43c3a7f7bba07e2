package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100

	HeaderTotalCount = "X-Total-Count"
	HeaderTotalPages = "X-Total-Pages"
)

// Params is a page window requested by a client.
type Params struct {
	Page    int
	PerPage int
}

// Offset is the number of rows to skip before the window starts.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Window returns the [start, end) bounds of the page within a slice of
// length n.
func (p Params) Window(n int) (int, int) {
	start := min(p.Offset(), n)
	end := min(start+p.PerPage, n)
	return start, end
}

// TotalPages reports how many pages of PerPage items total covers.
func (p Params) TotalPages(total int) int {
	if p.PerPage <= 0 {
		return 0
	}
	return (total + p.PerPage - 1) / p.PerPage
}

// FromRequest reads page and per_page from the query string. The second
// return value is false when the client asked for neither, in which case
// the caller should return the full collection. Out-of-range values fall
// back to the defaults.
func FromRequest(r *http.Request) (Params, bool) {
	q := r.URL.Query()
	rawPage, rawPerPage := q.Get("page"), q.Get("per_page")
	if rawPage == "" && rawPerPage == "" {
		return Params{}, false
	}

	p := Params{Page: 1, PerPage: DefaultPerPage}
	if v, err := strconv.Atoi(rawPage); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(rawPerPage); err == nil && v > 0 && v <= MaxPerPage {
		p.PerPage = v
	}
	return p, true
}

// SetHeaders writes the collection size headers for a paged response.
func SetHeaders(w http.ResponseWriter, total int, p Params) {
	w.Header().Set(HeaderTotalCount, strconv.Itoa(total))
	w.Header().Set(HeaderTotalPages, strconv.Itoa(p.TotalPages(total)))
}
