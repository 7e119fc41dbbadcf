// Package pagination holds the page-window arithmetic shared by the server
// list endpoints and client-side windowing. Both sides must agree on the
// formula, so it lives in exactly one place.
package pagination

import "strconv"

const (
	// DefaultLimit is used when the limit input is missing or invalid.
	DefaultLimit = 20
	// MaxLimit caps the page size a caller may request.
	MaxLimit = 100
)

// Window is one page of a sequence of total items.
// Start is inclusive, End exclusive: items[Start:End].
type Window struct {
	Start      int
	End        int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// Compute derives the window for page over total items at perPage each.
// totalPages = ceil(total/perPage), start = (page-1)*perPage.
func Compute(page, total, perPage int) Window {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	totalPages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	end := page * perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Window{
		Start:      start,
		End:        end,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}
}

// Clamp parses raw page/limit query inputs. Invalid or non-numeric values
// fall back: page to 1, limit to DefaultLimit; limit is bounded to
// [1, MaxLimit].
func Clamp(pageRaw, limitRaw string) (page, limit int) {
	page, err := strconv.Atoi(pageRaw)
	if err != nil || page < 1 {
		page = 1
	}

	limit, err = strconv.Atoi(limitRaw)
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}
