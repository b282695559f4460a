// Package pagination turns page/per_page query values into offset/limit
// arithmetic and builds the page envelope returned by list endpoints.
package pagination

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 20
)

// ErrPageOutOfRange is returned when the catalog is empty or the requested
// page lies beyond the last one.  Callers report it as not found rather than
// answering with an empty page.
var ErrPageOutOfRange = errors.New("page out of range")

// Params is a validated page request.
type Params struct {
	Page    int
	PerPage int
}

// Parse reads raw query values.  Empty values fall back to page 1 and
// defPerPage; anything non-numeric or out of bounds is an error.  A page so
// large that its offset overflows an int yields ErrPageOutOfRange, as it lies
// past the last page of any catalog.
func Parse(rawPage, rawPerPage string, defPerPage, maxPerPage int) (Params, error) {
	if maxPerPage < 1 {
		maxPerPage = MaxPerPage
	}
	if defPerPage < 1 || defPerPage > maxPerPage {
		defPerPage = min(DefaultPerPage, maxPerPage)
	}
	p := Params{Page: 1, PerPage: defPerPage}
	if s := strings.TrimSpace(rawPerPage); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxPerPage {
			return Params{}, fmt.Errorf("per_page must be an integer between 1 and %d", maxPerPage)
		}
		p.PerPage = n
	}
	if s := strings.TrimSpace(rawPage); s != "" {
		n, err := strconv.Atoi(s)
		if errors.Is(err, strconv.ErrRange) && n > 0 {
			return Params{}, ErrPageOutOfRange
		}
		if err != nil || n < 1 {
			return Params{}, fmt.Errorf("page must be an integer greater than or equal to 1")
		}
		// No catalog has this many rows, and the offset would not fit in an int.
		if n-1 > math.MaxInt/p.PerPage {
			return Params{}, ErrPageOutOfRange
		}
		p.Page = n
	}
	return p, nil
}

// Offset is the number of rows skipped before the requested page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Limit is the page size.
func (p Params) Limit() int {
	return p.PerPage
}

// TotalPages is ceil(total/perPage).
func TotalPages(total int64, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// Page describes where a page sits in the full result set.
type Page struct {
	TotalItems int64
	TotalPages int
	PrevPage   *string
	NextPage   *string
}

// New builds the envelope for p given the total number of items.  link
// renders the URL of another page.  It returns ErrPageOutOfRange when there
// is nothing to show at p.Page.
func New(p Params, total int64, link func(page, perPage int) string) (Page, error) {
	pages := TotalPages(total, p.PerPage)
	if pages == 0 || p.Page > pages {
		return Page{}, ErrPageOutOfRange
	}
	out := Page{TotalItems: total, TotalPages: pages}
	if p.Page > 1 {
		s := link(p.Page-1, p.PerPage)
		out.PrevPage = &s
	}
	if p.Page < pages {
		s := link(p.Page+1, p.PerPage)
		out.NextPage = &s
	}
	return out, nil
}

// Link renders "<base>/?page=N&per_page=M".
func Link(base string) func(page, perPage int) string {
	base = strings.TrimRight(base, "/")
	return func(page, perPage int) string {
		return fmt.Sprintf("%s/?page=%d&per_page=%d", base, page, perPage)
	}
}
