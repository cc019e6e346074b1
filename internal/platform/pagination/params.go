package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPerPage defines the fallback number of items returned when the client omits per_page.
	DefaultPerPage = 25
	// DefaultMaxPerPage caps the supported per_page to prevent unbounded queries.
	DefaultMaxPerPage = 100
)

var (
	ErrInvalidPage    = errors.New("pagination: invalid page")
	ErrInvalidPerPage = errors.New("pagination: invalid per_page")
)

// Params bundles offset pagination values extracted from a request.
type Params struct {
	Page    int
	PerPage int
}

// Offset returns the row offset for the current page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// Options control how Parse behaves for a given handler layer.
type Options struct {
	DefaultPerPage int
	MaxPerPage     int
}

// FromRequest parses the supported query parameters from the supplied request.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse consumes the provided query values and returns the normalised Params.
func Parse(values url.Values, opts Options) (Params, error) {
	if values == nil {
		values = url.Values{}
	}

	maxPerPage := opts.MaxPerPage
	if maxPerPage <= 0 {
		maxPerPage = DefaultMaxPerPage
	}
	defaultPerPage := opts.DefaultPerPage
	if defaultPerPage <= 0 {
		defaultPerPage = DefaultPerPage
	}
	if defaultPerPage > maxPerPage {
		defaultPerPage = maxPerPage
	}

	page := 1
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: must be an integer", ErrInvalidPage)
		}
		if parsed <= 0 {
			return Params{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidPage)
		}
		page = parsed
	}

	perPage := defaultPerPage
	if raw := strings.TrimSpace(values.Get("per_page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: must be an integer", ErrInvalidPerPage)
		}
		if parsed <= 0 {
			return Params{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidPerPage)
		}
		if parsed > maxPerPage {
			parsed = maxPerPage
		}
		perPage = parsed
	}

	return Params{Page: page, PerPage: perPage}, nil
}

// Must ensures Params is always initialised with sensible defaults before use.
func Must(params Params) Params {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.PerPage <= 0 {
		params.PerPage = DefaultPerPage
	}
	return params
}
