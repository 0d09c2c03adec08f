// internal/api/v1/pagination.go
package api

import (
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

// PaginatedResponse wraps list results with total count and absolute
// next/previous page links.
type PaginatedResponse struct {
	Count    int64              `json:"count"`
	Next     *string            `json:"next"`
	Previous *string            `json:"previous"`
	Results  []EmissionResponse `json:"results"`
}

type pageParams struct {
	Page     int
	PageSize int
}

// errInvalidPage signals an unusable page number; callers render the
// standard 404 page body for it.
type errInvalidPage struct{}

func (errInvalidPage) Error() string { return "invalid page" }

// parsePageParams reads page and page_size from the query string.
// A malformed or oversized page_size falls back to the configured default;
// a malformed page is rejected outright.
func (c *Controller) parsePageParams(ctx echo.Context) (pageParams, error) {
	defaultSize := c.Settings.API.PageSize
	if defaultSize <= 0 {
		defaultSize = 50
	}
	maxSize := c.Settings.API.MaxPageSize
	if maxSize < defaultSize {
		maxSize = defaultSize
	}

	params := pageParams{Page: 1, PageSize: defaultSize}

	if raw := ctx.QueryParam("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			if size > maxSize {
				size = maxSize
			}
			params.PageSize = size
		}
	}

	if raw := ctx.QueryParam("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return params, errInvalidPage{}
		}
		params.Page = page
	}

	return params, nil
}

// validatePage rejects page numbers past the end of the result set.
// Page 1 is always valid, even for an empty set.
func (p pageParams) validatePage(count int64) error {
	if p.Page == 1 {
		return nil
	}
	lastPage := (count + int64(p.PageSize) - 1) / int64(p.PageSize)
	if int64(p.Page) > lastPage {
		return errInvalidPage{}
	}
	return nil
}

func (p pageParams) offset() int {
	return (p.Page - 1) * p.PageSize
}

// pageLink builds an absolute URL for the given page, preserving all other
// query parameters. Page 1 omits the page parameter entirely.
func pageLink(ctx echo.Context, page int) *string {
	req := ctx.Request()

	scheme := ctx.Scheme()
	u := url.URL{
		Scheme: scheme,
		Host:   req.Host,
		Path:   req.URL.Path,
	}

	query := req.URL.Query()
	if page <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = query.Encode()

	link := u.String()
	return &link
}

// buildPageLinks computes next/previous links for the current page.
func (p pageParams) buildPageLinks(ctx echo.Context, count int64) (next, previous *string) {
	if int64(p.Page*p.PageSize) < count {
		next = pageLink(ctx, p.Page+1)
	}
	if p.Page > 1 {
		previous = pageLink(ctx, p.Page-1)
	}
	return next, previous
}
