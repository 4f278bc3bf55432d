package handler

import (
	"net/url"
	"strconv"

	"github.com/crudkit/sampleapi/internal/config"
	"github.com/crudkit/sampleapi/internal/model"
	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Paginator turns ?page=&page_size= into limit/offset and builds the
// {count,next,previous,results} envelope.
type Paginator struct {
	defaultSize int
	maxSize     int
}

func NewPaginator(cfg config.PaginationConfig) Paginator {
	p := Paginator{defaultSize: cfg.DefaultPageSize, maxSize: cfg.MaxPageSize}
	if p.maxSize <= 0 {
		p.maxSize = maxPageSize
	}
	if p.defaultSize <= 0 || p.defaultSize > p.maxSize {
		p.defaultSize = min(defaultPageSize, p.maxSize)
	}
	return p
}

type pageRequest struct {
	Page int
	Size int
}

func (r pageRequest) Offset() int { return (r.Page - 1) * r.Size }

func (p Paginator) parse(c *gin.Context) (pageRequest, error) {
	req := pageRequest{Page: 1, Size: p.defaultSize}

	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return req, apperrors.NewNotFound("Invalid page.")
		}
		req.Page = n
	}
	// a bad page_size falls back to the default rather than failing
	if raw := c.Query("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			req.Size = min(n, p.maxSize)
		}
	}
	return req, nil
}

// page wraps one page of results. Pages past the end are 404, except the
// first page of an empty listing.
func page[T any](c *gin.Context, req pageRequest, total int64, results []T) (*model.Page[T], error) {
	if req.Page > 1 && int64(req.Offset()) >= total {
		return nil, apperrors.NewNotFound("Invalid page.")
	}
	if results == nil {
		results = []T{}
	}

	out := &model.Page[T]{Count: total, Results: results}
	if int64(req.Offset()+len(results)) < total {
		next := pageURL(c, req.Page+1)
		out.Next = &next
	}
	if req.Page > 1 {
		prev := pageURL(c, req.Page-1)
		out.Previous = &prev
	}
	return out, nil
}

func pageURL(c *gin.Context, n int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}

	q := c.Request.URL.Query()
	if n <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: q.Encode(),
	}
	return u.String()
}
