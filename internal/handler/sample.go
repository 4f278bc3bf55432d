package handler

import (
	"net/http"
	"strconv"

	"github.com/crudkit/sampleapi/internal/middleware"
	"github.com/crudkit/sampleapi/internal/model"
	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/crudkit/sampleapi/internal/service"
	"github.com/gin-gonic/gin"
)

type SampleHandler struct {
	svc   *service.SampleService
	pages Paginator
}

func NewSampleHandler(svc *service.SampleService, pages Paginator) *SampleHandler {
	return &SampleHandler{svc: svc, pages: pages}
}

func (h *SampleHandler) List(c *gin.Context) {
	req, err := h.pages.parse(c)
	if err != nil {
		c.Error(err)
		return
	}

	rows, total, err := h.svc.List(c.Request.Context(), model.SampleQuery{
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
		Limit:    req.Size,
		Offset:   req.Offset(),
	})
	if err != nil {
		c.Error(apperrors.Wrap(err))
		return
	}

	out, err := page(c, req, total, rows)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *SampleHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sample, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sample)
}

func (h *SampleHandler) Create(c *gin.Context) {
	var req service.SampleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}
	sample, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, sample)
}

// Replace handles PUT: name is required, an absent description clears it.
func (h *SampleHandler) Replace(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.SampleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}
	sample, err := h.svc.Replace(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sample)
}

func (h *SampleHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.SampleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}
	sample, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sample)
}

func (h *SampleHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// pathID parses :id. Anything that is not a positive integer cannot name a
// row, so it is reported as not found.
func pathID(c *gin.Context) (uint, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		c.Error(apperrors.NewNotFound("Not found."))
		return 0, false
	}
	return uint(n), true
}

func bindError(err error) error {
	return apperrors.NewInvalidRequest(
		middleware.TranslateValidationError(err),
		middleware.TranslateValidationErrors(err)...,
	)
}
