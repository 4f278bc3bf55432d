package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/crudkit/sampleapi/internal/model"
	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/crudkit/sampleapi/internal/service"
	"github.com/gin-gonic/gin"
)

type APILogHandler struct {
	svc           *service.APILogService
	retention     *service.RetentionService
	retentionDays int
	pages         Paginator
}

func NewAPILogHandler(svc *service.APILogService, retention *service.RetentionService, retentionDays int, pages Paginator) *APILogHandler {
	if retentionDays < 0 {
		retentionDays = service.DefaultRetentionDays
	}
	return &APILogHandler{svc: svc, retention: retention, retentionDays: retentionDays, pages: pages}
}

type CleanupRequest struct {
	Days   *int `json:"days" binding:"omitempty,min=0"`
	DryRun bool `json:"dry_run"`
}

func (h *APILogHandler) List(c *gin.Context) {
	req, err := h.pages.parse(c)
	if err != nil {
		c.Error(err)
		return
	}
	filter, err := parseAPILogFilter(c)
	if err != nil {
		c.Error(err)
		return
	}
	filter.Limit = req.Size
	filter.Offset = req.Offset()

	rows, total, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		c.Error(apperrors.Wrap(err))
		return
	}

	summaries := make([]model.APILogSummary, 0, len(rows))
	for _, l := range rows {
		summaries = append(summaries, l.Summary())
	}
	out, err := page(c, req, total, summaries)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *APILogHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entry, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *APILogHandler) Stats(c *gin.Context) {
	days := service.DefaultStatsDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.Error(apperrors.NewInvalidRequest("days must be a positive integer"))
			return
		}
		days = n
	}

	stats, err := h.svc.Stats(c.Request.Context(), days)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Cleanup runs retention on demand. days defaults to the configured
// retention window.
func (h *APILogHandler) Cleanup(c *gin.Context) {
	var req CleanupRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(bindError(err))
			return
		}
	}
	days := h.retentionDays
	if req.Days != nil {
		days = *req.Days
	}

	report, err := h.retention.Run(c.Request.Context(), days, req.DryRun)
	if err != nil {
		c.Error(apperrors.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": report.Summary(),
		"report":  report,
	})
}

func parseAPILogFilter(c *gin.Context) (model.APILogFilter, error) {
	f := model.APILogFilter{
		Method:   strings.TrimSpace(c.Query("method")),
		Path:     strings.TrimSpace(c.Query("path")),
		Ordering: c.Query("ordering"),
	}

	if raw := c.Query("response_status_code"); raw != "" {
		code, err := strconv.Atoi(raw)
		if err != nil {
			return f, apperrors.NewInvalidRequest("response_status_code must be an integer")
		}
		f.ResponseStatusCode = &code
	}
	if raw := c.Query("request_user"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return f, apperrors.NewInvalidRequest("request_user must be a user id")
		}
		uid := uint(id)
		f.RequestUserID = &uid
	}
	if raw := c.Query("date_from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return f, apperrors.NewInvalidRequest("date_from: " + err.Error())
		}
		f.DateFrom = &t
	}
	if raw := c.Query("date_to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return f, apperrors.NewInvalidRequest("date_to: " + err.Error())
		}
		f.DateTo = &t
	}
	return f, nil
}

// parseTime accepts RFC3339 or unix seconds.
func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format")
}
