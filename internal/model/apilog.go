package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrAPILogImmutable = errors.New("api log records are immutable")

// APILog 记录一次完整的 API 请求/响应
type APILog struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	RequestID string `gorm:"size:64;index" json:"request_id"`

	// 请求
	Method         string            `gorm:"size:10;index" json:"method"`
	Path           string            `gorm:"size:500;index" json:"path"`
	QueryParams    datatypes.JSONMap `json:"query_params"`
	RequestHeaders datatypes.JSONMap `json:"request_headers"`
	RequestBody    *string           `gorm:"type:text" json:"request_body"`
	RequestUserID  *uint             `gorm:"index" json:"request_user"`
	RequestIP      string            `gorm:"size:45" json:"request_ip"`
	UserAgent      string            `gorm:"type:text" json:"user_agent"`
	ContentType    string            `gorm:"size:100" json:"content_type"`

	// 响应
	ResponseStatusCode int               `gorm:"index" json:"response_status_code"`
	ResponseHeaders    datatypes.JSONMap `json:"response_headers"`
	ResponseBody       *string           `gorm:"type:text" json:"response_body"`

	RequestTimestamp  time.Time `gorm:"index" json:"request_timestamp"`
	ResponseTimestamp time.Time `json:"response_timestamp"`
	DurationMs        float64   `json:"duration_ms"`

	Auditable
}

func (APILog) TableName() string {
	return "api_logs"
}

// BeforeUpdate rejects every update; log rows are only ever inserted or
// removed by retention.
func (l *APILog) BeforeUpdate(tx *gorm.DB) error {
	return ErrAPILogImmutable
}

// APILogSummary is the list view of a log record.
type APILogSummary struct {
	ID                 uint      `json:"id"`
	Method             string    `json:"method"`
	Path               string    `json:"path"`
	ResponseStatusCode int       `json:"response_status_code"`
	RequestTimestamp   time.Time `json:"request_timestamp"`
	DurationMs         float64   `json:"duration_ms"`
	RequestUserID      *uint     `json:"request_user"`
}

func (l *APILog) Summary() APILogSummary {
	return APILogSummary{
		ID:                 l.ID,
		Method:             l.Method,
		Path:               l.Path,
		ResponseStatusCode: l.ResponseStatusCode,
		RequestTimestamp:   l.RequestTimestamp,
		DurationMs:         l.DurationMs,
		RequestUserID:      l.RequestUserID,
	}
}

// APILogFilter narrows a log listing. Zero values mean "no constraint".
type APILogFilter struct {
	Method             string
	Path               string
	ResponseStatusCode *int
	RequestUserID      *uint
	DateFrom           *time.Time
	DateTo             *time.Time
	Ordering           string
	Limit              int
	Offset             int
}

type CountByCode struct {
	Code  int   `json:"response_status_code"`
	Count int64 `json:"count"`
}

type CountByMethod struct {
	Method string `json:"method"`
	Count  int64  `json:"count"`
}

type CountByPath struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// APILogStats aggregates the logs of a trailing window.
type APILogStats struct {
	TotalRequests          int64           `json:"total_requests"`
	UniqueEndpoints        int64           `json:"unique_endpoints"`
	UniqueUsers            int64           `json:"unique_users"`
	AvgResponseTime        float64         `json:"avg_response_time"`
	StatusCodeDistribution []CountByCode   `json:"status_code_distribution"`
	MethodDistribution     []CountByMethod `json:"method_distribution"`
	TopEndpoints           []CountByPath   `json:"top_endpoints"`
	DateRange              DateRange       `json:"date_range"`
}
