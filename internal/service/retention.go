package service

import (
	"context"
	"fmt"
	"time"

	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/crudkit/sampleapi/internal/pkg/logger"
	"github.com/crudkit/sampleapi/internal/pkg/metrics"
)

const DefaultRetentionDays = 30

// RetentionReport is the outcome of one cleanup run.
type RetentionReport struct {
	Days    int        `json:"days"`
	DryRun  bool       `json:"dry_run"`
	Cutoff  time.Time  `json:"cutoff"`
	Matched int64      `json:"matched"`
	Deleted int64      `json:"deleted"`
	Oldest  *time.Time `json:"oldest,omitempty"`
	Newest  *time.Time `json:"newest,omitempty"`
}

// Summary renders the report as a single human readable line.
func (r RetentionReport) Summary() string {
	switch {
	case r.DryRun:
		return fmt.Sprintf("DRY RUN: Would delete %d API logs older than %d days", r.Matched, r.Days)
	case r.Deleted > 0:
		return fmt.Sprintf("Successfully deleted %d API logs older than %d days", r.Deleted, r.Days)
	default:
		return fmt.Sprintf("No API logs older than %d days found", r.Days)
	}
}

type RetentionService struct {
	repo  APILogRepo
	cache StatsCache
	now   func() time.Time
}

func NewRetentionService(repo APILogRepo, cache StatsCache) *RetentionService {
	return &RetentionService{
		repo:  repo,
		cache: cache,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Run removes logs whose request_timestamp is older than days. With dryRun
// it only reports what would be removed.
func (s *RetentionService) Run(ctx context.Context, days int, dryRun bool) (RetentionReport, error) {
	if days < 0 {
		return RetentionReport{}, apperrors.NewInvalidRequest("days cannot be negative")
	}
	cutoff := s.now().AddDate(0, 0, -days)
	report := RetentionReport{Days: days, DryRun: dryRun, Cutoff: cutoff}

	span, err := s.repo.SpanBefore(ctx, cutoff)
	if err != nil {
		return report, err
	}
	report.Matched = span.Count
	report.Oldest = span.Oldest
	report.Newest = span.Newest

	if dryRun || span.Count == 0 {
		return report, nil
	}

	deleted, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return report, err
	}
	report.Deleted = deleted
	metrics.APILogsDeleted.Add(float64(deleted))
	logger.Info("api log retention completed", "days", days, "deleted", deleted)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			logger.Warn("failed to invalidate api log stats cache", "error", err)
		}
	}
	return report, nil
}
