package service

import (
	"context"
	"errors"
	"time"

	"github.com/crudkit/sampleapi/internal/model"
	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/crudkit/sampleapi/internal/pkg/logger"
	"github.com/crudkit/sampleapi/internal/pkg/metrics"
	"github.com/crudkit/sampleapi/internal/repository"
)

const DefaultStatsDays = 7

type APILogRepo interface {
	Insert(ctx context.Context, entry *model.APILog) error
	List(ctx context.Context, f model.APILogFilter) ([]*model.APILog, int64, error)
	GetByID(ctx context.Context, id uint) (*model.APILog, error)
	Stats(ctx context.Context, since time.Time) (*model.APILogStats, error)
	SpanBefore(ctx context.Context, cutoff time.Time) (repository.LogSpan, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// StatsCache is optional; a nil cache disables memoization.
type StatsCache interface {
	Get(ctx context.Context, days int) (*model.APILogStats, bool)
	Set(ctx context.Context, days int, stats *model.APILogStats) error
	Invalidate(ctx context.Context) error
}

type APILogService struct {
	repo  APILogRepo
	cache StatsCache
	now   func() time.Time
}

func NewAPILogService(repo APILogRepo, cache StatsCache) *APILogService {
	return &APILogService{
		repo:  repo,
		cache: cache,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Record persists one request/response record. ctx should carry the
// request principal so the record is attributed like any other write.
func (s *APILogService) Record(ctx context.Context, entry *model.APILog) error {
	if err := s.repo.Insert(ctx, entry); err != nil {
		return err
	}
	metrics.APILogWrites.Inc()
	return nil
}

func (s *APILogService) List(ctx context.Context, f model.APILogFilter) ([]*model.APILog, int64, error) {
	return s.repo.List(ctx, f)
}

func (s *APILogService) Get(ctx context.Context, id uint) (*model.APILog, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("api log not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err)
	}
	return entry, nil
}

// Stats aggregates the trailing window of the given number of days.
func (s *APILogService) Stats(ctx context.Context, days int) (*model.APILogStats, error) {
	if days <= 0 {
		return nil, apperrors.NewInvalidRequest("days must be a positive integer")
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, days); ok {
			return cached, nil
		}
	}

	end := s.now()
	start := end.AddDate(0, 0, -days)
	stats, err := s.repo.Stats(ctx, start)
	if err != nil {
		return nil, apperrors.Wrap(err)
	}
	stats.DateRange = model.DateRange{Start: start, End: end, Days: days}

	if s.cache != nil {
		if err := s.cache.Set(ctx, days, stats); err != nil {
			logger.Warn("failed to cache api log stats", "error", err)
		}
	}
	return stats, nil
}
