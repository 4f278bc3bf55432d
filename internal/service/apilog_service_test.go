package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/crudkit/sampleapi/internal/model"
	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/crudkit/sampleapi/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatsCache struct {
	entries     map[int]*model.APILogStats
	invalidated int
}

func newFakeStatsCache() *fakeStatsCache {
	return &fakeStatsCache{entries: map[int]*model.APILogStats{}}
}

func (c *fakeStatsCache) Get(ctx context.Context, days int) (*model.APILogStats, bool) {
	s, ok := c.entries[days]
	return s, ok
}

func (c *fakeStatsCache) Set(ctx context.Context, days int, stats *model.APILogStats) error {
	c.entries[days] = stats
	return nil
}

func (c *fakeStatsCache) Invalidate(ctx context.Context) error {
	c.invalidated++
	c.entries = map[int]*model.APILogStats{}
	return nil
}

func insertLog(t *testing.T, repo *repository.MemoryAPILogRepo, path string, at time.Time) {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), &model.APILog{
		Method:             "GET",
		Path:               path,
		ResponseStatusCode: 200,
		DurationMs:         5,
		RequestTimestamp:   at,
	}))
}

func TestStatsTopEndpointsOrderedByCount(t *testing.T) {
	repo := repository.NewMemoryAPILogRepo()
	now := time.Now().UTC()
	counts := map[string]int{"/api/a/": 3, "/api/b/": 7, "/api/c/": 5}
	for path, n := range counts {
		for i := 0; i < n; i++ {
			insertLog(t, repo, path, now.Add(-time.Minute))
		}
	}

	svc := NewAPILogService(repo, nil)
	stats, err := svc.Stats(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, stats.TopEndpoints, 3)
	assert.Equal(t, "/api/b/", stats.TopEndpoints[0].Path)
	assert.Equal(t, "/api/c/", stats.TopEndpoints[1].Path)
	assert.Equal(t, "/api/a/", stats.TopEndpoints[2].Path)
	for i := 1; i < len(stats.TopEndpoints); i++ {
		assert.GreaterOrEqual(t, stats.TopEndpoints[i-1].Count, stats.TopEndpoints[i].Count)
	}
	assert.Equal(t, 1, stats.DateRange.Days)
	assert.EqualValues(t, 15, stats.TotalRequests)
}

func TestStatsCapsTopEndpoints(t *testing.T) {
	repo := repository.NewMemoryAPILogRepo()
	now := time.Now().UTC()
	for i := 0; i < 12; i++ {
		insertLog(t, repo, fmt.Sprintf("/api/p%02d/", i), now)
	}
	stats, err := NewAPILogService(repo, nil).Stats(context.Background(), DefaultStatsDays)
	require.NoError(t, err)
	assert.Len(t, stats.TopEndpoints, 10)
	assert.EqualValues(t, 12, stats.UniqueEndpoints)
}

func TestStatsWindowExcludesOldLogs(t *testing.T) {
	repo := repository.NewMemoryAPILogRepo()
	now := time.Now().UTC()
	insertLog(t, repo, "/api/new/", now.Add(-time.Hour))
	insertLog(t, repo, "/api/old/", now.AddDate(0, 0, -10))

	stats, err := NewAPILogService(repo, nil).Stats(context.Background(), DefaultStatsDays)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalRequests)
	assert.True(t, stats.DateRange.End.Sub(stats.DateRange.Start) >= 7*24*time.Hour-time.Second)
}

func TestStatsRejectsBadDays(t *testing.T) {
	svc := NewAPILogService(repository.NewMemoryAPILogRepo(), nil)
	_, err := svc.Stats(context.Background(), 0)
	assert.Equal(t, apperrors.ErrInvalidRequest, errType(t, err))
}

func TestStatsUsesCache(t *testing.T) {
	repo := repository.NewMemoryAPILogRepo()
	cache := newFakeStatsCache()
	svc := NewAPILogService(repo, cache)

	insertLog(t, repo, "/api/a/", time.Now().UTC())
	first, err := svc.Stats(context.Background(), 7)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.TotalRequests)

	insertLog(t, repo, "/api/a/", time.Now().UTC())
	second, err := svc.Stats(context.Background(), 7)
	require.NoError(t, err)
	assert.EqualValues(t, 1, second.TotalRequests, "served from cache")
}

func TestAPILogServiceGet(t *testing.T) {
	repo := repository.NewMemoryAPILogRepo()
	insertLog(t, repo, "/api/a/", time.Now().UTC())
	svc := NewAPILogService(repo, nil)

	entry, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "/api/a/", entry.Path)

	_, err = svc.Get(context.Background(), 2)
	assert.Equal(t, apperrors.ErrNotFound, errType(t, err))
}

func TestRecordIsAttributedToPrincipal(t *testing.T) {
	repo := repository.NewMemoryAPILogRepo()
	svc := NewAPILogService(repo, nil)

	entry := &model.APILog{Method: "POST", Path: "/api/sample/", RequestTimestamp: time.Now()}
	require.NoError(t, svc.Record(userCtx(11), entry))
	require.NotNil(t, entry.CreatedByID)
	assert.Equal(t, uint(11), *entry.CreatedByID)
}
