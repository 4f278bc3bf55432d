package service

import (
	"context"
	"testing"
	"time"

	"github.com/crudkit/sampleapi/internal/model"
	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/crudkit/sampleapi/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionDryRunThenDelete(t *testing.T) {
	repo := repository.NewMemoryAPILogRepo()
	now := time.Now().UTC()
	for _, age := range []int{1, 10, 31, 45, 90} {
		insertLog(t, repo, "/api/sample/", now.AddDate(0, 0, -age))
	}
	cache := newFakeStatsCache()
	svc := NewRetentionService(repo, cache)

	dry, err := svc.Run(context.Background(), 30, true)
	require.NoError(t, err)
	assert.EqualValues(t, 3, dry.Matched)
	assert.Zero(t, dry.Deleted)
	require.NotNil(t, dry.Oldest)
	require.NotNil(t, dry.Newest)
	assert.True(t, dry.Oldest.Before(*dry.Newest))
	assert.Contains(t, dry.Summary(), "DRY RUN: Would delete 3 API logs older than 30 days")
	assert.Zero(t, cache.invalidated)

	_, total, err := repo.List(context.Background(), model.APILogFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total, "dry run must not delete")

	applied, err := svc.Run(context.Background(), 30, false)
	require.NoError(t, err)
	assert.Equal(t, dry.Matched, applied.Deleted)
	assert.Equal(t, "Successfully deleted 3 API logs older than 30 days", applied.Summary())
	assert.Equal(t, 1, cache.invalidated)

	_, total, err = repo.List(context.Background(), model.APILogFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestRetentionNothingToDelete(t *testing.T) {
	repo := repository.NewMemoryAPILogRepo()
	insertLog(t, repo, "/api/sample/", time.Now().UTC())

	report, err := NewRetentionService(repo, nil).Run(context.Background(), 30, false)
	require.NoError(t, err)
	assert.Zero(t, report.Matched)
	assert.Zero(t, report.Deleted)
	assert.Equal(t, "No API logs older than 30 days found", report.Summary())
}

func TestRetentionRejectsNegativeDays(t *testing.T) {
	_, err := NewRetentionService(repository.NewMemoryAPILogRepo(), nil).Run(context.Background(), -1, false)
	assert.Equal(t, apperrors.ErrInvalidRequest, errType(t, err))
}
