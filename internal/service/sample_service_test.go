package service

import (
	"context"
	"errors"
	"testing"

	"github.com/crudkit/sampleapi/internal/currentuser"
	"github.com/crudkit/sampleapi/internal/model"
	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/crudkit/sampleapi/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userCtx(id uint) context.Context {
	return currentuser.With(context.Background(), currentuser.Principal{ID: id, Authenticated: true})
}

func errType(t *testing.T, err error) apperrors.ErrorType {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.Type
}

func TestSampleServiceAttribution(t *testing.T) {
	svc := NewSampleService(repository.NewMemorySampleRepo())

	created, err := svc.Create(userCtx(1), SampleCreateRequest{Name: "widget"})
	require.NoError(t, err)
	require.NotNil(t, created.CreatedByID)
	assert.Equal(t, uint(1), *created.CreatedByID)

	desc := "second writer"
	updated, err := svc.Update(userCtx(2), created.ID, SampleUpdateRequest{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, uint(1), *updated.CreatedByID)
	assert.Equal(t, uint(2), *updated.UpdatedByID)
	assert.Equal(t, "widget", updated.Name)
}

func TestSampleServiceReplaceClearsDescription(t *testing.T) {
	svc := NewSampleService(repository.NewMemorySampleRepo())
	desc := "temporary"
	created, err := svc.Create(context.Background(), SampleCreateRequest{Name: "a", Description: &desc})
	require.NoError(t, err)

	replaced, err := svc.Replace(context.Background(), created.ID, SampleCreateRequest{Name: "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", replaced.Name)
	assert.Nil(t, replaced.Description)
}

func TestSampleServiceErrors(t *testing.T) {
	svc := NewSampleService(repository.NewMemorySampleRepo())

	_, err := svc.Get(context.Background(), 99)
	assert.Equal(t, apperrors.ErrNotFound, errType(t, err))

	_, err = svc.Create(context.Background(), SampleCreateRequest{Name: "  "})
	assert.Equal(t, apperrors.ErrInvalidRequest, errType(t, err))

	_, err = svc.Create(context.Background(), SampleCreateRequest{Name: "same"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), SampleCreateRequest{Name: "same"})
	assert.Equal(t, apperrors.ErrConflict, errType(t, err))

	blank := ""
	_, err = svc.Update(context.Background(), 1, SampleUpdateRequest{Name: &blank})
	assert.Equal(t, apperrors.ErrInvalidRequest, errType(t, err))

	assert.Equal(t, apperrors.ErrNotFound, errType(t, svc.Delete(context.Background(), 42)))
}

func TestSampleServiceList(t *testing.T) {
	svc := NewSampleService(repository.NewMemorySampleRepo())
	for _, n := range []string{"one", "two", "three"} {
		_, err := svc.Create(context.Background(), SampleCreateRequest{Name: n})
		require.NoError(t, err)
	}
	rows, total, err := svc.List(context.Background(), model.SampleQuery{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, rows, 2)
}
