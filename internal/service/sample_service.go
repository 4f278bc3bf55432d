package service

import (
	"context"
	"errors"
	"strings"

	"github.com/crudkit/sampleapi/internal/model"
	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/crudkit/sampleapi/internal/repository"
)

type SampleRepo interface {
	List(ctx context.Context, q model.SampleQuery) ([]*model.Sample, int64, error)
	GetByID(ctx context.Context, id uint) (*model.Sample, error)
	Create(ctx context.Context, s *model.Sample) error
	Save(ctx context.Context, s *model.Sample) error
	Delete(ctx context.Context, id uint) error
}

type SampleService struct {
	repo SampleRepo
}

type SampleCreateRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description"`
}

type SampleUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description"`
}

func NewSampleService(repo SampleRepo) *SampleService {
	return &SampleService{repo: repo}
}

func (s *SampleService) List(ctx context.Context, q model.SampleQuery) ([]*model.Sample, int64, error) {
	return s.repo.List(ctx, q)
}

func (s *SampleService) Get(ctx context.Context, id uint) (*model.Sample, error) {
	sample, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, sampleError(err)
	}
	return sample, nil
}

func (s *SampleService) Create(ctx context.Context, req SampleCreateRequest) (*model.Sample, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.NewInvalidRequest("name is required")
	}
	sample := &model.Sample{
		Name:        name,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, sample); err != nil {
		return nil, sampleError(err)
	}
	return sample, nil
}

// Replace overwrites every writable field (PUT).
func (s *SampleService) Replace(ctx context.Context, id uint, req SampleCreateRequest) (*model.Sample, error) {
	name := req.Name
	return s.update(ctx, id, SampleUpdateRequest{Name: &name, Description: req.Description}, true)
}

// Update changes only the fields present in req (PATCH).
func (s *SampleService) Update(ctx context.Context, id uint, req SampleUpdateRequest) (*model.Sample, error) {
	return s.update(ctx, id, req, false)
}

func (s *SampleService) update(ctx context.Context, id uint, req SampleUpdateRequest, replace bool) (*model.Sample, error) {
	sample, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, sampleError(err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.NewInvalidRequest("name may not be blank")
		}
		sample.Name = name
	}
	if replace || req.Description != nil {
		sample.Description = req.Description
	}

	if err := s.repo.Save(ctx, sample); err != nil {
		return nil, sampleError(err)
	}
	return sample, nil
}

func (s *SampleService) Delete(ctx context.Context, id uint) error {
	return sampleError(s.repo.Delete(ctx, id))
}

func sampleError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("sample not found")
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.New(apperrors.ErrConflict, "sample with this name already exists", err)
	default:
		return apperrors.Wrap(err)
	}
}
