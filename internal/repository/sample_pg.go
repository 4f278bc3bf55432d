package repository

import (
	"context"

	"github.com/crudkit/sampleapi/internal/model"
	"gorm.io/gorm"
)

var SampleOrderFields = []string{"id", "name", "created_at", "updated_at"}

type PostgresSampleRepo struct {
	db *gorm.DB
}

func NewPostgresSampleRepo(db *gorm.DB) *PostgresSampleRepo {
	return &PostgresSampleRepo{db: db}
}

func (r *PostgresSampleRepo) List(ctx context.Context, q model.SampleQuery) ([]*model.Sample, int64, error) {
	var total int64
	if err := r.filtered(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := ParseOrdering(q.Ordering, SampleOrderFields, "id")
	tx := r.filtered(ctx, q).Order(order.clause()).Order("id")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit).Offset(q.Offset)
	}
	var out []*model.Sample
	err := tx.Find(&out).Error
	return out, total, err
}

func (r *PostgresSampleRepo) filtered(ctx context.Context, q model.SampleQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&model.Sample{})
	if q.Search != "" {
		like := escapeLike(q.Search)
		tx = tx.Where("name ILIKE ? OR description ILIKE ?", like, like)
	}
	return tx
}

func (r *PostgresSampleRepo) GetByID(ctx context.Context, id uint) (*model.Sample, error) {
	var s model.Sample
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// Create inserts s; the Auditable hook stamps it from ctx.
func (r *PostgresSampleRepo) Create(ctx context.Context, s *model.Sample) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *PostgresSampleRepo) Save(ctx context.Context, s *model.Sample) error {
	return translate(r.db.WithContext(ctx).Save(s).Error)
}

func (r *PostgresSampleRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Sample{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
