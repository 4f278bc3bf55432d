package repository

import (
	"context"
	"time"

	"github.com/crudkit/sampleapi/internal/model"
	"gorm.io/gorm"
)

var APILogOrderFields = []string{"request_timestamp", "duration_ms", "response_status_code"}

const topEndpointsLimit = 10

// LogSpan describes the logs older than a cutoff.
type LogSpan struct {
	Count  int64
	Oldest *time.Time
	Newest *time.Time
}

type PostgresAPILogRepo struct {
	db *gorm.DB
}

func NewPostgresAPILogRepo(db *gorm.DB) *PostgresAPILogRepo {
	return &PostgresAPILogRepo{db: db}
}

func (r *PostgresAPILogRepo) Insert(ctx context.Context, entry *model.APILog) error {
	if entry == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *PostgresAPILogRepo) List(ctx context.Context, f model.APILogFilter) ([]*model.APILog, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := ParseOrdering(f.Ordering, APILogOrderFields, "-request_timestamp")
	tx := r.filtered(ctx, f).Order(order.clause()).Order("id DESC")
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit).Offset(f.Offset)
	}
	var out []*model.APILog
	err := tx.Find(&out).Error
	return out, total, err
}

func (r *PostgresAPILogRepo) filtered(ctx context.Context, f model.APILogFilter) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&model.APILog{})
	if f.Method != "" {
		tx = tx.Where("UPPER(method) = UPPER(?)", f.Method)
	}
	if f.Path != "" {
		tx = tx.Where("path ILIKE ?", escapeLike(f.Path))
	}
	if f.ResponseStatusCode != nil {
		tx = tx.Where("response_status_code = ?", *f.ResponseStatusCode)
	}
	if f.RequestUserID != nil {
		tx = tx.Where("request_user_id = ?", *f.RequestUserID)
	}
	if f.DateFrom != nil {
		tx = tx.Where("request_timestamp >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		tx = tx.Where("request_timestamp <= ?", *f.DateTo)
	}
	return tx
}

func (r *PostgresAPILogRepo) GetByID(ctx context.Context, id uint) (*model.APILog, error) {
	var entry model.APILog
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

// Stats aggregates every log with request_timestamp >= since.
func (r *PostgresAPILogRepo) Stats(ctx context.Context, since time.Time) (*model.APILogStats, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.APILog{}).Where("request_timestamp >= ?", since)
	}

	var agg struct {
		Total     int64
		Endpoints int64
		Users     int64
		Avg       float64
	}
	err := base().Select(
		"COUNT(*) AS total, COUNT(DISTINCT path) AS endpoints, " +
			"COUNT(DISTINCT request_user_id) AS users, COALESCE(AVG(duration_ms), 0) AS avg",
	).Scan(&agg).Error
	if err != nil {
		return nil, err
	}

	stats := &model.APILogStats{
		TotalRequests:          agg.Total,
		UniqueEndpoints:        agg.Endpoints,
		UniqueUsers:            agg.Users,
		AvgResponseTime:        agg.Avg,
		StatusCodeDistribution: []model.CountByCode{},
		MethodDistribution:     []model.CountByMethod{},
		TopEndpoints:           []model.CountByPath{},
	}

	if err := base().Select("response_status_code AS code, COUNT(*) AS count").
		Group("response_status_code").
		Order("response_status_code").
		Scan(&stats.StatusCodeDistribution).Error; err != nil {
		return nil, err
	}
	if err := base().Select("method, COUNT(*) AS count").
		Group("method").
		Order("method").
		Scan(&stats.MethodDistribution).Error; err != nil {
		return nil, err
	}
	if err := base().Select("path, COUNT(*) AS count").
		Group("path").
		Order("count DESC, path ASC").
		Limit(topEndpointsLimit).
		Scan(&stats.TopEndpoints).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *PostgresAPILogRepo) SpanBefore(ctx context.Context, cutoff time.Time) (LogSpan, error) {
	var span LogSpan
	err := r.db.WithContext(ctx).Model(&model.APILog{}).
		Select("COUNT(*) AS count, MIN(request_timestamp) AS oldest, MAX(request_timestamp) AS newest").
		Where("request_timestamp < ?", cutoff).
		Scan(&span).Error
	return span, err
}

func (r *PostgresAPILogRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("request_timestamp < ?", cutoff).Delete(&model.APILog{})
	return res.RowsAffected, res.Error
}
