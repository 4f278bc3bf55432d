package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crudkit/sampleapi/internal/model"
)

// In-memory stores back the service when no database is configured and
// serve as fakes in tests. They stamp attribution through the same
// model.Stamp the gorm hook uses.

type MemorySampleRepo struct {
	mu     sync.RWMutex
	nextID uint
	rows   map[uint]model.Sample
}

func NewMemorySampleRepo() *MemorySampleRepo {
	return &MemorySampleRepo{rows: make(map[uint]model.Sample)}
}

func (r *MemorySampleRepo) List(ctx context.Context, q model.SampleQuery) ([]*model.Sample, int64, error) {
	r.mu.RLock()
	matched := make([]model.Sample, 0, len(r.rows))
	needle := strings.ToLower(q.Search)
	for _, s := range r.rows {
		if needle != "" && !sampleMatches(s, needle) {
			continue
		}
		matched = append(matched, s)
	}
	r.mu.RUnlock()

	order := ParseOrdering(q.Ordering, SampleOrderFields, "id")
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less, equal bool
		switch order.Field {
		case "name":
			less, equal = a.Name < b.Name, a.Name == b.Name
		case "created_at":
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		case "updated_at":
			less, equal = a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
		default:
			less, equal = a.ID < b.ID, a.ID == b.ID
		}
		if equal {
			return a.ID < b.ID
		}
		if order.Desc {
			return !less
		}
		return less
	})

	total := int64(len(matched))
	page := paginate(len(matched), q.Limit, q.Offset)
	out := make([]*model.Sample, 0, page.end-page.start)
	for i := page.start; i < page.end; i++ {
		s := matched[i]
		out = append(out, &s)
	}
	return out, total, nil
}

func sampleMatches(s model.Sample, needle string) bool {
	if strings.Contains(strings.ToLower(s.Name), needle) {
		return true
	}
	return s.Description != nil && strings.Contains(strings.ToLower(*s.Description), needle)
}

func (r *MemorySampleRepo) GetByID(ctx context.Context, id uint) (*model.Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *MemorySampleRepo) Create(ctx context.Context, s *model.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameTaken(s.Name, 0) {
		return ErrDuplicate
	}
	model.Stamp(ctx, &s.Auditable)
	r.nextID++
	now := time.Now().UTC()
	s.ID = r.nextID
	s.CreatedAt = now
	s.UpdatedAt = now
	r.rows[s.ID] = *s
	return nil
}

func (r *MemorySampleRepo) Save(ctx context.Context, s *model.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.rows[s.ID]
	if !ok {
		return ErrNotFound
	}
	if r.nameTaken(s.Name, s.ID) {
		return ErrDuplicate
	}
	model.Stamp(ctx, &s.Auditable)
	s.CreatedAt = current.CreatedAt
	s.UpdatedAt = time.Now().UTC()
	r.rows[s.ID] = *s
	return nil
}

func (r *MemorySampleRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemorySampleRepo) nameTaken(name string, except uint) bool {
	for id, s := range r.rows {
		if id != except && s.Name == name {
			return true
		}
	}
	return false
}

type MemoryAPILogRepo struct {
	mu     sync.RWMutex
	nextID uint
	rows   []model.APILog
}

func NewMemoryAPILogRepo() *MemoryAPILogRepo {
	return &MemoryAPILogRepo{}
}

func (r *MemoryAPILogRepo) Insert(ctx context.Context, entry *model.APILog) error {
	if entry == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	model.Stamp(ctx, &entry.Auditable)
	r.nextID++
	now := time.Now().UTC()
	entry.ID = r.nextID
	entry.CreatedAt = now
	entry.UpdatedAt = now
	r.rows = append(r.rows, *entry)
	return nil
}

func (r *MemoryAPILogRepo) List(ctx context.Context, f model.APILogFilter) ([]*model.APILog, int64, error) {
	r.mu.RLock()
	matched := make([]model.APILog, 0, len(r.rows))
	for _, l := range r.rows {
		if logMatches(l, f) {
			matched = append(matched, l)
		}
	}
	r.mu.RUnlock()

	order := ParseOrdering(f.Ordering, APILogOrderFields, "-request_timestamp")
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less, equal bool
		switch order.Field {
		case "duration_ms":
			less, equal = a.DurationMs < b.DurationMs, a.DurationMs == b.DurationMs
		case "response_status_code":
			less, equal = a.ResponseStatusCode < b.ResponseStatusCode, a.ResponseStatusCode == b.ResponseStatusCode
		default:
			less, equal = a.RequestTimestamp.Before(b.RequestTimestamp), a.RequestTimestamp.Equal(b.RequestTimestamp)
		}
		if equal {
			return a.ID > b.ID
		}
		if order.Desc {
			return !less
		}
		return less
	})

	total := int64(len(matched))
	page := paginate(len(matched), f.Limit, f.Offset)
	out := make([]*model.APILog, 0, page.end-page.start)
	for i := page.start; i < page.end; i++ {
		l := matched[i]
		out = append(out, &l)
	}
	return out, total, nil
}

func logMatches(l model.APILog, f model.APILogFilter) bool {
	if f.Method != "" && !strings.EqualFold(l.Method, f.Method) {
		return false
	}
	if f.Path != "" && !strings.Contains(strings.ToLower(l.Path), strings.ToLower(f.Path)) {
		return false
	}
	if f.ResponseStatusCode != nil && l.ResponseStatusCode != *f.ResponseStatusCode {
		return false
	}
	if f.RequestUserID != nil && (l.RequestUserID == nil || *l.RequestUserID != *f.RequestUserID) {
		return false
	}
	if f.DateFrom != nil && l.RequestTimestamp.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && l.RequestTimestamp.After(*f.DateTo) {
		return false
	}
	return true
}

func (r *MemoryAPILogRepo) GetByID(ctx context.Context, id uint) (*model.APILog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.rows {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryAPILogRepo) Stats(ctx context.Context, since time.Time) (*model.APILogStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &model.APILogStats{
		StatusCodeDistribution: []model.CountByCode{},
		MethodDistribution:     []model.CountByMethod{},
		TopEndpoints:           []model.CountByPath{},
	}
	codes := map[int]int64{}
	methods := map[string]int64{}
	paths := map[string]int64{}
	users := map[uint]struct{}{}
	var totalDuration float64

	for _, l := range r.rows {
		if l.RequestTimestamp.Before(since) {
			continue
		}
		stats.TotalRequests++
		totalDuration += l.DurationMs
		codes[l.ResponseStatusCode]++
		methods[l.Method]++
		paths[l.Path]++
		if l.RequestUserID != nil {
			users[*l.RequestUserID] = struct{}{}
		}
	}
	if stats.TotalRequests == 0 {
		return stats, nil
	}

	stats.UniqueEndpoints = int64(len(paths))
	stats.UniqueUsers = int64(len(users))
	stats.AvgResponseTime = totalDuration / float64(stats.TotalRequests)

	for code, n := range codes {
		stats.StatusCodeDistribution = append(stats.StatusCodeDistribution, model.CountByCode{Code: code, Count: n})
	}
	sort.Slice(stats.StatusCodeDistribution, func(i, j int) bool {
		return stats.StatusCodeDistribution[i].Code < stats.StatusCodeDistribution[j].Code
	})

	for method, n := range methods {
		stats.MethodDistribution = append(stats.MethodDistribution, model.CountByMethod{Method: method, Count: n})
	}
	sort.Slice(stats.MethodDistribution, func(i, j int) bool {
		return stats.MethodDistribution[i].Method < stats.MethodDistribution[j].Method
	})

	for path, n := range paths {
		stats.TopEndpoints = append(stats.TopEndpoints, model.CountByPath{Path: path, Count: n})
	}
	sort.Slice(stats.TopEndpoints, func(i, j int) bool {
		a, b := stats.TopEndpoints[i], stats.TopEndpoints[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Path < b.Path
	})
	if len(stats.TopEndpoints) > topEndpointsLimit {
		stats.TopEndpoints = stats.TopEndpoints[:topEndpointsLimit]
	}
	return stats, nil
}

func (r *MemoryAPILogRepo) SpanBefore(ctx context.Context, cutoff time.Time) (LogSpan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var span LogSpan
	for _, l := range r.rows {
		if !l.RequestTimestamp.Before(cutoff) {
			continue
		}
		ts := l.RequestTimestamp
		span.Count++
		if span.Oldest == nil || ts.Before(*span.Oldest) {
			span.Oldest = &ts
		}
		if span.Newest == nil || ts.After(*span.Newest) {
			newest := ts
			span.Newest = &newest
		}
	}
	return span, nil
}

func (r *MemoryAPILogRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	var deleted int64
	for _, l := range r.rows {
		if l.RequestTimestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	r.rows = kept
	return deleted, nil
}

type MemoryUserRepo struct {
	mu     sync.RWMutex
	nextID uint
	rows   map[uint]model.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{rows: make(map[uint]model.User)}
}

func (r *MemoryUserRepo) GetByID(ctx context.Context, id uint) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.rows {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepo) Create(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.Username == u.Username {
			return ErrDuplicate
		}
	}
	r.nextID++
	u.ID = r.nextID
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC()
	}
	r.rows[u.ID] = *u
	return nil
}

func (r *MemoryUserRepo) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &at
	r.rows[id] = u
	return nil
}

type pageBounds struct {
	start, end int
}

func paginate(n, limit, offset int) pageBounds {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return pageBounds{start: offset, end: end}
}
