package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/crudkit/sampleapi/internal/model"
	"github.com/gin-gonic/gin"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

type IdempotencyStore interface {
	// GetOrLock returns (record, true) if exists; (nil,false) if newly locked by caller.
	GetOrLock(ctx context.Context, key string) (*model.IdempotencyRecord, bool)
	Save(ctx context.Context, key string, status int, body []byte)
	Unlock(ctx context.Context, key string)
}

// InMemIdempotencyStore 单进程使用，多实例部署请用 Redis
type InMemIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]*model.IdempotencyRecord // Key: UserID + ":" + IdempotencyKey
}

func NewInMemIdempotencyStore(ttl time.Duration) *InMemIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &InMemIdempotencyStore{
		ttl:     ttl,
		records: make(map[string]*model.IdempotencyRecord),
	}
}

// GetOrLock 尝试获取记录。如果不存在，则锁定并返回 nil（表示你是第一个）。
// 如果正在处理，返回 Processing=true。如果已完成，返回完整记录。
func (s *InMemIdempotencyStore) GetOrLock(ctx context.Context, key string) (*model.IdempotencyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok && time.Since(rec.CreatedAt) < s.ttl {
		return rec, true
	}

	s.records[key] = &model.IdempotencyRecord{
		Processing: true,
		CreatedAt:  time.Now(),
	}
	return nil, false
}

func (s *InMemIdempotencyStore) Save(ctx context.Context, key string, status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = &model.IdempotencyRecord{
		Status:    status,
		Body:      body,
		CreatedAt: time.Now(),
	}
}

func (s *InMemIdempotencyStore) Unlock(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

// IdempotencyMiddleware replays the stored response of a repeated
// X-Idempotency-Key from the same user. Must run after AuthMiddleware.
func IdempotencyMiddleware(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		idemKey := c.GetHeader(HeaderIdempotencyKey)
		if idemKey == "" {
			c.Next()
			return
		}

		p := Principal(c)
		if !p.IsAuthenticated() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		fullKey := strconv.FormatUint(uint64(p.ID), 10) + ":" + c.Request.Method + ":" + c.FullPath() + ":" + idemKey

		record, hit := store.GetOrLock(ctx, fullKey)
		if hit {
			if record.Processing {
				c.JSON(http.StatusConflict, gin.H{"error": "request in progress"})
				c.Abort()
				return
			}
			c.Header("Idempotent-Replayed", "true")
			c.Data(record.Status, "application/json; charset=utf-8", record.Body)
			c.Abort()
			return
		}

		w := &responseBodyWriter{body: nil, ResponseWriter: c.Writer}
		c.Writer = w

		defer func() {
			if r := recover(); r != nil {
				store.Unlock(context.WithoutCancel(ctx), fullKey)
				panic(r)
			}
		}()

		c.Next()

		// 5xx 允许重试，只解锁不保存
		if c.Writer.Status() < 500 && len(c.Errors) == 0 {
			store.Save(context.WithoutCancel(ctx), fullKey, c.Writer.Status(), w.body)
		} else {
			store.Unlock(context.WithoutCancel(ctx), fullKey)
		}
	}
}

type responseBodyWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *responseBodyWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}

func (w *responseBodyWriter) WriteString(s string) (int, error) {
	w.body = append(w.body, s...)
	return w.ResponseWriter.WriteString(s)
}
