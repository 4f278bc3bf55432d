package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.Use(AuthMiddleware(fakeAuth{}))
	r.Use(mw...)
	return r
}

func do(r http.Handler, method, path, token string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Code
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()
	r.GET("/api/me/", func(c *gin.Context) {
		p := Principal(c)
		c.JSON(http.StatusOK, gin.H{"id": p.ID, "authenticated": p.IsAuthenticated()})
	})

	rec := do(r, http.MethodGet, "/api/me/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":0,"authenticated":false}`, rec.Body.String())

	rec = do(r, http.MethodGet, "/api/me/", "Bearer user-12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":12,"authenticated":true}`, rec.Body.String())

	rec = do(r, http.MethodGet, "/api/me/", "Token user-12", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, string(apperrors.ErrAuthFailed), errorCode(t, rec))

	rec = do(r, http.MethodGet, "/api/me/", "Bearer garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExtractBearerToken(t *testing.T) {
	tok, ok := ExtractBearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	tok, ok = ExtractBearerToken("bearer   abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = ExtractBearerToken("Bearer ")
	assert.False(t, ok)
	_, ok = ExtractBearerToken("abc")
	assert.False(t, ok)
}

func TestRequireStaff(t *testing.T) {
	r := newRouter()
	r.GET("/api/admin/", RequireStaff(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/api/private/", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/admin/", "", "").Code)
	rec := do(r, http.MethodGet, "/api/admin/", "Bearer user-1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(apperrors.ErrPermissionDenied), errorCode(t, rec))
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/api/admin/", "Bearer staff-1", "").Code)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/private/", "", "").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/api/private/", "Bearer user-1", "").Code)
}

func TestReadOnlyMiddleware(t *testing.T) {
	r := newRouter(ReadOnlyMiddleware(true, "/api/token"))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/api/sample/", ok)
	r.POST("/api/sample/", ok)
	r.POST("/api/token/", ok)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/sample/", "", "").Code)
	rec := do(r, http.MethodPost, "/api/sample/", "", `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(apperrors.ErrReadOnly), errorCode(t, rec))
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/token/", "", `{}`).Code)

	off := newRouter(ReadOnlyMiddleware(false))
	off.POST("/api/sample/", ok)
	assert.Equal(t, http.StatusOK, do(off, http.MethodPost, "/api/sample/", "", `{}`).Code)
}

type fixedLimiters struct{ l *rate.Limiter }

func (f fixedLimiters) Get(string) *rate.Limiter { return f.l }

func TestRateLimitMiddleware(t *testing.T) {
	r := newRouter(RateLimitMiddleware(fixedLimiters{rate.NewLimiter(rate.Every(time.Hour), 1)}))
	r.POST("/api/token/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/token/", "", `{}`).Code)
	rec := do(r, http.MethodPost, "/api/token/", "", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, string(apperrors.ErrRateLimited), errorCode(t, rec))
}

func TestIdempotencyMiddlewareReplays(t *testing.T) {
	store := NewInMemIdempotencyStore(time.Minute)
	r := newRouter(IdempotencyMiddleware(store))
	var calls int32
	r.POST("/api/sample/", func(c *gin.Context) {
		n := atomic.AddInt32(&calls, 1)
		c.JSON(http.StatusCreated, gin.H{"call": n})
	})

	send := func(token, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/sample/", strings.NewReader(`{}`))
		req.Header.Set("Authorization", token)
		req.Header.Set(HeaderIdempotencyKey, key)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	first := send("Bearer user-1", "k1")
	second := send("Bearer user-1", "k1")
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// keys are scoped per user
	other := send("Bearer user-2", "k1")
	assert.Empty(t, other.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddlewareDoesNotStoreFailures(t *testing.T) {
	store := NewInMemIdempotencyStore(time.Minute)
	r := newRouter(IdempotencyMiddleware(store))
	var calls int32
	r.POST("/api/sample/", func(c *gin.Context) {
		atomic.AddInt32(&calls, 1)
		c.Error(apperrors.NewInvalidRequest("name is required"))
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/sample/", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer user-1")
		req.Header.Set(HeaderIdempotencyKey, "k1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestInMemIdempotencyStoreInProgress(t *testing.T) {
	store := NewInMemIdempotencyStore(time.Minute)
	ctx := context.Background()

	rec, hit := store.GetOrLock(ctx, "k")
	assert.False(t, hit)
	assert.Nil(t, rec)

	rec, hit = store.GetOrLock(ctx, "k")
	require.True(t, hit)
	assert.True(t, rec.Processing)

	store.Unlock(ctx, "k")
	_, hit = store.GetOrLock(ctx, "k")
	assert.False(t, hit)
}

func TestErrorHandlerWrapsUnknownErrors(t *testing.T) {
	r := newRouter()
	r.GET("/api/fail/", func(c *gin.Context) {
		c.Error(assert.AnError)
	})

	rec := do(r, http.MethodGet, "/api/fail/", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(apperrors.ErrInternal), errorCode(t, rec))
}

func TestErrorHandlerKeepsWrittenResponse(t *testing.T) {
	r := newRouter()
	r.GET("/api/partial/", func(c *gin.Context) {
		c.String(http.StatusAccepted, "done")
		c.Error(assert.AnError)
	})

	rec := do(r, http.MethodGet, "/api/partial/", "", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
}

func TestValidatorTranslatesJSONFieldNames(t *testing.T) {
	prev := binding.Validator
	binding.Validator = &DefaultValidator{}
	t.Cleanup(func() { binding.Validator = prev })

	type payload struct {
		Name  string `json:"name" binding:"required,max=5"`
		Email string `json:"email" binding:"omitempty,email"`
	}

	err := binding.Validator.ValidateStruct(&payload{})
	require.Error(t, err)
	assert.Equal(t, "name is required", TranslateValidationError(err))

	err = binding.Validator.ValidateStruct(&payload{Name: "toolong", Email: "nope"})
	require.Error(t, err)
	assert.ElementsMatch(t, []string{
		"name must be at most 5 characters",
		"email must be a valid email address",
	}, TranslateValidationErrors(err))

	assert.NoError(t, binding.Validator.ValidateStruct(&payload{Name: "ok"}))
	assert.Equal(t, "plain", TranslateValidationError(assertError("plain")))
}

type assertError string

func (e assertError) Error() string { return string(e) }

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	r := newRouter(MetricsMiddleware())
	r.GET("/api/sample/:id/", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })

	rec := do(r, http.MethodGet, "/api/sample/4/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4", rec.Body.String())
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/nope", "", "").Code)
}
