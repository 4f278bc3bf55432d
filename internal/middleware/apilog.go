package middleware

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/crudkit/sampleapi/internal/config"
	"github.com/crudkit/sampleapi/internal/currentuser"
	"github.com/crudkit/sampleapi/internal/model"
	"github.com/crudkit/sampleapi/internal/pkg/logger"
	"github.com/crudkit/sampleapi/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID   = "X-Request-ID"
	ContextRequestID  = "request_id"
	ContextAPILogSkip = "apilog_skip"

	defaultMaxBodyChars = 10000
)

// APILogRecorder persists one finished request.
type APILogRecorder interface {
	Record(ctx context.Context, entry *model.APILog) error
}

// bodyLogWriter 包装 ResponseWriter 以捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyLogWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// SkipAPILog lets a handler opt its request out of API logging.
func SkipAPILog(c *gin.Context) {
	c.Set(ContextAPILogSkip, true)
}

// APILogger records every request under cfg.PathPrefix, except the excluded
// prefixes, as one model.APILog row. Recording never affects the response:
// failures are logged and counted, then dropped. A panicking handler is
// recorded as a 500 and the panic continues unchanged.
func APILogger(rec APILogRecorder, cfg config.APILogConfig) gin.HandlerFunc {
	maxChars := cfg.MaxBodyChars
	if maxChars <= 0 {
		maxChars = defaultMaxBodyChars
	}
	prefix := cfg.PathPrefix
	if prefix == "" {
		prefix = "/api/"
	}

	return func(c *gin.Context) {
		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Header(HeaderRequestID, reqID)
		c.Set(ContextRequestID, reqID)

		path := c.Request.URL.Path
		if !cfg.Enabled || !strings.HasPrefix(path, prefix) || isExcluded(path, cfg.ExcludePrefixes) {
			c.Next()
			return
		}

		start := time.Now().UTC()

		// 读取请求体 (并写回以便后续 Bind 使用)
		var reqBody []byte
		if c.Request.Body != nil {
			reqBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(reqBody))
		}

		blw := &bodyLogWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = blw

		capture := exchange{
			requestID: reqID,
			start:     start,
			reqBody:   reqBody,
			maxChars:  maxChars,
		}

		panicking := true
		defer func() {
			if !panicking {
				return
			}
			r := recover()
			if r == nil {
				// runtime.Goexit, nothing to record
				return
			}
			capture.status = http.StatusInternalServerError
			capture.respText = fmt.Sprint(r)
			persist(c, rec, &capture)
			panic(r)
		}()

		c.Next()
		panicking = false

		if c.GetBool(ContextAPILogSkip) {
			return
		}
		capture.status = c.Writer.Status()
		capture.respBody = blw.body.Bytes()
		persist(c, rec, &capture)
	}
}

// exchange is the per-request state gathered while the handler runs.
type exchange struct {
	requestID string
	start     time.Time
	reqBody   []byte
	maxChars  int
	status    int
	respBody  []byte
	respText  string // set instead of respBody when the handler panicked
}

func isExcluded(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// persist assembles and writes the record synchronously. Nothing escapes it.
func persist(c *gin.Context, rec APILogRecorder, x *exchange) {
	// the client may already be gone; the write must not be cancelled with it,
	// and keeps the principal for attribution.
	ctx := context.WithoutCancel(c.Request.Context())

	defer func() {
		if r := recover(); r != nil {
			metrics.APILogWriteFailures.WithLabelValues("panic").Inc()
			logger.Error("api log assembly panicked", "panic", fmt.Sprint(r), "path", c.Request.URL.Path)
		}
	}()

	end := time.Now().UTC()
	path := c.Request.URL.Path

	entry := &model.APILog{
		RequestID:          x.requestID,
		Method:             c.Request.Method,
		Path:               path,
		QueryParams:        flattenQuery(c.Request.URL.Query()),
		RequestHeaders:     sanitizeHeaders(c.Request.Header),
		RequestBody:        captureBody(path, x.reqBody, x.maxChars),
		RequestUserID:      currentuser.ID(ctx),
		RequestIP:          c.ClientIP(),
		UserAgent:          c.Request.UserAgent(),
		ContentType:        c.GetHeader("Content-Type"),
		ResponseStatusCode: x.status,
		ResponseHeaders:    sanitizeHeaders(c.Writer.Header()),
		RequestTimestamp:   x.start,
		ResponseTimestamp:  end,
		DurationMs:         float64(end.Sub(x.start).Microseconds()) / 1000.0,
	}
	if x.respText != "" {
		entry.ResponseBody = captureBody(path, []byte(x.respText), x.maxChars)
	} else {
		entry.ResponseBody = captureBody(path, x.respBody, x.maxChars)
	}

	if err := rec.Record(ctx, entry); err != nil {
		metrics.APILogWriteFailures.WithLabelValues("store").Inc()
		logger.LogError(ctx, err, "failed to write api log", "path", path, "request_id", x.requestID)
	}
}
