package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"leave-bot/internal/metrics"
)

type ctxKey struct{}

const correlationHeader = "X-Correlation-ID"

// CorrelationID returns the request's correlation id, if any.
func CorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware tags each request with a correlation id, logs it and
// records its duration.
func LoggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(correlationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(correlationHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		route := routeLabel(r)
		if r.URL.Path != "/metrics" && r.URL.Path != "/health" {
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.Int("status", sw.status),
				zap.Duration("duration", elapsed),
				zap.String("correlation_id", id),
			)
		}
		metrics.RecordRequest(r.Method, route, strconv.Itoa(sw.status), elapsed.Seconds())
	})
}

// routeLabel is the ServeMux pattern that served r, without its method.
// ServeMux sets it on the request passed down, so it is read after serving.
func routeLabel(r *http.Request) string {
	p := r.Pattern
	if p == "" {
		return "unmatched"
	}
	if i := strings.IndexByte(p, ' '); i >= 0 {
		p = p[i+1:]
	}
	return p
}

// UserLimiter keeps one token bucket per user.
type UserLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	b        int
}

// NewUserLimiter allows perSecond messages per user with the given burst.
// A non-positive rate disables limiting.
func NewUserLimiter(perSecond float64, burst int) *UserLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &UserLimiter{limiters: make(map[string]*rate.Limiter), r: rate.Limit(perSecond), b: burst}
}

func (l *UserLimiter) Allow(userID string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(l.r, l.b)
		l.limiters[userID] = lim
	}
	l.mu.Unlock()

	if !lim.Allow() {
		metrics.RecordRateLimited()
		return false
	}
	return true
}
