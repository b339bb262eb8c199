package observability

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GlobalLogger is the logger repository operations write to. The server
// replaces it with the request-aware logger at startup.
var GlobalLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// EnableRepoLogging toggles per-operation repository logs.
var EnableRepoLogging = true

// StoreQueryLatency records store latency by operation and backend.
var StoreQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "socialgrid_store_query_latency_seconds",
	Help:    "Post store operation latency in seconds",
	Buckets: prometheus.DefBuckets,
}, []string{"operation", "backend"})

// SetLogger swaps the logger used by repository logging.
func SetLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = l
	}
}

// RepoLogger provides structured logging and latency tracking for one store backend.
type RepoLogger struct {
	backend string
}

// NewRepoLogger creates a new RepoLogger for the given backend name.
func NewRepoLogger(backend string) *RepoLogger {
	return &RepoLogger{backend: backend}
}

// Track starts a span for operation. Call the returned func to end the span
// and record the latency; pass the returned context to the store call.
func (l *RepoLogger) Track(ctx context.Context, operation string) (context.Context, func()) {
	start := time.Now()
	ctx, span := StartRepositorySpan(ctx, l.backend, operation)
	return ctx, func() {
		StoreQueryLatency.WithLabelValues(operation, l.backend).Observe(time.Since(start).Seconds())
		span.End()
	}
}

// LogCreate logs a repository create operation.
func (l *RepoLogger) LogCreate(ctx context.Context, attrs ...slog.Attr) {
	l.log(ctx, "repository create", "create", attrs)
}

// LogRead logs a repository read operation.
func (l *RepoLogger) LogRead(ctx context.Context, attrs ...slog.Attr) {
	l.log(ctx, "repository read", "read", attrs)
}

// LogError logs a repository error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	RecordError(ctx, err)
	if !EnableRepoLogging {
		return
	}
	GlobalLogger.ErrorContext(ctx, "repository error",
		slog.String("backend", l.backend),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

func (l *RepoLogger) log(ctx context.Context, msg, operation string, attrs []slog.Attr) {
	if !EnableRepoLogging {
		return
	}
	all := make([]any, 0, len(attrs)+2)
	all = append(all, slog.String("backend", l.backend), slog.String("operation", operation))
	for _, a := range attrs {
		all = append(all, a)
	}
	GlobalLogger.InfoContext(ctx, msg, all...)
}
