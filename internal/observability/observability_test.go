package observability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "socialgrid-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer)
}

func TestInitTracing_Stdout(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{
		ServiceName:  "socialgrid-test",
		Enabled:      true,
		Exporter:     "stdout",
		SamplerRatio: 0.5,
	})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestRepoLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := GlobalLogger
	SetLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { GlobalLogger = prev })

	l := NewRepoLogger("sqlite")
	before := testutil.CollectAndCount(StoreQueryLatency)
	_, done := l.Track(context.Background(), fmt.Sprintf("unit_test_%d", time.Now().UnixNano()))
	done()
	assert.Equal(t, before+1, testutil.CollectAndCount(StoreQueryLatency))

	l.LogCreate(context.Background(), slog.String("post_id", "p1"))
	assert.Contains(t, buf.String(), `"operation":"create"`)
	assert.Contains(t, buf.String(), `"post_id":"p1"`)

	l.LogError(context.Background(), errors.New("boom"), "list")
	assert.Contains(t, buf.String(), `"error":"boom"`)

	buf.Reset()
	EnableRepoLogging = false
	t.Cleanup(func() { EnableRepoLogging = true })
	l.LogRead(context.Background())
	assert.Empty(t, buf.String())
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := Tracer
	Tracer = tp.Tracer("socialgrid-test")
	t.Cleanup(func() {
		Tracer = prev
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestRepoLogger_TrackStartsSpan(t *testing.T) {
	sr := recordSpans(t)
	prev := EnableRepoLogging
	EnableRepoLogging = false
	t.Cleanup(func() { EnableRepoLogging = prev })

	l := NewRepoLogger("sqlite")
	ctx, done := l.Track(context.Background(), "create")
	l.LogError(ctx, errors.New("disk full"), "create")
	done()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "repository.create", span.Name())
	assert.Contains(t, span.Attributes(), attribute.String("db.system", "sqlite"))
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "disk full", span.Status().Description)
}

func TestStartRedisSpan(t *testing.T) {
	sr := recordSpans(t)

	_, span := StartRedisSpan(context.Background(), "get")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "redis.get", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("db.system", "redis"))
}
