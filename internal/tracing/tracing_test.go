package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp, err := InitTracer("stylecheck-test", rec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return rec
}

func TestInitTracerRequiresName(t *testing.T) {
	_, err := InitTracer("")
	assert.Error(t, err)
}

func TestHTTPMiddleware(t *testing.T) {
	rec := setupRecorder(t)

	var traceID, spanID string
	handler := HTTPMiddleware("stylecheck-test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = TraceIDFromContext(r.Context())
		spanID = SpanIDFromContext(r.Context())
		SetSpanAttributes(r.Context(), attribute.String("document.id", "abc"))
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", traceID)
	assert.Equal(t, traceID, w.Header().Get(TraceIDHeader))
	assert.Len(t, spanID, 16)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "POST /api/analyze", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
	assert.Equal(t, "00f067aa0ba902b7", span.Parent().SpanID().String())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, int64(http.StatusTeapot), attrs["http.status_code"].AsInt64())
	assert.Equal(t, "abc", attrs["document.id"].AsString())
}

func TestIDsWithoutSpan(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
	assert.Empty(t, SpanIDFromContext(context.Background()))
	assert.NotPanics(t, func() {
		SetSpanAttributes(context.Background(), attribute.Int("n", 1))
	})
}

func TestContextWithRemoteIDs(t *testing.T) {
	rec := setupRecorder(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "enqueue")
	traceID := TraceIDFromContext(ctx)
	spanID := SpanIDFromContext(ctx)
	parent.End()

	remote, ok := ContextWithRemoteIDs(context.Background(), traceID, spanID)
	require.True(t, ok)

	_, child := otel.Tracer("test").Start(remote, "process")
	child.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, traceID, spans[1].SpanContext().TraceID().String())
	assert.Equal(t, spanID, spans[1].Parent().SpanID().String())
	assert.True(t, spans[1].Parent().IsRemote())
}

func TestContextWithRemoteIDsInvalid(t *testing.T) {
	ctx := context.Background()
	got, ok := ContextWithRemoteIDs(ctx, "nope", "00f067aa0ba902b7")
	assert.False(t, ok)
	assert.Equal(t, ctx, got)

	_, ok = ContextWithRemoteIDs(ctx, "4bf92f3577b34da6a3ce929d0e0e4736", "")
	assert.False(t, ok)
}

var _ sdktrace.SpanProcessor = (*tracetest.SpanRecorder)(nil)
