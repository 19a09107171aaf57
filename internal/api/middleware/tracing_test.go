package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/ai4care/ai4care/internal/api/middleware"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr
}

// apiRouter mounts the traced endpoints the way the service router does;
// each handler answers with the status in the "X-Want-Status" header.
func apiRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing("ai4care-api"))

	reply := func(w http.ResponseWriter, r *http.Request) {
		if !trace.SpanFromContext(r.Context()).SpanContext().IsValid() {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		status := http.StatusOK
		switch r.Header.Get("X-Want-Status") {
		case "400":
			status = http.StatusBadRequest
		case "502":
			status = http.StatusBadGateway
		}
		w.WriteHeader(status)
	}
	r.Route("/api", func(r chi.Router) {
		r.Post("/triage", reply)
		r.Get("/triage/guidance/{level}", reply)
		r.Get("/er", reply)
	})
	return r
}

func spanAttr(s sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_SpanPerRoute(t *testing.T) {
	tests := []struct {
		method   string
		target   string
		wantName string
	}{
		{http.MethodGet, "/api/er?latitude=52.37&longitude=4.9", "GET /api/er"},
		{http.MethodPost, "/api/triage", "POST /api/triage"},
		{http.MethodGet, "/api/triage/guidance/yellow", "GET /api/triage/guidance/{level}"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			sr := installRecorder(t)

			rec := httptest.NewRecorder()
			apiRouter().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
			assert.NotEqual(t, http.StatusTeapot, rec.Code, "span missing from handler context")

			spans := sr.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.wantName, spans[0].Name())
			assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())

			svc, ok := spanAttr(spans[0], "service.name")
			require.True(t, ok)
			assert.Equal(t, "ai4care-api", svc.AsString())

			path, ok := spanAttr(spans[0], "url.path")
			require.True(t, ok)
			assert.Equal(t, strings.SplitN(tt.target, "?", 2)[0], path.AsString())
		})
	}
}

func TestTracing_ContinuesCallerTrace(t *testing.T) {
	sr := installRecorder(t)

	req := httptest.NewRequest(http.MethodPost, "/api/triage", strings.NewReader(`{}`))
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	apiRouter().ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())
}

func TestTracing_StatusAndErrorMarking(t *testing.T) {
	tests := []struct {
		name       string
		want       string
		wantStatus int64
		wantCode   codes.Code
	}{
		{"verdict returned", "", 200, codes.Unset},
		{"invalid symptom form", "400", 400, codes.Unset},
		{"model failure", "502", 502, codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := installRecorder(t)

			req := httptest.NewRequest(http.MethodPost, "/api/triage", nil)
			req.Header.Set("X-Want-Status", tt.want)
			apiRouter().ServeHTTP(httptest.NewRecorder(), req)

			spans := sr.Ended()
			require.Len(t, spans, 1)

			status, ok := spanAttr(spans[0], "http.status_code")
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, status.AsInt64())
			assert.Equal(t, tt.wantCode, spans[0].Status().Code)
		})
	}
}

func TestTracing_RouteAndRequestIDAttributes(t *testing.T) {
	sr := installRecorder(t)

	rec := httptest.NewRecorder()
	apiRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/triage/guidance/red", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)

	route, ok := spanAttr(spans[0], "http.route")
	require.True(t, ok)
	assert.Equal(t, "/api/triage/guidance/{level}", route.AsString())

	id, ok := spanAttr(spans[0], "request.id")
	require.True(t, ok)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), id.AsString())
	assert.True(t, strings.HasPrefix(id.AsString(), "req_"))
}
