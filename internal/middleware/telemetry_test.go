package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func tracedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	router := gin.New()
	router.Use(otelgin.Middleware("lifemetrics-test",
		otelgin.WithTracerProvider(tp),
		otelgin.WithFilter(SkipHealthChecks),
	))
	router.Use(RequestID())
	return router, recorder
}

func spanAttribute(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRequestID(t *testing.T) {
	t.Run("assigns a new id", func(t *testing.T) {
		router, recorder := tracedRouter(t)
		var seen string
		router.GET("/test", func(c *gin.Context) {
			seen = GetRequestID(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		value, ok := spanAttribute(spans[0], "http.request_id")
		require.True(t, ok)
		assert.Equal(t, seen, value.AsString())
	})

	t.Run("propagates the incoming id", func(t *testing.T) {
		router, _ := tracedRouter(t)
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-123", w.Body.String())
		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	})
}

func TestSkipHealthChecks(t *testing.T) {
	router, recorder := tracedRouter(t)
	for _, path := range []string{"/health", "/ready", "/live"} {
		router.GET(path, func(c *gin.Context) { c.Status(http.StatusOK) })
	}
	router.GET("/api/v1/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/health", "/ready", "/live", "/api/v1/ping"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	assert.Len(t, recorder.Ended(), 1, "only the API request is traced")
}

func TestRecordError(t *testing.T) {
	router, recorder := tracedRouter(t)
	router.GET("/fail", func(c *gin.Context) {
		RecordError(c, errors.New("boom"), "insight generation failed")
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestRecordError_NonRecordingSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/fail", func(c *gin.Context) {
		assert.NotPanics(t, func() {
			RecordError(c, errors.New("boom"), "failed")
			AddSpanAttribute(c, "key", "value")
		})
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAddSpanAttribute(t *testing.T) {
	router, recorder := tracedRouter(t)
	router.GET("/attrs", func(c *gin.Context) {
		AddSpanAttribute(c, "attr.string", "value")
		AddSpanAttribute(c, "attr.int", 42)
		AddSpanAttribute(c, "attr.int64", int64(7))
		AddSpanAttribute(c, "attr.float", 0.5)
		AddSpanAttribute(c, "attr.bool", true)
		AddSpanAttribute(c, "attr.other", []int{1, 2})
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attrs", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	tests := []struct {
		key  string
		want interface{}
	}{
		{"attr.string", "value"},
		{"attr.int", int64(42)},
		{"attr.int64", int64(7)},
		{"attr.float", 0.5},
		{"attr.bool", true},
		{"attr.other", "[1 2]"},
	}
	for _, tt := range tests {
		value, ok := spanAttribute(spans[0], tt.key)
		require.True(t, ok, tt.key)
		assert.Equal(t, tt.want, value.AsInterface(), tt.key)
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger))
	router.GET("/api/v1/users/:user_id/insights", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/user-1/insights", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, "/api/v1/users/:user_id/insights", entry["path"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
	assert.Equal(t, "warning", entry["level"])
}
