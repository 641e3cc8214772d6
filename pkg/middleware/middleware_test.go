package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/richxcame/scooter-ride/pkg/httpclient"
	"github.com/richxcame/scooter-ride/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCorrelationID(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/ping", func(c *gin.Context) {
		assert.Equal(t, GetCorrelationID(c), logger.CorrelationIDFromContext(c.Request.Context()))
		c.String(http.StatusOK, GetCorrelationID(c))
	})

	t.Run("keeps a valid caller id", func(t *testing.T) {
		id := uuid.New().String()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(httpclient.CorrelationIDHeader, id)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, id, w.Body.String())
		assert.Equal(t, id, w.Header().Get(httpclient.CorrelationIDHeader))
	})

	t.Run("replaces a malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(httpclient.CorrelationIDHeader, "not-a-uuid")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		got := w.Header().Get(httpclient.CorrelationIDHeader)
		assert.NotEqual(t, "not-a-uuid", got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
	})
}

func TestCORSPreflight(t *testing.T) {
	router := gin.New()
	router.Use(CORS("http://console.local, http://localhost:5173"))
	router.POST("/api/v1/ride/end", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ride/end", nil)
	req.Header.Set("Origin", "http://console.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://console.local", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	router := gin.New()
	router.Use(CORS(""))
	router.GET("/api/v1/ride", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ride", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitOrigins(" a , ,b"))
	assert.Equal(t, []string{"http://localhost:3000"}, splitOrigins(" "))
}

func TestRequestTimeout(t *testing.T) {
	t.Run("fast handler passes through", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestTimeout(time.Second))
		router.GET("/fast", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-Timeout"))
	})

	t.Run("slow handler gets a 504", func(t *testing.T) {
		if testing.Short() {
			t.Skip("timing dependent")
		}
		router := gin.New()
		router.Use(RequestTimeout(50 * time.Millisecond))
		router.GET("/slow", func(c *gin.Context) {
			time.Sleep(300 * time.Millisecond)
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Contains(t, w.Body.String(), "Request timeout")
		assert.Equal(t, "true", w.Header().Get("X-Timeout"))
	})
}

func TestRequestLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	restore := logger.SetForTest(zap.New(core))
	defer restore()

	router := gin.New()
	router.Use(RequestLogger("ridesim"))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/broken", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusBadGateway)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok?x=1", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/broken", nil))

	entries := recorded.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Request completed", entries[0].Message)
	assert.Equal(t, "x=1", entries[0].ContextMap()["query"])
	assert.Equal(t, "Request completed with errors", entries[1].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestRequestLoggerCarriesTraceID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	restore := logger.SetForTest(zap.New(core))
	defer restore()

	spans := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)))
	defer otel.SetTracerProvider(previous)

	router := gin.New()
	router.Use(RequestLogger("ridesim"), TracingMiddleware("ridesim"))
	router.GET("/ride", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ride", nil))

	ended := spans.Ended()
	require.Len(t, ended, 1)
	traceID := ended[0].SpanContext().TraceID().String()
	assert.Equal(t, traceID, w.Header().Get("X-Trace-ID"))

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, traceID, entries[0].ContextMap()["trace_id"])
}

func TestRecoveryWithSentry(t *testing.T) {
	router := gin.New()
	router.Use(RecoveryWithSentry())
	router.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestTracingMiddlewareKeepsStatus(t *testing.T) {
	router := gin.New()
	router.Use(TracingMiddleware("ridesim"))
	router.GET("/api/v1/zones", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/zones", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestErrorHandlerPassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("upstream down"))
		c.Status(http.StatusBadGateway)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
