package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/familynest/backend/internal/domain/family"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs a recording tracer provider for the test
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: false, ServiceName: "nest-test"}))
	router.GET("/test", okHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_EnrichesAndMarksErrors(t *testing.T) {
	sr := setupTestTracer(t)
	membership := family.Membership{MemberID: uuid.New(), FamilyID: uuid.New(), Role: family.RoleAdult}

	router := gin.New()
	router.Use(RequestID(), Tracing(TracingConfig{Enabled: true, ServiceName: "nest-test", SkipPaths: []string{"/health"}}), SpanErrorMarker())
	router.Use(func(c *gin.Context) {
		c.Set(MembershipKey, membership)
		c.Next()
	}, SpanEnricher())
	router.GET("/health", okHandler)
	router.GET("/api/v1/capsules/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, sr.Ended(), "health probes are not traced")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/capsules/"+uuid.NewString(), nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Contains(t, span.Name(), "/api/v1/capsules/:id")
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "Not Found", span.Status().Description)

	v, ok := spanAttr(span, "family_id")
	require.True(t, ok)
	assert.Equal(t, membership.FamilyID.String(), v.AsString())
	v, ok = spanAttr(span, "request_id")
	require.True(t, ok)
	assert.Equal(t, w.Header().Get(RequestIDHeader), v.AsString())
}

func TestStatusDescription(t *testing.T) {
	assert.Equal(t, "Internal Server Error", statusDescription(http.StatusBadGateway))
	assert.Equal(t, "Unauthorized", statusDescription(http.StatusUnauthorized))
	assert.Equal(t, "Forbidden", statusDescription(http.StatusForbidden))
	assert.Equal(t, "Client Error", statusDescription(http.StatusConflict))
}
