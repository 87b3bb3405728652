package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("org_id", "123"),
		attribute.String("customer_name", "Tanaka"),
		attribute.String("endpoint", "list"),
	)
	if len(attrs) != 1 {
		t.Fatalf("expected 1 attribute, got %d", len(attrs))
	}
	if attrs[0].Key != "endpoint" {
		t.Fatalf("expected endpoint to be retained, got %s", attrs[0].Key)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordCaseCreated(context.Background(), "INTAKE")
	m.RecordCaseList(context.Background(), "list", 3)
}

func TestNewOnNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordCaseList(context.Background(), "export", 2)
	m.RecordAttachmentUploaded(context.Background(), "image/png")
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m, err := newHTTPMetrics(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/cases/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cases/abc", nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/cases/:id", "404"))
	if got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}

	again, err := newHTTPMetrics(reg)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if again.requests != m.requests {
		t.Fatalf("expected existing collector to be reused")
	}
}
