package tracing

import (
	"fmt"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

type dbError struct{ msg string }

func (e *dbError) Error() string { return e.msg }

func TestSafeAttributesDropsPersonalData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/cases"),
		attribute.String("customer_contact", "090-0000-0000"),
	)
	if len(attrs) != 1 || attrs[0].Key != "http.route" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
}

func TestSafeErrorHidesMessage(t *testing.T) {
	err := fmt.Errorf("list cases: %w", &dbError{msg: "customer_name = 'Tanaka'"})
	safe := SafeError(err)
	if strings.Contains(safe.Error(), "Tanaka") {
		t.Fatalf("message leaked: %s", safe)
	}
	if !strings.Contains(safe.Error(), "dbError") {
		t.Fatalf("expected type name, got %s", safe)
	}
	if SafeError(nil) != nil {
		t.Fatalf("expected nil")
	}
}
