package tracing

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

var sensitiveKeys = map[attribute.Key]struct{}{
	"customer_name":    {},
	"customer_contact": {},
	"email":            {},
	"password":         {},
}

// ExtractContext reads propagated trace headers into ctx.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// SafeAttributes drops attributes that could carry personal data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := sensitiveKeys[attr.Key]; ok {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError replaces err with a message-free error that keeps only its type
// name, so SQL fragments and customer values never reach the exporter.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(errorKind(err))
}

func errorKind(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return fmt.Sprintf("error:%T", err)
}
