package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey     contextKey = "logger"
	requestIDKey  contextKey = "request_id"
	operatorIDKey contextKey = "operator_id"
	tenancyIDKey  contextKey = "tenancy_id"
)

// WithContext attaches l to ctx.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the attached logger, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID records the request id for correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithOperatorID records who is acting (the JWT subject).
func WithOperatorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operatorIDKey, id)
}

// WithTenancyID records the tenancy a request operates on.
func WithTenancyID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tenancyIDKey, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string { return stringValue(ctx, requestIDKey) }

// OperatorID returns the operator id stored in ctx, if any.
func OperatorID(ctx context.Context) string { return stringValue(ctx, operatorIDKey) }

// TenancyID returns the tenancy id stored in ctx, if any.
func TenancyID(ctx context.Context) string { return stringValue(ctx, tenancyIDKey) }

func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// Fields returns the correlation fields present in ctx: trace and span ids
// from the active span, then request, operator and tenancy ids.
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	for _, kv := range []struct {
		name  string
		value string
	}{
		{"request_id", RequestID(ctx)},
		{"operator_id", OperatorID(ctx)},
		{"tenancy_id", TenancyID(ctx)},
	} {
		if kv.value != "" {
			fields = append(fields, zap.String(kv.name, kv.value))
		}
	}
	return fields
}

// L returns the context logger enriched with the correlation fields.
//
//	logger.L(ctx).Info("payment recorded", zap.String("transaction_id", id))
func L(ctx context.Context) *zap.Logger {
	return With(ctx, FromContext(ctx))
}

// With enriches base with the correlation fields of ctx.
func With(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if fields := Fields(ctx); len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}
