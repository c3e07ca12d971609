package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(kvs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "LedgerService", "RecordPayment",
		telemetry.WithSpanKind(trace.SpanKindServer),
		telemetry.WithAttribute(telemetry.SpanAttrPurpose, "MONTHLY_RENT"),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "LedgerService.RecordPayment", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, "MONTHLY_RENT", attrMap(spans[0].Attributes())[telemetry.SpanAttrPurpose])
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	tenancyID := uuid.New()

	_, span := telemetry.StartSpan(context.Background(), "ledger.balance")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenancyID, tenancyID,
		telemetry.SpanAttrAmountMinor, int64(500000),
		telemetry.SpanAttrIdempotent, true,
		telemetry.SpanAttrBillingMonths, []string{"2025-01", "2025-02"},
		42, "ignored non-string key",
		"dangling",
	)
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Equal(t, tenancyID.String(), attrs[telemetry.SpanAttrTenancyID])
	assert.Equal(t, "500000", attrs[telemetry.SpanAttrAmountMinor])
	assert.Equal(t, "true", attrs[telemetry.SpanAttrIdempotent])
	assert.Equal(t, `["2025-01","2025-02"]`, attrs[telemetry.SpanAttrBillingMonths])
	assert.NotContains(t, attrs, "dangling")
	assert.Len(t, attrs, 4)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.refund")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("payment not refundable"))
	span.End()

	s := sr.Ended()[0]
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "payment not refundable", s.Status().Description)
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "exception", s.Events()[0].Name)
}

func TestAddEventAndIDs(t *testing.T) {
	sr := setupTestTracer(t)

	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))

	ctx, span := telemetry.StartSpan(context.Background(), "ledger.record")
	telemetry.AddEvent(span, "idempotency_hit", telemetry.SpanAttrTransactionID, "TXN-1")
	assert.Len(t, telemetry.GetTraceID(ctx), 32)
	assert.Len(t, telemetry.GetSpanID(ctx), 16)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "TXN-1", attrMap(events[0].Attributes)[telemetry.SpanAttrTransactionID])
}

func TestNilSpanHelpersAreSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.AddEvent(nil, "e")
	})
}
