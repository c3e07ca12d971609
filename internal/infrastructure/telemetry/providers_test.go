package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetup_AllDisabled(t *testing.T) {
	p, err := Setup(context.Background(), ExportConfig{ServiceName: "rentledger"}, zap.NewNop())
	require.NoError(t, err)

	assert.Nil(t, p.Meter("rentledger"))
	base := zap.NewNop()
	assert.Same(t, base, p.Bridge(base, "rentledger", zapcore.InfoLevel))
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNilProviders(t *testing.T) {
	var p *Providers
	assert.Nil(t, p.Meter("x"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewResource(t *testing.T) {
	res, err := NewResource("rentledger", "")
	require.NoError(t, err)

	values := map[string]string{}
	for _, kv := range res.Attributes() {
		values[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "rentledger", values[string(semconv.ServiceNameKey)])
	assert.Equal(t, "dev", values[string(semconv.ServiceVersionKey)])
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1.0, sdktrace.AlwaysSample().Description()},
		{2.0, sdktrace.AlwaysSample().Description()},
		{0, sdktrace.NeverSample().Description()},
		{-1, sdktrace.NeverSample().Description()},
		{0.25, sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.25)).Description()},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewSampler(tt.ratio).Description())
	}
}

type memoryExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.records))
	for _, r := range e.records {
		out = append(out, r.Body().AsString())
	}
	return out
}

func TestBridge_FiltersBelowLevel(t *testing.T) {
	exp := &memoryExporter{}
	p := &Providers{
		logs: sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp))),
		log:  zap.NewNop(),
	}

	core, observed := observer.New(zapcore.DebugLevel)
	log := p.Bridge(zap.New(core), "rentledger", zapcore.InfoLevel).With(zap.String("tenancy_id", "t-1"))

	log.Debug("lock acquired")
	log.Info("payment recorded", zap.String("transaction_id", "TXN-1"))
	require.NoError(t, p.ForceFlush(context.Background()))

	assert.Equal(t, 2, observed.Len(), "base core keeps every level")
	assert.Equal(t, []string{"payment recorded"}, exp.bodies())
	assert.NoError(t, p.Shutdown(context.Background()))
}
