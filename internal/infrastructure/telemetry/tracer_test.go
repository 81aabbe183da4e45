package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, err := NewTracerProvider(ctx, Config{
		Enabled:           false,
		CollectorEndpoint: "localhost:4317",
		SamplingRatio:     1.0,
		ServiceName:       "ar-ledger",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, tp)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping exporter test in short mode")
	}

	original := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(original) })

	ctx := context.Background()
	tp, err := NewTracerProvider(ctx, Config{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "ar-ledger-test",
		Insecure:          true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, tp.IsEnabled())
	assert.Same(t, tp.provider, otel.GetTracerProvider())
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  string
	}{
		{"always", 1.0, "AlwaysOnSampler"},
		{"above one", 3, "AlwaysOnSampler"},
		{"never", 0, "AlwaysOffSampler"},
		{"negative", -1, "AlwaysOffSampler"},
		{"ratio", 0.25, "TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := newSampler(tt.ratio).Description()
			assert.Contains(t, desc, "ParentBased")
			assert.Contains(t, desc, tt.want)
		})
	}
}

func TestTracerProvider_ShutdownWithoutProvider(t *testing.T) {
	tp := &TracerProvider{logger: zaptest.NewLogger(t)}
	assert.NoError(t, tp.Shutdown(context.Background()))
	assert.False(t, tp.IsEnabled())
}

func TestTracerProvider_EnableSpanProfiles(t *testing.T) {
	disabled := &TracerProvider{logger: zaptest.NewLogger(t)}
	assert.False(t, disabled.EnableSpanProfiles())

	original := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(original) })

	tp := &TracerProvider{provider: sdktrace.NewTracerProvider(), logger: zaptest.NewLogger(t)}
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	assert.True(t, tp.EnableSpanProfiles())
	wrapped := otel.GetTracerProvider()
	assert.NotSame(t, tp.provider, wrapped)

	assert.True(t, tp.EnableSpanProfiles())
	assert.Same(t, wrapped, otel.GetTracerProvider())
}
