package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresServerAddress(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{
		Enabled:         true,
		ApplicationName: "ar-ledger",
	}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNewProfiler_RejectsUnknownProfileType(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{
		Enabled:         true,
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "ar-ledger",
		ProfileTypes:    []string{"cpu", "heap"},
	}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"heap"`)
}

func TestResolveProfileTypes(t *testing.T) {
	types, err := resolveProfileTypes([]string{"cpu", "mutex", "block"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileMutexCount,
		pyroscope.ProfileMutexDuration,
		pyroscope.ProfileBlockCount,
		pyroscope.ProfileBlockDuration,
	}, types)

	types, err = resolveProfileTypes(nil)
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestWithProfilingLabels(t *testing.T) {
	labels := map[string]string{
		ProfilingLabelRoute:  "/api/v1/payments",
		ProfilingLabelMethod: "POST",
		"customer_id":        "42",
		"empty":              "",
	}

	called := false
	WithProfilingLabels(context.Background(), labels, func(ctx context.Context) {
		called = true
		route, ok := pprof.Label(ctx, ProfilingLabelRoute)
		assert.True(t, ok)
		assert.Equal(t, "/api/v1/payments", route)

		_, ok = pprof.Label(ctx, "customer_id")
		assert.False(t, ok)
		_, ok = pprof.Label(ctx, "empty")
		assert.False(t, ok)
	})
	assert.True(t, called)
}

func TestWithProfilingLabels_NoLabels(t *testing.T) {
	ctx := context.Background()
	WithProfilingLabels(ctx, nil, func(got context.Context) {
		assert.Equal(t, ctx, got)
	})
}

func TestSanitizeLabels(t *testing.T) {
	long := strings.Repeat("x", MaxLabelValueLength+20)
	pairs := sanitizeLabels(map[string]string{
		"route":      long,
		"method":     "GET",
		"payment_id": "7",
	})
	require.Len(t, pairs, 4)
	assert.Equal(t, "method", pairs[0])
	assert.Equal(t, "GET", pairs[1])
	assert.Equal(t, "route", pairs[2])
	assert.Len(t, pairs[3], MaxLabelValueLength)
}
