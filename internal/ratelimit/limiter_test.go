package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/lepinkainen/bookfinder/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestEveryBurstThenBlocks(t *testing.T) {
	l := Every("nyt", time.Hour, 2)

	require.True(t, l.Allow())
	require.True(t, l.Allow())
	require.False(t, l.Allow())
	require.Equal(t, "nyt", l.Name())
}

func TestWaitHonoursContext(t *testing.T) {
	l := Every("slow", time.Hour, 1)
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limit wait for slow")
}

func TestUnlimitedNeverBlocks(t *testing.T) {
	l := Unlimited("test")
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
}

func TestNewAllowsBurstOfRate(t *testing.T) {
	l := New("openlibrary", 3)
	for i := 0; i < 3; i++ {
		require.True(t, l.Allow())
	}
	require.False(t, l.Allow())
}

func TestEveryClampsBurst(t *testing.T) {
	l := Every("zero", time.Hour, 0)
	require.True(t, l.Allow())
	require.False(t, l.Allow())
}

func TestWaitRecordsMetric(t *testing.T) {
	l := Unlimited("metric-test")
	require.NoError(t, l.Wait(context.Background()))
	require.NoError(t, l.Wait(context.Background()))

	var m dto.Metric
	require.NoError(t, metrics.RateLimitWait.WithLabelValues("metric-test").(prometheus.Metric).Write(&m))
	require.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
}
