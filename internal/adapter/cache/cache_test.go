package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/covid-projection-etl/internal/domain"
	"github.com/couchcryptid/covid-projection-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingTransformer struct {
	calls int
	err   error
}

func (m *countingTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	m.calls++
	if m.err != nil {
		return domain.OutputEvent{}, m.err
	}
	return domain.OutputEvent{Key: raw.Key, Value: append([]byte("summary:"), raw.Value...)}, nil
}

func raw(value string) domain.RawEvent {
	return domain.RawEvent{Key: []byte("k"), Value: []byte(value)}
}

// --- CachedTransformer tests ---

func TestCachedTransformer_Hit(t *testing.T) {
	inner := &countingTransformer{}
	metrics := observability.NewMetricsForTesting()
	cached, err := NewCachedTransformer(inner, 10, metrics)
	require.NoError(t, err)

	out1, err := cached.Transform(context.Background(), raw(`{"rows":[]}`))
	require.NoError(t, err)
	out2, err := cached.Transform(context.Background(), raw(`{"rows":[]}`))
	require.NoError(t, err)

	assert.Equal(t, out1, out2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ProjectionCache.WithLabelValues("hit")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ProjectionCache.WithLabelValues("miss")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ProjectionCacheSize), 1e-9)
}

func TestCachedTransformer_DistinctPayloads(t *testing.T) {
	inner := &countingTransformer{}
	cached, err := NewCachedTransformer(inner, 10, observability.NewMetricsForTesting())
	require.NoError(t, err)

	_, err = cached.Transform(context.Background(), raw("a"))
	require.NoError(t, err)
	_, err = cached.Transform(context.Background(), raw("b"))
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2, cached.Len())
}

func TestCachedTransformer_ErrorsNotCached(t *testing.T) {
	inner := &countingTransformer{err: errors.New("bad rows")}
	cached, err := NewCachedTransformer(inner, 10, observability.NewMetricsForTesting())
	require.NoError(t, err)

	_, err = cached.Transform(context.Background(), raw("a"))
	require.Error(t, err)
	_, err = cached.Transform(context.Background(), raw("a"))
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cached.Len())
}

func TestCachedTransformer_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := &countingTransformer{}
	cached, err := NewCachedTransformer(inner, 2, observability.NewMetricsForTesting())
	require.NoError(t, err)

	ctx := context.Background()
	for _, v := range []string{"a", "b", "a", "c", "a", "b"} {
		_, err := cached.Transform(ctx, raw(v))
		require.NoError(t, err)
	}

	// a, b miss; a hit; c miss evicts b; a hit; b miss evicts c.
	assert.Equal(t, 4, inner.calls)
	assert.Equal(t, 2, cached.Len())
}

func TestNewCachedTransformer_InvalidSize(t *testing.T) {
	_, err := NewCachedTransformer(&countingTransformer{}, 0, observability.NewMetricsForTesting())
	assert.Error(t, err)
}
