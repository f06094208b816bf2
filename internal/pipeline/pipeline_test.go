package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/covid-projection-etl/internal/domain"
	"github.com/couchcryptid/covid-projection-etl/internal/observability"
	"github.com/couchcryptid/covid-projection-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	events []domain.RawEvent
	calls  atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	if m.calls.Add(1) == 1 && len(m.events) > 0 {
		return m.events[:min(batchSize, len(m.events))], nil
	}
	// block until context cancelled to simulate waiting for messages
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.err != nil {
		return domain.OutputEvent{}, m.err
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	err    error
	loaded []domain.OutputEvent
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := makeRawEvent(t, "MD", []int{80, 120})

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 50)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, raw.Value, ldr.loaded[0].Value)
	assert.True(t, p.Ready())
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.MessagesConsumed), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.MessagesProduced), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning), 1e-9)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorSkipsAndCommits(t *testing.T) {
	var committed atomic.Bool
	raw := makeRawEvent(t, "MD", []int{1})
	raw.Commit = func(_ context.Context) error {
		committed.Store(true)
		return nil
	}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{err: errors.New("bad rows")}, ldr, discardLogger(), metrics, 50)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.loaded)
	assert.False(t, p.Ready())
	assert.True(t, committed.Load(), "poison pill offset should be committed")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.TransformErrors), 1e-9)
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var commits atomic.Int64
	events := make([]domain.RawEvent, 3)
	for i := range events {
		events[i] = makeRawEvent(t, "VA", []int{i})
		events[i].Commit = func(_ context.Context) error {
			commits.Add(1)
			return nil
		}
	}

	ext := &mockExtractor{events: events}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 50)
	runFor(t, p, 300*time.Millisecond)

	assert.Len(t, ldr.loaded, 3)
	assert.Equal(t, int64(3), commits.Load())
}

func TestPipeline_Run_LoadErrorDoesNotCommit(t *testing.T) {
	var committed atomic.Bool
	raw := makeRawEvent(t, "MD", []int{1})
	raw.Commit = func(_ context.Context) error {
		committed.Store(true)
		return nil
	}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	ldr := &mockLoader{err: errors.New("broker unavailable")}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 50)
	runFor(t, p, 400*time.Millisecond)

	assert.Empty(t, ldr.loaded)
	assert.False(t, committed.Load())
	assert.False(t, p.Ready())
}

func TestProjectionTransformer_Transform(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2020, time.April, 10, 6, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(discardLogger(), metrics)

	out, err := tfm.Transform(context.Background(), makeRawEvent(t, "MD", []int{80, 120}))
	require.NoError(t, err)
	assert.Equal(t, "unknown", out.Headers["alarm_level"])
	assert.Equal(t, "2020-04-10T06:00:00Z", out.Headers["processed_at"])

	var summary domain.ProjectionSummary
	require.NoError(t, json.Unmarshal(out.Value, &summary))
	assert.Equal(t, string(out.Key), summary.ID)
	assert.Equal(t, "2 Months of Stay Home", summary.Label)
	require.NotNil(t, summary.DateOverwhelmed)
	assert.Equal(t, time.Date(2020, time.April, 3, 0, 0, 0, 0, time.UTC), *summary.DateOverwhelmed)

	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ProjectionsByAlarm.WithLabelValues("unknown")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.OverwhelmEstimates.WithLabelValues("interpolated")), 1e-9)
}

func TestProjectionTransformer_DegenerateOverwhelm(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(discardLogger(), metrics)

	_, err := tfm.Transform(context.Background(), makeRawEvent(t, "MD", []int{150, 200}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.OverwhelmEstimates.WithLabelValues("degenerate")), 1e-9)
}

func TestProjectionTransformer_Errors(t *testing.T) {
	tfm := pipeline.NewTransformer(discardLogger(), observability.NewMetricsForTesting())

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte("not json")})
		assert.Error(t, err)
	})

	t.Run("no rows", func(t *testing.T) {
		_, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte(`{"intervention":"Stay Home","rows":[]}`)})
		assert.ErrorIs(t, err, domain.ErrNoRows)
	})
}

// --- helpers ---

// makeRawEvent builds a projection request with one row per hospitalization value,
// four days apart from 2020-04-01, against a constant 100 beds.
func makeRawEvent(t *testing.T, state string, hospitalizations []int) domain.RawEvent {
	t.Helper()
	start := time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC)
	rows := make([][]domain.Cell, len(hospitalizations))
	for i, h := range hospitalizations {
		row := make([]domain.Cell, 18)
		row[domain.Schema.Date] = start.AddDate(0, 0, 4*i).Format("2006-01-02")
		row[domain.Schema.Hospitalizations] = h
		row[domain.Schema.Beds] = "100"
		row[domain.Schema.Infected] = "1,000"
		row[domain.Schema.TotalPopulation] = "6,045,680"
		rows[i] = row
	}
	data, err := json.Marshal(domain.ProjectionRequest{
		Location:     domain.Location{StateCode: state},
		Intervention: "Stay Home",
		DurationDays: 60,
		Rows:         rows,
	})
	require.NoError(t, err)
	return domain.RawEvent{
		Key:   []byte(state),
		Value: data,
	}
}
