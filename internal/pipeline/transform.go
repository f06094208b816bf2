package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/covid-projection-etl/internal/domain"
	"github.com/couchcryptid/covid-projection-etl/internal/observability"
)

// ProjectionTransformer implements Transformer by building a Projection from the
// request rows and serializing its summary.
type ProjectionTransformer struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates a ProjectionTransformer.
func NewTransformer(logger *slog.Logger, metrics *observability.Metrics) *ProjectionTransformer {
	return &ProjectionTransformer{
		logger:  logger,
		metrics: metrics,
	}
}

func (t *ProjectionTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseProjectionRequest(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	summary, err := t.Project(ctx, req)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	return domain.SerializeSummary(summary)
}

// Project builds the projection for a decoded request and returns its summary.
func (t *ProjectionTransformer) Project(_ context.Context, req domain.ProjectionRequest) (domain.ProjectionSummary, error) {
	p, err := domain.New(req.Rows, req.Params())
	if err != nil {
		return domain.ProjectionSummary{}, err
	}

	summary := domain.Summarize(req.Location, p)
	t.record(summary, len(req.Rows))

	if p.OverwhelmDegenerate {
		t.logger.Warn("overwhelm crossing is degenerate, using first observation date",
			"id", summary.ID,
			"location", req.Location.DisplayName(),
			"intervention", req.Intervention,
		)
	}
	t.logger.Debug("projection built",
		"id", summary.ID,
		"label", summary.Label,
		"rows", len(req.Rows),
		"alarm_level", summary.AlarmLevel,
	)
	return summary, nil
}

func (t *ProjectionTransformer) record(s domain.ProjectionSummary, rows int) {
	t.metrics.ProjectionRows.Observe(float64(rows))
	t.metrics.ProjectionsByAlarm.WithLabelValues(string(s.AlarmLevel)).Inc()

	outcome := "none"
	switch {
	case s.OverwhelmDegenerate:
		outcome = "degenerate"
	case s.DateOverwhelmed != nil:
		outcome = "interpolated"
	}
	t.metrics.OverwhelmEstimates.WithLabelValues(outcome).Inc()
}
