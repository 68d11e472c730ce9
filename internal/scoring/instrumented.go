package scoring

import (
	"context"

	"rezscan/internal/observability"
	"rezscan/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// instrumented records spans and metrics around every call to a Scorer
type instrumented struct {
	next Scorer
	om   *observability.ObservabilityManager
}

// Instrument wraps s so that calls are traced and counted by om.
// A nil om returns s unchanged.
func Instrument(s Scorer, om *observability.ObservabilityManager) Scorer {
	if om == nil {
		return s
	}
	return &instrumented{next: s, om: om}
}

func (i *instrumented) Match(ctx context.Context, req Request) (*types.MatchResponse, error) {
	var resp *types.MatchResponse
	err := i.om.TrackScoringOperation(ctx, "match", func(ctx context.Context) error {
		var err error
		resp, err = i.next.Match(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	i.om.RecordBusinessMetric(ctx, observability.MetricMatchesReceived, int64(len(resp.Matches)),
		attribute.String("similarity_metric", resp.SimilarityMetric))
	return resp, nil
}

func (i *instrumented) Health(ctx context.Context) (*types.HealthStatus, error) {
	var status *types.HealthStatus
	err := i.om.TrackScoringOperation(ctx, "health", func(ctx context.Context) error {
		var err error
		status, err = i.next.Health(ctx)
		return err
	})
	return status, err
}
