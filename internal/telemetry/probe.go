package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jackzampolin/sourcecheck/internal/check"
)

const checkScopeName = "github.com/jackzampolin/sourcecheck/check"

// ProbeObserver counts probe outcomes in sourcecheck.probe.* metrics.
type ProbeObserver struct {
	probes  metric.Int64Counter
	respond metric.Float64Histogram
}

var _ check.Observer = (*ProbeObserver)(nil)

// NewProbeObserver creates a ProbeObserver on meter, or on the global meter
// when meter is nil.
func NewProbeObserver(meter metric.Meter) (*ProbeObserver, error) {
	if meter == nil {
		meter = Meter(checkScopeName)
	}
	probes, err := meter.Int64Counter("sourcecheck.probe.count",
		metric.WithDescription("Book sources checked, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: probe counter: %w", err)
	}
	respond, err := meter.Float64Histogram("sourcecheck.probe.respond_time",
		metric.WithDescription("Time to check one book source"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: respond histogram: %w", err)
	}
	return &ProbeObserver{probes: probes, respond: respond}, nil
}

// ObserveProbe implements check.Observer.
func (o *ProbeObserver) ObserveProbe(ctx context.Context, runID string, r check.Result) {
	kind := "ok"
	if r.Failure != nil {
		kind = r.Failure.Kind.String()
	}
	attrs := metric.WithAttributes(
		attribute.Bool("sourcecheck.success", r.Success()),
		attribute.String("sourcecheck.kind", kind),
	)
	o.probes.Add(ctx, 1, attrs)
	o.respond.Record(ctx, float64(r.RespondTime), attrs)
}
