package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "swarmpilot"

// Metrics holds all SwarmPilot metric instruments.
type Metrics struct {
	EventsRouted    metric.Int64Counter
	DecisionsMade   metric.Int64Counter
	AutoResolved    metric.Int64Counter
	Escalations     metric.Int64Counter
	OracleFailures  metric.Int64Counter
	DroppedInFlight metric.Int64Counter
	OracleLatency   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.EventsRouted, err = meter.Int64Counter("swarmpilot.events.routed",
		metric.WithDescription("Session events dispatched by the router"))
	if err != nil {
		return nil, err
	}

	m.DecisionsMade, err = meter.Int64Counter("swarmpilot.decisions",
		metric.WithDescription("Coordination decisions appended to task history"))
	if err != nil {
		return nil, err
	}

	m.AutoResolved, err = meter.Int64Counter("swarmpilot.auto_resolved",
		metric.WithDescription("Blocked events answered by the rule-based pre-filter"))
	if err != nil {
		return nil, err
	}

	m.Escalations, err = meter.Int64Counter("swarmpilot.escalations",
		metric.WithDescription("Decisions escalated to a human"))
	if err != nil {
		return nil, err
	}

	m.OracleFailures, err = meter.Int64Counter("swarmpilot.oracle.failures",
		metric.WithDescription("Oracle calls that failed or returned unparsable output"))
	if err != nil {
		return nil, err
	}

	m.DroppedInFlight, err = meter.Int64Counter("swarmpilot.decisions.dropped_in_flight",
		metric.WithDescription("Events dropped because a decision was already in flight for the session"))
	if err != nil {
		return nil, err
	}

	m.OracleLatency, err = meter.Float64Histogram("swarmpilot.oracle.latency_seconds",
		metric.WithDescription("Oracle call latency in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
