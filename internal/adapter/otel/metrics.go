package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "taskbazaar"

// Metrics holds all TaskBazaar metric instruments.
type Metrics struct {
	TasksCreated   metric.Int64Counter
	BidsSubmitted  metric.Int64Counter
	TasksSettled   metric.Int64Counter
	Disputes       metric.Int64Counter
	Reconciliation metric.Int64Counter
	EscrowLocked   metric.Int64Histogram
	EscrowReleased metric.Int64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksCreated, err = meter.Int64Counter("taskbazaar.tasks.created",
		metric.WithDescription("Number of tasks created"))
	if err != nil {
		return nil, err
	}

	m.BidsSubmitted, err = meter.Int64Counter("taskbazaar.bids.submitted",
		metric.WithDescription("Number of bids submitted"))
	if err != nil {
		return nil, err
	}

	m.TasksSettled, err = meter.Int64Counter("taskbazaar.tasks.settled",
		metric.WithDescription("Number of tasks reaching a terminal status"))
	if err != nil {
		return nil, err
	}

	m.Disputes, err = meter.Int64Counter("taskbazaar.disputes",
		metric.WithDescription("Number of disputes filed"))
	if err != nil {
		return nil, err
	}

	m.Reconciliation, err = meter.Int64Counter("taskbazaar.reconciliation_needed",
		metric.WithDescription("Number of cross-service failures needing operator reconciliation"))
	if err != nil {
		return nil, err
	}

	m.EscrowLocked, err = meter.Int64Histogram("taskbazaar.escrow.locked",
		metric.WithDescription("Escrow amounts locked"))
	if err != nil {
		return nil, err
	}

	m.EscrowReleased, err = meter.Int64Histogram("taskbazaar.escrow.released",
		metric.WithDescription("Escrow amounts released or split"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
