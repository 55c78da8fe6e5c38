package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics bundles the counters the bot reports. Instruments resolve
// through the global meter provider, so a Metrics built before Setup
// still works and simply records nothing.
type Metrics struct {
	ExpensesRecorded metric.Int64Counter
	BillsScanned     metric.Int64Counter
	SignIns          metric.Int64Counter
	CommandDuration  metric.Float64Histogram
}

// NewMetrics creates the application instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(scopeName)

	expenses, err := meter.Int64Counter("fortuna.expenses.recorded",
		metric.WithDescription("Expenses saved through any surface"))
	if err != nil {
		return nil, fmt.Errorf("failed to create expense counter: %w", err)
	}

	bills, err := meter.Int64Counter("fortuna.bills.scanned",
		metric.WithDescription("Bill photos parsed into drafts"))
	if err != nil {
		return nil, fmt.Errorf("failed to create bill counter: %w", err)
	}

	signIns, err := meter.Int64Counter("fortuna.auth.signins",
		metric.WithDescription("Successful sign-ins"))
	if err != nil {
		return nil, fmt.Errorf("failed to create sign-in counter: %w", err)
	}

	duration, err := meter.Float64Histogram("fortuna.command.duration",
		metric.WithDescription("Bot command handling time"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &Metrics{
		ExpensesRecorded: expenses,
		BillsScanned:     bills,
		SignIns:          signIns,
		CommandDuration:  duration,
	}, nil
}
