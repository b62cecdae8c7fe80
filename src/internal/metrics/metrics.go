package metrics

import "time"

// Collector records ledger operation outcomes and store health.
type Collector interface {
	RecordOperation(operation string, outcome string, duration time.Duration)
	RecordCircuitState(name string, state CircuitState)
}

type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector discards everything.
type NoOpCollector struct{}

func (NoOpCollector) RecordOperation(operation string, outcome string, duration time.Duration) {}

func (NoOpCollector) RecordCircuitState(name string, state CircuitState) {}
