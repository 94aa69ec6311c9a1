package pipeline

import (
	"context"

	"github.com/sensorfusion/multiqueue/core"
)

// MockStage is a minimal no-op stage used across this package's
// tests to exercise routing without depending on a real downstream
// consumer.
type MockStage struct {
	name string
}

func (m *MockStage) Name() string {
	return m.name
}

func (m *MockStage) Process(ctx context.Context, input <-chan core.TelemetryEvent, output chan<- core.TelemetryEvent) error {
	for event := range input {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case output <- event:
		}
	}
	return nil
}
