package pipeline

import (
	"context"
	"fmt"

	"github.com/sensorfusion/multiqueue/core"
)

// BarrierStage synchronizes multiple upstream branches and waits for
// all of them to report their stream erased before emitting a single
// consolidated StreamErasedEvent downstream.
type BarrierStage struct {
	name   string
	config *core.BarrierConfig
}

// NewBarrierStage creates a new barrier stage.
func NewBarrierStage(name string, config *core.BarrierConfig) *BarrierStage {
	return &BarrierStage{
		name:   name,
		config: config,
	}
}

// Name returns the stage name.
func (bs *BarrierStage) Name() string {
	return bs.name
}

// Process implements the Stage interface. It waits for all upstream
// branches to report completion (StreamErasedEvent) and emits a
// single consolidated StreamErasedEvent downstream.
func (bs *BarrierStage) Process(ctx context.Context, input <-chan core.TelemetryEvent, output chan<- core.TelemetryEvent) error {
	defer close(output)

	erasedCount := 0
	var firstError error
	errorOccurred := false

	for event := range input {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if errorEvent, ok := event.(core.ErrorEvent); ok {
			if !errorOccurred {
				firstError = errorEvent.Error
				errorOccurred = true
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case output <- event:
			}
			continue
		}

		if _, ok := event.(core.StreamErasedEvent); ok {
			erasedCount++
			// Don't forward branch-level erasures; we'll emit a
			// single consolidated one at the end.
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case output <- event:
		}
	}

	if errorOccurred {
		return firstError
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if erasedCount != bs.config.UpstreamCount {
		return fmt.Errorf("barrier expected %d erased branches, got %d", bs.config.UpstreamCount, erasedCount)
	}

	consolidated := core.StreamErasedEvent{Key: core.StreamKey{SensorID: bs.name}}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case output <- consolidated:
	}

	return nil
}
