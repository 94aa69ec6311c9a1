package ingest

import (
	"context"

	"github.com/sensorfusion/multiqueue/core"
	"github.com/sensorfusion/multiqueue/telemetry"
)

// branchStage is the shared shape of every downstream consumer branch
// in the default pipeline: forward everything the merger emits except
// per-stream erasures, and once the upstream channel closes, signal
// this branch's own completion with a single StreamErasedEvent scoped
// to the branch's own name — the barrier counts exactly one such event
// per branch, not one per underlying sensor stream.
type branchStage struct {
	name    string
	observe func(core.TelemetryEvent)
}

func (b *branchStage) Name() string { return b.name }

func (b *branchStage) Process(ctx context.Context, input <-chan core.TelemetryEvent, output chan<- core.TelemetryEvent) error {
	for event := range input {
		if b.observe != nil {
			b.observe(event)
		}
		if _, ok := event.(core.StreamErasedEvent); ok {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case output <- event:
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case output <- core.StreamErasedEvent{Key: core.StreamKey{SensorID: b.name}}:
	}
	return nil
}

// newModalityStage builds the reference consumer branch for one
// sensor modality: it tallies dispatched and dropped items for
// streams of that modality and logs a running count, standing in for
// the modality-specific front-end a real SLAM pipeline would run here
// (point-cloud accumulation for lidar, pose integration for odometry,
// preintegration for IMU) behind the same Stage interface.
func newModalityStage(modality core.Modality, logger telemetry.Logger) *branchStage {
	log := logger.WithModule("ingest." + string(modality))
	dispatched, dropped := 0, 0
	return &branchStage{
		name: string(modality),
		observe: func(event core.TelemetryEvent) {
			switch e := event.(type) {
			case core.ItemDispatchedEvent:
				dispatched++
				if dispatched%1000 == 0 {
					log.Debug("items processed", telemetry.Int("dispatched_total", dispatched))
				}
			case core.ItemDroppedEvent:
				dropped++
				log.Debug("item dropped", telemetry.Int("dropped_total", dropped), telemetry.String("reason", e.Reason))
			}
		},
	}
}
