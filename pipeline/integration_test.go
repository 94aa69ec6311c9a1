package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/sensorfusion/multiqueue/core"
	"github.com/sensorfusion/multiqueue/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passthroughStage forwards every event it receives, recording what
// passed through for later assertion, and once its input closes
// reports its own completion with one StreamErasedEvent scoped to its
// name, the signal the barrier counts per branch.
type passthroughStage struct {
	name string
	seen []core.TelemetryEvent
}

func (s *passthroughStage) Name() string { return s.name }

func (s *passthroughStage) Process(ctx context.Context, input <-chan core.TelemetryEvent, output chan<- core.TelemetryEvent) error {
	for event := range input {
		s.seen = append(s.seen, event)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case output <- event:
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case output <- core.StreamErasedEvent{Key: core.StreamKey{SensorID: s.name}}:
	}
	return nil
}

// TestPipelineFanOutThenBarrierEndToEnd exercises the only topology
// the ingest service actually builds: a per-modality fan-out rejoined
// by a barrier once every modality branch reports its stream erased.
func TestPipelineFanOutThenBarrierEndToEnd(t *testing.T) {
	lidar := &passthroughStage{name: "lidar"}
	odometry := &passthroughStage{name: "odometry"}

	fanOutConfig := &core.FanOutConfig{
		ErrorPolicy: core.ErrorPolicyCancelAll,
		Branches: []core.BranchConfig{
			{Stage: lidar, Modality: core.ModalityLidar},
			{Stage: odometry, Modality: core.ModalityOdometry},
		},
	}
	barrier := pipeline.NewBarrierStage("barrier", &core.BarrierConfig{
		UpstreamCount: 2,
		MergeStrategy: core.MergeStrategyCollect,
	})

	built := pipeline.New(fanOutConfig, barrier)

	input := make(chan core.TelemetryEvent, 10)
	lidarKey := core.StreamKey{TrajectoryID: 1, SensorID: "lidar-left"}
	odometryKey := core.StreamKey{TrajectoryID: 1, SensorID: "wheel-odom"}
	go func() {
		input <- core.StreamRegisteredEvent{Key: lidarKey, Modality: core.ModalityLidar}
		input <- core.StreamRegisteredEvent{Key: odometryKey, Modality: core.ModalityOdometry}
		input <- core.ItemDispatchedEvent{Key: lidarKey, Timestamp: 1}
		input <- core.ItemDispatchedEvent{Key: odometryKey, Timestamp: 1}
		close(input)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var events []core.TelemetryEvent
	for event := range built.Execute(ctx, input) {
		events = append(events, event)
	}

	require.NotEmpty(t, events)
	assert.Len(t, lidar.seen, 2, "lidar branch should only see its own registration and dispatch")
	assert.Len(t, odometry.seen, 2, "odometry branch should only see its own registration and dispatch")

	var sawConsolidatedErasure bool
	for _, event := range events {
		if erased, ok := event.(core.StreamErasedEvent); ok && erased.Key == (core.StreamKey{SensorID: "barrier"}) {
			sawConsolidatedErasure = true
		}
	}
	assert.True(t, sawConsolidatedErasure, "expected the barrier's single consolidated erasure once both branches drained")
}
