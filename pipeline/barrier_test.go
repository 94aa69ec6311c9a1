package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sensorfusion/multiqueue/core"
	"pgregory.net/rapid"
)

func dispatchedEvent(traj int, sensor string, ts core.Timestamp) core.TelemetryEvent {
	return core.ItemDispatchedEvent{Key: core.StreamKey{TrajectoryID: traj, SensorID: sensor}, Timestamp: ts}
}

func erasedEvent(traj int, sensor string) core.TelemetryEvent {
	return core.StreamErasedEvent{Key: core.StreamKey{TrajectoryID: traj, SensorID: sensor}}
}

// TestBarrierBasicSynchronization tests that barrier waits for all upstream branches.
func TestBarrierBasicSynchronization(t *testing.T) {
	config := &core.BarrierConfig{
		UpstreamCount: 2,
		MergeStrategy: core.MergeStrategyCollect,
	}

	barrier := NewBarrierStage("barrier", config)

	input := make(chan core.TelemetryEvent, 10)
	output := make(chan core.TelemetryEvent, 10)

	go func() {
		input <- dispatchedEvent(0, "lidar", 10)
		input <- erasedEvent(0, "lidar")

		input <- dispatchedEvent(0, "odom", 20)
		input <- erasedEvent(0, "odom")

		close(input)
	}()

	err := barrier.Process(context.Background(), input, output)
	if err != nil {
		t.Fatalf("barrier process failed: %v", err)
	}

	var outputEvents []core.TelemetryEvent
	for event := range output {
		outputEvents = append(outputEvents, event)
	}

	if len(outputEvents) < 3 {
		t.Errorf("expected at least 3 events, got %d", len(outputEvents))
	}

	if _, ok := outputEvents[len(outputEvents)-1].(core.StreamErasedEvent); !ok {
		t.Error("last event should be the consolidated StreamErasedEvent")
	}
}

// TestBarrierFailFastOnError tests that barrier propagates errors immediately.
func TestBarrierFailFastOnError(t *testing.T) {
	config := &core.BarrierConfig{
		UpstreamCount: 2,
		MergeStrategy: core.MergeStrategyCollect,
	}

	barrier := NewBarrierStage("barrier", config)

	input := make(chan core.TelemetryEvent, 10)
	output := make(chan core.TelemetryEvent, 10)

	go func() {
		input <- dispatchedEvent(0, "lidar", 10)
		input <- core.ErrorEvent{Error: errors.New("branch 1 failed"), Retryable: false}
		input <- erasedEvent(0, "lidar")

		close(input)
	}()

	err := barrier.Process(context.Background(), input, output)
	if err == nil {
		t.Fatal("expected error from barrier")
	}

	if err.Error() != "branch 1 failed" {
		t.Errorf("expected 'branch 1 failed', got %q", err.Error())
	}
}

// TestBarrierCollectsEvents tests that barrier collects events from all branches.
func TestBarrierCollectsEvents(t *testing.T) {
	config := &core.BarrierConfig{
		UpstreamCount: 2,
		MergeStrategy: core.MergeStrategyCollect,
	}

	barrier := NewBarrierStage("barrier", config)

	input := make(chan core.TelemetryEvent, 10)
	output := make(chan core.TelemetryEvent, 10)

	go func() {
		input <- dispatchedEvent(0, "lidar", 10)
		input <- dispatchedEvent(0, "lidar", 20)
		input <- erasedEvent(0, "lidar")

		input <- dispatchedEvent(0, "odom", 15)
		input <- erasedEvent(0, "odom")

		close(input)
	}()

	err := barrier.Process(context.Background(), input, output)
	if err != nil {
		t.Fatalf("barrier process failed: %v", err)
	}

	var outputEvents []core.TelemetryEvent
	for event := range output {
		outputEvents = append(outputEvents, event)
	}

	dispatchedCount := 0
	hasErased := false
	for _, event := range outputEvents {
		switch event.(type) {
		case core.ItemDispatchedEvent:
			dispatchedCount++
		case core.StreamErasedEvent:
			hasErased = true
		}
	}

	if dispatchedCount != 3 {
		t.Errorf("expected 3 ItemDispatchedEvents, got %d", dispatchedCount)
	}
	if !hasErased {
		t.Error("missing consolidated StreamErasedEvent")
	}
}

// TestBarrierConsolidatesErasures tests that barrier emits a single
// consolidated StreamErasedEvent.
func TestBarrierConsolidatesErasures(t *testing.T) {
	config := &core.BarrierConfig{
		UpstreamCount: 3,
		MergeStrategy: core.MergeStrategyCollect,
	}

	barrier := NewBarrierStage("barrier", config)

	input := make(chan core.TelemetryEvent, 10)
	output := make(chan core.TelemetryEvent, 10)

	go func() {
		input <- erasedEvent(0, "a")
		input <- erasedEvent(0, "b")
		input <- erasedEvent(0, "c")

		close(input)
	}()

	err := barrier.Process(context.Background(), input, output)
	if err != nil {
		t.Fatalf("barrier process failed: %v", err)
	}

	var outputEvents []core.TelemetryEvent
	for event := range output {
		outputEvents = append(outputEvents, event)
	}

	erasedCount := 0
	for _, event := range outputEvents {
		if _, ok := event.(core.StreamErasedEvent); ok {
			erasedCount++
		}
	}

	if erasedCount != 1 {
		t.Errorf("expected 1 consolidated StreamErasedEvent, got %d", erasedCount)
	}
}

// TestBarrierMissingErasure tests that barrier fails if not all
// branches report their stream erased.
func TestBarrierMissingErasure(t *testing.T) {
	config := &core.BarrierConfig{
		UpstreamCount: 2,
		MergeStrategy: core.MergeStrategyCollect,
	}

	barrier := NewBarrierStage("barrier", config)

	input := make(chan core.TelemetryEvent, 10)
	output := make(chan core.TelemetryEvent, 10)

	go func() {
		input <- dispatchedEvent(0, "a", 1)
		input <- erasedEvent(0, "a") // only one, expecting two

		close(input)
	}()

	err := barrier.Process(context.Background(), input, output)
	if err == nil {
		t.Fatal("expected error when erased-branch count doesn't match")
	}
}

// TestBarrierContextCancellation tests that barrier respects context
// cancellation.
func TestBarrierContextCancellation(t *testing.T) {
	config := &core.BarrierConfig{
		UpstreamCount: 2,
		MergeStrategy: core.MergeStrategyCollect,
	}

	barrier := NewBarrierStage("barrier", config)

	input := make(chan core.TelemetryEvent, 10)
	output := make(chan core.TelemetryEvent, 10)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		input <- dispatchedEvent(0, "a", 1)
		time.Sleep(10 * time.Millisecond)
		cancel()
		close(input)
	}()

	err := barrier.Process(ctx, input, output)
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// Property: Barrier waits for all upstream branches to report erased
// before emitting its consolidated event.
func TestPropertyBarrierWaitsForAllUpstream(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		upstreamCount := rapid.IntRange(1, 5).Draw(rt, "upstreamCount")

		config := &core.BarrierConfig{
			UpstreamCount: upstreamCount,
			MergeStrategy: core.MergeStrategyCollect,
		}

		barrier := NewBarrierStage("barrier", config)

		input := make(chan core.TelemetryEvent, 100)
		output := make(chan core.TelemetryEvent, 100)

		go func() {
			for i := 0; i < upstreamCount; i++ {
				input <- erasedEvent(0, string(rune('a'+i)))
			}
			close(input)
		}()

		err := barrier.Process(context.Background(), input, output)
		if err != nil {
			rt.Fatalf("barrier process failed: %v", err)
		}

		var outputEvents []core.TelemetryEvent
		for event := range output {
			outputEvents = append(outputEvents, event)
		}

		erasedCount := 0
		for _, event := range outputEvents {
			if _, ok := event.(core.StreamErasedEvent); ok {
				erasedCount++
			}
		}

		if erasedCount != 1 {
			rt.Fatalf("expected 1 consolidated StreamErasedEvent, got %d", erasedCount)
		}
	})
}

// Property: Barrier collects events from all branches before the
// barrier closes.
func TestPropertyBarrierCollectsFromAllBranches(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		upstreamCount := rapid.IntRange(1, 5).Draw(rt, "upstreamCount")
		eventsPerBranch := rapid.IntRange(1, 5).Draw(rt, "eventsPerBranch")

		config := &core.BarrierConfig{
			UpstreamCount: upstreamCount,
			MergeStrategy: core.MergeStrategyCollect,
		}

		barrier := NewBarrierStage("barrier", config)

		input := make(chan core.TelemetryEvent, 1000)
		output := make(chan core.TelemetryEvent, 1000)

		go func() {
			for i := 0; i < upstreamCount; i++ {
				sensor := string(rune('a' + i))
				for j := 0; j < eventsPerBranch; j++ {
					input <- dispatchedEvent(0, sensor, core.Timestamp(j))
				}
				input <- erasedEvent(0, sensor)
			}
			close(input)
		}()

		err := barrier.Process(context.Background(), input, output)
		if err != nil {
			rt.Fatalf("barrier process failed: %v", err)
		}

		var outputEvents []core.TelemetryEvent
		for event := range output {
			outputEvents = append(outputEvents, event)
		}

		dispatchedCount := 0
		for _, event := range outputEvents {
			if _, ok := event.(core.ItemDispatchedEvent); ok {
				dispatchedCount++
			}
		}

		expected := upstreamCount * eventsPerBranch
		if dispatchedCount != expected {
			rt.Fatalf("expected %d ItemDispatchedEvents, got %d", expected, dispatchedCount)
		}
	})
}

// Property: Barrier fails fast on an upstream error.
func TestPropertyBarrierFailFastOnError(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		config := &core.BarrierConfig{
			UpstreamCount: 2,
			MergeStrategy: core.MergeStrategyCollect,
		}

		barrier := NewBarrierStage("barrier", config)

		input := make(chan core.TelemetryEvent, 10)
		output := make(chan core.TelemetryEvent, 10)

		go func() {
			input <- dispatchedEvent(0, "a", 1)
			input <- core.ErrorEvent{Error: errors.New("upstream failed"), Retryable: false}
			input <- erasedEvent(0, "a")
			input <- erasedEvent(0, "b")
			close(input)
		}()

		err := barrier.Process(context.Background(), input, output)
		if err == nil {
			rt.Fatalf("expected error from barrier")
		}

		if err.Error() != "upstream failed" {
			rt.Fatalf("expected 'upstream failed', got %q", err.Error())
		}
	})
}
