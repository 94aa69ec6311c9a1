package core

import "context"

// Stage represents a processing stage in the downstream consumer
// pipeline that receives the merger's globally-ordered output.
type Stage interface {
	Name() string
	Process(ctx context.Context, input <-chan TelemetryEvent, output chan<- TelemetryEvent) error
}

// PipelineOutput is a channel of events.
type PipelineOutput <-chan TelemetryEvent

// PipelineInput is a channel for sending events to a pipeline.
type PipelineInput chan<- TelemetryEvent
