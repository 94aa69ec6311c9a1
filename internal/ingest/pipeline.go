package ingest

import (
	"github.com/sensorfusion/multiqueue/core"
	"github.com/sensorfusion/multiqueue/pipeline"
	"github.com/sensorfusion/multiqueue/telemetry"
)

// consumerModalities lists the sensor modalities the default
// downstream consumer pipeline gives a dedicated branch to.
var consumerModalities = []core.Modality{core.ModalityLidar, core.ModalityOdometry, core.ModalityIMU}

// buildConsumerPipeline assembles the default downstream consumer
// pipeline: the merger's lifecycle stream is fanned out to one
// consumer branch per sensor modality running concurrently, then
// rejoined by a barrier that closes once every branch reports its own
// stream erased. It stands in for the wider SLAM pipeline a
// deployment would otherwise plug in, as one concrete, swappable
// reference implementation.
func buildConsumerPipeline(logger telemetry.Logger) *pipeline.Pipeline {
	branches := make([]core.BranchConfig, len(consumerModalities))
	for i, modality := range consumerModalities {
		branches[i] = core.BranchConfig{
			Stage:    newModalityStage(modality, logger),
			Modality: modality,
		}
	}

	fanOutConfig := &core.FanOutConfig{
		ErrorPolicy: core.ErrorPolicyCancelAll,
		Branches:    branches,
	}
	barrier := pipeline.NewBarrierStage("barrier", &core.BarrierConfig{
		UpstreamCount: len(consumerModalities),
		MergeStrategy: core.MergeStrategyCollect,
	})

	return pipeline.New(fanOutConfig, barrier)
}
