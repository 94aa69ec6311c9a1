package pipeline

import (
	"context"
	"sync"

	"github.com/sensorfusion/multiqueue/core"
)

// Pipeline is the downstream consumer pipeline fed by the merger's
// globally-ordered lifecycle stream: a fan-out with one branch per
// sensor modality, rejoined by a barrier once every branch reports
// its own stream erased. This is the only topology the reference
// ingest service ever builds — an arbitrary multi-node DAG has never
// been needed here, so the pipeline is just a router chained into a
// barrier rather than a general graph executor.
type Pipeline struct {
	router  *ModalityRouter
	barrier core.Stage

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds a Pipeline fanning out per config and rejoining with
// barrier. barrier's configured UpstreamCount should equal
// len(config.Branches).
func New(config *core.FanOutConfig, barrier core.Stage) *Pipeline {
	return &Pipeline{
		router:  NewModalityRouter(config),
		barrier: barrier,
	}
}

// Execute runs the fan-out and barrier concurrently against input and
// returns the barrier's rejoined output. The returned channel closes
// once input is exhausted and every branch and the barrier have
// finished.
func (p *Pipeline) Execute(ctx context.Context, input <-chan core.TelemetryEvent) core.PipelineOutput {
	pipelineCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	merged := make(chan core.TelemetryEvent, 100)
	output := make(chan core.TelemetryEvent, 100)

	go func() {
		defer close(merged)
		if err := p.router.Route(pipelineCtx, input, merged); err != nil {
			select {
			case <-pipelineCtx.Done():
			case merged <- core.ErrorEvent{Error: err, Retryable: false}:
			}
		}
	}()

	go func() {
		defer cancel()
		// The barrier closes output itself when Process returns. It
		// forwards upstream ErrorEvents to output as they arrive; the
		// error it returns (an upstream error, a context error or an
		// erased-branch count mismatch) is discarded here.
		_ = p.barrier.Process(pipelineCtx, merged, output)
	}()

	return output
}

// Cancel stops the most recent Execute call in progress, if any.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}
