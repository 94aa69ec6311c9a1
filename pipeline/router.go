package pipeline

import (
	"context"
	"sync"

	"github.com/sensorfusion/multiqueue/core"
)

// ModalityRouter fans the merger's lifecycle event stream out to one
// downstream consumer branch per sensor modality. It learns each
// stream's modality from the StreamRegisteredEvent the merger emits
// when the stream is added, and routes every later event belonging to
// that stream to the matching branch only. Events with no single
// owning stream (CommonStartResolvedEvent, ErrorEvent) are broadcast
// to every branch, since no modality-specific consumer exclusively
// owns them. An UnknownStreamDropEvent, whose key no registration
// gave a modality, reaches no branch.
type ModalityRouter struct {
	config *core.FanOutConfig
	cancel context.CancelFunc

	mu         sync.Mutex
	modalities map[core.StreamKey]core.Modality
}

// NewModalityRouter builds a router for the given fan-out
// configuration.
func NewModalityRouter(config *core.FanOutConfig) *ModalityRouter {
	return &ModalityRouter{
		config:     config,
		modalities: make(map[core.StreamKey]core.Modality),
	}
}

// Route distributes events from input to every branch that owns them,
// runs each branch stage concurrently, and merges every branch's
// output into merged as it arrives. It returns once input is
// exhausted and every branch has finished, or the first branch error
// under ErrorPolicyCancelAll.
func (r *ModalityRouter) Route(ctx context.Context, input <-chan core.TelemetryEvent, merged chan<- core.TelemetryEvent) error {
	branchCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	defer cancel()

	inputs := make([]chan core.TelemetryEvent, len(r.config.Branches))
	outputs := make([]chan core.TelemetryEvent, len(r.config.Branches))
	for i := range r.config.Branches {
		inputs[i] = make(chan core.TelemetryEvent, 100)
		outputs[i] = make(chan core.TelemetryEvent, 100)
	}

	var branchWg sync.WaitGroup
	errorChan := make(chan error, len(r.config.Branches))

	for i, branch := range r.config.Branches {
		branchWg.Add(1)
		go func(i int, branch core.BranchConfig) {
			defer branchWg.Done()
			err := branch.Stage.Process(branchCtx, inputs[i], outputs[i])
			close(outputs[i])
			if err == nil {
				return
			}
			select {
			case errorChan <- err:
			default:
			}
			if r.config.ErrorPolicy != core.ErrorPolicyIsolated {
				cancel()
			}
		}(i, branch)
	}

	// Merge each branch's output concurrently with routing, rather
	// than after Route returns: a branch writing more than its
	// output buffer holds would otherwise deadlock waiting for a
	// drain that hadn't started yet.
	var mergeWg sync.WaitGroup
	for _, out := range outputs {
		mergeWg.Add(1)
		go func(ch <-chan core.TelemetryEvent) {
			defer mergeWg.Done()
			for event := range ch {
				select {
				case <-ctx.Done():
					return
				case merged <- event:
				}
			}
		}(out)
	}

	r.distribute(branchCtx, input, inputs)
	branchWg.Wait()
	mergeWg.Wait()

	close(errorChan)
	for err := range errorChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// distribute reads events from input and forwards each to the
// branches that own it, tracking stream modalities along the way, and
// closes every branch input once input closes.
func (r *ModalityRouter) distribute(ctx context.Context, input <-chan core.TelemetryEvent, inputs []chan core.TelemetryEvent) {
	defer func() {
		for _, ch := range inputs {
			close(ch)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-input:
			if !ok {
				return
			}

			if reg, ok := event.(core.StreamRegisteredEvent); ok {
				r.mu.Lock()
				r.modalities[reg.Key] = reg.Modality
				r.mu.Unlock()
			}

			for i, branch := range r.config.Branches {
				if !r.owns(branch.Modality, event) {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case inputs[i] <- event:
				}
			}

			if erased, ok := event.(core.StreamErasedEvent); ok {
				r.mu.Lock()
				delete(r.modalities, erased.Key)
				r.mu.Unlock()
			}
		}
	}
}

// owns reports whether event belongs to the branch carrying
// branchModality, based on the modality of the registered stream it
// came from. Events with no single owning stream go to every branch.
func (r *ModalityRouter) owns(branchModality core.Modality, event core.TelemetryEvent) bool {
	key, ok := eventStreamKey(event)
	if !ok {
		return true
	}
	r.mu.Lock()
	modality, known := r.modalities[key]
	r.mu.Unlock()
	return known && modality == branchModality
}

// eventStreamKey extracts the StreamKey an event is exclusively
// about, if it has one. An UnknownStreamDropEvent yields its key too:
// that key is not registered, so owns finds no modality for it and no
// branch receives the event.
func eventStreamKey(event core.TelemetryEvent) (core.StreamKey, bool) {
	switch e := event.(type) {
	case core.StreamRegisteredEvent:
		return e.Key, true
	case core.UnknownStreamDropEvent:
		return e.Key, true
	case core.ItemDispatchedEvent:
		return e.Key, true
	case core.ItemDroppedEvent:
		return e.Key, true
	case core.StreamFinishedEvent:
		return e.Key, true
	case core.StreamErasedEvent:
		return e.Key, true
	case core.BlockedEvent:
		return e.Blocker, true
	case core.BacklogWarningEvent:
		return e.Blocker, true
	default:
		return core.StreamKey{}, false
	}
}
