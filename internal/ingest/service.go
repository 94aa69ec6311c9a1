package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sensorfusion/multiqueue/config"
	"github.com/sensorfusion/multiqueue/core"
	"github.com/sensorfusion/multiqueue/diagnostics"
	"github.com/sensorfusion/multiqueue/oqueue"
	"github.com/sensorfusion/multiqueue/telemetry"
)

// eventBacklog bounds the channel feeding the downstream consumer
// pipeline. Emission onto it is non-blocking, so a slow consumer
// pipeline never stalls the merger's synchronous OnEvent callback.
const eventBacklog = 1024

// Options configures one run of the ingest service.
type Options struct {
	Config config.Config
	Logger telemetry.Logger

	// Input is the newline-delimited JSON session source: one
	// register/item/finish record per line. Typically os.Stdin for a
	// live feed.
	Input io.Reader

	// NowMillis supplies the diagnostics envelope clock; defaults to
	// a real wall-clock reader if nil.
	NowMillis func() int64

	// Trace, if non-nil, receives one human-readable line per
	// dispatched or dropped item, stream erasure and dispatch stall —
	// the replay command's debugging output. Left nil by the live
	// service.
	Trace io.Writer
}

// Run drives the merger from opts.Input until it's exhausted, fanning
// every lifecycle event out to the diagnostics broadcaster/recorder
// (if enabled) and the downstream consumer pipeline, then flushes
// whatever streams are still open and waits for the consumer pipeline
// to finish draining. It returns once ctx is cancelled or the input
// is exhausted and fully drained.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.Default()
	}

	var broadcaster *diagnostics.Broadcaster
	var recorder *diagnostics.Recorder
	var httpServer *http.Server

	if opts.Config.Diagnostics.Enabled {
		nowMillis := opts.NowMillis
		if nowMillis == nil {
			nowMillis = wallClockMillis
		}
		broadcaster = diagnostics.NewBroadcaster(logger, nowMillis)
		recorder = diagnostics.NewRecorder(opts.Config.Diagnostics.RecorderDepth)
		httpServer = &http.Server{Addr: opts.Config.Diagnostics.ListenAddr, Handler: broadcaster}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("diagnostics server exited", telemetry.Err(err))
			}
		}()
		defer httpServer.Close()
	}

	consumer := buildConsumerPipeline(logger)

	pipelineInput := make(chan core.TelemetryEvent, eventBacklog)
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		for range consumer.Execute(ctx, pipelineInput) {
			// The reference consumer stages only observe and count;
			// a real deployment would act on each rejoined event here.
		}
	}()

	merger := oqueue.New(oqueue.Options{
		SoftCap:             opts.Config.Merger.SoftCap,
		UnknownKeyWarnEvery: opts.Config.Merger.UnknownKeyWarnEvery,
		BacklogWarnEvery:    opts.Config.Merger.BacklogWarnEvery,
		Logger:              logger,
		OnEvent: func(event core.TelemetryEvent) {
			if broadcaster != nil {
				broadcaster.Publish(event)
			}
			if recorder != nil {
				recorder.Observe(event)
				if erased, ok := event.(core.StreamErasedEvent); ok {
					recorder.Forget(erased.Key)
				}
			}
			traceEvent(opts.Trace, event)
			select {
			case pipelineInput <- event:
			default:
				logger.Warn("ingest: downstream consumer pipeline backlog full, dropping event",
					telemetry.String("event_type", string(event.EventType())))
			}
		},
	})

	if err := consumeSession(ctx, merger, logger, opts.Input); err != nil {
		close(pipelineInput)
		<-pipelineDone
		return err
	}

	merger.Flush()
	close(pipelineInput)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-pipelineDone:
		return nil
	}
}

// consumeSession reads one record per line from r and applies it to
// merger, in order, until EOF or ctx is cancelled.
func consumeSession(ctx context.Context, merger *oqueue.OrderedMultiQueue, logger telemetry.Logger, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	registered := make(map[core.StreamKey]bool)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec, err := parseRecord(line)
		if err != nil {
			logger.Warn("ingest: skipping malformed record", telemetry.Err(err))
			continue
		}

		switch rec.Op {
		case opRegister:
			key := rec.key()
			if registered[key] {
				logger.Warn("ingest: duplicate register, ignoring", telemetry.String("key", key.String()))
				continue
			}
			merger.AddStream(key, rec.modality(), func(core.Item) {})
			registered[key] = true

		case opItem:
			merger.Add(rec.key(), payloadItem{ts: core.Timestamp(rec.Timestamp), payload: rec.Payload})

		case opFinish:
			key := rec.key()
			if !registered[key] {
				logger.Warn("ingest: finish for unregistered stream, ignoring", telemetry.String("key", key.String()))
				continue
			}
			merger.MarkStreamFinished(key)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ingest: read session: %w", err)
	}
	return nil
}
