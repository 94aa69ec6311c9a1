package core

// TelemetryEvent represents a dispatch-engine lifecycle event, emitted
// by the merger as a side effect of AddStream/Add/MarkStreamFinished/
// Flush. The core hands each one synchronously to its OnEvent
// callback: subscribers are strictly observers.
type TelemetryEvent interface {
	EventType() TelemetryEventType
}

// StreamRegisteredEvent fires when AddStream succeeds.
type StreamRegisteredEvent struct {
	Key      StreamKey
	Modality Modality
}

func (e StreamRegisteredEvent) EventType() TelemetryEventType {
	return EventTypeStreamRegistered
}

// ItemDispatchedEvent fires once per item handed to a sink callback.
type ItemDispatchedEvent struct {
	Key       StreamKey
	Timestamp Timestamp
}

func (e ItemDispatchedEvent) EventType() TelemetryEventType {
	return EventTypeItemDispatched
}

// ItemDroppedEvent fires when the cold-deep path discards a
// pre-common-start item. Add on an unregistered key emits
// UnknownStreamDropEvent instead.
type ItemDroppedEvent struct {
	Key       StreamKey
	Timestamp Timestamp
	Reason    string
}

func (e ItemDroppedEvent) EventType() TelemetryEventType {
	return EventTypeItemDropped
}

// StreamFinishedEvent fires when MarkStreamFinished succeeds.
type StreamFinishedEvent struct {
	Key StreamKey
}

func (e StreamFinishedEvent) EventType() TelemetryEventType {
	return EventTypeStreamFinished
}

// StreamErasedEvent fires when a finished, drained stream record is
// removed from the collection.
type StreamErasedEvent struct {
	Key StreamKey
}

func (e StreamErasedEvent) EventType() TelemetryEventType {
	return EventTypeStreamErased
}

// BlockedEvent fires whenever the dispatch loop halts because it
// cannot make progress.
type BlockedEvent struct {
	Blocker StreamKey
}

func (e BlockedEvent) EventType() TelemetryEventType {
	return EventTypeBlocked
}

// BacklogWarningEvent fires, rate-limited, when the dispatch loop
// halts while some stream's queue depth exceeds the configured soft
// cap. Blocker is the stream dispatch halted on; QueueDepth is the
// depth of the over-cap stream.
type BacklogWarningEvent struct {
	Blocker    StreamKey
	QueueDepth int
}

func (e BacklogWarningEvent) EventType() TelemetryEventType {
	return EventTypeBacklogWarning
}

// CommonStartResolvedEvent fires exactly once per trajectory, the
// first time its common start time is computed.
type CommonStartResolvedEvent struct {
	TrajectoryID int
	StartTime    Timestamp
}

func (e CommonStartResolvedEvent) EventType() TelemetryEventType {
	return EventTypeCommonStartResolved
}

// UnknownStreamDropEvent fires on every Add that targets a key not
// currently registered. Only the accompanying log warning is
// rate-limited.
type UnknownStreamDropEvent struct {
	Key StreamKey
}

func (e UnknownStreamDropEvent) EventType() TelemetryEventType {
	return EventTypeUnknownStreamDrop
}

// ErrorEvent carries a non-fatal error surfaced by a downstream
// consumer stage rather than the merger core itself.
type ErrorEvent struct {
	Error     error
	Retryable bool
}

func (e ErrorEvent) EventType() TelemetryEventType {
	return EventTypeError
}
