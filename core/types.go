package core

// TelemetryEventType categorizes a dispatch-engine lifecycle event.
type TelemetryEventType string

const (
	EventTypeStreamRegistered    TelemetryEventType = "stream_registered"
	EventTypeItemDispatched      TelemetryEventType = "item_dispatched"
	EventTypeItemDropped         TelemetryEventType = "item_dropped"
	EventTypeStreamFinished      TelemetryEventType = "stream_finished"
	EventTypeStreamErased        TelemetryEventType = "stream_erased"
	EventTypeBlocked             TelemetryEventType = "blocked"
	EventTypeBacklogWarning      TelemetryEventType = "backlog_warning"
	EventTypeCommonStartResolved TelemetryEventType = "common_start_resolved"
	EventTypeUnknownStreamDrop   TelemetryEventType = "unknown_stream_drop"
	EventTypeError               TelemetryEventType = "error"
)

// Modality is a coarse classification of which sensor kind a stream
// carries. The merger core never inspects this; it is attached by the
// caller at AddStream time purely for downstream routing.
type Modality string

const (
	ModalityLidar    Modality = "lidar"
	ModalityOdometry Modality = "odometry"
	ModalityIMU      Modality = "imu"
	ModalityUnknown  Modality = "unknown"
)
