package protocol

import (
	"github.com/sensorfusion/multiqueue/core"
)

// EventToMessage converts a dispatch-engine telemetry event into the
// wire message shape a diagnostics subscriber receives. idFn
// generates the envelope's ID field; nowMillis is its timestamp,
// letting callers inject both deterministically in tests.
func EventToMessage(event core.TelemetryEvent, idFn func() string, nowMillis int64) *Message {
	msg := &Message{
		ID:        idFn(),
		Timestamp: nowMillis,
	}

	switch e := event.(type) {
	case core.StreamRegisteredEvent:
		msg.Type = MessageStreamRegistered
		msg.Payload = StreamRegisteredPayload{
			TrajectoryID: e.Key.TrajectoryID,
			SensorID:     e.Key.SensorID,
			Modality:     modalityName(e.Modality),
		}

	case core.ItemDispatchedEvent:
		msg.Type = MessageItemDispatched
		msg.Payload = ItemDispatchedPayload{
			TrajectoryID: e.Key.TrajectoryID,
			SensorID:     e.Key.SensorID,
			ItemTime:     int64(e.Timestamp),
		}

	case core.ItemDroppedEvent:
		msg.Type = MessageItemDropped
		msg.Payload = ItemDroppedPayload{
			TrajectoryID: e.Key.TrajectoryID,
			SensorID:     e.Key.SensorID,
			ItemTime:     int64(e.Timestamp),
			Reason:       e.Reason,
		}

	case core.StreamFinishedEvent:
		msg.Type = MessageStreamFinished
		msg.Payload = StreamLifecyclePayload{TrajectoryID: e.Key.TrajectoryID, SensorID: e.Key.SensorID}

	case core.StreamErasedEvent:
		msg.Type = MessageStreamErased
		msg.Payload = StreamLifecyclePayload{TrajectoryID: e.Key.TrajectoryID, SensorID: e.Key.SensorID}

	case core.BlockedEvent:
		msg.Type = MessageBlocked
		msg.Payload = BlockedPayload{TrajectoryID: e.Blocker.TrajectoryID, SensorID: e.Blocker.SensorID}

	case core.BacklogWarningEvent:
		msg.Type = MessageBacklogWarning
		msg.Payload = BacklogWarningPayload{
			TrajectoryID: e.Blocker.TrajectoryID,
			SensorID:     e.Blocker.SensorID,
			QueueDepth:   e.QueueDepth,
		}

	case core.CommonStartResolvedEvent:
		msg.Type = MessageCommonStartResolved
		msg.Payload = CommonStartResolvedPayload{
			TrajectoryID: e.TrajectoryID,
			StartTime:    int64(e.StartTime),
		}

	case core.UnknownStreamDropEvent:
		msg.Type = MessageUnknownStreamDrop
		msg.Payload = UnknownStreamDropPayload{TrajectoryID: e.Key.TrajectoryID, SensorID: e.Key.SensorID}

	case core.ErrorEvent:
		msg.Type = MessageError
		errMsg := ""
		if e.Error != nil {
			errMsg = e.Error.Error()
		}
		msg.Payload = ErrorPayload{Message: errMsg, Retryable: e.Retryable}

	default:
		return nil
	}

	return msg
}

func modalityName(m core.Modality) string {
	switch m {
	case core.ModalityLidar:
		return "lidar"
	case core.ModalityOdometry:
		return "odometry"
	case core.ModalityIMU:
		return "imu"
	default:
		return "unknown"
	}
}
