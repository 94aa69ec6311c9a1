// Package ingest wires the merger core together with its ambient
// stack (telemetry, diagnostics, the downstream consumer pipeline)
// into a runnable service, and replays a recorded session through
// the same wiring for offline debugging.
package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/sensorfusion/multiqueue/core"
)

// recordOp names the operation a line of the input session format
// performs against the merger.
type recordOp string

const (
	opRegister recordOp = "register"
	opItem     recordOp = "item"
	opFinish   recordOp = "finish"
)

// record is one line of the newline-delimited JSON session format
// both the live ingest service (read from stdin) and the replay
// command (read from a file) consume. At most one of Modality,
// Timestamp/Payload is meaningful, depending on Op.
type record struct {
	Op           recordOp        `json:"op"`
	TrajectoryID int             `json:"trajectoryId"`
	SensorID     string          `json:"sensorId"`
	Modality     string          `json:"modality,omitempty"`
	Timestamp    int64           `json:"timestamp,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

func (r record) key() core.StreamKey {
	return core.StreamKey{TrajectoryID: r.TrajectoryID, SensorID: r.SensorID}
}

func (r record) modality() core.Modality {
	switch core.Modality(r.Modality) {
	case core.ModalityLidar, core.ModalityOdometry, core.ModalityIMU:
		return core.Modality(r.Modality)
	default:
		return core.ModalityUnknown
	}
}

// payloadItem is the core.Item implementation carried by every record
// with op=item: its timestamp plus the opaque payload bytes, handed
// unmodified to whatever sink is bound for its stream.
type payloadItem struct {
	ts      core.Timestamp
	payload json.RawMessage
}

func (i payloadItem) Timestamp() core.Timestamp { return i.ts }

// parseRecord decodes one line of the session format.
func parseRecord(line []byte) (record, error) {
	var r record
	if err := json.Unmarshal(line, &r); err != nil {
		return record{}, fmt.Errorf("ingest: parse record: %w", err)
	}
	switch r.Op {
	case opRegister, opItem, opFinish:
	default:
		return record{}, fmt.Errorf("ingest: unknown record op %q", r.Op)
	}
	return r, nil
}
