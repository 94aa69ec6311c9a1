package core

import "fmt"

// StreamKey identifies one input stream: a trajectory together with
// the sensor that produced it. Two keys are equal iff both fields
// match; ordering is lexicographic on (TrajectoryID, SensorID) so a
// collection keyed by StreamKey has a deterministic iteration order.
type StreamKey struct {
	TrajectoryID int
	SensorID     string
}

// Less reports whether k sorts strictly before other.
func (k StreamKey) Less(other StreamKey) bool {
	if k.TrajectoryID != other.TrajectoryID {
		return k.TrajectoryID < other.TrajectoryID
	}
	return k.SensorID < other.SensorID
}

func (k StreamKey) String() string {
	return fmt.Sprintf("(%d, %s)", k.TrajectoryID, k.SensorID)
}

// Timestamp is a monotonic, totally-ordered instant in the sensor
// stream's own time domain. It is deliberately not time.Time: sensor
// timestamps need not be synchronized to the host wall clock, only
// to each other.
type Timestamp int64

// MinTimestamp is the minimum representable Timestamp, the value
// last-dispatched-time starts at before anything has been dispatched.
const MinTimestamp Timestamp = -1 << 63

// Item is the opaque payload carried by a stream. The merger core
// treats it as nothing but a totally-ordered instant; ownership
// passes from producer to queue to sink callback and is never shared.
type Item interface {
	Timestamp() Timestamp
}
