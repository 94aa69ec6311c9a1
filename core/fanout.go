package core

// ErrorPolicy defines how fan-out handles errors in parallel branches.
type ErrorPolicy string

const (
	// ErrorPolicyCancelAll cancels all branches when one fails (default).
	ErrorPolicyCancelAll ErrorPolicy = "cancel-all"

	// ErrorPolicyIsolated allows other branches to continue when one fails.
	ErrorPolicyIsolated ErrorPolicy = "isolated"
)

// BranchConfig defines one per-modality branch of a fan-out. Modality
// selects which events this branch receives: the router looks up
// each event's owning stream's registered modality and forwards only
// to the branch whose Modality matches. Events with no single owning
// stream (CommonStartResolvedEvent, ErrorEvent) go to every branch.
type BranchConfig struct {
	// Stage is the downstream consumer stage for this modality.
	Stage Stage

	// Modality is the sensor modality this branch owns.
	Modality Modality
}

// FanOutConfig configures the downstream consumer fan-out.
type FanOutConfig struct {
	// ErrorPolicy determines behavior when a branch fails.
	ErrorPolicy ErrorPolicy

	// Branches defines the per-modality routing.
	Branches []BranchConfig
}
