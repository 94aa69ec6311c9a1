package core

// MergeStrategy defines how a barrier combines events from multiple upstream branches
type MergeStrategy string

const (
	// MergeStrategyCollect collects all events from all branches in arrival order
	MergeStrategyCollect MergeStrategy = "collect"
	
	// MergeStrategyLastOnly names keeping only the final event from each
	// branch. BarrierStage does not implement it: with this value it
	// still forwards every event as MergeStrategyCollect does.
	MergeStrategyLastOnly MergeStrategy = "last-only"
)

// BarrierConfig configures synchronization behavior for a barrier stage
type BarrierConfig struct {
	// UpstreamCount is the number of branches to wait for
	UpstreamCount int
	
	// MergeStrategy names how to combine events from branches.
	// BarrierStage does not read it; it always forwards every
	// non-erasure event in arrival order.
	MergeStrategy MergeStrategy
}
