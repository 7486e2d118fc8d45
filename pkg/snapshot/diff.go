package snapshot

import (
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/types"
)

// Diff compares two consecutive snapshots and reports, per address, how
// many bindings changed and how many assignments recovered from Error to
// Success. The first cycle has no previous snapshot and reports nothing.
func Diff(previous, current *types.Snapshot) (changes, recoveries int) {
	if previous == nil || current == nil {
		return 0, 0
	}

	prevBound := bindings(previous)
	currBound := bindings(current)

	// An address counts as changed when its binding appeared, disappeared,
	// or moved to a different node.
	for addr, node := range currBound {
		if prev, ok := prevBound[addr]; !ok || prev != node {
			changes++
		}
	}
	for addr := range prevBound {
		if _, ok := currBound[addr]; !ok {
			changes++
		}
	}

	prevPhase := make(map[string]types.AssignmentPhase, len(previous.Assignments))
	for _, a := range previous.Assignments {
		prevPhase[a.Address] = a.Phase
	}
	for _, a := range current.Assignments {
		if a.Phase == types.PhaseSuccess && prevPhase[a.Address] == types.PhaseError {
			recoveries++
		}
	}

	return changes, recoveries
}

// bindings flattens the request status lists into address -> node.
func bindings(snap *types.Snapshot) map[string]string {
	bound := make(map[string]string)
	for _, req := range snap.Requests {
		for _, b := range req.Status {
			bound[b.Address] = b.Node
		}
	}
	return bound
}
