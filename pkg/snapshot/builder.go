package snapshot

import (
	"time"

	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/log"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/types"
)

// Build combines one fetch pass into an immutable snapshot. Each resource
// kind that failed this cycle is backfilled from the previous snapshot and
// the result is marked partial; a kind that failed with no previous value
// stays empty.
func Build(result *types.FetchResult, previous *types.Snapshot, now time.Time) *types.Snapshot {
	logger := log.WithComponent("snapshot")

	snap := &types.Snapshot{
		FetchedAt: now,
		Partial:   !result.AllSucceeded(),
	}

	if result.RequestsErr == nil {
		snap.Requests = result.Requests
	} else if previous != nil {
		logger.Warn().Err(result.RequestsErr).Msg("reusing previous egress requests")
		snap.Requests = previous.Requests
	}

	if result.AssignmentsErr == nil {
		snap.Assignments = result.Assignments
	} else if previous != nil {
		logger.Warn().Err(result.AssignmentsErr).Msg("reusing previous assignments")
		snap.Assignments = previous.Assignments
	}

	if result.NodesErr == nil {
		snap.Nodes = result.Nodes
	} else if previous != nil {
		logger.Warn().Err(result.NodesErr).Msg("reusing previous node inventory")
		snap.Nodes = previous.Nodes
	}

	return snap
}
