package reconcile

import (
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/log"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/types"
)

// Reconcile cross-references assignments against requests and classifies
// every inconsistency it finds. It holds no state: the returned records
// plus the snapshot are sufficient to derive every aggregate.
func Reconcile(snap *types.Snapshot) []types.MismatchRecord {
	logger := log.WithComponent("reconciler")

	// Address -> owning request. An address claimed by more than one
	// request is a data-source anomaly: report it, keep the first owner.
	owners := make(map[string]*types.EgressAddressRequest)
	for i := range snap.Requests {
		req := &snap.Requests[i]
		for _, addr := range req.Requested {
			if prev, dup := owners[addr]; dup {
				logger.Warn().
					Str("address", addr).
					Str("first", prev.Key()).
					Str("duplicate", req.Key()).
					Msg("address requested by multiple resources")
				continue
			}
			owners[addr] = req
		}
	}

	var records []types.MismatchRecord

	for _, a := range snap.Assignments {
		if a.Phase != types.PhaseSuccess {
			continue
		}
		owner := owners[a.Address]
		if owner == nil {
			// Successful assignment nobody asked for. No request status
			// can contain it, so it reports as missing.
			records = append(records, types.MismatchRecord{
				Address:       a.Address,
				Kind:          types.MissingFromRequestStatus,
				AssignmentRef: a.Address,
			})
			continue
		}

		found := false
		for _, binding := range owner.Status {
			if binding.Address != a.Address {
				continue
			}
			found = true
			if binding.Node != a.Node {
				records = append(records, types.MismatchRecord{
					Address:       a.Address,
					Kind:          types.NodeMismatch,
					RequestRef:    owner.Key(),
					AssignmentRef: a.Address,
				})
			}
			break
		}
		if !found {
			records = append(records, types.MismatchRecord{
				Address:       a.Address,
				Kind:          types.MissingFromRequestStatus,
				RequestRef:    owner.Key(),
				AssignmentRef: a.Address,
			})
		}
	}

	totalCapacity := 0
	for _, n := range snap.CapableNodes() {
		totalCapacity += n.Capacity
	}

	successByOwner := make(map[string]int)
	for _, a := range snap.Assignments {
		if a.Phase != types.PhaseSuccess {
			continue
		}
		if owner := owners[a.Address]; owner != nil {
			successByOwner[owner.Key()]++
		}
	}

	for i := range snap.Requests {
		req := &snap.Requests[i]
		if len(req.Requested) == 0 {
			continue
		}
		if excess := len(req.Requested) - totalCapacity; excess > 0 {
			records = append(records, types.MismatchRecord{
				Kind:       types.Overcommitted,
				RequestRef: req.Key(),
				Magnitude:  excess,
			})
		}
		if successByOwner[req.Key()] == 0 {
			records = append(records, types.MismatchRecord{
				Kind:       types.NoWorkingAssignment,
				RequestRef: req.Key(),
			})
		}
	}

	return records
}

// Aggregates summarizes a record list for exposition.
type Aggregates struct {
	// ByKind counts records per mismatch kind.
	ByKind map[types.MismatchKind]int

	// RequestsWithMismatch is the number of distinct requests with at
	// least one record of any kind.
	RequestsWithMismatch int

	// OvercommitTotal is the summed excess across overcommitted requests.
	OvercommitTotal int

	// Critical is the number of requests with no working assignment.
	Critical int
}

// Aggregate derives the exposed aggregates from a record list.
func Aggregate(records []types.MismatchRecord) Aggregates {
	agg := Aggregates{ByKind: make(map[types.MismatchKind]int)}
	seen := make(map[string]bool)

	for _, r := range records {
		agg.ByKind[r.Kind]++
		if r.RequestRef != "" && !seen[r.RequestRef] {
			seen[r.RequestRef] = true
			agg.RequestsWithMismatch++
		}
		switch r.Kind {
		case types.Overcommitted:
			agg.OvercommitTotal += r.Magnitude
		case types.NoWorkingAssignment:
			agg.Critical++
		}
	}
	return agg
}
