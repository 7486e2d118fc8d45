package types

import (
	"time"
)

// EgressAddressRequest represents one EgressIP resource: the addresses a
// set of workloads requested, plus the platform's view of which addresses
// have actually been bound to a node.
type EgressAddressRequest struct {
	Namespace string
	Name      string
	Requested []string
	Status    []AddressBinding
}

// Key returns the namespace/name identity of the request. Cluster-scoped
// resources have an empty namespace.
func (r *EgressAddressRequest) Key() string {
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "/" + r.Name
}

// AddressBinding is one entry of a request's status list: an address the
// platform reports as bound, and the node it is bound to.
type AddressBinding struct {
	Address string
	Node    string
}

// AssignmentPhase is the lifecycle phase of an address assignment.
type AssignmentPhase string

const (
	PhaseSuccess AssignmentPhase = "Success"
	PhasePending AssignmentPhase = "Pending"
	PhaseError   AssignmentPhase = "Error"
	PhaseUnknown AssignmentPhase = "Unknown"
)

// AddressAssignment represents one CloudPrivateIPConfig resource: the
// per-address assignment state as reported by the cloud layer. Its name is
// the address itself.
type AddressAssignment struct {
	Address        string
	Node           string
	Phase          AssignmentPhase
	LastTransition time.Time
}

// NodeInfo describes one cluster node from the inventory.
type NodeInfo struct {
	Name          string
	EgressCapable bool
	Capacity      int
}

// Snapshot is one immutable, timestamped aggregate of the three fetched
// resource lists for a single poll cycle. Never mutated after construction;
// consumers read by reference.
type Snapshot struct {
	Requests    []EgressAddressRequest
	Assignments []AddressAssignment
	Nodes       []NodeInfo
	FetchedAt   time.Time
	Partial     bool
}

// CapableNodes returns the egress-capable subset of the node inventory.
func (s *Snapshot) CapableNodes() []NodeInfo {
	var capable []NodeInfo
	for _, n := range s.Nodes {
		if n.EgressCapable {
			capable = append(capable, n)
		}
	}
	return capable
}

// Operation identifies one of the upstream list calls.
type Operation string

const (
	OpListRequests    Operation = "eip_get"
	OpListAssignments Operation = "cpic_get"
	OpListNodes       Operation = "nodes_get"
)

// Operations lists every upstream call kind, in exposition order.
var Operations = []Operation{OpListRequests, OpListAssignments, OpListNodes}

// APICallSample records the outcome of a single upstream list call.
type APICallSample struct {
	Operation Operation
	Duration  time.Duration
	Success   bool
	At        time.Time
}

// FetchResult carries, independently per resource kind, either the fetched
// list or a failure. A failed kind never aborts the others.
type FetchResult struct {
	Requests    []EgressAddressRequest
	RequestsErr error

	Assignments    []AddressAssignment
	AssignmentsErr error

	Nodes    []NodeInfo
	NodesErr error

	Samples []APICallSample
}

// AllSucceeded reports whether every resource kind was fetched this cycle.
func (f *FetchResult) AllSucceeded() bool {
	return f.RequestsErr == nil && f.AssignmentsErr == nil && f.NodesErr == nil
}

// FailureCount returns how many resource kinds failed this cycle.
func (f *FetchResult) FailureCount() int {
	n := 0
	for _, err := range []error{f.RequestsErr, f.AssignmentsErr, f.NodesErr} {
		if err != nil {
			n++
		}
	}
	return n
}

// MismatchKind classifies a cross-resource inconsistency.
type MismatchKind string

const (
	// NodeMismatch: an assignment reports Success on one node while the
	// owning request's status records the address on a different node.
	NodeMismatch MismatchKind = "NodeMismatch"

	// MissingFromRequestStatus: a Success assignment whose address does not
	// appear in the owning request's status list.
	MissingFromRequestStatus MismatchKind = "MissingFromRequestStatus"

	// Overcommitted: a request asks for more addresses than the total
	// egress-capable capacity can hold.
	Overcommitted MismatchKind = "Overcommitted"

	// NoWorkingAssignment: a request with at least one requested address
	// and zero Success-phase assignments.
	NoWorkingAssignment MismatchKind = "NoWorkingAssignment"
)

// MismatchRecord describes one detected inconsistency.
type MismatchRecord struct {
	Address       string
	Kind          MismatchKind
	RequestRef    string
	AssignmentRef string
	Magnitude     int // excess count, Overcommitted only
}

// NodeStats is the per-node load view derived from a snapshot.
type NodeStats struct {
	Node               string
	AssignedCount      int
	Capacity           int
	UtilizationPercent float64
}

// DistributionStats summarizes how evenly assignments are spread across
// egress-capable nodes.
type DistributionStats struct {
	PerNode []NodeStats
	StdDev  float64
	Gini    float64
	Min     int
	Max     int
}

// Scores holds the composite indicators, both clamped to [0,100].
type Scores struct {
	Health    float64
	Stability float64
}

// PublishedState is the tuple the exporter serves from: everything derived
// from the last completed poll cycle. Written once per cycle by the
// scheduler, read by request handlers through an atomic pointer.
type PublishedState struct {
	Snapshot       *Snapshot
	Mismatches     []MismatchRecord
	Distribution   DistributionStats
	Scores         Scores
	ChangesHour    int
	RecoverHour    int
	CycleDuration  time.Duration
	LastFullScrape time.Time
	PublishedAt    time.Time
}
