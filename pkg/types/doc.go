/*
Package types defines the data model shared by the egress-IP monitoring
pipeline.

The pipeline turns three independently fetched resource lists (EgressIP
requests, per-address assignments, node inventory) into one immutable
Snapshot per poll cycle, then derives mismatch records, distribution
statistics, and composite scores from it.

Core types:

Cluster resources:
  - EgressAddressRequest: an EgressIP resource (requested addresses plus
    the platform's bound-address status list)
  - AddressAssignment: a CloudPrivateIPConfig resource (address, node,
    phase, last transition)
  - NodeInfo: node name, egress-capable flag, configured capacity

Pipeline aggregates:
  - FetchResult: per-kind list-or-error from one fetch pass
  - Snapshot: the immutable per-cycle aggregate
  - MismatchRecord: one detected cross-resource inconsistency
  - DistributionStats, NodeStats: fairness statistics
  - Scores: health and stability, clamped to [0,100]
  - PublishedState: the tuple the HTTP layer serves from

A Snapshot, once built, is read-only. No consumer mutates it; the poll
scheduler replaces the whole PublishedState atomically each cycle.
*/
package types
