package distribution

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/types"
)

func snapWithCounts(counts map[string]int, capacity int) *types.Snapshot {
	snap := &types.Snapshot{}
	for name, count := range counts {
		snap.Nodes = append(snap.Nodes, types.NodeInfo{
			Name:          name,
			EgressCapable: true,
			Capacity:      capacity,
		})
		for i := 0; i < count; i++ {
			snap.Assignments = append(snap.Assignments, types.AddressAssignment{
				Address: name + "-addr",
				Node:    name,
				Phase:   types.PhaseSuccess,
			})
		}
	}
	return snap
}

func TestGini(t *testing.T) {
	tests := []struct {
		name     string
		counts   map[string]int
		expected float64
	}{
		{
			name:     "all equal is perfectly fair",
			counts:   map[string]int{"a": 5, "b": 5, "c": 5},
			expected: 0,
		},
		{
			name:     "single node holds everything",
			counts:   map[string]int{"a": 15, "b": 0, "c": 0},
			expected: 2.0 / 3.0,
		},
		{
			name:     "all zero",
			counts:   map[string]int{"a": 0, "b": 0},
			expected: 0,
		},
		{
			name:     "moderate skew",
			counts:   map[string]int{"a": 1, "b": 2, "c": 3},
			expected: 2.0 / 9.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := Analyze(snapWithCounts(tt.counts, 75))
			assert.InDelta(t, tt.expected, stats.Gini, 1e-9)
			assert.GreaterOrEqual(t, stats.Gini, 0.0)
			assert.LessOrEqual(t, stats.Gini, 1.0)
		})
	}
}

func TestAnalyzeOrderInvariance(t *testing.T) {
	forward := &types.Snapshot{
		Nodes: []types.NodeInfo{
			{Name: "a", EgressCapable: true, Capacity: 10},
			{Name: "b", EgressCapable: true, Capacity: 10},
			{Name: "c", EgressCapable: true, Capacity: 10},
		},
	}
	reversed := &types.Snapshot{
		Nodes: []types.NodeInfo{
			{Name: "c", EgressCapable: true, Capacity: 10},
			{Name: "b", EgressCapable: true, Capacity: 10},
			{Name: "a", EgressCapable: true, Capacity: 10},
		},
	}
	for _, snap := range []*types.Snapshot{forward, reversed} {
		snap.Assignments = []types.AddressAssignment{
			{Address: "1", Node: "a", Phase: types.PhaseSuccess},
			{Address: "2", Node: "a", Phase: types.PhaseSuccess},
			{Address: "3", Node: "a", Phase: types.PhaseSuccess},
			{Address: "4", Node: "b", Phase: types.PhaseSuccess},
		}
	}

	first := Analyze(forward)
	second := Analyze(reversed)

	assert.Equal(t, first.Gini, second.Gini)
	assert.Equal(t, first.StdDev, second.StdDev)
	assert.Equal(t, first.Min, second.Min)
	assert.Equal(t, first.Max, second.Max)
}

func TestAnalyzeStdDev(t *testing.T) {
	// counts 2 and 4: mean 3, population variance 1, stddev 1
	stats := Analyze(snapWithCounts(map[string]int{"a": 2, "b": 4}, 75))
	assert.InDelta(t, 1.0, stats.StdDev, 1e-9)
	assert.Equal(t, 2, stats.Min)
	assert.Equal(t, 4, stats.Max)
}

func TestAnalyzeCountsOnlySuccessPhase(t *testing.T) {
	snap := &types.Snapshot{
		Nodes: []types.NodeInfo{
			{Name: "a", EgressCapable: true, Capacity: 10},
		},
		Assignments: []types.AddressAssignment{
			{Address: "1", Node: "a", Phase: types.PhaseSuccess},
			{Address: "2", Node: "a", Phase: types.PhasePending},
			{Address: "3", Node: "a", Phase: types.PhaseError},
		},
	}

	stats := Analyze(snap)
	require.Len(t, stats.PerNode, 1)
	assert.Equal(t, 1, stats.PerNode[0].AssignedCount)
	assert.InDelta(t, 10.0, stats.PerNode[0].UtilizationPercent, 1e-9)
}

func TestAnalyzeIgnoresIncapableNodes(t *testing.T) {
	snap := &types.Snapshot{
		Nodes: []types.NodeInfo{
			{Name: "a", EgressCapable: true, Capacity: 10},
			{Name: "worker", EgressCapable: false, Capacity: 10},
		},
		Assignments: []types.AddressAssignment{
			{Address: "1", Node: "worker", Phase: types.PhaseSuccess},
		},
	}

	stats := Analyze(snap)
	require.Len(t, stats.PerNode, 1)
	assert.Equal(t, "a", stats.PerNode[0].Node)
	assert.Equal(t, 0, stats.PerNode[0].AssignedCount)
}

func TestAnalyzeEmptySnapshot(t *testing.T) {
	stats := Analyze(&types.Snapshot{})
	assert.Zero(t, stats.Gini)
	assert.Zero(t, stats.StdDev)
	assert.Empty(t, stats.PerNode)
}

func TestUtilizationCapsAtHundred(t *testing.T) {
	stats := Analyze(snapWithCounts(map[string]int{"a": 9}, 3))
	require.Len(t, stats.PerNode, 1)
	assert.False(t, math.IsNaN(stats.PerNode[0].UtilizationPercent))
	assert.InDelta(t, 100.0, stats.PerNode[0].UtilizationPercent, 1e-9)
}
