package distribution

import (
	"math"
	"sort"

	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/types"
)

// Analyze computes per-node load and fairness statistics over a snapshot.
// Only egress-capable nodes participate; capable nodes with zero Success
// assignments count as zero, they are not excluded.
func Analyze(snap *types.Snapshot) types.DistributionStats {
	capable := snap.CapableNodes()
	if len(capable) == 0 {
		return types.DistributionStats{}
	}

	assigned := make(map[string]int, len(capable))
	for _, a := range snap.Assignments {
		if a.Phase == types.PhaseSuccess {
			assigned[a.Node]++
		}
	}

	stats := types.DistributionStats{
		PerNode: make([]types.NodeStats, 0, len(capable)),
	}
	counts := make([]int, 0, len(capable))

	for _, n := range capable {
		count := assigned[n.Name]
		counts = append(counts, count)

		utilization := 0.0
		if n.Capacity > 0 {
			utilization = math.Min(100, float64(count)/float64(n.Capacity)*100)
		}
		stats.PerNode = append(stats.PerNode, types.NodeStats{
			Node:               n.Name,
			AssignedCount:      count,
			Capacity:           n.Capacity,
			UtilizationPercent: utilization,
		})
	}

	stats.Min, stats.Max = minMax(counts)
	stats.StdDev = stdDev(counts)
	stats.Gini = gini(counts)
	return stats
}

func minMax(counts []int) (int, int) {
	min, max := counts[0], counts[0]
	for _, c := range counts[1:] {
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	return min, max
}

// stdDev is the population standard deviation over all counts.
func stdDev(counts []int) float64 {
	n := float64(len(counts))
	mean := 0.0
	for _, c := range counts {
		mean += float64(c)
	}
	mean /= n

	variance := 0.0
	for _, c := range counts {
		d := float64(c) - mean
		variance += d * d
	}
	return math.Sqrt(variance / n)
}

// gini computes the Gini coefficient over the counts:
//
//	G = (2*Σ(i*x_i) - (n+1)*Σx_i) / (n*Σx_i)
//
// with x sorted ascending and i the 1-based rank. Defined as 0 for an
// empty or all-zero distribution. All-equal counts give 0; everything on
// one node out of n approaches (n-1)/n.
func gini(counts []int) float64 {
	n := len(counts)
	if n == 0 {
		return 0
	}

	sorted := make([]int, n)
	copy(sorted, counts)
	sort.Ints(sorted)

	total := 0
	ranked := 0
	for i, c := range sorted {
		total += c
		ranked += (i + 1) * c
	}
	if total == 0 {
		return 0
	}

	g := (2*float64(ranked) - float64(n+1)*float64(total)) / (float64(n) * float64(total))
	return math.Abs(g)
}
