package score

import (
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/types"
)

// Alerting bands the scores must respect: utilization warning/critical at
// 90/95 percent, distribution inequality warning/critical at Gini 0.4/0.7.
const (
	utilizationWarn = 90.0
	utilizationCrit = 95.0
	giniWarn        = 0.4
	giniCrit        = 0.7
)

// Inputs carries everything the scorer combines.
type Inputs struct {
	// TotalAssigned is the count of Success-phase assignments.
	TotalAssigned int
	// TotalAssignments is the count of assignments in any phase.
	TotalAssignments int
	// ErrorAssignments is the count of Error-phase assignments.
	ErrorAssignments int
	// TotalCapacity is the summed capacity of egress-capable nodes.
	TotalCapacity int
	// Gini is the distribution inequality from the analyzer.
	Gini float64
	// ChangesPerHour is the address-change rate from the history store.
	ChangesPerHour float64
}

// Compute derives the composite health and stability scores, both clamped
// to [0,100]. A system with nothing configured scores a perfect 100 on
// both: empty is healthy, not unknown.
func Compute(in Inputs) types.Scores {
	return types.Scores{
		Health:    health(in),
		Stability: stability(in),
	}
}

// health starts from 100 and subtracts three independent saturating
// penalties. Each penalty is monotonically non-decreasing in its input and
// caps at the documented alert band instead of diverging.
func health(in Inputs) float64 {
	if in.TotalAssignments == 0 && in.TotalAssigned == 0 {
		return 100
	}

	score := 100.0
	score -= utilizationPenalty(in)
	score -= errorPenalty(in)
	score -= giniPenalty(in.Gini)
	return clamp(score)
}

// utilizationPenalty ramps gently until the 90% warning band, then jumps
// to the warning and critical plateaus.
func utilizationPenalty(in Inputs) float64 {
	if in.TotalCapacity == 0 {
		return 0
	}
	utilization := float64(in.TotalAssigned) / float64(in.TotalCapacity) * 100

	switch {
	case utilization >= utilizationCrit:
		return 40
	case utilization >= utilizationWarn:
		// 25 at the warning threshold, rising toward 40 at critical.
		return 25 + (utilization-utilizationWarn)/(utilizationCrit-utilizationWarn)*15
	case utilization >= 75:
		// Pressure builds between 75% and the warning band.
		return (utilization - 75) / (utilizationWarn - 75) * 25
	default:
		return 0
	}
}

// errorPenalty scales with the share of Error-phase assignments, up to 40.
func errorPenalty(in Inputs) float64 {
	if in.TotalAssignments == 0 {
		return 0
	}
	ratio := float64(in.ErrorAssignments) / float64(in.TotalAssignments)
	return ratio * 40
}

// giniPenalty follows the 0.4/0.7 alerting bands and caps at 30.
func giniPenalty(gini float64) float64 {
	switch {
	case gini >= giniCrit:
		return 30
	case gini >= giniWarn:
		// 10 at the warning threshold, rising toward 25 at critical.
		return 10 + (gini-giniWarn)/(giniCrit-giniWarn)*15
	default:
		return gini / giniWarn * 10
	}
}

// stability decreases with the recent change rate and saturates at zero.
func stability(in Inputs) float64 {
	penalty := in.ChangesPerHour * 2
	if penalty > 100 {
		penalty = 100
	}
	return clamp(100 - penalty)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
