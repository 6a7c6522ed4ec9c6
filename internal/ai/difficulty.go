// internal/ai/difficulty.go
package ai

import (
	"github.com/lanegames/gamesvc/internal/gameerr"
)

// Tier is an AI difficulty level mapped to a fixed MCTS iteration budget.
type Tier string

const (
	TierLow      Tier = "low"
	TierMedium   Tier = "medium"
	TierHigh     Tier = "high"
	TierVeryHigh Tier = "very_high"
)

// tierOrder lists tiers from weakest to strongest.
var tierOrder = []Tier{TierLow, TierMedium, TierHigh, TierVeryHigh}

// DefaultBudgets returns the stock iteration counts per tier.
func DefaultBudgets() map[Tier]int {
	return map[Tier]int{
		TierLow:      100,
		TierMedium:   500,
		TierHigh:     2000,
		TierVeryHigh: 5000,
	}
}

// ParseTier validates a tier string.
func ParseTier(s string) (Tier, error) {
	for _, t := range tierOrder {
		if string(t) == s {
			return t, nil
		}
	}
	return "", gameerr.Validation("unknown difficulty tier: %s", s)
}

func tierIndex(t Tier) int {
	for i, v := range tierOrder {
		if v == t {
			return i
		}
	}
	return -1
}

// DefaultTargetWinRate is the opponent win rate the recalibration policy
// steers toward.
const DefaultTargetWinRate = 0.5

// recalibrateThreshold is the dead band around the target before a tier
// change is recommended.
const recalibrateThreshold = 0.1

// Adjustment is the outcome of a difficulty recalibration.
type Adjustment struct {
	Recommended Tier    `json:"recommended_tier"`
	Previous    Tier    `json:"previous_tier"`
	WinRate     float64 `json:"win_rate"`
	Reason      string  `json:"reason"`
}

// Recalibrate nudges the tier one step up when the opponent's observed win
// rate exceeds target+threshold, one step down when below target-threshold,
// clamped at the boundaries.
func Recalibrate(current Tier, winRate, target float64) (Adjustment, error) {
	idx := tierIndex(current)
	if idx < 0 {
		return Adjustment{}, gameerr.Validation("unknown difficulty tier: %s", current)
	}
	adj := Adjustment{Recommended: current, Previous: current, WinRate: winRate}

	switch {
	case winRate > target+recalibrateThreshold:
		if idx == len(tierOrder)-1 {
			adj.Reason = "already at maximum difficulty"
		} else {
			adj.Recommended = tierOrder[idx+1]
			adj.Reason = "increasing difficulty: opponent win rate above target"
		}
	case winRate < target-recalibrateThreshold:
		if idx == 0 {
			adj.Reason = "already at minimum difficulty"
		} else {
			adj.Recommended = tierOrder[idx-1]
			adj.Reason = "decreasing difficulty: opponent win rate below target"
		}
	default:
		adj.Reason = "win rate within acceptable range"
	}
	return adj, nil
}
