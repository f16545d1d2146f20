// Package rules contains the pure calculation logic for production and bonuses.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kylechrisking/it-empire-idle/internal/domain/roster"
)

// DefaultMinTaskDuration is the floor applied to effective task durations.
const DefaultMinTaskDuration = 100 * time.Millisecond

var (
	ErrUnknownRewardKind = errors.New("unknown reward kind")
	ErrInvalidBonus      = errors.New("invalid bonus amount")
)

// RewardKind names the bonus a reward feeds into.
type RewardKind string

const (
	KindNone       RewardKind = ""
	KindTaskSpeed  RewardKind = "taskSpeed"
	KindIncome     RewardKind = "income"
	KindClickValue RewardKind = "clickValue"
	KindEfficiency RewardKind = "efficiency"
)

// ParseRewardKind normalises a reward kind, ignoring case, spaces and underscores.
func ParseRewardKind(s string) (RewardKind, error) {
	norm := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s))
	switch norm {
	case "":
		return KindNone, nil
	case "taskspeed":
		return KindTaskSpeed, nil
	case "income":
		return KindIncome, nil
	case "clickvalue":
		return KindClickValue, nil
	case "efficiency":
		return KindEfficiency, nil
	}
	return KindNone, fmt.Errorf("%q: %w", s, ErrUnknownRewardKind)
}

// Bonuses are the accumulated multipliers from achievements and upgrades.
// Every field only ever grows.
type Bonuses struct {
	TaskSpeed  float64 `json:"taskSpeed"`
	Income     float64 `json:"income"`
	ClickValue float64 `json:"clickValue"`
	Efficiency float64 `json:"efficiency"`
}

// Apply adds amount to the bonus named by kind. An empty kind is a no-op.
func (b *Bonuses) Apply(kind string, amount float64) error {
	k, err := ParseRewardKind(kind)
	if err != nil {
		return err
	}
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%s %v: %w", kind, amount, ErrInvalidBonus)
	}
	switch k {
	case KindTaskSpeed:
		b.TaskSpeed += amount
	case KindIncome:
		b.Income += amount
	case KindClickValue:
		b.ClickValue += amount
	case KindEfficiency:
		b.Efficiency += amount
	}
	return nil
}

// EffectiveDuration shortens base by the task speed bonus, never below floor.
func EffectiveDuration(base time.Duration, b Bonuses, floor time.Duration) time.Duration {
	d := time.Duration(float64(base) * (1 - b.TaskSpeed))
	if d < floor {
		return floor
	}
	return d
}

// TaskReward is round(base × (1 + income)), doubled when roll lands under the efficiency chance.
func TaskReward(base float64, b Bonuses, roll float64) float64 {
	reward := math.Round(base * (1 + b.Income))
	if roll < b.Efficiency {
		reward *= 2
	}
	return reward
}

// ClickReward is the data produced by one manual click.
func ClickReward(clickValue float64, b Bonuses) float64 {
	return math.Round(clickValue * (1 + b.ClickValue))
}

// ProductionRate is the data per second produced by owned, automated workers.
func ProductionRate(workers []*roster.Entity, b Bonuses, floor time.Duration) float64 {
	rate := 0.0
	for _, w := range workers {
		if !w.IsWorker() || !w.Owned || !w.Automated {
			continue
		}
		secs := EffectiveDuration(w.BaseTaskDuration, b, floor).Seconds()
		rate += w.BaseReward / secs
	}
	return rate * (1 + b.Income)
}

// OfflineEarnings is floor(rate × elapsed seconds). Negative elapsed earns nothing.
func OfflineEarnings(rate float64, elapsed time.Duration) float64 {
	if elapsed <= 0 || rate <= 0 {
		return 0
	}
	return math.Floor(rate * elapsed.Seconds())
}
