package engine

import (
	"fmt"

	"github.com/kylechrisking/it-empire-idle/internal/domain/upgrade"
	"github.com/kylechrisking/it-empire-idle/internal/events"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
)

// UpgradeSystem tracks purchased upgrade levels.
type UpgradeSystem struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	defs     []upgrade.Definition
	byID     map[string]upgrade.Definition
	levels   map[string]int
}

func NewUpgradeSystem(defs []upgrade.Definition, el *events.EventLog, log *logger.Logger) *UpgradeSystem {
	us := &UpgradeSystem{
		eventLog: el,
		logger:   log,
		defs:     defs,
		byID:     make(map[string]upgrade.Definition, len(defs)),
		levels:   make(map[string]int),
	}
	for _, d := range defs {
		us.byID[d.ID] = d
	}
	return us
}

// Quote returns the definition, current level and next cost of id.
func (us *UpgradeSystem) Quote(id string) (upgrade.Definition, int, float64, error) {
	d, ok := us.byID[id]
	if !ok {
		return upgrade.Definition{}, 0, 0, fmt.Errorf("%s: %w", id, ErrUnknownUpgrade)
	}
	level := us.levels[id]
	if d.Maxed(level) {
		return d, level, 0, fmt.Errorf("%s: %w", id, ErrMaxLevel)
	}
	return d, level, d.Cost(level), nil
}

// Bump records one more level of id and returns the new level.
func (us *UpgradeSystem) Bump(id string, cost float64) int {
	us.levels[id]++
	level := us.levels[id]

	us.eventLog.Append(events.GameEvent{
		Type:    events.EventTypeUpgradePurchased,
		ActorID: id,
		Payload: map[string]interface{}{"level": level, "cost": cost},
	})
	us.logger.Event(string(events.EventTypeUpgradePurchased), id, fmt.Sprintf("level %d for %.0f GB", level, cost))
	return level
}

// Level returns the purchased level of id.
func (us *UpgradeSystem) Level(id string) int {
	return us.levels[id]
}

// Levels returns a copy of the non-zero levels.
func (us *UpgradeSystem) Levels() map[string]int {
	out := make(map[string]int, len(us.levels))
	for id, l := range us.levels {
		if l > 0 {
			out[id] = l
		}
	}
	return out
}

// MaxedSet returns the ids at their final level.
func (us *UpgradeSystem) MaxedSet() map[string]bool {
	out := make(map[string]bool)
	for _, d := range us.defs {
		if d.Maxed(us.levels[d.ID]) {
			out[d.ID] = true
		}
	}
	return out
}

// Purchased is the total number of levels bought.
func (us *UpgradeSystem) Purchased() int {
	n := 0
	for _, l := range us.levels {
		n += l
	}
	return n
}

func (us *UpgradeSystem) Definitions() []upgrade.Definition {
	return us.defs
}

// Restore replaces the levels. Unknown ids are dropped and levels are capped.
func (us *UpgradeSystem) Restore(levels map[string]int) {
	us.Reset()
	for id, l := range levels {
		d, ok := us.byID[id]
		if !ok {
			us.logger.Warn("ignoring unknown upgrade in save", "id", id)
			continue
		}
		if d.MaxLevel > 0 && l > d.MaxLevel {
			l = d.MaxLevel
		}
		if l > 0 {
			us.levels[id] = l
		}
	}
}

func (us *UpgradeSystem) Reset() {
	us.levels = make(map[string]int)
}
