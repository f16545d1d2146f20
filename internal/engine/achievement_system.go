package engine

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/kylechrisking/it-empire-idle/internal/domain/achievement"
	"github.com/kylechrisking/it-empire-idle/internal/events"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
)

type compiledAchievement struct {
	def     achievement.Definition
	program *vm.Program
}

// AchievementSystem checks achievement predicates and unlocks each at most once.
type AchievementSystem struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	defs     []compiledAchievement
	unlocked map[string]bool
}

// NewAchievementSystem compiles every definition's condition against Facts.
// Definitions that fail to compile are logged and left out.
func NewAchievementSystem(defs []achievement.Definition, el *events.EventLog, log *logger.Logger) *AchievementSystem {
	as := &AchievementSystem{
		eventLog: el,
		logger:   log,
		unlocked: make(map[string]bool),
	}
	for _, def := range defs {
		program, err := compileCondition(def)
		if err != nil {
			log.Error("achievement disabled", "id", def.ID, "err", err)
			continue
		}
		as.defs = append(as.defs, compiledAchievement{def: def, program: program})
	}
	return as
}

func compileCondition(def achievement.Definition) (*vm.Program, error) {
	cond, err := def.Condition()
	if err != nil {
		return nil, err
	}
	program, err := expr.Compile(cond, expr.Env(Facts{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", cond, err)
	}
	return program, nil
}

// CheckAndUnlock unlocks every locked achievement whose condition holds and
// returns them in catalog order.
func (as *AchievementSystem) CheckAndUnlock(f Facts) []achievement.Definition {
	var fresh []achievement.Definition
	for _, c := range as.defs {
		if as.unlocked[c.def.ID] {
			continue
		}
		out, err := expr.Run(c.program, f)
		if err != nil {
			as.logger.Warn("achievement condition failed", "id", c.def.ID, "err", err)
			continue
		}
		if ok, _ := out.(bool); !ok {
			continue
		}

		as.unlocked[c.def.ID] = true
		fresh = append(fresh, c.def)

		as.eventLog.Append(events.GameEvent{
			Type:    events.EventTypeAchievementUnlocked,
			ActorID: c.def.ID,
			Payload: map[string]interface{}{
				"name":         c.def.Name,
				"rewardKind":   c.def.RewardKind,
				"rewardAmount": c.def.RewardAmount,
			},
		})
		as.logger.Event(string(events.EventTypeAchievementUnlocked), c.def.ID, c.def.Name)
	}
	return fresh
}

// IsUnlocked reports whether id has fired.
func (as *AchievementSystem) IsUnlocked(id string) bool {
	return as.unlocked[id]
}

// UnlockedIDs returns the fired achievements in catalog order.
func (as *AchievementSystem) UnlockedIDs() []string {
	var ids []string
	for _, c := range as.defs {
		if as.unlocked[c.def.ID] {
			ids = append(ids, c.def.ID)
		}
	}
	return ids
}

// Definitions returns the active catalog.
func (as *AchievementSystem) Definitions() []achievement.Definition {
	out := make([]achievement.Definition, len(as.defs))
	for i, c := range as.defs {
		out[i] = c.def
	}
	return out
}

// Restore marks ids as unlocked without granting rewards again.
func (as *AchievementSystem) Restore(ids []string) {
	as.Reset()
	for _, id := range ids {
		as.unlocked[id] = true
	}
}

func (as *AchievementSystem) Reset() {
	as.unlocked = make(map[string]bool)
}
