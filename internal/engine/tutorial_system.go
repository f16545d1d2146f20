package engine

import (
	"github.com/kylechrisking/it-empire-idle/internal/domain/tutorial"
	"github.com/kylechrisking/it-empire-idle/internal/domain/unlock"
	"github.com/kylechrisking/it-empire-idle/internal/events"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
)

// triggerCheck reports whether a trigger's condition holds and the value
// compared against the step requirement.
type triggerCheck func(f Facts) (bool, float64)

var triggerChecks = map[string]triggerCheck{
	tutorial.TriggerStart:            func(Facts) (bool, float64) { return true, 0 },
	tutorial.TriggerFirstClick:       func(f Facts) (bool, float64) { return f.TotalClicks >= 1, float64(f.TotalClicks) },
	tutorial.TriggerCanHireTech:      func(f Facts) (bool, float64) { return true, f.Balance },
	tutorial.TriggerTechHired:        func(f Facts) (bool, float64) { return f.Workers >= 1, float64(f.Workers) },
	tutorial.TriggerTaskStarted:      func(f Facts) (bool, float64) { return f.TasksStarted >= 1, float64(f.TasksStarted) },
	tutorial.TriggerCanHireManager:   func(f Facts) (bool, float64) { return true, f.Balance },
	tutorial.TriggerManagerHired:     func(f Facts) (bool, float64) { return f.Managers >= 1, float64(f.Managers) },
	tutorial.TriggerUpgradesUnlocked: func(f Facts) (bool, float64) { return f.Unlocked[unlock.FeatureUpgradesPanel], 0 },
}

// TutorialSystem fires tutorial triggers from the current facts.
type TutorialSystem struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	runner   *tutorial.Runner
}

func NewTutorialSystem(steps []tutorial.Step, el *events.EventLog, log *logger.Logger) *TutorialSystem {
	return &TutorialSystem{
		eventLog: el,
		logger:   log,
		runner:   tutorial.NewRunner(steps),
	}
}

// Advance fires trigger with value and returns the step message when the cursor moved.
func (ts *TutorialSystem) Advance(trigger string, value float64) (string, bool) {
	step := ts.runner.State().CurrentStep
	msg, ok := ts.runner.Advance(trigger, value)
	if ok {
		ts.eventLog.Append(events.GameEvent{
			Type:    events.EventTypeTutorialAdvanced,
			ActorID: "TUTORIAL",
			Payload: map[string]interface{}{"step": step, "trigger": trigger},
		})
	}
	return msg, ok
}

// Evaluate keeps advancing while the current step's condition holds, so a
// player who got ahead of the script catches up in one pass.
func (ts *TutorialSystem) Evaluate(f Facts) []string {
	var messages []string
	for {
		step, ok := ts.runner.Current()
		if !ok {
			return messages
		}
		check, known := triggerChecks[step.Trigger]
		if !known {
			return messages
		}
		holds, value := check(f)
		if !holds {
			return messages
		}
		msg, advanced := ts.Advance(step.Trigger, value)
		if !advanced {
			return messages
		}
		messages = append(messages, msg)
	}
}

// Current returns the pending step, if the tutorial is still running.
func (ts *TutorialSystem) Current() (tutorial.Step, bool) {
	return ts.runner.Current()
}

func (ts *TutorialSystem) State() tutorial.State {
	return ts.runner.State()
}

func (ts *TutorialSystem) Restore(s tutorial.State) {
	ts.runner.Restore(s)
}

func (ts *TutorialSystem) Reset() {
	ts.runner.Reset()
}
