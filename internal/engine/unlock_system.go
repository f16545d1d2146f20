package engine

import (
	"github.com/kylechrisking/it-empire-idle/internal/domain/roster"
	"github.com/kylechrisking/it-empire-idle/internal/domain/unlock"
	"github.com/kylechrisking/it-empire-idle/internal/events"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
)

// UnlockSystem keeps the monotonic set of unlocked features.
type UnlockSystem struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	rules    []unlock.Rule
	unlocked map[string]bool
	order    []string
}

func NewUnlockSystem(rules []unlock.Rule, el *events.EventLog, log *logger.Logger) *UnlockSystem {
	return &UnlockSystem{
		eventLog: el,
		logger:   log,
		rules:    rules,
		unlocked: make(map[string]bool),
	}
}

// Evaluate unlocks every feature whose threshold now holds and returns the new ones.
// Features are never re-locked.
func (us *UnlockSystem) Evaluate(r *roster.Roster) []string {
	var fresh []string
	for _, feature := range unlock.Evaluate(us.rules, r) {
		if us.unlocked[feature] {
			continue
		}
		us.mark(feature)
		fresh = append(fresh, feature)

		us.eventLog.Append(events.GameEvent{
			Type:    events.EventTypeFeatureUnlocked,
			ActorID: "SYSTEM",
			Payload: map[string]string{"feature": feature},
		})
		us.logger.Event(string(events.EventTypeFeatureUnlocked), "SYSTEM", feature)
	}
	return fresh
}

// Restore rebuilds the set from r without recording events.
func (us *UnlockSystem) Restore(r *roster.Roster) []string {
	us.Reset()
	for _, feature := range unlock.Evaluate(us.rules, r) {
		us.mark(feature)
	}
	return us.Unlocked()
}

func (us *UnlockSystem) mark(feature string) {
	us.unlocked[feature] = true
	us.order = append(us.order, feature)
}

func (us *UnlockSystem) IsUnlocked(feature string) bool {
	return us.unlocked[feature]
}

// Unlocked returns features in the order they were unlocked.
func (us *UnlockSystem) Unlocked() []string {
	out := make([]string, len(us.order))
	copy(out, us.order)
	return out
}

func (us *UnlockSystem) Reset() {
	us.unlocked = make(map[string]bool)
	us.order = nil
}
