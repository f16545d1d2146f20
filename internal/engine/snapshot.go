package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kylechrisking/it-empire-idle/internal/domain/roster"
	"github.com/kylechrisking/it-empire-idle/internal/domain/rules"
	"github.com/kylechrisking/it-empire-idle/internal/domain/tutorial"
	"github.com/kylechrisking/it-empire-idle/internal/events"
	"github.com/kylechrisking/it-empire-idle/internal/ledger"
	"github.com/kylechrisking/it-empire-idle/internal/save"
)

// Snapshot captures the complete game state, stamped with now.
func (e *Engine) Snapshot(now time.Time) save.Snapshot {
	st := e.ledger.State()

	roles := make(map[string]save.Role, len(e.roster.Roles()))
	for _, role := range e.roster.Roles() {
		employees := make(map[string]save.Entity, len(role.Entities()))
		for _, ent := range role.Entities() {
			employees[ent.ID] = save.Entity{
				Owned:        ent.Owned,
				Automated:    ent.Automated,
				Cost:         ent.Cost,
				BaseReward:   ent.BaseReward,
				BaseTaskTime: float64(ent.BaseTaskDuration) / float64(time.Millisecond),
				Manages:      ent.Manages,
			}
		}
		roles[role.Name] = save.Role{Employees: employees}
	}

	ts := e.tutorial.State()
	snap := save.Snapshot{
		Version:    save.Version,
		Data:       st.Balance,
		ClickValue: e.clickValue,
		Statistics: save.Statistics{
			TotalDataGenerated: st.TotalGenerated,
			TotalClicks:        st.TotalClicks,
			PeakDPS:            st.PeakRate,
			TimeSpentPlaying:   e.playTime.Milliseconds(),
			TasksStarted:       e.tasksStarted,
		},
		Roles: roles,
		AchievementBonuses: save.Bonuses{
			TaskSpeed:  e.bonuses.TaskSpeed,
			Income:     e.bonuses.Income,
			ClickValue: e.bonuses.ClickValue,
			Efficiency: e.bonuses.Efficiency,
		},
		Settings:      e.settings,
		TutorialState: save.TutorialState{Completed: ts.Completed, CurrentStep: ts.CurrentStep},
		LastSaveTime:  now.UnixMilli(),
		Achievements:  e.achievements.UnlockedIDs(),
	}
	if levels := e.upgrades.Levels(); len(levels) > 0 {
		snap.Upgrades = levels
	}
	return snap
}

// Restore replaces the whole game state with s. Nothing changes when s is invalid.
// Entities the catalog does not know are ignored.
func (e *Engine) Restore(s save.Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}

	led := ledger.New()
	err := led.Restore(ledger.State{
		Balance:        s.Data,
		TotalGenerated: math.Max(s.Statistics.TotalDataGenerated, s.Data),
		TotalClicks:    s.Statistics.TotalClicks,
		PeakRate:       s.Statistics.PeakDPS,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", save.ErrCorruptSave, err)
	}

	e.ledger = led
	e.roster.Reset()
	for roleName, role := range s.Roles {
		for id, se := range role.Employees {
			ent, err := e.roster.Get(roleName, id)
			if err != nil {
				e.logger.Warn("ignoring unknown entity in save", "role", roleName, "id", id)
				continue
			}
			restoreEntity(ent, se)
		}
	}
	// An owned manager always implies its worker is automated. A manager
	// whose worker is not owned goes back on the market.
	for _, ent := range e.roster.Entities() {
		if ent.IsWorker() || !ent.Owned {
			continue
		}
		if w, ok := e.roster.Lookup(ent.Manages); ok && w.Owned {
			w.Automated = true
			continue
		}
		e.logger.Warn("releasing manager without an owned worker", "id", ent.ID, "manages", ent.Manages)
		ent.Owned = false
	}

	e.bonuses = rules.Bonuses{
		TaskSpeed:  s.AchievementBonuses.TaskSpeed,
		Income:     s.AchievementBonuses.Income,
		ClickValue: s.AchievementBonuses.ClickValue,
		Efficiency: s.AchievementBonuses.Efficiency,
	}
	e.clickValue = s.ClickValue
	if e.clickValue <= 0 {
		e.clickValue = e.catalog.Balance.StartingClickValue
	}
	e.settings = s.Settings
	e.playTime = time.Duration(s.Statistics.TimeSpentPlaying) * time.Millisecond
	e.tasksStarted = s.Statistics.TasksStarted

	e.upgrades.Restore(s.Upgrades)
	e.achievements.Restore(s.Achievements)
	e.tutorial.Restore(tutorial.State{CurrentStep: s.TutorialState.CurrentStep, Completed: s.TutorialState.Completed})

	e.tasks.Clear()
	for _, w := range e.roster.Workers() {
		if w.Owned && w.Automated {
			e.tasks.Start(w, e.durationFor(w))
		}
	}

	e.presenter.OnBalanceChanged(e.ledger.Balance())
	for _, feature := range e.unlocks.Restore(e.roster) {
		e.presenter.OnUnlock(feature)
	}
	e.evaluate()
	return nil
}

func restoreEntity(ent *roster.Entity, se save.Entity) {
	ent.Owned = se.Owned
	if se.Cost > 0 {
		ent.Cost = se.Cost
	}
	if !ent.IsWorker() {
		return
	}
	ent.Automated = se.Automated && se.Owned
	if se.BaseReward > 0 {
		ent.BaseReward = se.BaseReward
	}
	if se.BaseTaskTime > 0 {
		ent.BaseTaskDuration = time.Duration(se.BaseTaskTime * float64(time.Millisecond))
	}
}

// ApplyOfflineProgress credits what automated workers produced while the game
// was closed and returns the amount.
func (e *Engine) ApplyOfflineProgress(elapsed time.Duration) float64 {
	rate := e.DPS()
	amount := rules.OfflineEarnings(rate, elapsed)
	if amount <= 0 {
		return 0
	}
	if err := e.ledger.Credit(amount); err != nil {
		e.logger.Error("offline credit rejected", "amount", amount, "err", err)
		return 0
	}

	e.eventLog.Append(events.GameEvent{
		Type:    events.EventTypeOfflineProgress,
		ActorID: "SYSTEM",
		Payload: map[string]interface{}{"seconds": elapsed.Seconds(), "rate": rate, "amount": amount},
	})
	e.logger.Event(string(events.EventTypeOfflineProgress), "SYSTEM",
		fmt.Sprintf("%s GB over %s", humanize.Commaf(amount), elapsed.Round(time.Second)))

	e.presenter.OnBalanceChanged(e.ledger.Balance())
	e.evaluate()
	return amount
}
