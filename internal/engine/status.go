package engine

import (
	"time"

	"github.com/kylechrisking/it-empire-idle/internal/domain/rules"
	"github.com/kylechrisking/it-empire-idle/internal/save"
)

// Status is the read model served to clients.
type Status struct {
	Balance        float64             `json:"balance"`
	DPS            float64             `json:"dps"`
	ClickValue     float64             `json:"clickValue"`
	Statistics     save.Statistics     `json:"statistics"`
	Bonuses        rules.Bonuses       `json:"bonuses"`
	Roles          []RoleStatus        `json:"roles"`
	Upgrades       []UpgradeStatus     `json:"upgrades"`
	Achievements   []AchievementStatus `json:"achievements"`
	Unlocked       []string            `json:"unlocked"`
	Tutorial       TutorialStatus      `json:"tutorial"`
	Settings       save.Settings       `json:"settings"`
	FullyAutomated bool                `json:"fullyAutomated"`
}

type RoleStatus struct {
	Name     string         `json:"name"`
	Title    string         `json:"title"`
	Entities []EntityStatus `json:"entities"`
}

type EntityStatus struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Cost       float64 `json:"cost"`
	BaseReward float64 `json:"baseReward,omitempty"`
	TaskMillis int64   `json:"taskMillis,omitempty"` // effective duration
	Manages    string  `json:"manages,omitempty"`
	Owned      bool    `json:"owned"`
	Automated  bool    `json:"automated"`
	Running    bool    `json:"running"`
	Progress   float64 `json:"progress"`
	Affordable bool    `json:"affordable"`
}

type UpgradeStatus struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Level       int     `json:"level"`
	MaxLevel    int     `json:"maxLevel"`
	NextCost    float64 `json:"nextCost"`
	Maxed       bool    `json:"maxed"`
}

type AchievementStatus struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Reward      string `json:"reward"`
	Unlocked    bool   `json:"unlocked"`
}

type TutorialStatus struct {
	CurrentStep int    `json:"currentStep"`
	Completed   bool   `json:"completed"`
	Message     string `json:"message,omitempty"`
}

// Status builds the read model of the current state.
func (e *Engine) Status() Status {
	st := e.ledger.State()
	s := Status{
		Balance:    st.Balance,
		DPS:        e.DPS(),
		ClickValue: rules.ClickReward(e.clickValue, e.bonuses),
		Statistics: save.Statistics{
			TotalDataGenerated: st.TotalGenerated,
			TotalClicks:        st.TotalClicks,
			PeakDPS:            st.PeakRate,
			TimeSpentPlaying:   e.playTime.Milliseconds(),
			TasksStarted:       e.tasksStarted,
		},
		Bonuses:        e.bonuses,
		Unlocked:       e.unlocks.Unlocked(),
		Settings:       e.settings,
		FullyAutomated: e.roster.FullyAutomated(),
	}

	for _, role := range e.roster.Roles() {
		rs := RoleStatus{Name: role.Name, Title: role.Title}
		for _, ent := range role.Entities() {
			es := EntityStatus{
				ID:         ent.ID,
				Title:      ent.Title,
				Cost:       ent.Cost,
				BaseReward: ent.BaseReward,
				Manages:    ent.Manages,
				Owned:      ent.Owned,
				Automated:  ent.Automated,
				Affordable: !ent.Owned && e.ledger.CanAfford(ent.Cost),
			}
			if ent.IsWorker() {
				es.TaskMillis = e.durationFor(ent).Milliseconds()
			}
			if t, ok := e.tasks.Running(ent.ID); ok {
				es.Running = true
				es.Progress = t.Progress()
			}
			rs.Entities = append(rs.Entities, es)
		}
		s.Roles = append(s.Roles, rs)
	}

	for _, def := range e.upgrades.Definitions() {
		level := e.upgrades.Level(def.ID)
		us := UpgradeStatus{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Level:       level,
			MaxLevel:    def.MaxLevel,
			Maxed:       def.Maxed(level),
		}
		if !us.Maxed {
			us.NextCost = def.Cost(level)
		}
		s.Upgrades = append(s.Upgrades, us)
	}

	for _, def := range e.achievements.Definitions() {
		s.Achievements = append(s.Achievements, AchievementStatus{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Category:    string(def.Category),
			Reward:      def.RewardText,
			Unlocked:    e.achievements.IsUnlocked(def.ID),
		})
	}

	ts := e.tutorial.State()
	s.Tutorial = TutorialStatus{CurrentStep: ts.CurrentStep, Completed: ts.Completed}
	if step, ok := e.tutorial.Current(); ok {
		s.Tutorial.Message = step.Message
	}
	return s
}

// PlayTime is the accumulated in-session play time.
func (e *Engine) PlayTime() time.Duration {
	return e.playTime
}
