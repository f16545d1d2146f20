// Package save defines the on-disk save format and its validation.
package save

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Version is written into every snapshot.
const Version = "0.1.0"

// ExportFileName is the suggested name for exported saves.
const ExportFileName = "it-empire-save.json"

// ErrCorruptSave is returned when a snapshot fails to parse or validate.
var ErrCorruptSave = errors.New("corrupt save")

// Snapshot is the full serializable game state.
type Snapshot struct {
	Version            string          `json:"version"`
	Data               float64         `json:"data"`
	ClickValue         float64         `json:"clickValue"`
	Statistics         Statistics      `json:"statistics"`
	Roles              map[string]Role `json:"roles"`
	AchievementBonuses Bonuses         `json:"achievementBonuses"`
	Settings           Settings        `json:"settings"`
	TutorialState      TutorialState   `json:"tutorialState"`
	LastSaveTime       int64           `json:"lastSaveTime"` // unix milliseconds

	Upgrades     map[string]int `json:"upgrades,omitempty"`
	Achievements []string       `json:"achievements,omitempty"`
}

// Statistics are the lifetime counters.
type Statistics struct {
	TotalDataGenerated float64 `json:"totalDataGenerated"`
	TotalClicks        int64   `json:"totalClicks"`
	PeakDPS            float64 `json:"peakDPS"`
	TimeSpentPlaying   int64   `json:"timeSpentPlaying"` // milliseconds
	TasksStarted       int64   `json:"tasksStarted"`
}

// Role wraps the entities of one role.
type Role struct {
	Employees map[string]Entity `json:"employees"`
}

// Entity is the persisted state of one hireable entity.
type Entity struct {
	Owned        bool    `json:"owned"`
	Automated    bool    `json:"automated"`
	Cost         float64 `json:"cost"`
	BaseReward   float64 `json:"baseReward,omitempty"`
	BaseTaskTime float64 `json:"baseTaskTime,omitempty"` // milliseconds
	Manages      string  `json:"manages,omitempty"`
}

// Bonuses mirrors rules.Bonuses on the wire.
type Bonuses struct {
	TaskSpeed  float64 `json:"taskSpeed"`
	Income     float64 `json:"income"`
	ClickValue float64 `json:"clickValue"`
	Efficiency float64 `json:"efficiency"`
}

// Settings are opaque presentation preferences.
type Settings struct {
	NotificationDuration int    `json:"notificationDuration"`
	ProgressAnimation    string `json:"progressAnimation"`
	Theme                string `json:"theme"`
	ColorScheme          string `json:"colorScheme"`
}

// DefaultSettings returns the settings of a fresh game.
func DefaultSettings() Settings {
	return Settings{
		NotificationDuration: 3000,
		ProgressAnimation:    "smooth",
		Theme:                "default",
		ColorScheme:          "blue",
	}
}

// TutorialState is the persisted tutorial cursor.
type TutorialState struct {
	Completed   bool `json:"completed"`
	CurrentStep int  `json:"currentStep"`
}

// Encode renders a snapshot as indented JSON.
func Encode(s Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

var requiredFields = []string{"data", "roles"}

// Decode parses and validates a snapshot. Missing optional fields take the
// defaults of a fresh game.
func Decode(data []byte) (Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	for _, field := range requiredFields {
		v, ok := raw[field]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return Snapshot{}, fmt.Errorf("%w: missing field %q", ErrCorruptSave, field)
		}
	}

	s := Snapshot{
		ClickValue: 1,
		Settings:   DefaultSettings(),
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	if s.Version == "" {
		s.Version = Version
	}
	return s, nil
}

// Validate checks numeric ranges and cross-field invariants.
func (s Snapshot) Validate() error {
	nums := map[string]float64{
		"data":                          s.Data,
		"clickValue":                    s.ClickValue,
		"statistics.totalDataGenerated": s.Statistics.TotalDataGenerated,
		"statistics.peakDPS":            s.Statistics.PeakDPS,
		"achievementBonuses.taskSpeed":  s.AchievementBonuses.TaskSpeed,
		"achievementBonuses.income":     s.AchievementBonuses.Income,
		"achievementBonuses.clickValue": s.AchievementBonuses.ClickValue,
		"achievementBonuses.efficiency": s.AchievementBonuses.Efficiency,
	}
	for name, v := range nums {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s out of range (%v)", ErrCorruptSave, name, v)
		}
	}
	if s.Statistics.TotalClicks < 0 || s.Statistics.TimeSpentPlaying < 0 || s.Statistics.TasksStarted < 0 {
		return fmt.Errorf("%w: negative statistics", ErrCorruptSave)
	}
	for roleName, role := range s.Roles {
		for id, e := range role.Employees {
			if e.Cost < 0 || e.BaseReward < 0 || e.BaseTaskTime < 0 {
				return fmt.Errorf("%w: %s/%s has negative fields", ErrCorruptSave, roleName, id)
			}
			if e.Automated && !e.Owned {
				return fmt.Errorf("%w: %s/%s automated but not owned", ErrCorruptSave, roleName, id)
			}
		}
	}
	for id, level := range s.Upgrades {
		if level < 0 {
			return fmt.Errorf("%w: upgrade %s has negative level", ErrCorruptSave, id)
		}
	}
	if s.TutorialState.CurrentStep < 0 {
		return fmt.Errorf("%w: negative tutorial step", ErrCorruptSave)
	}
	return nil
}
