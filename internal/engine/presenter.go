package engine

import (
	"github.com/kylechrisking/it-empire-idle/internal/domain/achievement"
)

// Presenter receives outbound notifications. All calls happen on the loop
// goroutine and must not block.
type Presenter interface {
	OnBalanceChanged(balance float64)
	OnTaskProgress(entityID string, fraction float64)
	OnEntityHired(entityID string)
	OnUnlock(featureID string)
	OnAchievementUnlocked(def achievement.Definition)
	OnTutorialMessage(text string)
	OnNotice(text string)
}

// NopPresenter discards every notification.
type NopPresenter struct{}

func (NopPresenter) OnBalanceChanged(float64)                     {}
func (NopPresenter) OnTaskProgress(string, float64)               {}
func (NopPresenter) OnEntityHired(string)                         {}
func (NopPresenter) OnUnlock(string)                              {}
func (NopPresenter) OnAchievementUnlocked(achievement.Definition) {}
func (NopPresenter) OnTutorialMessage(string)                     {}
func (NopPresenter) OnNotice(string)                              {}
