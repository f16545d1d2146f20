package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylechrisking/it-empire-idle/internal/domain/roster"
)

func TestParseRewardKind(t *testing.T) {
	cases := map[string]RewardKind{
		"taskSpeed":   KindTaskSpeed,
		"Task Speed":  KindTaskSpeed,
		"INCOME":      KindIncome,
		"click_value": KindClickValue,
		"efficiency":  KindEfficiency,
		"":            KindNone,
	}
	for in, want := range cases {
		got, err := ParseRewardKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseRewardKind("upgradeDiscount")
	assert.ErrorIs(t, err, ErrUnknownRewardKind)
}

func TestBonusesApply(t *testing.T) {
	var b Bonuses
	require.NoError(t, b.Apply("income", 0.05))
	require.NoError(t, b.Apply("Click Value", 1))
	require.NoError(t, b.Apply("", 5))

	assert.ErrorIs(t, b.Apply("luck", 1), ErrUnknownRewardKind)
	assert.ErrorIs(t, b.Apply("income", -0.5), ErrInvalidBonus)

	assert.Equal(t, Bonuses{Income: 0.05, ClickValue: 1}, b)
}

func TestEffectiveDuration(t *testing.T) {
	base := 8 * time.Second

	assert.Equal(t, base, EffectiveDuration(base, Bonuses{}, DefaultMinTaskDuration))
	assert.Equal(t, 6*time.Second, EffectiveDuration(base, Bonuses{TaskSpeed: 0.25}, DefaultMinTaskDuration))
	assert.Equal(t, DefaultMinTaskDuration, EffectiveDuration(base, Bonuses{TaskSpeed: 1.5}, DefaultMinTaskDuration))
}

func TestTaskReward(t *testing.T) {
	assert.Equal(t, 15.0, TaskReward(15, Bonuses{}, 0.9))
	assert.Equal(t, 19.0, TaskReward(15, Bonuses{Income: 0.25}, 0.9), "18.75 rounds to 19")
	assert.Equal(t, 38.0, TaskReward(15, Bonuses{Income: 0.25, Efficiency: 0.5}, 0.2))
	assert.Equal(t, 15.0, TaskReward(15, Bonuses{Efficiency: 0.5}, 0.5), "roll equal to chance does not double")
}

func TestClickReward(t *testing.T) {
	assert.Equal(t, 1.0, ClickReward(1, Bonuses{}))
	assert.Equal(t, 2.0, ClickReward(1, Bonuses{ClickValue: 1}))
}

func TestProductionRate(t *testing.T) {
	r, err := roster.New(roster.Defaults())
	require.NoError(t, err)

	tech1, _ := r.Get(roster.RoleTechnician, "tech1")
	tech2, _ := r.Get(roster.RoleTechnician, "tech2")
	require.NoError(t, tech1.Hire())
	require.NoError(t, tech1.Automate())
	require.NoError(t, tech2.Hire()) // owned but manual, contributes nothing

	rate := ProductionRate(r.Workers(), Bonuses{}, DefaultMinTaskDuration)
	assert.InDelta(t, 15.0/8.0, rate, 1e-9)

	assert.Equal(t, 15.0, OfflineEarnings(rate, 8*time.Second))
	assert.Zero(t, OfflineEarnings(rate, -time.Hour))

	boosted := ProductionRate(r.Workers(), Bonuses{Income: 1}, DefaultMinTaskDuration)
	assert.InDelta(t, 2*15.0/8.0, boosted, 1e-9)
}
