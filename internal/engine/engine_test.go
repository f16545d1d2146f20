package engine

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylechrisking/it-empire-idle/internal/config"
	"github.com/kylechrisking/it-empire-idle/internal/domain/achievement"
	"github.com/kylechrisking/it-empire-idle/internal/domain/roster"
	"github.com/kylechrisking/it-empire-idle/internal/domain/unlock"
	"github.com/kylechrisking/it-empire-idle/internal/events"
	"github.com/kylechrisking/it-empire-idle/internal/ledger"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
)

// recorder captures presenter callbacks.
type recorder struct {
	mu           sync.Mutex
	balances     []float64
	progress     map[string]float64
	hired        []string
	unlocks      []string
	achievements []string
	tutorial     []string
	notices      []string
}

func newRecorder() *recorder {
	return &recorder{progress: make(map[string]float64)}
}

func (r *recorder) OnBalanceChanged(b float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances = append(r.balances, b)
}

func (r *recorder) OnTaskProgress(id string, f float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[id] = f
}

func (r *recorder) OnEntityHired(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hired = append(r.hired, id)
}

func (r *recorder) OnUnlock(f string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unlocks = append(r.unlocks, f)
}

func (r *recorder) OnAchievementUnlocked(d achievement.Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.achievements = append(r.achievements, d.ID)
}

func (r *recorder) OnTutorialMessage(m string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tutorial = append(r.tutorial, m)
}

func (r *recorder) OnNotice(n string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) Notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notices...)
}

// newTestEngine builds an engine over the stock catalog. mutate may adjust it first.
func newTestEngine(t *testing.T, mutate func(*config.Catalog), opts ...Option) (*Engine, *recorder) {
	t.Helper()
	cat := config.DefaultCatalog()
	if mutate != nil {
		mutate(&cat)
	}
	rec := newRecorder()
	opts = append([]Option{WithPresenter(rec), WithRand(FixedRand(0.99))}, opts...)
	e, err := NewEngine(cat, events.NewEventLog(nil), logger.Discard(), opts...)
	require.NoError(t, err)
	return e, rec
}

func noAchievements(c *config.Catalog) { c.Achievements = nil }

func fund(t *testing.T, e *Engine, amount float64) {
	t.Helper()
	require.NoError(t, e.ledger.Credit(amount))
}

func TestEngine_Click(t *testing.T) {
	e, rec := newTestEngine(t, nil)
	e.Start()

	got := e.Click()

	assert.Equal(t, 1.0, got)
	assert.Equal(t, 1.0, e.Balance())
	assert.Equal(t, int64(1), e.ledger.TotalClicks())
	require.Len(t, rec.tutorial, 2)
	assert.Contains(t, rec.tutorial[0], "Welcome")
	assert.Equal(t, 2, e.tutorial.State().CurrentStep)
}

func TestEngine_HireEmployee(t *testing.T) {
	t.Run("hires and unlocks managers", func(t *testing.T) {
		e, rec := newTestEngine(t, nil)
		for i := 0; i < 25; i++ {
			e.Click()
		}

		require.NoError(t, e.HireEmployee(roster.RoleTechnician, "tech1"))

		tech1, _ := e.roster.Lookup("tech1")
		assert.True(t, tech1.Owned)
		assert.Equal(t, 0.0, e.Balance())
		assert.Equal(t, []string{"tech1"}, rec.hired)
		assert.Contains(t, rec.unlocks, unlock.FeatureManagersPanel)
		assert.True(t, e.unlocks.IsUnlocked(unlock.FeatureManagersPanel))
		assert.Equal(t, 4, e.tutorial.State().CurrentStep)
		assert.Len(t, e.eventLog.GetByType(events.EventTypeEntityHired), 1)
	})

	t.Run("insufficient funds leaves state alone", func(t *testing.T) {
		e, _ := newTestEngine(t, nil)
		fund(t, e, 24)

		err := e.HireEmployee(roster.RoleTechnician, "tech1")

		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
		assert.Equal(t, 24.0, e.Balance())
		tech1, _ := e.roster.Lookup("tech1")
		assert.False(t, tech1.Owned)
	})

	t.Run("rejects duplicates, unknown ids and managers", func(t *testing.T) {
		e, _ := newTestEngine(t, nil)
		fund(t, e, 1000)
		require.NoError(t, e.HireEmployee(roster.RoleTechnician, "tech1"))

		assert.ErrorIs(t, e.HireEmployee(roster.RoleTechnician, "tech1"), roster.ErrAlreadyOwned)
		assert.ErrorIs(t, e.HireEmployee(roster.RoleTechnician, "nope"), roster.ErrUnknownEntity)
		assert.ErrorIs(t, e.HireEmployee(roster.RoleManager, "techManager1"), ErrWrongKind)
		assert.Equal(t, 975.0, e.Balance())
	})
}

func TestEngine_ManualTask(t *testing.T) {
	e, rec := newTestEngine(t, noAchievements)
	fund(t, e, 25)
	require.NoError(t, e.HireEmployee(roster.RoleTechnician, "tech1"))
	require.NoError(t, e.StartTask(roster.RoleTechnician, "tech1"))

	e.Tick(7900 * time.Millisecond)
	assert.Equal(t, 0.0, e.Balance())
	assert.InDelta(t, 7.9/8.0, rec.progress["tech1"], 0.0001)

	e.Tick(100 * time.Millisecond)
	assert.Equal(t, 15.0, e.Balance())
	_, running := e.tasks.Running("tech1")
	assert.False(t, running)

	e.Tick(10 * time.Second)
	assert.Equal(t, 15.0, e.Balance(), "idle worker earns nothing")
}

func TestEngine_StartTask(t *testing.T) {
	e, _ := newTestEngine(t, noAchievements)

	assert.ErrorIs(t, e.StartTask(roster.RoleTechnician, "tech1"), roster.ErrNotOwned)

	fund(t, e, 25)
	require.NoError(t, e.HireEmployee(roster.RoleTechnician, "tech1"))
	require.NoError(t, e.StartTask(roster.RoleTechnician, "tech1"))
	e.Tick(4 * time.Second)
	require.NoError(t, e.StartTask(roster.RoleTechnician, "tech1"))

	task, ok := e.tasks.Running("tech1")
	require.True(t, ok)
	assert.Equal(t, 4*time.Second, task.Elapsed, "restart must not reset progress")
	assert.Equal(t, int64(1), e.tasksStarted)
}

func TestEngine_HireManager(t *testing.T) {
	t.Run("requires the managed worker", func(t *testing.T) {
		e, _ := newTestEngine(t, noAchievements)
		fund(t, e, 500)

		err := e.HireManager("techManager1")

		assert.ErrorIs(t, err, roster.ErrNotOwned)
		assert.Equal(t, 500.0, e.Balance())
	})

	t.Run("automates and loops", func(t *testing.T) {
		e, _ := newTestEngine(t, noAchievements)
		fund(t, e, 125)
		require.NoError(t, e.HireEmployee(roster.RoleTechnician, "tech1"))
		require.NoError(t, e.HireManager("techManager1"))

		tech1, _ := e.roster.Lookup("tech1")
		assert.True(t, tech1.Automated)
		assert.InDelta(t, 15.0/8.0, e.DPS(), 1e-9)

		// One long tick finishes three cycles and carries the overflow.
		e.Tick(25 * time.Second)
		assert.Equal(t, 45.0, e.Balance())
		task, ok := e.tasks.Running("tech1")
		require.True(t, ok)
		assert.Equal(t, time.Second, task.Elapsed)
	})
}

func TestEngine_EfficiencyRoll(t *testing.T) {
	tests := []struct {
		name string
		roll float64
		want float64
	}{
		{"lucky roll doubles", 0.1, 30},
		{"unlucky roll pays base", 0.9, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, noAchievements, WithRand(FixedRand(tt.roll)))
			e.bonuses.Efficiency = 0.25
			fund(t, e, 25)
			require.NoError(t, e.HireEmployee(roster.RoleTechnician, "tech1"))
			require.NoError(t, e.StartTask(roster.RoleTechnician, "tech1"))

			e.Tick(8 * time.Second)

			assert.Equal(t, tt.want, e.Balance())
		})
	}
}

func TestEngine_OfflineProgress(t *testing.T) {
	e, _ := newTestEngine(t, noAchievements)
	fund(t, e, 125)
	require.NoError(t, e.HireEmployee(roster.RoleTechnician, "tech1"))
	require.NoError(t, e.HireManager("techManager1"))

	got := e.ApplyOfflineProgress(8 * time.Second)

	assert.Equal(t, 15.0, got)
	assert.Equal(t, 15.0, e.Balance())
	assert.Len(t, e.eventLog.GetByType(events.EventTypeOfflineProgress), 1)
	assert.Zero(t, e.ApplyOfflineProgress(-time.Hour))
}

func TestEngine_AchievementsFireOnce(t *testing.T) {
	e, rec := newTestEngine(t, nil)
	for i := 0; i < 100; i++ {
		e.Click()
	}
	require.Equal(t, []string{"data100"}, rec.achievements)
	assert.Equal(t, 1.0, e.bonuses.ClickValue)

	assert.Equal(t, 2.0, e.Click(), "click reward includes the bonus")
	for i := 0; i < 10; i++ {
		e.Click()
	}

	assert.Equal(t, []string{"data100"}, rec.achievements)
	assert.Equal(t, 1.0, e.bonuses.ClickValue)
	assert.Len(t, e.eventLog.GetByType(events.EventTypeAchievementUnlocked), 1)
}

func TestEngine_BrokenAchievementDisabled(t *testing.T) {
	e, _ := newTestEngine(t, func(c *config.Catalog) {
		c.Achievements = []achievement.Definition{
			{ID: "broken", Expression: `owned[`},
			{ID: "ok", Expression: `totalClicks >= 1`},
		}
	})

	defs := e.achievements.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "ok", defs[0].ID)

	e.Click()
	assert.True(t, e.achievements.IsUnlocked("ok"))
}

func TestEngine_PurchaseUpgrade(t *testing.T) {
	ready := func(t *testing.T) *Engine {
		e, _ := newTestEngine(t, noAchievements)
		fund(t, e, 275)
		require.NoError(t, e.HireEmployee(roster.RoleTechnician, "tech1"))
		require.NoError(t, e.HireEmployee(roster.RoleTechnician, "tech2"))
		return e
	}

	t.Run("locked until the panel unlocks", func(t *testing.T) {
		e, _ := newTestEngine(t, noAchievements)
		fund(t, e, 10000)
		assert.ErrorIs(t, e.PurchaseUpgrade("taskSpeedUpgrade"), ErrFeatureLocked)
	})

	t.Run("cost grows per level", func(t *testing.T) {
		e := ready(t)
		fund(t, e, 1250)

		require.NoError(t, e.PurchaseUpgrade("taskSpeedUpgrade"))
		assert.Equal(t, 750.0, e.Balance())
		assert.InDelta(t, 0.10, e.bonuses.TaskSpeed, 1e-9)

		require.NoError(t, e.PurchaseUpgrade("taskSpeedUpgrade"))
		assert.Equal(t, 0.0, e.Balance())
		assert.Equal(t, 2, e.upgrades.Level("taskSpeedUpgrade"))

		assert.ErrorIs(t, e.PurchaseUpgrade("taskSpeedUpgrade"), ledger.ErrInsufficientFunds)
	})

	t.Run("stops at max level", func(t *testing.T) {
		e := ready(t)
		fund(t, e, 1e6)
		for i := 0; i < 4; i++ {
			require.NoError(t, e.PurchaseUpgrade("efficiencyUpgrade"))
		}
		before := e.Balance()

		assert.ErrorIs(t, e.PurchaseUpgrade("efficiencyUpgrade"), ErrMaxLevel)
		assert.Equal(t, before, e.Balance())
		assert.InDelta(t, 1.0, e.bonuses.Efficiency, 1e-9)
	})

	t.Run("unknown upgrade", func(t *testing.T) {
		e := ready(t)
		assert.ErrorIs(t, e.PurchaseUpgrade("warpDrive"), ErrUnknownUpgrade)
	})
}

func TestEngine_TaskDurationFloor(t *testing.T) {
	e, _ := newTestEngine(t, noAchievements)
	e.bonuses.TaskSpeed = 2
	tech1, _ := e.roster.Lookup("tech1")

	assert.Equal(t, 100*time.Millisecond, e.durationFor(tech1))
}

func TestEngine_ResetAll(t *testing.T) {
	e, rec := newTestEngine(t, nil)
	fund(t, e, 5000)
	require.NoError(t, e.HireEmployee(roster.RoleTechnician, "tech1"))
	require.NoError(t, e.HireManager("techManager1"))

	e.ResetAll()

	assert.Equal(t, 0.0, e.Balance())
	assert.Zero(t, e.roster.Count().Owned)
	assert.Zero(t, e.tasks.Count())
	assert.Empty(t, e.unlocks.Unlocked())
	assert.Empty(t, e.achievements.UnlockedIDs())
	assert.Equal(t, 1, e.tutorial.State().CurrentStep, "fresh game greets the player again")
	assert.Zero(t, e.DPS())
	assert.NotEmpty(t, rec.tutorial)
}

func TestEngine_UpdateSettings(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	s := e.Settings()
	s.Theme = "dark"

	require.NoError(t, e.UpdateSettings(s))
	assert.Equal(t, "dark", e.Settings().Theme)

	s.NotificationDuration = -1
	assert.ErrorIs(t, e.UpdateSettings(s), ErrInvalidSettings)
	assert.Equal(t, "dark", e.Settings().Theme)
}

func TestEngine_Status(t *testing.T) {
	e, _ := newTestEngine(t, noAchievements)
	fund(t, e, 30)
	require.NoError(t, e.HireEmployee(roster.RoleTechnician, "tech1"))
	require.NoError(t, e.StartTask(roster.RoleTechnician, "tech1"))
	e.Tick(2 * time.Second)

	st := e.Status()

	assert.Equal(t, 5.0, st.Balance)
	require.Len(t, st.Roles, 2)
	tech1 := st.Roles[0].Entities[0]
	assert.Equal(t, "tech1", tech1.ID)
	assert.True(t, tech1.Running)
	assert.InDelta(t, 0.25, tech1.Progress, 1e-9)
	assert.Equal(t, int64(8000), tech1.TaskMillis)
	assert.Equal(t, []string{unlock.FeatureManagersPanel}, st.Unlocked)
	assert.Len(t, st.Upgrades, 3)
}

func TestEngine_UnlocksOutliveOwnership(t *testing.T) {
	e, rec := newTestEngine(t, noAchievements)
	e.Start()
	fund(t, e, 25)
	require.NoError(t, e.HireEmployee(roster.RoleTechnician, "tech1"))
	require.True(t, e.unlocks.IsUnlocked(unlock.FeatureManagersPanel))

	tech1, _ := e.roster.Lookup("tech1")
	tech1.Owned = false
	e.Tick(time.Second)
	e.evaluate()

	assert.True(t, e.unlocks.IsUnlocked(unlock.FeatureManagersPanel))
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{unlock.FeatureManagersPanel}, rec.unlocks, "unlock is announced once")
}

func TestEngine_UnknownRewardKind(t *testing.T) {
	var buf bytes.Buffer
	cat := config.DefaultCatalog()
	cat.Achievements = []achievement.Definition{
		{ID: "lucky", Expression: `totalClicks >= 1`, RewardKind: "luck", RewardAmount: 0.5},
	}
	rec := newRecorder()
	e, err := NewEngine(cat, events.NewEventLog(nil), logger.New(&buf, "warn", "text"),
		WithPresenter(rec), WithRand(FixedRand(0.99)))
	require.NoError(t, err)
	before := e.Bonuses()

	e.Click()

	assert.Equal(t, before, e.Bonuses())
	assert.Contains(t, buf.String(), "achievement reward not applied")
	assert.Contains(t, buf.String(), "luck")
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"lucky"}, rec.achievements)
}
