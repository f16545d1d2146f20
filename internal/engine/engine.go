package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/kylechrisking/it-empire-idle/internal/config"
	"github.com/kylechrisking/it-empire-idle/internal/domain/achievement"
	"github.com/kylechrisking/it-empire-idle/internal/domain/roster"
	"github.com/kylechrisking/it-empire-idle/internal/domain/rules"
	"github.com/kylechrisking/it-empire-idle/internal/domain/unlock"
	"github.com/kylechrisking/it-empire-idle/internal/events"
	"github.com/kylechrisking/it-empire-idle/internal/ledger"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
	"github.com/kylechrisking/it-empire-idle/internal/save"
)

var (
	ErrFeatureLocked   = errors.New("feature locked")
	ErrUnknownUpgrade  = errors.New("unknown upgrade")
	ErrMaxLevel        = errors.New("upgrade at max level")
	ErrWrongKind       = errors.New("wrong entity kind for this action")
	ErrInvalidSettings = errors.New("invalid settings")
)

// Engine owns the whole game state. It is not safe for concurrent use; the
// Scheduler serializes every call onto a single goroutine.
type Engine struct {
	catalog   config.Catalog
	eventLog  *events.EventLog
	logger    *logger.Logger
	clock     Clock
	rng       Rand
	presenter Presenter

	// State
	ledger       *ledger.Ledger
	roster       *roster.Roster
	bonuses      rules.Bonuses
	clickValue   float64
	settings     save.Settings
	playTime     time.Duration
	tasksStarted int64

	// Sub-systems
	tasks        *TaskSystem
	unlocks      *UnlockSystem
	achievements *AchievementSystem
	tutorial     *TutorialSystem
	upgrades     *UpgradeSystem
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithRand(r Rand) Option { return func(e *Engine) { e.rng = r } }

func WithPresenter(p Presenter) Option { return func(e *Engine) { e.presenter = p } }

// NewEngine builds a fresh game from cat.
func NewEngine(cat config.Catalog, eventLog *events.EventLog, log *logger.Logger, opts ...Option) (*Engine, error) {
	r, err := roster.New(cat.Roles)
	if err != nil {
		return nil, err
	}
	if eventLog == nil {
		eventLog = events.NewEventLog(nil)
	}
	if log == nil {
		log = logger.Discard()
	}
	if cat.Balance.MinTaskDuration <= 0 {
		cat.Balance.MinTaskDuration = rules.DefaultMinTaskDuration
	}
	if cat.Balance.StartingClickValue <= 0 {
		cat.Balance.StartingClickValue = 1
	}

	e := &Engine{
		catalog:   cat,
		eventLog:  eventLog,
		logger:    log,
		clock:     RealClock{},
		rng:       newRand(),
		presenter: NopPresenter{},

		ledger:     ledger.New(),
		roster:     r,
		clickValue: cat.Balance.StartingClickValue,
		settings:   save.DefaultSettings(),

		tasks:        NewTaskSystem(eventLog, log),
		unlocks:      NewUnlockSystem(cat.Unlocks, eventLog, log),
		achievements: NewAchievementSystem(cat.Achievements, eventLog, log),
		tutorial:     NewTutorialSystem(cat.Tutorial, eventLog, log),
		upgrades:     NewUpgradeSystem(cat.Upgrades, eventLog, log),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SetPresenter replaces the output surface.
func (e *Engine) SetPresenter(p Presenter) {
	if p == nil {
		p = NopPresenter{}
	}
	e.presenter = p
}

// Start runs the first evaluation so a fresh game greets the player.
func (e *Engine) Start() {
	e.logger.Info("Starting IT Empire engine...")
	e.presenter.OnBalanceChanged(e.ledger.Balance())
	e.evaluate()
}

// Click credits one manual click and returns the amount earned.
func (e *Engine) Click() float64 {
	amount := rules.ClickReward(e.clickValue, e.bonuses)
	if err := e.ledger.Credit(amount); err != nil {
		e.logger.Error("click credit rejected", "amount", amount, "err", err)
		return 0
	}
	e.ledger.RecordClick()
	e.presenter.OnBalanceChanged(e.ledger.Balance())
	e.evaluate()
	return amount
}

// HireEmployee buys a worker.
func (e *Engine) HireEmployee(role, id string) error {
	ent, err := e.roster.Get(role, id)
	if err != nil {
		return err
	}
	if !ent.IsWorker() {
		return fmt.Errorf("%s is a manager: %w", id, ErrWrongKind)
	}
	if ent.Owned {
		return fmt.Errorf("%s: %w", id, roster.ErrAlreadyOwned)
	}
	if err := e.ledger.Debit(ent.Cost); err != nil {
		return fmt.Errorf("hire %s: %w", id, err)
	}
	_ = ent.Hire()

	e.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeEntityHired,
		ActorID:  "PLAYER",
		TargetID: id,
		Payload:  map[string]interface{}{"role": role, "cost": ent.Cost},
	})
	e.logger.Event(string(events.EventTypeEntityHired), "PLAYER", id)

	e.presenter.OnEntityHired(id)
	e.presenter.OnBalanceChanged(e.ledger.Balance())
	e.evaluate()
	return nil
}

// HireManager buys a manager, automates the worker it manages and starts
// that worker's task if it is idle.
func (e *Engine) HireManager(id string) error {
	mgr, ok := e.roster.Lookup(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, roster.ErrUnknownEntity)
	}
	if mgr.IsWorker() {
		return fmt.Errorf("%s is not a manager: %w", id, ErrWrongKind)
	}
	if mgr.Owned {
		return fmt.Errorf("%s: %w", id, roster.ErrAlreadyOwned)
	}
	target, ok := e.roster.Lookup(mgr.Manages)
	if !ok {
		return fmt.Errorf("%s manages %s: %w", id, mgr.Manages, roster.ErrUnknownEntity)
	}
	if !target.Owned {
		return fmt.Errorf("hire %s first: %w", target.ID, roster.ErrNotOwned)
	}
	if err := e.ledger.Debit(mgr.Cost); err != nil {
		return fmt.Errorf("hire %s: %w", id, err)
	}
	_ = mgr.Hire()
	if err := target.Automate(); err != nil {
		return err
	}

	e.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeManagerHired,
		ActorID:  "PLAYER",
		TargetID: id,
		Payload:  map[string]interface{}{"manages": target.ID, "cost": mgr.Cost},
	})
	e.logger.Event(string(events.EventTypeManagerHired), "PLAYER", id+" automates "+target.ID)

	e.presenter.OnEntityHired(id)
	e.presenter.OnBalanceChanged(e.ledger.Balance())
	e.startTask(target)
	e.evaluate()
	return nil
}

// PurchaseUpgrade buys the next level of an upgrade.
func (e *Engine) PurchaseUpgrade(id string) error {
	if !e.unlocks.IsUnlocked(unlock.FeatureUpgradesPanel) {
		return fmt.Errorf("%s: %w", unlock.FeatureUpgradesPanel, ErrFeatureLocked)
	}
	def, _, cost, err := e.upgrades.Quote(id)
	if err != nil {
		return err
	}
	if err := e.ledger.Debit(cost); err != nil {
		return fmt.Errorf("upgrade %s: %w", id, err)
	}
	e.upgrades.Bump(id, cost)
	if err := e.bonuses.Apply(def.Kind, def.Amount); err != nil {
		e.logger.Warn("upgrade effect not applied", "id", id, "err", err)
	}

	e.presenter.OnBalanceChanged(e.ledger.Balance())
	e.evaluate()
	return nil
}

// StartTask starts an owned worker's task. Starting a running task does nothing.
func (e *Engine) StartTask(role, id string) error {
	ent, err := e.roster.Get(role, id)
	if err != nil {
		return err
	}
	if !ent.IsWorker() {
		return fmt.Errorf("%s: %w", id, ErrWrongKind)
	}
	if !ent.Owned {
		return fmt.Errorf("%s: %w", id, roster.ErrNotOwned)
	}
	if e.startTask(ent) {
		e.evaluate()
	}
	return nil
}

func (e *Engine) startTask(ent *roster.Entity) bool {
	if !e.tasks.Start(ent, e.durationFor(ent)) {
		return false
	}
	e.tasksStarted++

	e.eventLog.Append(events.GameEvent{
		Type:    events.EventTypeTaskStarted,
		ActorID: ent.ID,
		Payload: map[string]interface{}{"automated": ent.Automated},
	})
	e.presenter.OnTaskProgress(ent.ID, 0)
	return true
}

// Tick advances every running task by dt.
func (e *Engine) Tick(dt time.Duration) {
	if dt < 0 {
		dt = 0
	}
	e.playTime += dt
	e.tasks.Advance(dt, e.roster.Workers(), e)
	e.evaluate()
}

func (e *Engine) durationFor(ent *roster.Entity) time.Duration {
	return rules.EffectiveDuration(ent.BaseTaskDuration, e.bonuses, e.catalog.Balance.MinTaskDuration)
}

func (e *Engine) completeTask(ent *roster.Entity) {
	reward := rules.TaskReward(ent.BaseReward, e.bonuses, e.rng.Float64())
	if err := e.ledger.Credit(reward); err != nil {
		e.logger.Error("task credit rejected", "entity", ent.ID, "err", err)
		return
	}
	e.presenter.OnBalanceChanged(e.ledger.Balance())
}

func (e *Engine) reportProgress(entityID string, fraction float64) {
	e.presenter.OnTaskProgress(entityID, fraction)
}

// evaluate re-derives everything that depends on state after a mutation.
func (e *Engine) evaluate() {
	rate := e.DPS()
	e.ledger.ObserveRate(rate)

	for _, feature := range e.unlocks.Evaluate(e.roster) {
		e.presenter.OnUnlock(feature)
	}

	for _, def := range e.achievements.CheckAndUnlock(e.facts(rate)) {
		e.grant(def)
	}

	for _, msg := range e.tutorial.Evaluate(e.facts(e.DPS())) {
		e.presenter.OnTutorialMessage(msg)
	}
}

func (e *Engine) grant(def achievement.Definition) {
	if err := e.bonuses.Apply(def.RewardKind, def.RewardAmount); err != nil {
		e.logger.Warn("achievement reward not applied", "id", def.ID, "kind", def.RewardKind, "err", err)
	}
	e.presenter.OnAchievementUnlocked(def)
}

// DPS is the current production rate of automated workers.
func (e *Engine) DPS() float64 {
	return rules.ProductionRate(e.roster.Workers(), e.bonuses, e.catalog.Balance.MinTaskDuration)
}

// Balance returns the spendable data.
func (e *Engine) Balance() float64 {
	return e.ledger.Balance()
}

// Bonuses returns the accumulated multipliers.
func (e *Engine) Bonuses() rules.Bonuses {
	return e.bonuses
}

// Roster exposes the entity catalog for read models.
func (e *Engine) Roster() *roster.Roster {
	return e.roster
}

// EventLog exposes the log for history queries.
func (e *Engine) EventLog() *events.EventLog {
	return e.eventLog
}

// Clock returns the engine's time source.
func (e *Engine) Clock() Clock {
	return e.clock
}

// Notice forwards a transient message to the presenter.
func (e *Engine) Notice(text string) {
	e.presenter.OnNotice(text)
}

// Settings returns the presentation preferences.
func (e *Engine) Settings() save.Settings {
	return e.settings
}

// UpdateSettings replaces the presentation preferences.
func (e *Engine) UpdateSettings(s save.Settings) error {
	if s.NotificationDuration < 0 {
		return fmt.Errorf("notificationDuration %d: %w", s.NotificationDuration, ErrInvalidSettings)
	}
	e.settings = s
	return nil
}

// ResetAll returns every piece of state to a fresh game.
func (e *Engine) ResetAll() {
	e.ledger = ledger.New()
	e.roster.Reset()
	e.bonuses = rules.Bonuses{}
	e.clickValue = e.catalog.Balance.StartingClickValue
	e.settings = save.DefaultSettings()
	e.playTime = 0
	e.tasksStarted = 0

	e.tasks.Clear()
	e.unlocks.Reset()
	e.achievements.Reset()
	e.tutorial.Reset()
	e.upgrades.Reset()

	e.eventLog.Append(events.GameEvent{Type: events.EventTypeGameReset, ActorID: "PLAYER"})
	e.logger.Event(string(events.EventTypeGameReset), "PLAYER", "all progress cleared")

	e.presenter.OnBalanceChanged(0)
	e.evaluate()
}
