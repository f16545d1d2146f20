// Package engine contains the game loop and simulation logic of IT Empire.
//
// The Engine is owned by exactly one goroutine, the Scheduler loop. Ticks,
// autosaves, hold clicks and player intents are all serialized through it,
// so no game state is ever touched concurrently.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
	"github.com/kylechrisking/it-empire-idle/internal/platform/metrics"
	"github.com/kylechrisking/it-empire-idle/internal/save"
)

var (
	ErrUnknownIntent    = errors.New("unknown intent")
	ErrNoPersister      = errors.New("no persister configured")
	ErrSchedulerStopped = errors.New("scheduler stopped")
)

// Persister moves snapshots between the engine and durable storage.
type Persister interface {
	Save(ctx context.Context, e *Engine) error
	Import(ctx context.Context, e *Engine, data []byte) error
	Export(e *Engine) ([]byte, error)
	Reset(ctx context.Context, e *Engine) error
}

// IntentType names a player action.
type IntentType string

const (
	IntentClick           IntentType = "CLICK"
	IntentHoldStart       IntentType = "HOLD_START"
	IntentHoldEnd         IntentType = "HOLD_END"
	IntentHireEmployee    IntentType = "HIRE_EMPLOYEE"
	IntentHireManager     IntentType = "HIRE_MANAGER"
	IntentPurchaseUpgrade IntentType = "PURCHASE_UPGRADE"
	IntentStartTask       IntentType = "START_TASK"
	IntentSaveNow         IntentType = "SAVE_NOW"
	IntentResetAll        IntentType = "RESET_ALL"
	IntentImport          IntentType = "IMPORT_SNAPSHOT"
	IntentExport          IntentType = "EXPORT_SNAPSHOT"
	IntentUpdateSettings  IntentType = "UPDATE_SETTINGS"
)

// Intent is a player action as it arrives from a client.
type Intent struct {
	Type    IntentType      `json:"type"`
	Role    string          `json:"role,omitempty"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outcome is what an intent produced.
type Outcome struct {
	Amount float64 // data earned by a click
	Data   []byte  // exported snapshot
}

// SchedulerConfig sets the loop cadences.
type SchedulerConfig struct {
	TickInterval     time.Duration
	AutoSaveInterval time.Duration
	HoldInterval     time.Duration
	IntentBuffer     int
}

type command struct {
	fn    func() error
	reply chan error
}

// Scheduler runs the game loop.
type Scheduler struct {
	engine    *Engine
	persister Persister
	logger    *logger.Logger
	metrics   *metrics.Collector
	cfg       SchedulerConfig

	commands chan command
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	lastTick time.Time
	hold     *time.Ticker
	holdC    <-chan time.Time
}

// NewScheduler creates the loop around e. persister may be nil.
func NewScheduler(e *Engine, p Persister, log *logger.Logger, cfg SchedulerConfig) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	if cfg.HoldInterval <= 0 {
		cfg.HoldInterval = 750 * time.Millisecond
	}
	if cfg.IntentBuffer < 0 {
		cfg.IntentBuffer = 0
	}
	return &Scheduler{
		engine:    e,
		persister: p,
		logger:    log,
		metrics:   metrics.Get(),
		cfg:       cfg,
		commands:  make(chan command, cfg.IntentBuffer),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the loop until ctx is cancelled or Stop is called, then writes a
// final save. Call in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.done)
	s.logger.Info("Game loop started", "tick", s.cfg.TickInterval, "autosave", s.cfg.AutoSaveInterval)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	var autosave <-chan time.Time
	if s.cfg.AutoSaveInterval > 0 && s.persister != nil {
		t := time.NewTicker(s.cfg.AutoSaveInterval)
		defer t.Stop()
		autosave = t.C
	}
	defer s.endHold()

	s.lastTick = s.engine.clock.Now()
	s.engine.Start()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Game loop stopped by context.")
			s.finalSave(ctx)
			return
		case <-s.stopChan:
			s.logger.Info("Game loop stopped manually.")
			s.finalSave(ctx)
			return
		case <-ticker.C:
			s.tick()
		case <-autosave:
			s.save(ctx)
		case <-s.holdC:
			s.engine.Click()
		case cmd := <-s.commands:
			cmd.reply <- cmd.fn()
		}
	}
}

// Stop gracefully stops the loop.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Done is closed once the loop has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// tick advances the engine by the measured wall time since the last tick.
func (s *Scheduler) tick() {
	start := time.Now()
	now := s.engine.clock.Now()
	dt := now.Sub(s.lastTick)
	s.lastTick = now

	s.engine.Tick(dt)

	s.metrics.RecordTick(time.Since(start))
	s.metrics.SetGame(s.engine.Balance(), s.engine.DPS())
}

func (s *Scheduler) save(ctx context.Context) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(ctx, s.engine); err != nil {
		s.logger.Error("autosave failed", "err", err)
	}
}

func (s *Scheduler) finalSave(ctx context.Context) {
	if s.persister == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.persister.Save(saveCtx, s.engine); err != nil {
		s.logger.Error("final save failed", "err", err)
		return
	}
	s.logger.Info("Final save written.")
}

func (s *Scheduler) startHold() {
	if s.hold != nil {
		return
	}
	s.hold = time.NewTicker(s.cfg.HoldInterval)
	s.holdC = s.hold.C
}

func (s *Scheduler) endHold() {
	if s.hold == nil {
		return
	}
	s.hold.Stop()
	s.hold = nil
	s.holdC = nil
}

// submit runs fn on the loop goroutine and waits for its result.
func (s *Scheduler) submit(ctx context.Context, fn func() error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSchedulerStopped
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSchedulerStopped
	}
}

// Do runs fn against the engine on the loop goroutine.
func (s *Scheduler) Do(ctx context.Context, fn func(*Engine) error) error {
	return s.submit(ctx, func() error { return fn(s.engine) })
}

// Status returns the current read model.
func (s *Scheduler) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.Do(ctx, func(e *Engine) error {
		st = e.Status()
		return nil
	})
	return st, err
}

// Handle applies a player intent.
func (s *Scheduler) Handle(ctx context.Context, in Intent) (Outcome, error) {
	var out Outcome
	err := s.submit(ctx, func() error {
		s.metrics.RecordIntent()
		return s.apply(ctx, in, &out)
	})
	return out, err
}

func (s *Scheduler) apply(ctx context.Context, in Intent, out *Outcome) error {
	e := s.engine
	switch in.Type {
	case IntentClick:
		out.Amount = e.Click()
	case IntentHoldStart:
		if s.hold == nil {
			out.Amount = e.Click()
		}
		s.startHold()
	case IntentHoldEnd:
		s.endHold()
	case IntentHireEmployee:
		return e.HireEmployee(in.Role, in.ID)
	case IntentHireManager:
		return e.HireManager(in.ID)
	case IntentPurchaseUpgrade:
		return e.PurchaseUpgrade(in.ID)
	case IntentStartTask:
		return e.StartTask(in.Role, in.ID)
	case IntentUpdateSettings:
		var settings save.Settings
		if err := json.Unmarshal(in.Payload, &settings); err != nil {
			return fmt.Errorf("settings: %w: %v", ErrInvalidSettings, err)
		}
		return e.UpdateSettings(settings)
	case IntentSaveNow, IntentResetAll, IntentImport, IntentExport:
		return s.applyPersistence(ctx, in, out)
	default:
		return fmt.Errorf("%q: %w", in.Type, ErrUnknownIntent)
	}
	return nil
}

func (s *Scheduler) applyPersistence(ctx context.Context, in Intent, out *Outcome) error {
	if s.persister == nil {
		if in.Type == IntentResetAll {
			s.endHold()
			s.engine.ResetAll()
			return nil
		}
		return ErrNoPersister
	}
	switch in.Type {
	case IntentSaveNow:
		return s.persister.Save(ctx, s.engine)
	case IntentResetAll:
		s.endHold()
		return s.persister.Reset(ctx, s.engine)
	case IntentImport:
		return s.persister.Import(ctx, s.engine, in.Payload)
	default:
		data, err := s.persister.Export(s.engine)
		out.Data = data
		return err
	}
}
