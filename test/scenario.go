// Package test - scenario.go
// Headless play-through: drives a real engine on a fake clock from the first
// click to a reloaded, automated save and checks the economy along the way.
package test

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kylechrisking/it-empire-idle/internal/config"
	"github.com/kylechrisking/it-empire-idle/internal/domain/roster"
	"github.com/kylechrisking/it-empire-idle/internal/domain/unlock"
	"github.com/kylechrisking/it-empire-idle/internal/engine"
	"github.com/kylechrisking/it-empire-idle/internal/events"
	"github.com/kylechrisking/it-empire-idle/internal/infra/storage"
	"github.com/kylechrisking/it-empire-idle/internal/persistence"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
)

const (
	scenarioSlot = "scenario"
	stepSize     = 100 * time.Millisecond
)

// Result captures the outcome of one scenario step.
type Result struct {
	Step     string
	Expected string
	Actual   string
	Passed   bool
}

// ProgressionScenario plays the opening of a game.
type ProgressionScenario struct {
	clock   *engine.FakeClock
	repo    storage.SaveRepository
	logger  *logger.Logger
	engine  *engine.Engine
	gateway *persistence.Gateway
	results []Result
}

// NewProgressionScenario stores its save in repo.
func NewProgressionScenario(repo storage.SaveRepository, log *logger.Logger) *ProgressionScenario {
	return &ProgressionScenario{
		clock:  engine.NewFakeClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)),
		repo:   repo,
		logger: log,
	}
}

func (s *ProgressionScenario) boot(ctx context.Context) error {
	cat := config.DefaultCatalog()
	e, err := engine.NewEngine(cat, events.NewEventLog(nil), s.logger,
		engine.WithClock(s.clock), engine.WithRand(engine.FixedRand(0.99)))
	if err != nil {
		return err
	}
	s.engine = e
	s.gateway = persistence.NewGateway(s.repo, scenarioSlot, s.logger)
	if err := s.gateway.Load(ctx, e); err != nil {
		return err
	}
	e.Start()
	return nil
}

// advance moves the clock and the engine forward in loop-sized steps.
func (s *ProgressionScenario) advance(d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += stepSize {
		s.clock.Advance(stepSize)
		s.engine.Tick(stepSize)
	}
}

func (s *ProgressionScenario) check(step, expected, actual string, ok bool) {
	s.results = append(s.results, Result{Step: step, Expected: expected, Actual: actual, Passed: ok})
	mark := "PASS"
	if !ok {
		mark = "FAIL"
	}
	fmt.Printf("  [%s] %-28s expected %-22s got %s\n", mark, step, expected, actual)
}

func (s *ProgressionScenario) checkBalance(step string, want float64) {
	got := s.engine.Balance()
	s.check(step, humanize.Commaf(want)+" GB", humanize.Commaf(got)+" GB", math.Abs(got-want) < 1e-6)
}

func (s *ProgressionScenario) checkErr(step string, err error) bool {
	if err != nil {
		s.check(step, "no error", err.Error(), false)
		return false
	}
	return true
}

// Run plays every step and stops at the first hard failure.
func (s *ProgressionScenario) Run(ctx context.Context) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SCENARIO: the first hour of an IT empire")
	fmt.Println(strings.Repeat("=", 60))

	if !s.checkErr("boot", s.boot(ctx)) {
		return
	}

	for i := 0; i < 25; i++ {
		s.engine.Click()
	}
	s.checkBalance("opening clicks", 25)

	if !s.checkErr("hire tech1", s.engine.HireEmployee(roster.RoleTechnician, "tech1")) {
		return
	}
	s.checkBalance("tech1 paid for", 0)

	if !s.checkErr("manual task", s.engine.StartTask(roster.RoleTechnician, "tech1")) {
		return
	}
	s.advance(8 * time.Second)
	s.checkBalance("manual task reward", 15)

	for s.engine.Balance() < 100 {
		s.engine.Click()
	}
	before := s.engine.Balance()
	if !s.checkErr("hire techManager1", s.engine.HireManager("techManager1")) {
		return
	}
	s.checkBalance("manager paid for", before-100)

	start := s.engine.Balance()
	s.advance(80 * time.Second)
	gained := s.engine.Balance() - start
	s.check("automated cycles", "150 GB", humanize.Commaf(gained)+" GB", math.Abs(gained-150) < 1e-6)

	st := s.engine.Status()
	s.check("managers panel", "unlocked", fmt.Sprint(st.Unlocked),
		containsString(st.Unlocked, unlock.FeatureManagersPanel))
	s.check("achievements earned", "at least one", fmt.Sprint(len(achieved(st))), len(achieved(st)) > 0)

	if !s.checkErr("save", s.gateway.Save(ctx, s.engine)) {
		return
	}
	dps := s.engine.DPS()
	saved := s.engine.Balance()

	s.clock.Advance(time.Hour)
	if !s.checkErr("reload", s.boot(ctx)) {
		return
	}
	offline := s.engine.Balance() - saved
	want := dps * time.Hour.Seconds()
	s.check("offline progress", humanize.Commaf(math.Round(want))+" GB", humanize.Commaf(math.Round(offline))+" GB",
		want > 0 && math.Abs(offline-want) <= want*0.01)

	tech1, _ := s.engine.Roster().Lookup("tech1")
	s.check("automation survives reload", "automated", fmt.Sprint(tech1.Automated), tech1.Automated)
}

// Results returns every checked step.
func (s *ProgressionScenario) Results() []Result {
	return s.results
}

func achieved(st engine.Status) []string {
	var ids []string
	for _, a := range st.Achievements {
		if a.Unlocked {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
