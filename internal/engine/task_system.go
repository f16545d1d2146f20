package engine

import (
	"time"

	"github.com/kylechrisking/it-empire-idle/internal/domain/roster"
	"github.com/kylechrisking/it-empire-idle/internal/events"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
)

// TaskState is a running task. It exists only while the worker is busy.
type TaskState struct {
	EntityID string
	Elapsed  time.Duration
	Duration time.Duration // fixed when the cycle starts
}

// Progress is the completed fraction of the current cycle.
func (t *TaskState) Progress() float64 {
	if t.Duration <= 0 {
		return 1
	}
	p := float64(t.Elapsed) / float64(t.Duration)
	if p > 1 {
		return 1
	}
	return p
}

// taskHost is what the task system needs from its owner.
type taskHost interface {
	durationFor(e *roster.Entity) time.Duration
	completeTask(e *roster.Entity)
	reportProgress(entityID string, fraction float64)
}

// TaskSystem drives worker tasks from measured wall-time deltas.
type TaskSystem struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	tasks    map[string]*TaskState
}

func NewTaskSystem(el *events.EventLog, log *logger.Logger) *TaskSystem {
	return &TaskSystem{
		eventLog: el,
		logger:   log,
		tasks:    make(map[string]*TaskState),
	}
}

// Start begins a cycle for e. It reports false when a task is already running.
func (ts *TaskSystem) Start(e *roster.Entity, duration time.Duration) bool {
	if _, running := ts.tasks[e.ID]; running {
		return false
	}
	ts.tasks[e.ID] = &TaskState{EntityID: e.ID, Duration: duration}
	return true
}

// Running returns the task for entityID, if any.
func (ts *TaskSystem) Running(entityID string) (*TaskState, bool) {
	t, ok := ts.tasks[entityID]
	return t, ok
}

// Count returns the number of running tasks.
func (ts *TaskSystem) Count() int {
	return len(ts.tasks)
}

// Clear drops every running task and its progress.
func (ts *TaskSystem) Clear() {
	ts.tasks = make(map[string]*TaskState)
}

// Advance adds dt to every running task, visiting workers in roster order.
// A completed automated task rolls straight into its next cycle, carrying any
// overflow so that long ticks credit every finished cycle.
func (ts *TaskSystem) Advance(dt time.Duration, workers []*roster.Entity, host taskHost) {
	for _, w := range workers {
		t, ok := ts.tasks[w.ID]
		if !ok {
			continue
		}
		t.Elapsed += dt

		for t.Elapsed >= t.Duration {
			host.completeTask(w)
			if !w.Automated {
				delete(ts.tasks, w.ID)
				host.reportProgress(w.ID, 0)
				break
			}
			t.Elapsed -= t.Duration
			t.Duration = host.durationFor(w)
		}

		if _, still := ts.tasks[w.ID]; still {
			host.reportProgress(w.ID, t.Progress())
		}
	}
}
