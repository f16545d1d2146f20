// Package tutorial implements the onboarding script as a cursor over ordered steps.
// This package is PURE and must NOT import any infrastructure packages.
package tutorial

// Triggers fired by the engine.
const (
	TriggerStart            = "start"
	TriggerFirstClick       = "firstClick"
	TriggerCanHireTech      = "canHireTech"
	TriggerTechHired        = "techHired"
	TriggerTaskStarted      = "taskStarted"
	TriggerCanHireManager   = "canHireManager"
	TriggerManagerHired     = "managerHired"
	TriggerUpgradesUnlocked = "upgradesUnlocked"
)

// Step is one line of the script.
type Step struct {
	Message     string  `yaml:"message" json:"message"`
	Trigger     string  `yaml:"trigger" json:"trigger"`
	Requirement float64 `yaml:"requirement" json:"requirement,omitempty"`
}

// State is the persisted cursor.
type State struct {
	CurrentStep int  `json:"currentStep"`
	Completed   bool `json:"completed"`
}

// Runner walks a fixed script. It is not safe for concurrent use.
type Runner struct {
	steps []Step
	state State
}

// NewRunner starts a runner at the first step of steps.
func NewRunner(steps []Step) *Runner {
	r := &Runner{steps: steps}
	r.Reset()
	return r
}

// Advance moves past the current step when trigger matches it and value meets
// its requirement. It returns the step's message and whether it advanced.
func (r *Runner) Advance(trigger string, value float64) (string, bool) {
	if r.state.Completed {
		return "", false
	}
	step, ok := r.Current()
	if !ok {
		r.state.Completed = true
		return "", false
	}
	if step.Trigger != trigger || value < step.Requirement {
		return "", false
	}

	r.state.CurrentStep++
	if r.state.CurrentStep >= len(r.steps) {
		r.state.Completed = true
	}
	return step.Message, true
}

// Current returns the step waiting to fire.
func (r *Runner) Current() (Step, bool) {
	if r.state.Completed || r.state.CurrentStep < 0 || r.state.CurrentStep >= len(r.steps) {
		return Step{}, false
	}
	return r.steps[r.state.CurrentStep], true
}

func (r *Runner) State() State { return r.state }

// Restore replaces the cursor. A cursor past the script end counts as completed.
func (r *Runner) Restore(s State) {
	if s.CurrentStep < 0 {
		s.CurrentStep = 0
	}
	if s.CurrentStep >= len(r.steps) {
		s.Completed = true
	}
	r.state = s
}

// Reset rewinds to the first step.
func (r *Runner) Reset() {
	r.state = State{Completed: len(r.steps) == 0}
}

// Steps returns the script.
func (r *Runner) Steps() []Step {
	return r.steps
}

// DefaultScript is the stock onboarding script.
func DefaultScript() []Step {
	return []Step{
		{Trigger: TriggerStart, Message: "Welcome! Click or hold the computer button to generate data."},
		{Trigger: TriggerFirstClick, Message: "Keep generating data! You need 25 GB to hire your first Technician."},
		{Trigger: TriggerCanHireTech, Requirement: 25, Message: "Great! You can now hire a Technician. Click the 'Hire' button to get your first employee."},
		{Trigger: TriggerTechHired, Message: "Technician hired! Click their progress bar to start generating data automatically."},
		{Trigger: TriggerTaskStarted, Message: "Your Technician is working! Keep generating data to afford a Manager (100 GB) who can automate your Technician."},
		{Trigger: TriggerCanHireManager, Requirement: 100, Message: "You can now hire a Manager! They'll make your Technician work automatically."},
		{Trigger: TriggerManagerHired, Message: "Manager hired! Now work towards hiring a second Technician to unlock Upgrades."},
		{Trigger: TriggerUpgradesUnlocked, Message: "Upgrades unlocked! These permanent improvements will help you generate more data."},
	}
}
