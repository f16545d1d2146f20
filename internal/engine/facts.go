package engine

// Facts is the read-only view of game state that achievement conditions and
// tutorial triggers are evaluated against. Field tags are the names visible
// inside condition expressions.
type Facts struct {
	Balance           float64         `expr:"balance"`
	TotalGenerated    float64         `expr:"totalGenerated"`
	TotalClicks       int64           `expr:"totalClicks"`
	DPS               float64         `expr:"dps"`
	PeakDPS           float64         `expr:"peakDps"`
	Employees         int             `expr:"employees"`
	Workers           int             `expr:"workers"`
	Managers          int             `expr:"managers"`
	Automated         int             `expr:"automated"`
	RosterSize        int             `expr:"rosterSize"`
	FullyAutomated    bool            `expr:"fullyAutomated"`
	UpgradesPurchased int             `expr:"upgradesPurchased"`
	TasksStarted      int64           `expr:"tasksStarted"`
	Owned             map[string]int  `expr:"owned"`
	RoleSize          map[string]int  `expr:"roleSize"`
	AllAutomated      map[string]bool `expr:"allAutomated"`
	UpgradeLevel      map[string]int  `expr:"upgradeLevel"`
	Maxed             map[string]bool `expr:"maxed"`
	Unlocked          map[string]bool `expr:"unlocked"`
}

// facts gathers the current state. rate is the production rate already computed by the caller.
func (e *Engine) facts(rate float64) Facts {
	counts := e.roster.Count()
	f := Facts{
		Balance:           e.ledger.Balance(),
		TotalGenerated:    e.ledger.TotalGenerated(),
		TotalClicks:       e.ledger.TotalClicks(),
		DPS:               rate,
		PeakDPS:           e.ledger.PeakRate(),
		Employees:         counts.Owned,
		Workers:           counts.Workers,
		Managers:          counts.Managers,
		Automated:         counts.Automated,
		RosterSize:        counts.Size,
		FullyAutomated:    e.roster.FullyAutomated(),
		UpgradesPurchased: e.upgrades.Purchased(),
		TasksStarted:      e.tasksStarted,
		Owned:             make(map[string]int),
		RoleSize:          make(map[string]int),
		AllAutomated:      make(map[string]bool),
		UpgradeLevel:      e.upgrades.Levels(),
		Maxed:             e.upgrades.MaxedSet(),
		Unlocked:          make(map[string]bool),
	}
	for _, role := range e.roster.Roles() {
		f.Owned[role.Name] = e.roster.CountOwned(role.Name)
		f.RoleSize[role.Name] = len(role.Entities())
		f.AllAutomated[role.Name] = e.roster.AllAutomated(role.Name)
	}
	for _, feature := range e.unlocks.Unlocked() {
		f.Unlocked[feature] = true
	}
	return f
}
