// Package roster defines the hireable entities of the empire and the roles they belong to.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package roster

import (
	"errors"
	"fmt"
	"time"
)

// Default role names.
const (
	RoleTechnician = "technician"
	RoleManager    = "manager"
)

var (
	ErrUnknownEntity  = errors.New("unknown entity")
	ErrAlreadyOwned   = errors.New("entity already owned")
	ErrNotOwned       = errors.New("entity not owned")
	ErrNotAutomatable = errors.New("entity cannot be automated")
	ErrInvalidRoster  = errors.New("invalid roster")
)

// Entity is a hireable unit. Workers have a task duration and produce data;
// managers reference the worker they automate through Manages.
type Entity struct {
	ID               string        `yaml:"id" json:"id"`
	Title            string        `yaml:"title" json:"title"`
	Role             string        `yaml:"-" json:"role"`
	Cost             float64       `yaml:"cost" json:"cost"`
	BaseReward       float64       `yaml:"baseReward" json:"baseReward,omitempty"`
	BaseTaskDuration time.Duration `yaml:"base_task_duration" json:"-"`
	Manages          string        `yaml:"manages" json:"manages,omitempty"`

	Owned     bool `yaml:"-" json:"owned"`
	Automated bool `yaml:"-" json:"automated"`
}

// IsWorker reports whether the entity runs tasks itself.
func (e *Entity) IsWorker() bool {
	return e.Manages == ""
}

// Hire marks the entity as owned.
func (e *Entity) Hire() error {
	if e.Owned {
		return fmt.Errorf("%s: %w", e.ID, ErrAlreadyOwned)
	}
	e.Owned = true
	return nil
}

// Automate marks an owned worker as automated.
func (e *Entity) Automate() error {
	if !e.IsWorker() {
		return fmt.Errorf("%s: %w", e.ID, ErrNotAutomatable)
	}
	if !e.Owned {
		return fmt.Errorf("%s: %w", e.ID, ErrNotOwned)
	}
	e.Automated = true
	return nil
}

// RoleSpec is the static declaration of a role and its entities, in display order.
type RoleSpec struct {
	Name     string   `yaml:"name"`
	Title    string   `yaml:"title"`
	Entities []Entity `yaml:"entities"`
}

// Role is an ordered group of entities.
type Role struct {
	Name     string
	Title    string
	entities []*Entity
	byID     map[string]*Entity
}

// Entities returns the role's entities in declaration order.
func (r *Role) Entities() []*Entity {
	return r.entities
}

// Roster holds every role and entity, keyed by name and kept in declaration order.
type Roster struct {
	specs  []RoleSpec
	roles  []*Role
	byName map[string]*Role
	byID   map[string]*Entity
}

// New builds a roster from its declaration and validates cross references.
func New(specs []RoleSpec) (*Roster, error) {
	r := &Roster{specs: specs}
	if err := r.build(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Roster) build() error {
	r.roles = make([]*Role, 0, len(r.specs))
	r.byName = make(map[string]*Role, len(r.specs))
	r.byID = make(map[string]*Entity)

	for _, spec := range r.specs {
		if spec.Name == "" {
			return fmt.Errorf("%w: role without a name", ErrInvalidRoster)
		}
		if _, dup := r.byName[spec.Name]; dup {
			return fmt.Errorf("%w: duplicate role %q", ErrInvalidRoster, spec.Name)
		}
		role := &Role{Name: spec.Name, Title: spec.Title, byID: make(map[string]*Entity, len(spec.Entities))}
		for _, es := range spec.Entities {
			e := es
			e.Role = spec.Name
			e.Owned, e.Automated = false, false
			if e.ID == "" {
				return fmt.Errorf("%w: entity without an id in role %q", ErrInvalidRoster, spec.Name)
			}
			if _, dup := r.byID[e.ID]; dup {
				return fmt.Errorf("%w: duplicate entity %q", ErrInvalidRoster, e.ID)
			}
			if e.Cost < 0 || e.BaseReward < 0 {
				return fmt.Errorf("%w: negative cost or reward on %q", ErrInvalidRoster, e.ID)
			}
			if e.IsWorker() && e.BaseTaskDuration <= 0 {
				return fmt.Errorf("%w: worker %q has no task duration", ErrInvalidRoster, e.ID)
			}
			role.entities = append(role.entities, &e)
			role.byID[e.ID] = &e
			r.byID[e.ID] = &e
		}
		r.roles = append(r.roles, role)
		r.byName[spec.Name] = role
	}

	for _, e := range r.byID {
		if e.IsWorker() {
			continue
		}
		target, ok := r.byID[e.Manages]
		if !ok || !target.IsWorker() {
			return fmt.Errorf("%w: %q manages unknown worker %q", ErrInvalidRoster, e.ID, e.Manages)
		}
	}
	return nil
}

// Reset discards all ownership and automation.
func (r *Roster) Reset() {
	// specs were validated by New, so rebuilding cannot fail.
	_ = r.build()
}

// Roles returns the roles in declaration order.
func (r *Roster) Roles() []*Role {
	return r.roles
}

// Role looks up a role by name.
func (r *Roster) Role(name string) (*Role, bool) {
	role, ok := r.byName[name]
	return role, ok
}

// Get returns the entity id within role.
func (r *Roster) Get(role, id string) (*Entity, error) {
	rl, ok := r.byName[role]
	if !ok {
		return nil, fmt.Errorf("role %q: %w", role, ErrUnknownEntity)
	}
	e, ok := rl.byID[id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", role, id, ErrUnknownEntity)
	}
	return e, nil
}

// Lookup finds an entity by id in any role.
func (r *Roster) Lookup(id string) (*Entity, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Entities returns every entity in declaration order.
func (r *Roster) Entities() []*Entity {
	var all []*Entity
	for _, role := range r.roles {
		all = append(all, role.entities...)
	}
	return all
}

// Workers returns every worker in declaration order.
func (r *Roster) Workers() []*Entity {
	var out []*Entity
	for _, e := range r.Entities() {
		if e.IsWorker() {
			out = append(out, e)
		}
	}
	return out
}

// ManagerOf returns the manager entity assigned to a worker, if any.
func (r *Roster) ManagerOf(workerID string) (*Entity, bool) {
	for _, e := range r.Entities() {
		if e.Manages == workerID {
			return e, true
		}
	}
	return nil, false
}

// CountOwned returns the number of owned entities in role.
func (r *Roster) CountOwned(role string) int {
	rl, ok := r.byName[role]
	if !ok {
		return 0
	}
	n := 0
	for _, e := range rl.entities {
		if e.Owned {
			n++
		}
	}
	return n
}

// AllAutomated reports whether every entity in role is owned and automated.
func (r *Roster) AllAutomated(role string) bool {
	rl, ok := r.byName[role]
	if !ok {
		return false
	}
	workers := 0
	for _, e := range rl.entities {
		if !e.IsWorker() {
			continue
		}
		workers++
		if !e.Owned || !e.Automated {
			return false
		}
	}
	return workers > 0
}

// Counts summarises ownership across the whole roster.
type Counts struct {
	Owned     int
	Workers   int
	Managers  int
	Automated int
	Size      int
}

// Count tallies ownership across all roles.
func (r *Roster) Count() Counts {
	var c Counts
	for _, e := range r.byID {
		c.Size++
		if !e.Owned {
			continue
		}
		c.Owned++
		if e.IsWorker() {
			c.Workers++
		} else {
			c.Managers++
		}
		if e.Automated {
			c.Automated++
		}
	}
	return c
}

// FullyAutomated reports whether every worker in the roster is automated.
func (r *Roster) FullyAutomated() bool {
	workers := r.Workers()
	if len(workers) == 0 {
		return false
	}
	for _, w := range workers {
		if !w.Automated {
			return false
		}
	}
	return true
}
