package roster

import "time"

// Defaults returns the stock roster: three technician tiers and one manager per technician.
func Defaults() []RoleSpec {
	return []RoleSpec{
		{
			Name:  RoleTechnician,
			Title: "Technicians",
			Entities: []Entity{
				{ID: "tech1", Title: "Technician I", Cost: 25, BaseReward: 15, BaseTaskDuration: 8 * time.Second},
				{ID: "tech2", Title: "Technician II", Cost: 250, BaseReward: 75, BaseTaskDuration: 12 * time.Second},
				{ID: "tech3", Title: "Technician III", Cost: 2500, BaseReward: 375, BaseTaskDuration: 16 * time.Second},
			},
		},
		{
			Name:  RoleManager,
			Title: "Managers",
			Entities: []Entity{
				{ID: "techManager1", Title: "Junior Tech Manager", Cost: 100, Manages: "tech1"},
				{ID: "techManager2", Title: "Tech Manager", Cost: 1000, Manages: "tech2"},
				{ID: "techManager3", Title: "Senior Tech Manager", Cost: 10000, Manages: "tech3"},
			},
		},
	}
}
