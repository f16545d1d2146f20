// Package upgrade defines the permanent upgrades the player can buy.
// This package is PURE and must NOT import any infrastructure packages.
package upgrade

import (
	"math"
)

// Definition describes one purchasable upgrade line.
type Definition struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Kind        string  `yaml:"kind" json:"kind"`     // bonus the upgrade feeds, see rules.ParseRewardKind
	Amount      float64 `yaml:"amount" json:"amount"` // added to that bonus per level
	BaseCost    float64 `yaml:"baseCost" json:"baseCost"`
	CostGrowth  float64 `yaml:"costGrowth" json:"costGrowth"`
	MaxLevel    int     `yaml:"maxLevel" json:"maxLevel"` // 0 means unbounded
}

// Cost returns the price of buying the next level when level levels are already owned.
func (d Definition) Cost(level int) float64 {
	growth := d.CostGrowth
	if growth <= 0 {
		growth = 1
	}
	return math.Round(d.BaseCost * math.Pow(growth, float64(level)))
}

// Maxed reports whether level is the final level.
func (d Definition) Maxed(level int) bool {
	return d.MaxLevel > 0 && level >= d.MaxLevel
}

// Defaults returns the stock upgrade catalog.
func Defaults() []Definition {
	return []Definition{
		{
			ID:          "taskSpeedUpgrade",
			Name:        "Faster Workstations",
			Description: "Tasks complete 10% faster.",
			Kind:        "taskSpeed",
			Amount:      0.10,
			BaseCost:    500,
			CostGrowth:  1.5,
			MaxLevel:    5,
		},
		{
			ID:          "revenueUpgrade",
			Name:        "Data Monetization",
			Description: "Task rewards increase by 25%.",
			Kind:        "income",
			Amount:      0.25,
			BaseCost:    1000,
			CostGrowth:  1.5,
		},
		{
			ID:          "efficiencyUpgrade",
			Name:        "Process Efficiency",
			Description: "25% chance for a task to pay out double.",
			Kind:        "efficiency",
			Amount:      0.25,
			BaseCost:    2500,
			CostGrowth:  1.5,
			MaxLevel:    4,
		},
	}
}
