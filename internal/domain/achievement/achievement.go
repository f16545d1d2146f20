// Package achievement defines one-shot milestones and their rewards.
// This package is PURE and must NOT import any infrastructure packages.
package achievement

import (
	"fmt"
	"strconv"
)

// Category groups achievements and decides their default predicate.
type Category string

const (
	CategoryProduction Category = "production"
	CategorySpeed      Category = "speed"
	CategoryEmployees  Category = "employees"
	CategoryUpgrades   Category = "upgrades"
	CategoryMilestones Category = "milestones"
	CategoryWorkforce  Category = "workforce"
)

// Definition is the static description of an achievement.
//
// Condition is an expression evaluated against the engine's facts. When it is
// empty the category and Requirement decide the predicate, see Condition().
type Definition struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Description  string   `yaml:"description" json:"description"`
	Category     Category `yaml:"category" json:"category"`
	Requirement  float64  `yaml:"requirement" json:"requirement,omitempty"`
	RewardKind   string   `yaml:"rewardKind" json:"rewardKind,omitempty"`
	RewardAmount float64  `yaml:"rewardAmount" json:"rewardAmount,omitempty"`
	RewardText   string   `yaml:"rewardText" json:"rewardText,omitempty"`
	Expression   string   `yaml:"condition" json:"-"`
}

// metricFor maps a category to the fact its requirement is compared with.
var metricFor = map[Category]string{
	CategoryProduction: "totalGenerated",
	CategorySpeed:      "dps",
	CategoryEmployees:  "employees",
	CategoryUpgrades:   "upgradesPurchased",
}

// Metric returns the fact name tracked by the definition's category, if any.
func (d Definition) Metric() (string, bool) {
	m, ok := metricFor[d.Category]
	return m, ok
}

// Condition returns the boolean expression that unlocks the achievement.
func (d Definition) Condition() (string, error) {
	if d.Expression != "" {
		return d.Expression, nil
	}
	metric, ok := d.Metric()
	if !ok {
		return "", fmt.Errorf("achievement %s: category %q needs an explicit condition", d.ID, d.Category)
	}
	return metric + " >= " + strconv.FormatFloat(d.Requirement, 'f', -1, 64), nil
}

// Defaults returns the stock achievement catalog.
func Defaults() []Definition {
	return []Definition{
		{ID: "data100", Name: "Data Novice", Description: "Generate 100 GB of data", Category: CategoryProduction, Requirement: 100, RewardKind: "clickValue", RewardAmount: 1, RewardText: "Click value +1"},
		{ID: "data1000", Name: "Data Enthusiast", Description: "Generate 1,000 GB of data", Category: CategoryProduction, Requirement: 1000, RewardKind: "income", RewardAmount: 0.05, RewardText: "All income +5%"},
		{ID: "data10000", Name: "Data Expert", Description: "Generate 10,000 GB of data", Category: CategoryProduction, Requirement: 10000, RewardKind: "income", RewardAmount: 0.10, RewardText: "All income +10%"},
		{ID: "data100000", Name: "Data Master", Description: "Generate 100,000 GB of data", Category: CategoryProduction, Requirement: 100000},

		{ID: "speed100", Name: "Speed Demon", Description: "Reach 100 GB/s", Category: CategorySpeed, Requirement: 100, RewardKind: "clickValue", RewardAmount: 5, RewardText: "Click value +5"},
		{ID: "speed1000", Name: "Data Tsunami", Description: "Reach 1,000 GB/s", Category: CategorySpeed, Requirement: 1000, RewardKind: "income", RewardAmount: 0.20, RewardText: "All income +20%"},

		{ID: "hire1", Name: "First Hire", Description: "Hire your first employee", Category: CategoryEmployees, Requirement: 1, RewardKind: "taskSpeed", RewardAmount: 0.05, RewardText: "Task speed +5%"},
		{ID: "hire5", Name: "Growing Team", Description: "Have 5 employees", Category: CategoryEmployees, Requirement: 5, RewardKind: "income", RewardAmount: 0.10, RewardText: "All income +10%"},
		{ID: "allTechs", Name: "Tech Collection", Description: "Hire every technician", Category: CategoryWorkforce, Expression: `owned["technician"] >= roleSize["technician"]`, RewardKind: "income", RewardAmount: 0.25, RewardText: "All income +25%"},

		{ID: "upgrade1", Name: "Investor", Description: "Buy your first upgrade", Category: CategoryUpgrades, Requirement: 1, RewardKind: "taskSpeed", RewardAmount: 0.05, RewardText: "Task speed +5%"},
		{ID: "maxSpeed", Name: "Speed of Light", Description: "Max out task speed upgrades", Category: CategoryUpgrades, Expression: `maxed["taskSpeedUpgrade"]`, RewardKind: "taskSpeed", RewardAmount: 0.25, RewardText: "Task speed +25%"},

		{ID: "tech_automated", Name: "Hands Off", Description: "Automate every technician", Category: CategoryWorkforce, Expression: `allAutomated["technician"]`, RewardKind: "income", RewardAmount: 0.15, RewardText: "All income +15%"},
		{ID: "fullAutomation", Name: "Automation Master", Description: "Automate every worker", Category: CategoryMilestones, Expression: `fullyAutomated`, RewardKind: "income", RewardAmount: 0.50, RewardText: "All income +50%"},
		{ID: "firstMillion", Name: "Data Millionaire", Description: "Generate 1,000,000 GB of data", Category: CategoryMilestones, Expression: `totalGenerated >= 1000000`},
		{ID: "techGiant", Name: "Tech Giant", Description: "Own every employee", Category: CategoryMilestones, Expression: `employees >= rosterSize`},
	}
}
