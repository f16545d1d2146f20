// Package unlock maps roster thresholds to presentation features.
// This package is PURE and must NOT import any infrastructure packages.
package unlock

import (
	"github.com/kylechrisking/it-empire-idle/internal/domain/roster"
)

// Feature ids.
const (
	FeatureManagersPanel = "managersPanel"
	FeatureUpgradesPanel = "upgradesPanel"
)

// Rule unlocks Feature once MinOwned entities of Role are owned.
type Rule struct {
	Feature  string `yaml:"feature" json:"feature"`
	Role     string `yaml:"role" json:"role"`
	MinOwned int    `yaml:"minOwned" json:"minOwned"`
}

// DefaultRules are the stock thresholds.
func DefaultRules() []Rule {
	return []Rule{
		{Feature: FeatureManagersPanel, Role: roster.RoleTechnician, MinOwned: 1},
		{Feature: FeatureUpgradesPanel, Role: roster.RoleTechnician, MinOwned: 2},
	}
}

// Evaluate returns the features whose thresholds currently hold, in rule order.
func Evaluate(rules []Rule, r *roster.Roster) []string {
	var out []string
	for _, rule := range rules {
		if r.CountOwned(rule.Role) >= rule.MinOwned {
			out = append(out, rule.Feature)
		}
	}
	return out
}
