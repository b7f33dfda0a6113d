package tiers

import (
	"github.com/shopspring/decimal"

	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
)

// Limits captures the per-tier usage ceilings enforced at runtime.
type Limits struct {
	Seats          int
	MonthlyRuns    int
	MonthlyExports int
	StorageGB      int
	APICallsPerDay int
	// MemberOrgs caps the organizations an agency account may manage.
	// Zero means the tier has no member-organization concept.
	MemberOrgs int
}

// Definition describes one subscription tier in the static catalog.
type Definition struct {
	Tier       enums.Tier
	Ordinal    int
	PriceCents int
	Features   []string
	Limits     Limits
}

var catalog = map[enums.Tier]Definition{
	enums.TierBasic: {
		Tier:       enums.TierBasic,
		Ordinal:    1,
		PriceCents: 4900,
		Features:   []string{"run_tracking", "scent_library"},
		Limits: Limits{
			Seats:          3,
			MonthlyRuns:    50,
			MonthlyExports: 5,
			StorageGB:      5,
			APICallsPerDay: 1000,
		},
	},
	enums.TierPro: {
		Tier:       enums.TierPro,
		Ordinal:    2,
		PriceCents: 14900,
		Features:   []string{"run_tracking", "scent_library", "progress_reports", "advanced_analytics"},
		Limits: Limits{
			Seats:          10,
			MonthlyRuns:    250,
			MonthlyExports: 50,
			StorageGB:      25,
			APICallsPerDay: 10000,
		},
	},
	enums.TierElite: {
		Tier:       enums.TierElite,
		Ordinal:    3,
		PriceCents: 29900,
		Features:   []string{"run_tracking", "scent_library", "progress_reports", "advanced_analytics", "api_access", "priority_support"},
		Limits: Limits{
			Seats:          25,
			MonthlyRuns:    1000,
			MonthlyExports: 200,
			StorageGB:      100,
			APICallsPerDay: 50000,
		},
	},
	enums.TierLawEnforcement: {
		Tier:       enums.TierLawEnforcement,
		Ordinal:    4,
		PriceCents: 59900,
		Features:   []string{"run_tracking", "scent_library", "progress_reports", "advanced_analytics", "api_access", "priority_support", "chain_of_custody", "court_reports", "multi_org_management"},
		Limits: Limits{
			Seats:          100,
			MonthlyRuns:    5000,
			MonthlyExports: 1000,
			StorageGB:      500,
			APICallsPerDay: 200000,
			MemberOrgs:     25,
		},
	},
}

// Lookup returns the catalog definition for a tier.
func Lookup(tier enums.Tier) (Definition, bool) {
	def, ok := catalog[tier]
	return def, ok
}

// Ordinal returns the rank of a tier, 0 when unknown.
func Ordinal(tier enums.Tier) int {
	if def, ok := catalog[tier]; ok {
		return def.Ordinal
	}
	return 0
}

// HasFeature reports whether a tier's feature list includes the named feature.
func HasFeature(tier enums.Tier, feature string) bool {
	def, ok := catalog[tier]
	if !ok {
		return false
	}
	for _, f := range def.Features {
		if f == feature {
			return true
		}
	}
	return false
}

type modifierRule struct {
	standard              decimal.Decimal
	lawEnforcementPartner decimal.Decimal
}

// Commission modifiers are keyed by purchased tier. Partners classified as
// law enforcement vendors earn the boosted rate on the top tier.
var tierModifiers = map[enums.Tier]modifierRule{
	enums.TierLawEnforcement: {
		standard:              decimal.RequireFromString("1.2"),
		lawEnforcementPartner: decimal.RequireFromString("1.5"),
	},
	enums.TierElite: {
		standard:              decimal.RequireFromString("1.1"),
		lawEnforcementPartner: decimal.RequireFromString("1.1"),
	},
}

// CommissionModifier returns the multiplier applied to a partner's base
// commission for a purchase of the given tier.
func CommissionModifier(tier enums.Tier, partnerType enums.BusinessType) decimal.Decimal {
	rule, ok := tierModifiers[tier]
	if !ok {
		return decimal.NewFromInt(1)
	}
	if partnerType.IsLawEnforcement() {
		return rule.lawEnforcementPartner
	}
	return rule.standard
}
