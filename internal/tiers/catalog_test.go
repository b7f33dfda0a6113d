package tiers

import (
	"testing"

	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
)

func TestOrdinalsStrictlyAscending(t *testing.T) {
	order := []enums.Tier{enums.TierBasic, enums.TierPro, enums.TierElite, enums.TierLawEnforcement}
	prev := 0
	for _, tier := range order {
		ord := Ordinal(tier)
		if ord <= prev {
			t.Fatalf("tier %s ordinal %d not strictly greater than %d", tier, ord, prev)
		}
		prev = ord
	}
	if Ordinal(enums.Tier("platinum")) != 0 {
		t.Fatalf("unknown tier should rank 0")
	}
}

func TestFeatureInheritance(t *testing.T) {
	// Every feature of a lower tier is present in all higher tiers.
	order := []enums.Tier{enums.TierBasic, enums.TierPro, enums.TierElite, enums.TierLawEnforcement}
	for i := 0; i < len(order)-1; i++ {
		lower, _ := Lookup(order[i])
		for _, feature := range lower.Features {
			if !HasFeature(order[i+1], feature) {
				t.Fatalf("tier %s missing feature %q from tier %s", order[i+1], feature, order[i])
			}
		}
	}
}

func TestHasFeature(t *testing.T) {
	if !HasFeature(enums.TierLawEnforcement, "chain_of_custody") {
		t.Fatalf("law enforcement tier should include chain_of_custody")
	}
	if HasFeature(enums.TierBasic, "api_access") {
		t.Fatalf("basic tier should not include api_access")
	}
	if HasFeature(enums.Tier("unknown"), "run_tracking") {
		t.Fatalf("unknown tier has no features")
	}
}

func TestCommissionModifier(t *testing.T) {
	tests := []struct {
		name    string
		tier    enums.Tier
		partner enums.BusinessType
		want    string
	}{
		{"top tier with LE partner", enums.TierLawEnforcement, enums.BusinessTypeLawEnforcement, "1.5"},
		{"top tier with kennel partner", enums.TierLawEnforcement, enums.BusinessTypeKennel, "1.2"},
		{"elite tier", enums.TierElite, enums.BusinessTypeTrainer, "1.1"},
		{"elite tier LE partner gets no extra boost", enums.TierElite, enums.BusinessTypeLawEnforcement, "1.1"},
		{"pro tier", enums.TierPro, enums.BusinessTypeVeterinary, "1"},
		{"basic tier", enums.TierBasic, enums.BusinessTypeLawEnforcement, "1"},
	}
	for _, tt := range tests {
		got := CommissionModifier(tt.tier, tt.partner)
		if got.String() != tt.want {
			t.Fatalf("%s: expected modifier %s got %s", tt.name, tt.want, got)
		}
	}
}
