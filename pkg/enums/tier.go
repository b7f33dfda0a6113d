package enums

import "fmt"

// Tier names a subscription plan. Ordering (capability and price) lives in the
// tier catalog, not here.
type Tier string

const (
	TierBasic          Tier = "basic"
	TierPro            Tier = "pro"
	TierElite          Tier = "elite"
	TierLawEnforcement Tier = "law_enforcement"
)

var validTiers = []Tier{
	TierBasic,
	TierPro,
	TierElite,
	TierLawEnforcement,
}

// String implements fmt.Stringer.
func (t Tier) String() string {
	return string(t)
}

// IsValid reports whether the value is a known Tier.
func (t Tier) IsValid() bool {
	for _, candidate := range validTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTier converts raw input into a Tier.
func ParseTier(value string) (Tier, error) {
	for _, candidate := range validTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tier %q", value)
}
