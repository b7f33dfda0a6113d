package enums

import "fmt"

// SubscriptionType records whether the subscription came from a first purchase
// or a tier change.
type SubscriptionType string

const (
	SubscriptionTypeNew     SubscriptionType = "new"
	SubscriptionTypeUpgrade SubscriptionType = "upgrade"
)

var validSubscriptionTypes = []SubscriptionType{
	SubscriptionTypeNew,
	SubscriptionTypeUpgrade,
}

// String implements fmt.Stringer.
func (s SubscriptionType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubscriptionType.
func (s SubscriptionType) IsValid() bool {
	for _, candidate := range validSubscriptionTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubscriptionType converts raw input into a SubscriptionType.
func ParseSubscriptionType(value string) (SubscriptionType, error) {
	for _, candidate := range validSubscriptionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription type %q", value)
}
