package enums

import "fmt"

// AttributionStatus tracks a referral from signup through commission payout.
type AttributionStatus string

const (
	AttributionStatusAttributed     AttributionStatus = "attributed"
	AttributionStatusConverted      AttributionStatus = "converted"
	AttributionStatusCommissionPaid AttributionStatus = "commission_paid"
)

var validAttributionStatuses = []AttributionStatus{
	AttributionStatusAttributed,
	AttributionStatusConverted,
	AttributionStatusCommissionPaid,
}

// String implements fmt.Stringer.
func (a AttributionStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AttributionStatus.
func (a AttributionStatus) IsValid() bool {
	for _, candidate := range validAttributionStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAttributionStatus converts raw input into an AttributionStatus.
func ParseAttributionStatus(value string) (AttributionStatus, error) {
	for _, candidate := range validAttributionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attribution status %q", value)
}
