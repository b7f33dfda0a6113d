package enums

import "fmt"

// PartnerStatus tracks a referral partner's standing in the program.
type PartnerStatus string

const (
	PartnerStatusActive    PartnerStatus = "active"
	PartnerStatusSuspended PartnerStatus = "suspended"
	PartnerStatusClosed    PartnerStatus = "closed"
)

var validPartnerStatuses = []PartnerStatus{
	PartnerStatusActive,
	PartnerStatusSuspended,
	PartnerStatusClosed,
}

// String implements fmt.Stringer.
func (p PartnerStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PartnerStatus.
func (p PartnerStatus) IsValid() bool {
	for _, candidate := range validPartnerStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePartnerStatus converts raw input into a PartnerStatus.
func ParsePartnerStatus(value string) (PartnerStatus, error) {
	for _, candidate := range validPartnerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid partner status %q", value)
}
