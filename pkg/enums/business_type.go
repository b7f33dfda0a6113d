package enums

import "fmt"

// BusinessType classifies a referral partner's line of business. The
// classification feeds the commission modifier table.
type BusinessType string

const (
	BusinessTypeKennel         BusinessType = "kennel"
	BusinessTypeTrainer        BusinessType = "trainer"
	BusinessTypeVeterinary     BusinessType = "veterinary"
	BusinessTypeLawEnforcement BusinessType = "law_enforcement"
)

var validBusinessTypes = []BusinessType{
	BusinessTypeKennel,
	BusinessTypeTrainer,
	BusinessTypeVeterinary,
	BusinessTypeLawEnforcement,
}

// String implements fmt.Stringer.
func (b BusinessType) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BusinessType.
func (b BusinessType) IsValid() bool {
	for _, candidate := range validBusinessTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsLawEnforcement reports whether the partner is law-enforcement classified.
func (b BusinessType) IsLawEnforcement() bool {
	return b == BusinessTypeLawEnforcement
}

// ParseBusinessType converts raw input into a BusinessType.
func ParseBusinessType(value string) (BusinessType, error) {
	for _, candidate := range validBusinessTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid business type %q", value)
}
