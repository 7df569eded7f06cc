package types

import (
	"fmt"
	"regexp"
)

// ZIPCode represents a 5-digit United States ZIP code. Benefit programs key
// regional data (area median income, utility allowances) off the ZIP, so the
// format is validated at the boundary and carried as a distinct type.
type ZIPCode string

var zipRegex = regexp.MustCompile(`^\d{5}$`)

// ParseZIPCode validates and parses a ZIP code string
func ParseZIPCode(s string) (ZIPCode, error) {
	if !zipRegex.MatchString(s) {
		return "", fmt.Errorf("ZIP code must be exactly 5 digits")
	}
	return ZIPCode(s), nil
}

// String returns the string representation
func (z ZIPCode) String() string {
	return string(z)
}

// IsValid reports whether the ZIP code has the expected 5-digit form
func (z ZIPCode) IsValid() bool {
	return zipRegex.MatchString(string(z))
}

// Region returns the 3-digit sectional center prefix used for coarse
// regional grouping in the legacy registry lookups.
func (z ZIPCode) Region() string {
	if len(z) != 5 {
		return ""
	}
	return string(z)[:3]
}
