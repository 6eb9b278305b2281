package shared

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// CGPA
// ══════════════════════════════════════════════════════════════════════════════

// CGPA is a grade point average on the 0.00-10.00 scale, held as an integer
// count of hundredths so that threshold comparisons are exact.
type CGPA int

const (
	// MinCGPA is the lowest representable CGPA.
	MinCGPA CGPA = 0

	// MaxCGPA is 10.00.
	MaxCGPA CGPA = 1000
)

// IsValid returns true if the value lies on the 0.00-10.00 scale.
func (c CGPA) IsValid() bool {
	return c >= MinCGPA && c <= MaxCGPA
}

// Hundredths returns the raw fixed-point value.
func (c CGPA) Hundredths() int {
	return int(c)
}

// Float64 returns the value as a float for display and averages.
func (c CGPA) Float64() float64 {
	return float64(c) / 100
}

// AtLeast reports whether c meets the given threshold.
func (c CGPA) AtLeast(threshold CGPA) bool {
	return c >= threshold
}

// String renders the value with two decimals.
func (c CGPA) String() string {
	return fmt.Sprintf("%d.%02d", int(c)/100, int(c)%100)
}

// MarshalJSON renders the CGPA as a JSON number with two decimals.
func (c CGPA) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or numeric string.
func (c *CGPA) UnmarshalJSON(data []byte) error {
	parsed, err := ParseCGPA(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// NewCGPA converts a float, rounding to the nearest hundredth.
func NewCGPA(value float64) (CGPA, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrInvalidFormat
	}
	c := CGPA(math.Round(value * 100))
	if !c.IsValid() {
		return 0, fmt.Errorf("%w: cgpa %.2f", ErrValueOutOfRange, value)
	}
	return c, nil
}

// ParseCGPA parses a decimal string such as "7.35".
func ParseCGPA(s string) (CGPA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyValue
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: cgpa %q", ErrInvalidFormat, s)
	}
	return NewCGPA(f)
}

// MustCGPA is NewCGPA for constants known to be valid.
func MustCGPA(value float64) CGPA {
	c, err := NewCGPA(value)
	if err != nil {
		panic(err)
	}
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// IDENTIFIERS
// ══════════════════════════════════════════════════════════════════════════════

// ValidateID checks that a store-assigned identifier is positive.
func ValidateID(name string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidID, name)
	}
	return nil
}
