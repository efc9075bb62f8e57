package fast

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Exponent bounds mandated by FAST for scaled numbers.
const (
	minExponent = -63
	maxExponent = 63
)

// Decimal is a scaled base-10 number: Mantissa * 10^Exponent.
// Equality is structural over the pair; no canonicalization is applied.
type Decimal struct {
	Exponent int32
	Mantissa int64
}

func (Decimal) Kind() ValueKind { return KindDecimal }

// NewDecimal builds a decimal from its components.
func NewDecimal(exponent int32, mantissa int64) Decimal {
	return Decimal{Exponent: exponent, Mantissa: mantissa}
}

// ParseDecimal parses a decimal literal and normalizes it so that the
// mantissa has no trailing zero digits (12000 becomes 12 * 10^3). A zero
// value normalizes to zero mantissa and zero exponent. Normalization keeps
// the components predictable when operators apply to them individually.
func ParseDecimal(s string) (Decimal, error) {
	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return Decimal{}, fmt.Errorf("not a decimal: %q", s)
	}
	if !hasFrac {
		m, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return Decimal{}, fmt.Errorf("not a decimal: %q: %w", s, err)
		}
		e, m := scaleDown(m)
		return NewDecimal(e, m), nil
	}
	m, err := strconv.ParseInt(intPart+fracPart, 10, 64)
	if err != nil {
		return Decimal{}, fmt.Errorf("not a decimal: %q: %w", s, err)
	}
	if m == 0 {
		return Decimal{}, nil
	}
	fix, m := scaleDown(m)
	return NewDecimal(fix-int32(len(fracPart)), m), nil
}

func scaleDown(m int64) (int32, int64) {
	var e int32
	if m != 0 {
		for m%10 == 0 {
			m /= 10
			e++
		}
	}
	return e, m
}

// Float64 converts the decimal to a float, losing scale information.
func (d Decimal) Float64() float64 {
	switch {
	case d.Exponent > 0:
		return float64(d.Mantissa) * math.Pow10(int(d.Exponent))
	case d.Exponent < 0:
		return float64(d.Mantissa) / math.Pow10(int(-d.Exponent))
	}
	return float64(d.Mantissa)
}

// String renders the decimal with the number of fractional digits implied by
// a negative exponent, or as a plain integer when that exponent leaves no
// fractional part; non-negative exponents render as "<integer>.0".
func (d Decimal) String() string {
	if d.Exponent >= 0 {
		return fmt.Sprintf("%d.0", d.Mantissa*pow10(d.Exponent))
	}
	div := pow10(-d.Exponent)
	if d.Mantissa%div == 0 {
		return strconv.FormatInt(d.Mantissa/div, 10)
	}
	return strconv.FormatFloat(d.Float64(), 'f', int(-d.Exponent), 64)
}

func pow10(e int32) int64 {
	out := int64(1)
	for ; e > 0; e-- {
		out *= 10
	}
	return out
}
