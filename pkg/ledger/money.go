package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Money is a fixed-point decimal with exactly two fractional digits,
// represented as integer minor units (cents) to avoid floating-point
// drift across hash and balance computations. Per spec.md §9, the
// legacy 0.01 tolerance is honored only at comparison/serialization
// boundaries, never as the internal representation.
type Money struct {
	minor int64 // value * 100; negative values permitted for signed balances
}

// Zero is the additive identity.
var Zero = Money{}

// MoneyFromMinor constructs a Money from integer minor units (cents).
func MoneyFromMinor(minor int64) Money { return Money{minor: minor} }

// ParseMoney parses a string matching ^-?\d+(\.\d{1,2})?$ into Money.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("empty amount")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	parts := strings.SplitN(s, ".", 2)
	whole, err := strconv.ParseInt(parts[0], 10, 63)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	var frac int64
	if len(parts) == 2 {
		fracStr := parts[1]
		if len(fracStr) > 2 {
			return Money{}, fmt.Errorf("invalid amount %q: more than two fractional digits", s)
		}
		for len(fracStr) < 2 {
			fracStr += "0"
		}
		frac, err = strconv.ParseInt(fracStr, 10, 63)
		if err != nil {
			return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
		}
	}
	minor := whole*100 + frac
	if neg {
		minor = -minor
	}
	return Money{minor: minor}, nil
}

// MustParseMoney parses s, panicking on error. For use with constants
// constructed in tests and config defaults only.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns the fixed-point sum.
func (m Money) Add(o Money) Money { return Money{minor: m.minor + o.minor} }

// Sub returns the fixed-point difference.
func (m Money) Sub(o Money) Money { return Money{minor: m.minor - o.minor} }

// Neg returns the additive inverse.
func (m Money) Neg() Money { return Money{minor: -m.minor} }

// Abs returns the magnitude.
func (m Money) Abs() Money {
	if m.minor < 0 {
		return Money{minor: -m.minor}
	}
	return m
}

// Cmp returns -1, 0, or 1 as m is less than, equal to, or greater than o.
func (m Money) Cmp(o Money) int {
	switch {
	case m.minor < o.minor:
		return -1
	case m.minor > o.minor:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether m is exactly zero.
func (m Money) IsZero() bool { return m.minor == 0 }

// IsNegative reports whether m is strictly negative.
func (m Money) IsNegative() bool { return m.minor < 0 }

// WithinTolerance reports whether |m| <= tolerance, matching spec.md's
// documented 0.01 balance tolerance.
func (m Money) WithinTolerance(tolerance Money) bool {
	return m.Abs().minor <= tolerance.Abs().minor
}

// Minor returns the raw integer minor-unit representation.
func (m Money) Minor() int64 { return m.minor }

// String renders the canonical "-?\d+\.\d{2}" representation.
func (m Money) String() string {
	neg := m.minor < 0
	v := m.minor
	if neg {
		v = -v
	}
	whole := v / 100
	frac := v % 100
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%02d", sign, whole, frac)
}

// MarshalJSON renders Money as a JSON string, matching the wire shape
// entries and transactions already use for amounts.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON parses a JSON string (or bare number, for legacy
// producers) into Money.
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, perr := ParseMoney(s)
		if perr != nil {
			return perr
		}
		*m = parsed
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid money value: %s", string(data))
	}
	*m = MoneyFromMinor(int64(f*100 + 0.5))
	return nil
}
