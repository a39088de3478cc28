package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units (cents).
type Money int64

// ParseMoney converts a decimal string such as "3.99" into cents. More than two
// fractional digits are rejected rather than rounded.
func ParseMoney(value string) (Money, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidInput)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: %v", ErrInvalidInput, value, err)
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount %q has more than two decimals", ErrInvalidInput, value)
	}
	return Money(cents.IntPart()), nil
}

// MustParseMoney is ParseMoney for package-level constants and tests.
func MustParseMoney(value string) Money {
	m, err := ParseMoney(value)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String renders the amount with exactly two decimals, e.g. "144.16".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalText keeps money as a decimal string on the wire.
func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts the same format produced by MarshalText.
func (m *Money) UnmarshalText(text []byte) error {
	parsed, err := ParseMoney(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// mulBps multiplies m by bps/10000 rounding half away from zero.
func mulBps(m Money, bps int64) Money {
	product := int64(m) * bps
	if product < 0 {
		return -Money((-product + 5000) / 10000)
	}
	return Money((product + 5000) / 10000)
}

// divRound divides m by n rounding half up. n must be positive.
func divRound(m Money, n int64) Money {
	if m < 0 {
		return -Money((int64(-m) + n/2) / n)
	}
	return Money((int64(m) + n/2) / n)
}
