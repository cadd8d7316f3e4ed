package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// lnPrecision is the number of decimal places used for logarithms and
// exponentials in non-integer powers.
const lnPrecision = 24

var thousand = decimal.NewFromInt(1000)

// Dec parses a literal decimal constant. It panics on malformed input and is
// meant for package-level tables only.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// OrZero returns the value of n, or zero when it is null.
func OrZero(n decimal.NullDecimal) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Decimal
}

// ValueOr returns the value of n, or fallback when it is null.
func ValueOr(n decimal.NullDecimal, fallback decimal.Decimal) decimal.Decimal {
	if !n.Valid {
		return fallback
	}
	return n.Decimal
}

// PerThousand converts an amount times a per-mille content into the unit of
// the amount: amount × content / 1000.
func PerThousand(amount, content decimal.Decimal) decimal.Decimal {
	return amount.Mul(content).Div(thousand)
}

// Clamp limits d to [lo, hi].
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// Sum adds values. An empty input sums to zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Mean returns the arithmetic mean of values, or zero for an empty slice.
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return Sum(values...).Div(decimal.NewFromInt(int64(len(values))))
}

// Pow raises a positive base to a real exponent as exp(exponent × ln(base)).
func Pow(base, exponent decimal.Decimal) (decimal.Decimal, error) {
	if !base.IsPositive() {
		return decimal.Zero, fmt.Errorf("pow: base %s must be positive", base)
	}
	ln, err := base.Ln(lnPrecision)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pow: ln(%s): %w", base, err)
	}
	return Exp(ln.Mul(exponent))
}

// Exp returns e raised to x.
func Exp(x decimal.Decimal) (decimal.Decimal, error) {
	v, err := x.ExpTaylor(lnPrecision)
	if err != nil {
		return decimal.Zero, fmt.Errorf("exp(%s): %w", x, err)
	}
	return v, nil
}
