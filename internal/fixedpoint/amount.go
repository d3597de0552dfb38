// Package fixedpoint implements exact integer arithmetic for a 6-decimal
// stable-value unit. Settlement paths never touch floating point.
package fixedpoint

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	// Decimals is the number of fractional digits of the settlement currency.
	Decimals = 6
	// Scale is the number of micro-units in one unit.
	Scale = 1_000_000
)

// MaxAmount is the largest representable amount. It is capped at MaxInt64 so
// every Amount can be stored in a signed 64-bit SQL column.
const MaxAmount Amount = math.MaxInt64

var (
	ErrOverflow       = errors.New("fixedpoint: amount overflow")
	ErrUnderflow      = errors.New("fixedpoint: amount underflow")
	ErrNegative       = errors.New("fixedpoint: negative amount")
	ErrPrecision      = errors.New("fixedpoint: more than 6 decimal places")
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
	ErrSyntax         = errors.New("fixedpoint: invalid amount syntax")
)

// Amount is a non-negative quantity of micro-units (1 unit = 1e-6).
type Amount uint64

// Zero is the zero amount.
const Zero Amount = 0

// IsZero reports whether a is zero.
func (a Amount) IsZero() bool { return a == 0 }

// Add returns a+b, failing instead of wrapping past MaxAmount.
func (a Amount) Add(b Amount) (Amount, error) {
	if a > MaxAmount || b > MaxAmount-a {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Sub returns a-b, failing when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// MulDiv returns floor(a*b/c). The intermediate product is computed in 256
// bits so it never overflows; only the quotient must fit in an Amount.
func MulDiv(a, b, c Amount) (Amount, error) {
	if c == 0 {
		return 0, ErrDivisionByZero
	}
	x := uint256.NewInt(uint64(a))
	x.Mul(x, uint256.NewInt(uint64(b)))
	x.Div(x, uint256.NewInt(uint64(c)))
	if !x.IsUint64() || x.Uint64() > uint64(MaxAmount) {
		return 0, ErrOverflow
	}
	return Amount(x.Uint64()), nil
}

// RoundPercent returns round(100*part/whole) with halves rounded up. whole
// must be non-zero.
func RoundPercent(part, whole Amount) (uint64, error) {
	if whole == 0 {
		return 0, ErrDivisionByZero
	}
	// (200*part + whole) / (2*whole)
	num := uint256.NewInt(uint64(part))
	num.Mul(num, uint256.NewInt(200))
	num.Add(num, uint256.NewInt(uint64(whole)))
	den := uint256.NewInt(uint64(whole))
	den.Mul(den, uint256.NewInt(2))
	num.Div(num, den)
	return num.Uint64(), nil
}

// Sum adds all amounts with overflow checking.
func Sum(amounts ...Amount) (Amount, error) {
	var total Amount
	for _, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// FromUnits converts a whole number of units into micro-units.
func FromUnits(units uint64) (Amount, error) {
	if units > uint64(MaxAmount)/Scale {
		return 0, ErrOverflow
	}
	return Amount(units * Scale), nil
}

// Parse reads a human decimal such as "12.5" or "0.000001" into micro-units.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	return FromDecimal(d)
}

// FromDecimal converts a unit-denominated decimal into micro-units.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return 0, ErrNegative
	}
	scaled := d.Shift(Decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrPrecision
	}
	if scaled.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, ErrOverflow
	}
	return Amount(scaled.IntPart()), nil
}

// ParseMicros reads a base-10 integer count of micro-units.
func ParseMicros(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			return 0, ErrNegative
		}
		return 0, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, ErrOverflow
		}
		return 0, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	if v > uint64(MaxAmount) {
		return 0, ErrOverflow
	}
	return Amount(v), nil
}

// Decimal returns a as a unit-denominated decimal.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Decimals)
}

// String formats a in units with all six fractional digits.
func (a Amount) String() string {
	return a.Decimal().StringFixed(Decimals)
}

// Micros formats a as a base-10 integer of micro-units.
func (a Amount) Micros() string {
	return strconv.FormatUint(uint64(a), 10)
}

// MarshalJSON encodes a as a quoted micro-unit integer so values above 2^53
// survive JavaScript clients.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.Micros())), nil
}

// UnmarshalJSON accepts a quoted or bare micro-unit integer.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*a = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	v, err := ParseMicros(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) {
	if a > MaxAmount {
		return nil, ErrOverflow
	}
	return int64(a), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = 0
	case int64:
		if v < 0 {
			return ErrNegative
		}
		*a = Amount(v)
	case []byte:
		return a.scanString(string(v))
	case string:
		return a.scanString(v)
	default:
		return fmt.Errorf("fixedpoint: cannot scan %T into Amount", src)
	}
	return nil
}

func (a *Amount) scanString(s string) error {
	v, err := ParseMicros(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
