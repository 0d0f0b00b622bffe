package model

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Amount is a token quantity in the asset's smallest denomination.
// The zero value is zero.
type Amount struct {
	n uint256.Int
}

// NewAmount wraps a uint64 quantity.
func NewAmount(v uint64) Amount {
	var a Amount
	a.n.SetUint64(v)
	return a
}

// ParseAmount parses a base-10 string such as "3000000000".
func ParseAmount(s string) (Amount, error) {
	var a Amount
	if err := a.n.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return a, nil
}

// Scaled returns v * 10^decimals, e.g. Scaled(3000, 6) for 3000 USDT.
func Scaled(v uint64, decimals uint8) Amount {
	var a Amount
	ten := uint256.NewInt(10)
	exp := uint256.NewInt(uint64(decimals))
	a.n.Exp(ten, exp)
	a.n.Mul(&a.n, uint256.NewInt(v))
	return a
}

// MustParseAmount is ParseAmount for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) IsZero() bool { return a.n.IsZero() }

func (a Amount) Cmp(b Amount) int { return a.n.Cmp(&b.n) }

func (a Amount) Lt(b Amount) bool { return a.n.Lt(&b.n) }

func (a Amount) Gt(b Amount) bool { return a.n.Gt(&b.n) }

func (a Amount) Eq(b Amount) bool { return a.n.Eq(&b.n) }

// Add returns a+b; ok is false on 256-bit overflow.
func (a Amount) Add(b Amount) (sum Amount, ok bool) {
	_, overflow := sum.n.AddOverflow(&a.n, &b.n)
	return sum, !overflow
}

// Sub returns a-b, floored at zero.
func (a Amount) Sub(b Amount) Amount {
	var out Amount
	if a.n.Lt(&b.n) {
		return out
	}
	out.n.Sub(&a.n, &b.n)
	return out
}

// MulUint64 returns a*m; ok is false on overflow.
func (a Amount) MulUint64(m uint64) (prod Amount, ok bool) {
	_, overflow := prod.n.MulOverflow(&a.n, uint256.NewInt(m))
	return prod, !overflow
}

// MulDiv returns floor(a*y/d) with a 512-bit intermediate product.
// ok is false when d is zero or the result does not fit 256 bits.
func (a Amount) MulDiv(y, d Amount) (out Amount, ok bool) {
	if d.n.IsZero() {
		return out, false
	}
	_, overflow := out.n.MulDivOverflow(&a.n, &y.n, &d.n)
	return out, !overflow
}

// Quo returns floor(a/d); zero when d is zero.
func (a Amount) Quo(d Amount) Amount {
	var out Amount
	out.n.Div(&a.n, &d.n)
	return out
}

// Uint64 reports the value as uint64 and whether it fit.
func (a Amount) Uint64() (uint64, bool) {
	return a.n.Uint64(), a.n.IsUint64()
}

func (a Amount) String() string { return a.n.Dec() }

// MarshalText encodes the amount as a base-10 string so JSON and CBOR
// snapshots stay exact regardless of magnitude.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.n.Dec()), nil
}

func (a *Amount) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		a.n.Clear()
		return nil
	}
	parsed, err := ParseAmount(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
