package core

// rational.go – exact rational arithmetic for every monetary quantity in
// the ledger. No binary floating point touches a balance or a fee: values
// flow through *Rational end to end, and its canonical string form is part
// of the hash preimage for transactions, blocks and the state root.
//
// No arbitrary-precision rational library appears anywhere in the example
// pack, so this wraps the standard library's math/big.Rat rather than
// reaching for a third-party decimal type — see DESIGN.md.

import (
	"fmt"
	"math/big"
)

// Rational is an arbitrary-precision numerator/denominator pair, always
// kept in lowest terms by math/big.Rat itself.
type Rational struct {
	r *big.Rat
}

// Zero is the additive identity. Callers must not mutate the returned value.
var Zero = &Rational{r: new(big.Rat)}

// NewRationalInt builds a Rational from an int64 whole number.
func NewRationalInt(n int64) *Rational {
	return &Rational{r: new(big.Rat).SetInt64(n)}
}

// NewRationalFrac builds a Rational from an integer numerator and denominator.
func NewRationalFrac(num, den int64) (*Rational, error) {
	if den == 0 {
		return nil, fmt.Errorf("rational: zero denominator")
	}
	return &Rational{r: new(big.Rat).SetFrac64(num, den)}, nil
}

// ParseRational parses the canonical "num/den" or "int" string form.
func ParseRational(s string) (*Rational, error) {
	r := new(big.Rat)
	if _, ok := r.SetString(s); !ok {
		return nil, fmt.Errorf("rational: invalid literal %q", s)
	}
	return &Rational{r: r}, nil
}

// String renders the canonical form: "num/den" when den != 1, else the bare
// integer. This is what goes into hash preimages and canonical JSON.
func (a *Rational) String() string {
	if a == nil || a.r == nil {
		return "0"
	}
	if a.r.IsInt() {
		return a.r.Num().String()
	}
	return a.r.RatString()
}

// MarshalJSON renders the Rational as its canonical decimal-fraction string,
// matching the "numbers rendered as their decimal-fraction string" rule in
// spec.md §4.1.
func (a *Rational) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts the canonical string form.
func (a *Rational) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseRational(s)
	if err != nil {
		return err
	}
	*a = *parsed
	return nil
}

func (a *Rational) Add(b *Rational) *Rational {
	return &Rational{r: new(big.Rat).Add(a.r, b.r)}
}

func (a *Rational) Sub(b *Rational) *Rational {
	return &Rational{r: new(big.Rat).Sub(a.r, b.r)}
}

func (a *Rational) Mul(b *Rational) *Rational {
	return &Rational{r: new(big.Rat).Mul(a.r, b.r)}
}

func (a *Rational) Quo(b *Rational) *Rational {
	return &Rational{r: new(big.Rat).Quo(a.r, b.r)}
}

// Cmp returns -1, 0, +1 as a is <, ==, > b.
func (a *Rational) Cmp(b *Rational) int {
	return a.r.Cmp(b.r)
}

func (a *Rational) Sign() int { return a.r.Sign() }

func (a *Rational) IsZero() bool { return a.r.Sign() == 0 }

// Neg returns -a.
func (a *Rational) Neg() *Rational {
	return &Rational{r: new(big.Rat).Neg(a.r)}
}

// Clamp returns lo if a < lo, hi if a > hi, else a.
func (a *Rational) Clamp(lo, hi *Rational) *Rational {
	if a.Cmp(lo) < 0 {
		return lo
	}
	if a.Cmp(hi) > 0 {
		return hi
	}
	return a
}

// Float64 is used only for non-consensus-critical display/logging paths
// (e.g. log lines); it must never feed back into a balance computation.
func (a *Rational) Float64() float64 {
	f, _ := a.r.Float64()
	return f
}
