/*
NAME
  rational.go

DESCRIPTION
  rational.go provides the Rational type used throughout pollux for
  time bases and frame rates.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package avutil

import "fmt"

// Rational is a (num, den) 32-bit rational pair, used for time bases and
// frame rates.
type Rational struct {
	Num int32
	Den int32
}

// NewRational returns a Rational of num/den.
func NewRational(num, den int32) Rational { return Rational{Num: num, Den: den} }

// Float64 returns r as a float64. It returns 0 if Den is 0.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// IsZero reports whether r is the zero rational.
func (r Rational) IsZero() bool { return r.Num == 0 && r.Den == 0 }

// Invert returns den/num.
func (r Rational) Invert() Rational { return Rational{Num: r.Den, Den: r.Num} }

func (r Rational) String() string { return fmt.Sprintf("%d/%d", r.Num, r.Den) }
