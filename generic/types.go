/*
Package generic provides the domain-agnostic building blocks of the leave engine.

PURPOSE:
  This package contains the calendar and quantity primitives that every
  entitlement calculation is built from. Whether counting casual leave in a
  month or sick leave in a year, the same day arithmetic, period windows and
  decimal amounts are used.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity of days (supports half days, e.g. 0.5)
  - Unit: The unit of an amount (days for this system)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 0.5 + 0.5 is exactly 1
  2. Immutability: Amount arithmetic returns new values
  3. Day granularity: Leave is counted in whole calendar days or halves

USAGE:
  used := generic.Days(2)
  requested := generic.Days(0.5)
  if used.Add(requested).GreaterThan(limit) { ... }

SEE ALSO:
  - time.go: TimePoint and calendar day iteration
  - period.go: Monthly / yearly accounting windows
  - errors.go: Error kinds surfaced by the engine
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit (days for this system)
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays Unit = "days"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// Days is shorthand for NewAmount(n, UnitDays).
func Days(n float64) Amount { return NewAmount(n, UnitDays) }

// ZeroDays returns an empty day amount.
func ZeroDays() Amount { return Amount{Value: decimal.Zero, Unit: UnitDays} }

func (a Amount) Add(b Amount) Amount           { return Amount{Value: a.Value.Add(b.Value), Unit: a.unit()} }
func (a Amount) Sub(b Amount) Amount           { return Amount{Value: a.Value.Sub(b.Value), Unit: a.unit()} }
func (a Amount) IsNegative() bool              { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                  { return a.Value.IsZero() }
func (a Amount) IsPositive() bool              { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool     { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool        { return a.Value.LessThan(b.Value) }
func (a Amount) LessThanOrEqual(b Amount) bool { return a.Value.LessThanOrEqual(b.Value) }
func (a Amount) Equal(b Amount) bool           { return a.Value.Equal(b.Value) }
func (a Amount) Float64() float64              { return a.Value.InexactFloat64() }
func (a Amount) String() string                { return a.Value.String() }

// Times scales the amount by n.
func (a Amount) Times(n int) Amount {
	return Amount{Value: a.Value.Mul(decimal.NewFromInt(int64(n))), Unit: a.unit()}
}

// FloorZero clamps negative amounts to zero.
func (a Amount) FloorZero() Amount {
	if a.IsNegative() {
		return Amount{Value: decimal.Zero, Unit: a.unit()}
	}
	return a
}

func (a Amount) unit() Unit {
	if a.Unit == "" {
		return UnitDays
	}
	return a.Unit
}
