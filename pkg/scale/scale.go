// Package scale converts between the decimal prices and quantities used
// at the delivery boundary and the integer ticks the matching core
// operates on. The core never sees a decimal; conversion happens once,
// at the edge.
package scale

import (
	"errors"
	"fmt"
	"math"

	"github.com/nikolaydubina/fpdecimal"
)

// Errors
var (
	ErrOffTick     = errors.New("scale: value is not a whole multiple of the step")
	ErrInvalidStep = errors.New("scale: step must be positive")
	ErrOutOfRange  = errors.New("scale: value out of representable range")
)

// Scaler maps decimal values onto an integer grid with a fixed step.
// A book uses one Scaler for prices (step = tick size) and one for
// quantities (step = lot size).
type Scaler struct {
	step fpdecimal.Decimal
}

// NewScaler builds a Scaler from a decimal step string such as "0.01".
func NewScaler(step string) (Scaler, error) {
	d, err := fpdecimal.FromString(step)
	if err != nil {
		return Scaler{}, fmt.Errorf("parse step %q: %w", step, err)
	}
	return NewScalerFromDecimal(d)
}

// NewScalerFromDecimal builds a Scaler from an already parsed step.
func NewScalerFromDecimal(step fpdecimal.Decimal) (Scaler, error) {
	if !step.GreaterThan(fpdecimal.Zero) {
		return Scaler{}, ErrInvalidStep
	}
	return Scaler{step: step}, nil
}

// Step returns the decimal step of the grid.
func (s Scaler) Step() fpdecimal.Decimal { return s.step }

// ToTicks converts a decimal value to its integer tick count. Values
// that do not sit exactly on the grid are rejected rather than rounded.
func (s Scaler) ToTicks(v fpdecimal.Decimal) (int64, error) {
	ratio := v.Float64() / s.step.Float64()
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || math.Abs(ratio) > math.MaxInt64/2 {
		return 0, ErrOutOfRange
	}
	ticks := int64(math.Round(ratio))
	// Float division only produces a candidate; the fixed-point
	// reconstruction is the exactness check.
	if !s.FromTicks(ticks).Equal(v) {
		return 0, fmt.Errorf("%w: %s with step %s", ErrOffTick, v.String(), s.step.String())
	}
	return ticks, nil
}

// FromTicks converts an integer tick count back to its decimal value.
func (s Scaler) FromTicks(ticks int64) fpdecimal.Decimal {
	return s.step.Mul(fpdecimal.FromInt(ticks))
}
