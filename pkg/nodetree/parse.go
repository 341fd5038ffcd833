package nodetree

import (
	"fmt"
	"math"

	"github.com/qbench-io/shftk/internal/domain"
)

// Number covers the value types parameter validators operate on.
type Number interface {
	~int | ~int64 | ~float64
}

// Validator checks or adjusts a value before it is written to a node.
// Validators compose left to right; the first failure aborts the set.
type Validator[T Number] func(T) (T, error)

// RoundMode selects how MultipleOf adjusts values that are not on the
// required granularity grid.
type RoundMode string

const (
	// RoundNearest snaps to the closest multiple.
	RoundNearest RoundMode = "nearest"

	// RoundDown snaps to the next smaller multiple.
	RoundDown RoundMode = "down"
)

// GreaterEqual rejects values below min.
func GreaterEqual[T Number](min T) Validator[T] {
	return func(v T) (T, error) {
		if v < min {
			return v, fmt.Errorf("%w: %v is smaller than %v", domain.ErrOutOfRange, v, min)
		}
		return v, nil
	}
}

// SmallerEqual rejects values above max.
func SmallerEqual[T Number](max T) Validator[T] {
	return func(v T) (T, error) {
		if v > max {
			return v, fmt.Errorf("%w: %v is greater than %v", domain.ErrOutOfRange, v, max)
		}
		return v, nil
	}
}

// Greater rejects values at or below min.
func Greater[T Number](min T) Validator[T] {
	return func(v T) (T, error) {
		if v <= min {
			return v, fmt.Errorf("%w: %v must be greater than %v", domain.ErrOutOfRange, v, min)
		}
		return v, nil
	}
}

// MultipleOf snaps the value onto a granularity grid. Values already on
// the grid pass through unchanged; everything else is adjusted according
// to the rounding mode. The Parameter logs a warning when the written
// value differs from the requested one.
func MultipleOf[T Number](factor T, mode RoundMode) Validator[T] {
	return func(v T) (T, error) {
		f := float64(factor)
		ratio := float64(v) / f
		if ratio == math.Trunc(ratio) {
			return v, nil
		}
		switch mode {
		case RoundDown:
			return T(math.Floor(ratio) * f), nil
		case RoundNearest:
			return T(math.Round(ratio) * f), nil
		default:
			return v, fmt.Errorf("%w: unknown rounding mode %q", domain.ErrInvalidValue, mode)
		}
	}
}
