package risk

import (
	"errors"
	"fmt"
	"sort"
)

// Normalize maps value onto [0,1] over the [min,max] scale, clamped. A
// degenerate scale (max <= min) returns 0.5: the quantity is real but its
// range is undefined, so mid-scale is the policy choice rather than an error.
func Normalize(value, min, max float64) float64 {
	if max <= min {
		return 0.5
	}
	return clamp01((value - min) / (max - min))
}

// CurvePoint is one breakpoint of a piecewise-linear calibration curve.
type CurvePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curve is a monotonic piecewise-linear map from a raw magnitude to a [0,1]
// score. Inputs below the first breakpoint score the first Y (usually 0);
// inputs beyond the last breakpoint saturate at the last Y.
type Curve []CurvePoint

// Eval interpolates the curve at x.
func (c Curve) Eval(x float64) float64 {
	if len(c) == 0 {
		return 0
	}
	if x <= c[0].X {
		return c[0].Y
	}
	last := c[len(c)-1]
	if x >= last.X {
		return last.Y
	}
	i := sort.Search(len(c), func(i int) bool { return c[i].X > x }) - 1
	a, b := c[i], c[i+1]
	t := (x - a.X) / (b.X - a.X)
	return a.Y + t*(b.Y-a.Y)
}

func (c Curve) validate() error {
	if len(c) < 2 {
		return errors.New("needs at least two breakpoints")
	}
	for i := range c {
		if c[i].Y < 0 || c[i].Y > 1 {
			return fmt.Errorf("breakpoint %d: score %g outside [0,1]", i, c[i].Y)
		}
		if i == 0 {
			continue
		}
		if c[i].X <= c[i-1].X {
			return fmt.Errorf("breakpoint %d: x values must be strictly increasing", i)
		}
		if c[i].Y < c[i-1].Y {
			return fmt.Errorf("breakpoint %d: scores must be non-decreasing", i)
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
