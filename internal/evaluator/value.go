package evaluator

import "math"

// maybe is the value of one formula step. ok is false when the step is
// undefined: a zero denominator, a non-positive price or a non-finite result.
type maybe struct {
	v  float64
	ok bool
}

var undefined = maybe{}

func some(v float64) maybe {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return undefined
	}
	return maybe{v: v, ok: true}
}

func div(num, den float64) maybe {
	if den == 0 {
		return undefined
	}
	return some(num / den)
}

func (m maybe) mul(f float64) maybe {
	if !m.ok {
		return undefined
	}
	return some(m.v * f)
}

// orZero is the final reducer: undefined becomes 0.
func (m maybe) orZero() float64 {
	if !m.ok {
		return 0
	}
	return m.v
}

// finite maps NaN and ±Inf to 0 so a result row always serialises.
func finite(v float64) float64 {
	return some(v).orZero()
}
