// Package dynamics holds the numeric primitives shared by the engine and sensor models.
package dynamics

import "math"

// Converge moves current toward target by at most rate*dt. It never overshoots:
// once the remaining distance fits in one step the result is exactly target.
// A non-positive step leaves current unchanged.
func Converge(current, target, rate, dt float64) float64 {
	step := rate * dt
	if !(step > 0) {
		return current
	}
	diff := target - current
	if math.Abs(diff) <= step {
		return target
	}
	if diff > 0 {
		return current + step
	}
	return current - step
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
