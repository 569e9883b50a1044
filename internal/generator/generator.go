// Package generator produces synthetic sensor values.
package generator

import (
	"math"
	"math/rand"
	"time"
)

const (
	TempMin = 15.0
	TempMax = 30.0

	TargetMin = 18.0
	TargetMax = 28.0

	StartTemp = 22.0

	targetChance = 0.10
	approachRate = 0.2
	nearTarget   = 0.1
	idleDrift    = 0.2
	noise        = 0.1
)

// Temperature is a bounded random walk towards a target that occasionally
// jumps. It is not safe for concurrent use.
type Temperature struct {
	current float64
	target  float64
	rnd     *rand.Rand
}

// NewTemperature starts at StartTemp. A nil rnd gets a clock-seeded source.
func NewTemperature(rnd *rand.Rand) *Temperature {
	if rnd == nil {
		rnd = newSource()
	}
	return &Temperature{current: StartTemp, target: StartTemp, rnd: rnd}
}

// Next advances the walk and returns the emitted reading.
func (t *Temperature) Next() float64 {
	t.current, t.target = Step(t.current, t.target, t.rnd)
	return t.current
}

func (t *Temperature) Current() float64 { return t.current }
func (t *Temperature) Target() float64  { return t.target }

// Step is one generation step: it returns the new current value, which is
// also the reading, and the possibly redrawn target.
func Step(current, target float64, rnd *rand.Rand) (float64, float64) {
	if rnd.Float64() < targetChance {
		target = round(uniform(rnd, TargetMin, TargetMax), 1)
	}

	diff := target - current
	if math.Abs(diff) > nearTarget {
		current += diff * approachRate
	} else {
		current += uniform(rnd, -idleDrift, idleDrift)
	}

	v := round(current+uniform(rnd, -noise, noise), 2)
	return clamp(v, TempMin, TempMax), target
}

// Uniform draws independent values in [0, 100].
type Uniform struct {
	rnd *rand.Rand
}

func NewUniform(rnd *rand.Rand) *Uniform {
	if rnd == nil {
		rnd = newSource()
	}
	return &Uniform{rnd: rnd}
}

func (u *Uniform) Next() float64 {
	return round(uniform(u.rnd, 0, 100), 2)
}

// Fixed always returns the same value. Used for single-reading runs.
type Fixed float64

func (f Fixed) Next() float64 { return float64(f) }

func newSource() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func uniform(rnd *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rnd.Float64()
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
