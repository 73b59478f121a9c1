package combat

import "math/rand"

// Roller is the source of randomness for every combat roll. Tests inject a
// scripted one.
type Roller interface {
	// Intn returns a value in [0, n).
	Intn(n int) int
}

type stdRoller struct{}

func (stdRoller) Intn(n int) int { return rand.Intn(n) }

// DefaultRoller uses the process-wide math/rand source.
var DefaultRoller Roller = stdRoller{}

// D returns a roll of one die with the given number of sides, 1..sides.
func D(r Roller, sides int) int {
	return r.Intn(sides) + 1
}

// Percent reports whether a roll succeeds with the given percentage chance.
func Percent(r Roller, chance int) bool {
	return r.Intn(100) < chance
}

func pick[T any](r Roller, xs []T) T {
	return xs[r.Intn(len(xs))]
}
