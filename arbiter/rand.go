package arbiter

import "math/rand"

// Rand is the source of randomness for Bernoulli trials and cooldown draws.
// Injectable so tests can force eligibility deterministically.
type Rand interface {
	Float64() float64
}

// systemRand draws from the shared math/rand source, which is safe for
// concurrent use.
type systemRand struct{}

func (systemRand) Float64() float64 {
	return rand.Float64()
}
