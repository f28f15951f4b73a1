package rand

import (
	"github.com/pkg/errors"
	"github.com/seehuhn/mt19937"
)

// A Generator uses a goroutine to populate batches of random numbers from a
// Mersenne twister. It implements the math/rand/v2 Source interface, which is
// what gonum's distributions and samplers consume. Safe for one consumer:
// give every chain its own Generator (see Spawn).
type Generator struct {
	ch chan uint64
}

func startGenerator(seedFn func(*mt19937.MT19937)) *Generator {
	numChan := make(chan uint64, 1024)

	go func() {
		r := mt19937.New()
		seedFn(r)
		for {
			numChan <- r.Uint64()
		}
	}()

	return &Generator{
		ch: numChan,
	}
}

// NewGenerator starts a new background PRNG based on the given seed.
func NewGenerator(seed int64) (*Generator, error) {
	g := startGenerator(func(r *mt19937.MT19937) {
		r.Seed(seed)
	})
	return g, nil
}

// NewGeneratorSlice starts a new background PRNG seeded from a key array (the
// canonical init_by_array seeding from the reference implementation).
func NewGeneratorSlice(key []uint64) (*Generator, error) {
	if len(key) < 1 {
		return nil, errors.Errorf("Can not seed a generator with an empty key")
	}

	g := startGenerator(func(r *mt19937.MT19937) {
		r.SeedFromSlice(key)
	})
	return g, nil
}

// Uint64 satisfies rand/v2 Source with pre-generation.
func (g *Generator) Uint64() uint64 {
	return <-g.ch
}

// Seed exists only to satisfy golang.org/x/exp/rand.Source, which gonum's
// distributions require of their Src. Gonum never calls it; a Generator is
// seeded once at construction and cannot be reseeded.
func (g *Generator) Seed(uint64) {
	panic("rand: Generator cannot be reseeded; create a new Generator instead")
}

// Int63 provides the same interface as Go's math/rand, but with pre-generation.
func (g *Generator) Int63() int64 {
	return int64(g.Uint64() & 0x7fffffffffffffff)
}

// Float64 uses the simpler implementation since we don't have the same
// support requirements as the standard library.
func (g *Generator) Float64() float64 {
	// The low 53 bits of MT output are uniform
	return float64(g.Uint64()&((1<<53)-1)) / (1 << 53)
}

// Spawn derives an independent Generator, one per chain. Seeds are drawn from
// the parent stream and perturbed with a large odd constant so that streams
// stay distinct even when Spawn is called with small consecutive indexes.
func (g *Generator) Spawn(idx int) (*Generator, error) {
	const stride = 0x9E3779B97F4A7C15
	seed := g.Uint64() ^ (uint64(idx)+1)*stride
	return NewGenerator(int64(seed))
}
