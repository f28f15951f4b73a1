package sampler

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/samplemv"

	"github.com/pkg/errors"

	"github.com/tmalloy/partialpool/rand"
)

// The sampling kernel itself is gonum's Metropolis-Hastings implementation
// used as-is; this package only manages chains around it: start-point jitter,
// proposal-scale warmup, asynchronous batch advancement, and merging.

// Config controls how a chain runs.
type Config struct {
	Warmup            int     // warmup draws used for scale adaptation, then discarded
	ProposalScale     float64 // initial isotropic proposal sd
	Jitter            float64 // sd of the start-point jitter
	ConvergenceWindow int     // windowed draws kept per param for interim R-hat
}

// DefaultConfig returns the settings used by the walkthroughs.
func DefaultConfig() Config {
	return Config{
		Warmup:            2000,
		ProposalScale:     0.1,
		Jitter:            0.5,
		ConvergenceWindow: 1000,
	}
}

func (c Config) check() error {
	if c.ProposalScale <= 0 {
		return errors.Errorf("Proposal scale must be positive, have %f", c.ProposalScale)
	}
	if c.Jitter < 0 {
		return errors.Errorf("Jitter must be non-negative, have %f", c.Jitter)
	}
	if c.ConvergenceWindow < 8 {
		return errors.Errorf("Convergence window %d is too small", c.ConvergenceWindow)
	}
	return nil
}

// newProposal builds the isotropic normal proposal for the given scale.
func newProposal(dim int, scale float64, gen *rand.Generator) (samplemv.MHProposal, error) {
	sym := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		sym.SetSym(i, i, scale*scale)
	}

	prop, ok := samplemv.NewProposalNormal(sym, gen)
	if !ok {
		return nil, errors.Errorf("Could not build proposal with scale %f", scale)
	}
	return prop, nil
}
