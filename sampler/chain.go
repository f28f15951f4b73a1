package sampler

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/samplemv"

	"github.com/tmalloy/partialpool/buffer"
	"github.com/tmalloy/partialpool/diagnostics"
	"github.com/tmalloy/partialpool/posterior"
	"github.com/tmalloy/partialpool/rand"
)

// targetAccept is the random-walk Metropolis sweet spot for multivariate
// targets. Warmup nudges the proposal scale toward it.
const targetAccept = 0.234

// Chain owns one MCMC chain: a jittered start point, an adapted proposal
// scale, the accumulated draws, and a windowed history per parameter for
// interim convergence checks.
type Chain struct {
	Model             *posterior.Model
	Gen               *rand.Generator
	ConvergenceWindow int
	History           []*buffer.CircularFloat
	TotalSampleCount  int64
	Scale             float64
	LastAccept        float64

	cfg   Config
	last  []float64
	draws [][]float64 // param-major, sampling scale
}

// NewChain returns a chain ready to advance. It jitters the model's starting
// point and performs warmup (scale adaptation), discarding those draws.
func NewChain(m *posterior.Model, gen *rand.Generator, cfg Config) (*Chain, error) {
	if m == nil {
		return nil, errors.Errorf("No model supplied")
	}
	if gen == nil {
		return nil, errors.Errorf("No generator supplied")
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}

	dim := m.Dim()
	c := &Chain{
		Model:             m,
		Gen:               gen,
		ConvergenceWindow: cfg.ConvergenceWindow,
		History:           make([]*buffer.CircularFloat, dim),
		Scale:             cfg.ProposalScale,
		cfg:               cfg,
		last:              m.Initial(),
		draws:             make([][]float64, dim),
	}

	for i := range c.History {
		c.History[i] = buffer.NewCircularFloat(cfg.ConvergenceWindow)
		c.draws[i] = make([]float64, 0, 4096)
	}

	if err := c.jitterStart(); err != nil {
		return nil, err
	}
	if err := c.warmup(); err != nil {
		return nil, errors.Wrap(err, "Failure during chain warmup")
	}

	return c, nil
}

// jitterStart perturbs the starting point so chains are overdispersed. A few
// retries guard against jittering into a zero-density region.
func (c *Chain) jitterStart() error {
	if c.cfg.Jitter == 0 {
		return nil
	}

	noise := distuv.Normal{Mu: 0, Sigma: c.cfg.Jitter, Src: c.Gen}
	base := c.Model.Initial()
	for try := 0; try < 16; try++ {
		for i := range c.last {
			c.last[i] = base[i] + noise.Rand()
		}
		lp := c.Model.LogProb(c.last)
		if !math.IsNaN(lp) && !math.IsInf(lp, 0) {
			return nil
		}
	}
	return errors.Errorf("Could not find a finite-density start for %s after jittering", c.Model.Name)
}

// warmup adapts the proposal scale toward the target acceptance rate over
// several short rounds. Warmup draws are discarded.
func (c *Chain) warmup() error {
	if c.cfg.Warmup <= 0 {
		return nil
	}

	const rounds = 10
	per := c.cfg.Warmup / rounds
	if per < 20 {
		per = 20
	}

	for r := 0; r < rounds; r++ {
		acc, err := c.sampleBatch(per, false)
		if err != nil {
			return err
		}
		// Multiplicative nudge, damped as warmup progresses
		gain := 1.0 - 0.5*float64(r)/float64(rounds)
		c.Scale *= math.Exp(gain * (acc - targetAccept))
	}

	return nil
}

// sampleBatch takes n draws, optionally recording them, and returns the
// observed acceptance rate. With a thinning rate of 1, a proposal rejection
// shows up as a repeated row, which is how acceptance is measured.
func (c *Chain) sampleBatch(n int, record bool) (float64, error) {
	dim := c.Model.Dim()

	prop, err := newProposal(dim, c.Scale, c.Gen)
	if err != nil {
		return 0, err
	}

	mh := samplemv.MetropolisHastingser{
		Initial:  c.last,
		Target:   c.Model,
		Proposal: prop,
		Src:      c.Gen,
	}

	batch := mat.NewDense(n, dim, nil)
	mh.Sample(batch)

	accepted := 0
	prev := c.last
	for i := 0; i < n; i++ {
		row := batch.RawRowView(i)
		moved := false
		for d := 0; d < dim; d++ {
			if row[d] != prev[d] {
				moved = true
				break
			}
		}
		if moved {
			accepted++
		}

		if record {
			nat := c.Model.Constrain(row)
			for d := 0; d < dim; d++ {
				c.draws[d] = append(c.draws[d], row[d])
				c.History[d].Add(nat[d])
			}
		}
		prev = row
	}

	final := batch.RawRowView(n - 1)
	c.last = append(c.last[:0], final...)
	if record {
		c.TotalSampleCount += int64(n)
	}
	c.LastAccept = float64(accepted) / float64(n)

	return c.LastAccept, nil
}

// Advance asynchronously generates n more recorded draws. The caller must
// wait on wg before reading the chain again.
func (c *Chain) Advance(wg *sync.WaitGroup, n int) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := c.sampleBatch(n, true); err != nil {
			panic("Async sample generation failed - cannot continue")
		}
	}()
}

// Len returns the number of recorded draws.
func (c *Chain) Len() int {
	if len(c.draws) < 1 {
		return 0
	}
	return len(c.draws[0])
}

// ParamDraws returns this chain's recorded draws for one parameter on the
// natural scale.
func (c *Chain) ParamDraws(p int) ([]float64, error) {
	if p < 0 || p >= len(c.draws) {
		return nil, errors.Errorf("Chain for %s has no parameter %d", c.Model.Name, p)
	}

	raw := c.draws[p]
	out := make([]float64, len(raw))
	positive := c.Model.Params()[p].Positive
	for i, v := range raw {
		if positive {
			out[i] = math.Exp(v)
		} else {
			out[i] = v
		}
	}
	return out, nil
}

// ParamChains gathers per-chain natural-scale draws for one parameter, the
// shape the diagnostics package consumes.
func ParamChains(chains []*Chain, p int) ([][]float64, error) {
	if len(chains) < 1 {
		return nil, errors.Errorf("Can not gather draws from 0 chains")
	}

	out := make([][]float64, len(chains))
	for i, c := range chains {
		d, err := c.ParamDraws(p)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// AllChains gathers natural-scale draws for every parameter across chains:
// result[p][c] is chain c's draws for parameter p.
func AllChains(chains []*Chain) ([][][]float64, error) {
	if len(chains) < 1 {
		return nil, errors.Errorf("Can not gather draws from 0 chains")
	}

	mod := chains[0].Model
	for _, c := range chains[1:] {
		if c.Model.Dim() != mod.Dim() {
			return nil, errors.Errorf("Cannot merge chain with %d params into %d params", c.Model.Dim(), mod.Dim())
		}
	}

	out := make([][][]float64, mod.Dim())
	for p := range out {
		pc, err := ParamChains(chains, p)
		if err != nil {
			return nil, err
		}
		out[p] = pc
	}
	return out, nil
}

// errWindowNotFull signals that a chain has not recorded enough draws to fill
// its convergence window. It is the one expected failure of WindowRhat.
var errWindowNotFull = errors.New("Chain window not yet full")

// WindowRhat returns the worst windowed split R-hat across all parameters,
// using each chain's circular history halves as the split sequences. Returns
// errWindowNotFull until every chain's window has filled.
func WindowRhat(chains []*Chain) (float64, error) {
	if len(chains) < 1 {
		return 0, errors.Errorf("No chains for windowed R-hat")
	}

	dim := chains[0].Model.Dim()
	worst := 0.0
	for p := 0; p < dim; p++ {
		seqs := make([][]float64, 0, len(chains)*2)
		for _, c := range chains {
			a, b := c.History[p].Halves()
			if a == nil {
				return 0, errWindowNotFull
			}
			seqs = append(seqs, a, b)
		}

		r, err := diagnostics.Rhat(seqs)
		if err != nil {
			return 0, errors.Wrapf(err, "Windowed R-hat failed on param %d", p)
		}
		worst = math.Max(worst, r)
	}

	return worst, nil
}

// Converge advances all chains in lock-step batches until the windowed split
// R-hat drops below thresh or maxBatches batches have run. The optional
// progress callback fires after each batch with the current worst R-hat
// (NaN until windows fill).
func Converge(chains []*Chain, batchSize, maxBatches int, thresh float64, progress func(batch int, worst float64)) (float64, error) {
	if len(chains) < 2 {
		return 0, errors.Errorf("At least 2 chains required for convergence checking")
	}
	if batchSize < 1 || maxBatches < 1 {
		return 0, errors.Errorf("Batch size %d / max batches %d invalid", batchSize, maxBatches)
	}

	worst := math.NaN()
	for b := 0; b < maxBatches; b++ {
		var wg sync.WaitGroup
		for _, c := range chains {
			c.Advance(&wg, batchSize)
		}
		wg.Wait()

		r, err := WindowRhat(chains)
		if err == errWindowNotFull {
			// Keep sampling until every window has filled
			if progress != nil {
				progress(b+1, math.NaN())
			}
			continue
		}
		if err != nil {
			return 0, err
		}

		worst = r
		if progress != nil {
			progress(b+1, worst)
		}
		if worst < thresh {
			return worst, nil
		}
	}

	return worst, errors.Errorf("Chains did not converge: worst R-hat %.4f after %d batches", worst, maxBatches)
}
