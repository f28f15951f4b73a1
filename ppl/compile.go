package ppl

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tmalloy/partialpool/data"
	"github.com/tmalloy/partialpool/posterior"
)

// Parameter vector layout produced by Compile, in sampling order:
//
//	[hypermean] [slopes...] [log group scale] [log obs scale]* [intercepts...]
//
// (*) Gaussian family only. Scales are sampled on the log scale and the log
// posterior carries the change-of-variable term.

// Compile turns a checked spec plus a frame into a sampleable model.
func (s *Spec) Compile(f *data.Frame) (*posterior.Model, error) {
	if err := s.Check(f); err != nil {
		return nil, err
	}

	switch s.Family {
	case Binomial:
		return s.compileBinomial(f)
	case Gaussian:
		return s.compileGaussian(f)
	}
	return nil, errors.Errorf("Spec %s has unknown family %d", s.Name, int(s.Family))
}

func logistic(eta float64) float64 {
	return 1.0 / (1.0 + math.Exp(-eta))
}

func logit(p float64) float64 {
	return math.Log(p / (1.0 - p))
}

// slopeCols gathers the slope columns once so the log posterior closure never
// touches the frame.
func (s *Spec) slopeCols(f *data.Frame) ([][]float64, error) {
	cols := make([][]float64, len(s.Slopes))
	for i, name := range s.Slopes {
		c, err := f.Col(name)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}

func (s *Spec) groupIdx(f *data.Frame) ([]int, []string, error) {
	raw, err := f.Col(s.Group)
	if err != nil {
		return nil, nil, err
	}
	levels, err := f.Levels(s.Group)
	if err != nil {
		return nil, nil, err
	}

	idx := make([]int, len(raw))
	for i, v := range raw {
		j := int(v)
		if j < 0 || j >= len(levels) {
			return nil, nil, errors.Errorf("Spec %s: row %d has group index %d out of range", s.Name, i, j)
		}
		idx[i] = j
	}
	return idx, levels, nil
}

// params builds the shared descriptor list for both families. hyperName is
// "abar" or "mu", interceptName "a" or "theta".
func (s *Spec) params(levels []string, hyperName, interceptName string, obsScale bool) []posterior.Param {
	params := make([]posterior.Param, 0, len(s.Slopes)+len(levels)+3)
	params = append(params, posterior.Param{Name: hyperName})
	for _, sl := range s.Slopes {
		params = append(params, posterior.Param{Name: "b_" + sl})
	}
	params = append(params, posterior.Param{Name: "sigma_" + s.Group, Positive: true})
	if obsScale {
		params = append(params, posterior.Param{Name: "sigma", Positive: true})
	}
	for _, lv := range levels {
		params = append(params, posterior.Param{Name: fmt.Sprintf("%s_%s[%s]", interceptName, s.Group, lv)})
	}
	return params
}

func (s *Spec) compileBinomial(f *data.Frame) (*posterior.Model, error) {
	k, err := f.Col(s.Response)
	if err != nil {
		return nil, err
	}
	n, err := f.Col(s.Trials)
	if err != nil {
		return nil, err
	}
	gidx, levels, err := s.groupIdx(f)
	if err != nil {
		return nil, err
	}
	slopes, err := s.slopeCols(f)
	if err != nil {
		return nil, err
	}

	for i := range k {
		if n[i] < 1 {
			return nil, errors.Errorf("Spec %s: row %d has %g trials", s.Name, i, n[i])
		}
		if k[i] < 0 || k[i] > n[i] {
			return nil, errors.Errorf("Spec %s: row %d has %g successes of %g trials", s.Name, i, k[i], n[i])
		}
	}

	nSlopes := len(slopes)
	scaleIdx := 1 + nSlopes
	aOff := scaleIdx + 1
	J := len(levels)

	meanPrior := s.MeanPrior
	slopePrior := s.SlopePrior
	scalePrior := s.ScalePrior

	logp := func(x []float64) float64 {
		abar := x[0]
		logSigma := x[scaleIdx]
		sigma := math.Exp(logSigma)

		// Priors, with the Jacobian for the log-scale sigma
		lp := meanPrior.LogProb(abar)
		for i := 0; i < nSlopes; i++ {
			lp += slopePrior.LogProb(x[1+i])
		}
		lp += scalePrior.LogProb(sigma) + logSigma

		// Population distribution of the varying intercepts
		hyper := distuv.Normal{Mu: abar, Sigma: sigma}
		for j := 0; j < J; j++ {
			lp += hyper.LogProb(x[aOff+j])
		}

		// Binomial likelihood on the logit scale
		for i := range k {
			eta := x[aOff+gidx[i]]
			for si := 0; si < nSlopes; si++ {
				eta += x[1+si] * slopes[si][i]
			}
			p := logistic(eta)
			if p < 1e-12 {
				p = 1e-12
			} else if p > 1-1e-12 {
				p = 1 - 1e-12
			}
			lp += distuv.Binomial{N: n[i], P: p}.LogProb(k[i])
		}

		return lp
	}

	// Start intercepts at smoothed per-group empirical logits and the
	// hypermean at the pooled rate.
	kTot := make([]float64, J)
	nTot := make([]float64, J)
	var kAll, nAll float64
	for i := range k {
		kTot[gidx[i]] += k[i]
		nTot[gidx[i]] += n[i]
		kAll += k[i]
		nAll += n[i]
	}

	initial := make([]float64, aOff+J)
	initial[0] = logit((kAll + 1) / (nAll + 2))
	initial[scaleIdx] = 0 // sigma = 1
	for j := 0; j < J; j++ {
		initial[aOff+j] = logit((kTot[j] + 1) / (nTot[j] + 2))
	}

	return posterior.New(s.Name, s.params(levels, "abar", "a", false), initial, logp)
}

func (s *Spec) compileGaussian(f *data.Frame) (*posterior.Model, error) {
	y, err := f.Col(s.Response)
	if err != nil {
		return nil, err
	}
	gidx, levels, err := s.groupIdx(f)
	if err != nil {
		return nil, err
	}
	slopes, err := s.slopeCols(f)
	if err != nil {
		return nil, err
	}

	nSlopes := len(slopes)
	scaleIdx := 1 + nSlopes
	obsIdx := scaleIdx + 1
	thOff := obsIdx + 1
	J := len(levels)

	meanPrior := s.MeanPrior
	slopePrior := s.SlopePrior
	scalePrior := s.ScalePrior
	obsPrior := s.ObsScalePrior

	logp := func(x []float64) float64 {
		mu := x[0]
		logSigmaG := x[scaleIdx]
		logSigmaObs := x[obsIdx]
		sigmaG := math.Exp(logSigmaG)
		sigmaObs := math.Exp(logSigmaObs)

		lp := meanPrior.LogProb(mu)
		for i := 0; i < nSlopes; i++ {
			lp += slopePrior.LogProb(x[1+i])
		}
		lp += scalePrior.LogProb(sigmaG) + logSigmaG
		lp += obsPrior.LogProb(sigmaObs) + logSigmaObs

		hyper := distuv.Normal{Mu: mu, Sigma: sigmaG}
		for j := 0; j < J; j++ {
			lp += hyper.LogProb(x[thOff+j])
		}

		for i := range y {
			mean := x[thOff+gidx[i]]
			for si := 0; si < nSlopes; si++ {
				mean += x[1+si] * slopes[si][i]
			}
			lp += distuv.Normal{Mu: mean, Sigma: sigmaObs}.LogProb(y[i])
		}

		return lp
	}

	// Start at the empirical group means with scales from the data.
	grandMean := stat.Mean(y, nil)
	sd := stat.StdDev(y, nil)
	if sd < 1e-6 {
		return nil, errors.Errorf("Spec %s: response %s has (near) zero variance", s.Name, s.Response)
	}

	sum := make([]float64, J)
	cnt := make([]float64, J)
	for i, v := range y {
		sum[gidx[i]] += v
		cnt[gidx[i]]++
	}

	initial := make([]float64, thOff+J)
	initial[0] = grandMean
	initial[scaleIdx] = math.Log(sd / 2)
	initial[obsIdx] = math.Log(sd)
	for j := 0; j < J; j++ {
		if cnt[j] > 0 {
			initial[thOff+j] = sum[j] / cnt[j]
		} else {
			initial[thOff+j] = grandMean
		}
	}

	return posterior.New(s.Name, s.params(levels, "mu", "theta", true), initial, logp)
}
