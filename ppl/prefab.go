package ppl

import (
	"gonum.org/v1/gonum/stat"

	"github.com/tmalloy/partialpool/data"
	"github.com/tmalloy/partialpool/posterior"
)

// The prefab interface is the "sensible defaults" one: a single call per
// model shape, with weakly-informative priors autoscaled from the data the
// way applied regression packages do it. The priors differ slightly from the
// formula/builder textbook defaults, which is exactly what the walkthroughs
// demonstrate: with this much data the posteriors barely move.

// BinomialIntercepts fits successes/trials with varying intercepts per group
// level and optional numeric slopes.
func BinomialIntercepts(f *data.Frame, response, trials, group string, slopes ...string) (*posterior.Model, error) {
	spec := &Spec{
		Name:       "prefab-" + response,
		Family:     Binomial,
		Response:   response,
		Trials:     trials,
		Group:      group,
		Slopes:     slopes,
		MeanPrior:  posterior.Normal(0, 2.5),
		SlopePrior: posterior.Normal(0, 2.5),
		ScalePrior: posterior.Exponential(1),
	}
	return spec.Compile(f)
}

// GaussianIntercepts fits a continuous response with varying intercepts per
// group level. Priors are autoscaled: the hypermean prior is centered on the
// sample mean with 2.5 sample sd's of slack, and both scale priors expect
// scales on the order of the sample sd.
func GaussianIntercepts(f *data.Frame, response, group string, slopes ...string) (*posterior.Model, error) {
	y, err := f.Col(response)
	if err != nil {
		return nil, err
	}
	mean := stat.Mean(y, nil)
	sd := stat.StdDev(y, nil)
	if sd < 1e-6 {
		sd = 1.0
	}

	spec := &Spec{
		Name:          "prefab-" + response,
		Family:        Gaussian,
		Response:      response,
		Group:         group,
		Slopes:        slopes,
		MeanPrior:     posterior.Normal(mean, 2.5*sd),
		SlopePrior:    posterior.Normal(0, 2.5*sd),
		ScalePrior:    posterior.Exponential(1 / sd),
		ObsScalePrior: posterior.Exponential(1 / sd),
	}
	return spec.Compile(f)
}
