// Package ppl offers three interfaces for declaring the same multilevel
// model: a compact formula string, an explicit builder, and prefab
// constructors with default priors. All three compile down to a Spec and from
// there to a posterior.Model that gonum's Metropolis-Hastings sampler can
// draw from. The point of having three is pedagogical: the walkthroughs fit
// each dataset every way and show that the posteriors agree.
package ppl

import (
	"github.com/pkg/errors"

	"github.com/tmalloy/partialpool/data"
	"github.com/tmalloy/partialpool/posterior"
)

// Family selects the observation likelihood.
type Family int

// Supported likelihood families.
const (
	Binomial Family = iota
	Gaussian
)

func (f Family) String() string {
	switch f {
	case Binomial:
		return "binomial"
	case Gaussian:
		return "gaussian"
	}
	return "unknown"
}

// Spec is the normalized description of a multilevel model with varying
// intercepts: every interface in this package produces one. For the Binomial
// family the linear predictor is on the logit scale and Trials names the
// count-of-trials column. For Gaussian, ObsScalePrior covers the observation
// noise and the model is the two-level form: group means drawn from a
// population distribution with unknown scale, observations drawn around the
// group means with a second unknown scale.
type Spec struct {
	Name     string
	Family   Family
	Response string
	Trials   string
	Slopes   []string
	Group    string

	MeanPrior     posterior.Prior
	SlopePrior    posterior.Prior
	ScalePrior    posterior.Prior
	ObsScalePrior posterior.Prior
}

// Check validates a Spec against a frame before compilation.
func (s *Spec) Check(f *data.Frame) error {
	if f == nil {
		return errors.Errorf("Spec %s has no data", s.Name)
	}
	if s.Name == "" {
		return errors.Errorf("A spec needs a name")
	}

	numericCols := []string{s.Response}
	if s.Family == Binomial {
		if s.Trials == "" {
			return errors.Errorf("Spec %s: binomial family needs a trials column", s.Name)
		}
		numericCols = append(numericCols, s.Trials)
	} else if s.Trials != "" {
		return errors.Errorf("Spec %s: trials(%s) only makes sense for the binomial family", s.Name, s.Trials)
	}
	numericCols = append(numericCols, s.Slopes...)

	for _, c := range numericCols {
		if _, err := f.Col(c); err != nil {
			return errors.Wrapf(err, "Spec %s refers to a missing column", s.Name)
		}
		if f.IsFactor(c) {
			return errors.Errorf("Spec %s: column %s is a factor, expected numeric", s.Name, c)
		}
	}

	if s.Group == "" {
		return errors.Errorf("Spec %s has no grouping factor - nothing to pool", s.Name)
	}
	levels, err := f.Levels(s.Group)
	if err != nil {
		return errors.Wrapf(err, "Spec %s grouping column", s.Name)
	}
	if len(levels) < 2 {
		return errors.Errorf("Spec %s: group %s has %d level(s), need at least 2", s.Name, s.Group, len(levels))
	}

	if !s.MeanPrior.Valid() || !s.ScalePrior.Valid() {
		return errors.Errorf("Spec %s is missing mean or scale priors", s.Name)
	}
	if len(s.Slopes) > 0 && !s.SlopePrior.Valid() {
		return errors.Errorf("Spec %s has slopes but no slope prior", s.Name)
	}
	if s.Family == Gaussian && !s.ObsScalePrior.Valid() {
		return errors.Errorf("Spec %s is missing an observation scale prior", s.Name)
	}

	return nil
}
