package ppl

import (
	"github.com/pkg/errors"

	"github.com/tmalloy/partialpool/data"
	"github.com/tmalloy/partialpool/posterior"
)

// Builder is the explicit interface: every modeling choice is a method call,
// nothing is inferred. This is the interface the growth walkthrough uses to
// spell out the two-level Gaussian model (unknown scale at the group level
// AND the observation level) line by line.
type Builder struct {
	frame *data.Frame
	spec  Spec
	err   error
}

// NewBuilder starts a model declaration against a frame.
func NewBuilder(name string, f *data.Frame) *Builder {
	b := &Builder{
		frame: f,
		spec:  Spec{Name: name},
	}
	defaultPriors(&b.spec)
	if f == nil {
		b.err = errors.Errorf("Builder %s: no data frame", name)
	}
	return b
}

// Binomial declares a binomial likelihood with a logit link: successes out of
// the trials column.
func (b *Builder) Binomial(response, trials string) *Builder {
	b.spec.Family = Binomial
	b.spec.Response = response
	b.spec.Trials = trials
	return b
}

// Gaussian declares a normal likelihood for a continuous response.
func (b *Builder) Gaussian(response string) *Builder {
	b.spec.Family = Gaussian
	b.spec.Response = response
	b.spec.Trials = ""
	return b
}

// Intercepts adds varying intercepts over the levels of a grouping factor,
// partially pooled through a Normal population distribution with unknown
// scale.
func (b *Builder) Intercepts(group string) *Builder {
	if b.spec.Group != "" && b.err == nil {
		b.err = errors.Errorf("Builder %s: intercepts already declared on %s", b.spec.Name, b.spec.Group)
	}
	b.spec.Group = group
	return b
}

// Slope adds a fixed slope on a numeric column.
func (b *Builder) Slope(col string) *Builder {
	b.spec.Slopes = append(b.spec.Slopes, col)
	return b
}

// PriorMean sets the prior on the population mean (abar / mu).
func (b *Builder) PriorMean(p posterior.Prior) *Builder {
	b.spec.MeanPrior = p
	return b
}

// PriorSlope sets the prior shared by all slopes.
func (b *Builder) PriorSlope(p posterior.Prior) *Builder {
	b.spec.SlopePrior = p
	return b
}

// PriorScale sets the prior on the between-group scale.
func (b *Builder) PriorScale(p posterior.Prior) *Builder {
	b.spec.ScalePrior = p
	return b
}

// PriorObsScale sets the prior on the observation noise scale (Gaussian
// family only).
func (b *Builder) PriorObsScale(p posterior.Prior) *Builder {
	b.spec.ObsScalePrior = p
	return b
}

// Spec returns the accumulated spec without compiling. Mostly for tests.
func (b *Builder) Spec() (*Spec, error) {
	if b.err != nil {
		return nil, b.err
	}
	sp := b.spec
	return &sp, nil
}

// Build checks the declaration and compiles the model.
func (b *Builder) Build() (*posterior.Model, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.spec.Compile(b.frame)
}
