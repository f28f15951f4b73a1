package ppl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tmalloy/partialpool/data"
	"github.com/tmalloy/partialpool/posterior"
)

func tinyGaussianFrame(t *testing.T) *data.Frame {
	t.Helper()
	f := data.NewFrame("tiny")
	if err := f.AddFactor("g", []string{"a", "a", "b", "b"}); err != nil {
		t.Fatal(err)
	}
	if err := f.AddNumeric("y", []float64{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	return f
}

func tinyBinomialFrame(t *testing.T) *data.Frame {
	t.Helper()
	f := data.NewFrame("tiny")
	if err := f.AddFactor("g", []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if err := f.AddNumeric("k", []float64{1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := f.AddNumeric("n", []float64{2, 4}); err != nil {
		t.Fatal(err)
	}
	return f
}

// Log density helpers for the hand-computed expectations below.
func normLogPDF(mu, sigma, x float64) float64 {
	z := (x - mu) / sigma
	return -0.5*z*z - math.Log(sigma) - 0.5*math.Log(2*math.Pi)
}

func TestCompileGaussianHandChecked(t *testing.T) {
	assert := assert.New(t)

	f := tinyGaussianFrame(t)
	m, err := FromFormula("tiny", "y ~ (1 | g)", f)
	assert.NoError(err)

	assert.Equal(5, m.Dim())
	assert.Equal([]string{"mu", "sigma_g", "sigma", "theta_g[a]", "theta_g[b]"}, m.ParamNames())

	// At the all-zero point both sigmas are exp(0)=1 and all means are 0.
	// Priors: mu ~ Normal(0,10), scales ~ Exponential(1) with log-scale
	// Jacobian exp(0)=+0 each. Hyper: two Normal(0,1) at 0. Likelihood:
	// Normal(0,1) at 1,2,3,4.
	exp := normLogPDF(0, 10, 0)
	exp += -1.0 + 0.0 // Exponential(1).LogProb(1) + Jacobian, group scale
	exp += -1.0 + 0.0 // same, obs scale
	exp += 2 * normLogPDF(0, 1, 0)
	for _, y := range []float64{1, 2, 3, 4} {
		exp += normLogPDF(0, 1, y)
	}

	x := make([]float64, 5)
	assert.InDelta(exp, m.LogProb(x), 1e-10)
}

func TestCompileBinomialHandChecked(t *testing.T) {
	assert := assert.New(t)

	f := tinyBinomialFrame(t)
	m, err := FromFormula("tiny", "k | trials(n) ~ (1 | g)", f)
	assert.NoError(err)

	assert.Equal(4, m.Dim())
	assert.Equal([]string{"abar", "sigma_g", "a_g[a]", "a_g[b]"}, m.ParamNames())

	// All zeros: p = logistic(0) = 0.5 for both rows.
	// Binomial(2, 0.5) at 1 has prob 0.5; Binomial(4, 0.5) at 2 has 6/16.
	exp := normLogPDF(0, 1.5, 0)
	exp += -1.0 + 0.0 // Exponential(1).LogProb(1) + Jacobian
	exp += 2 * normLogPDF(0, 1, 0)
	exp += math.Log(0.5) + math.Log(6.0/16.0)

	x := make([]float64, 4)
	assert.InDelta(exp, m.LogProb(x), 1e-10)
}

func TestInterfacesAgreeExactly(t *testing.T) {
	assert := assert.New(t)

	f, err := data.LoadAdmissions()
	assert.NoError(err)

	viaFormula, err := FromFormula("admit", "admit | trials(applications) ~ male + (1 | dept)", f)
	assert.NoError(err)

	viaBuilder, err := NewBuilder("admit", f).
		Binomial("admit", "applications").
		Intercepts("dept").
		Slope("male").
		Build()
	assert.NoError(err)

	assert.Equal(viaFormula.ParamNames(), viaBuilder.ParamNames())
	assert.Equal(viaFormula.Initial(), viaBuilder.Initial())

	// Identical log posterior at the initial point and at a perturbation
	x := viaFormula.Initial()
	assert.InDelta(viaFormula.LogProb(x), viaBuilder.LogProb(x), 1e-12)

	for i := range x {
		x[i] += 0.3 * float64(i+1)
	}
	assert.InDelta(viaFormula.LogProb(x), viaBuilder.LogProb(x), 1e-12)
}

func TestPrefabModels(t *testing.T) {
	assert := assert.New(t)

	adm, err := data.LoadAdmissions()
	assert.NoError(err)

	m, err := BinomialIntercepts(adm, "admit", "applications", "dept", "male")
	assert.NoError(err)
	assert.Equal(9, m.Dim())
	lp := m.LogProb(m.Initial())
	assert.False(math.IsNaN(lp) || math.IsInf(lp, 0))

	pg, err := data.LoadPlantGrowth()
	assert.NoError(err)

	g, err := GaussianIntercepts(pg, "weight", "group")
	assert.NoError(err)
	assert.Equal(6, g.Dim())
	lp = g.LogProb(g.Initial())
	assert.False(math.IsNaN(lp) || math.IsInf(lp, 0))
}

func TestCompileErrors(t *testing.T) {
	assert := assert.New(t)

	f := tinyGaussianFrame(t)

	// Missing column
	_, err := FromFormula("m", "nope ~ (1 | g)", f)
	assert.Error(err)

	// Group is not a factor
	_, err = FromFormula("m", "y ~ (1 | y)", f)
	assert.Error(err)

	// Factor used as a slope
	_, err = FromFormula("m", "y ~ g + (1 | g)", f)
	assert.Error(err)

	// Single-level group
	one := data.NewFrame("one")
	assert.NoError(one.AddFactor("g", []string{"a", "a"}))
	assert.NoError(one.AddNumeric("y", []float64{1, 2}))
	_, err = FromFormula("m", "y ~ (1 | g)", one)
	assert.Error(err)

	// Nil frame
	_, err = FromFormula("m", "y ~ (1 | g)", nil)
	assert.Error(err)

	// Binomial successes exceeding trials
	bad := data.NewFrame("bad")
	assert.NoError(bad.AddFactor("g", []string{"a", "b"}))
	assert.NoError(bad.AddNumeric("k", []float64{5, 1}))
	assert.NoError(bad.AddNumeric("n", []float64{2, 4}))
	_, err = FromFormula("m", "k | trials(n) ~ (1 | g)", bad)
	assert.Error(err)

	// Zero trials
	zt := data.NewFrame("zt")
	assert.NoError(zt.AddFactor("g", []string{"a", "b"}))
	assert.NoError(zt.AddNumeric("k", []float64{0, 1}))
	assert.NoError(zt.AddNumeric("n", []float64{0, 4}))
	_, err = FromFormula("m", "k | trials(n) ~ (1 | g)", zt)
	assert.Error(err)

	// Trials on a gaussian spec
	spec := &Spec{
		Name: "m", Family: Gaussian, Response: "y", Trials: "y", Group: "g",
		MeanPrior: posterior.Normal(0, 1), ScalePrior: posterior.Exponential(1),
		ObsScalePrior: posterior.Exponential(1),
	}
	assert.Error(spec.Check(f))
}

func TestBuilderErrors(t *testing.T) {
	assert := assert.New(t)

	f := tinyGaussianFrame(t)

	_, err := NewBuilder("m", nil).Gaussian("y").Intercepts("g").Build()
	assert.Error(err)

	_, err = NewBuilder("m", f).Gaussian("y").Intercepts("g").Intercepts("g").Build()
	assert.Error(err)

	// No intercepts at all
	_, err = NewBuilder("m", f).Gaussian("y").Build()
	assert.Error(err)

	// Custom priors flow through
	m, err := NewBuilder("m", f).
		Gaussian("y").
		Intercepts("g").
		PriorMean(posterior.Normal(2.5, 5)).
		PriorScale(posterior.Exponential(2)).
		PriorObsScale(posterior.Exponential(0.5)).
		Build()
	assert.NoError(err)
	assert.Equal(5, m.Dim())
}
