package posterior

import (
	"math"

	"github.com/pkg/errors"
)

// Param describes one scalar dimension of the sampling space. Positive params
// are sampled on the log scale; the model's log posterior must include the
// change-of-variable term and Constrain maps draws back to the natural scale.
type Param struct {
	Name     string
	Positive bool
}

// Model is an unnormalized log posterior over a fixed parameter vector. It
// implements gonum's distmv.LogProber, so it can be handed directly to
// samplemv.MetropolisHastingser without any glue.
type Model struct {
	Name string

	params  []Param
	initial []float64
	logp    func(x []float64) float64
}

// New builds a model from a parameter list, a starting point on the sampling
// scale, and the log posterior function.
func New(name string, params []Param, initial []float64, logp func(x []float64) float64) (*Model, error) {
	if name == "" {
		return nil, errors.Errorf("A model needs a name")
	}
	if len(params) < 1 {
		return nil, errors.Errorf("Model %s has no parameters", name)
	}
	if len(initial) != len(params) {
		return nil, errors.Errorf("Model %s initial point has %d dims for %d params", name, len(initial), len(params))
	}
	if logp == nil {
		return nil, errors.Errorf("Model %s has no log posterior", name)
	}

	seen := make(map[string]bool)
	for _, p := range params {
		if p.Name == "" {
			return nil, errors.Errorf("Model %s has an unnamed parameter", name)
		}
		if seen[p.Name] {
			return nil, errors.Errorf("Model %s has duplicate parameter %s", name, p.Name)
		}
		seen[p.Name] = true
	}

	m := &Model{
		Name:    name,
		params:  params,
		initial: initial,
		logp:    logp,
	}

	lp := m.LogProb(initial)
	if math.IsNaN(lp) || math.IsInf(lp, 0) {
		return nil, errors.Errorf("Model %s log posterior is %f at the initial point", name, lp)
	}

	return m, nil
}

// Dim returns the dimension of the sampling space.
func (m *Model) Dim() int {
	return len(m.params)
}

// Params returns the parameter descriptors in sampling order.
func (m *Model) Params() []Param {
	return m.params
}

// ParamNames returns just the names in sampling order.
func (m *Model) ParamNames() []string {
	names := make([]string, len(m.params))
	for i, p := range m.params {
		names[i] = p.Name
	}
	return names
}

// Initial returns a copy of the starting point (sampling scale).
func (m *Model) Initial() []float64 {
	cp := make([]float64, len(m.initial))
	copy(cp, m.initial)
	return cp
}

// LogProb evaluates the unnormalized log posterior at x (sampling scale).
func (m *Model) LogProb(x []float64) float64 {
	if len(x) != len(m.params) {
		return math.Inf(-1)
	}
	return m.logp(x)
}

// Constrain maps a draw from the sampling scale to the natural scale:
// exp for Positive params, identity for the rest.
func (m *Model) Constrain(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if i < len(m.params) && m.params[i].Positive {
			out[i] = math.Exp(v)
		} else {
			out[i] = v
		}
	}
	return out
}
