package ppl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderSpec(t *testing.T) {
	assert := assert.New(t)

	f := tinyBinomialFrame(t)

	spec, err := NewBuilder("m", f).
		Binomial("k", "n").
		Intercepts("g").
		Spec()
	assert.NoError(err)
	assert.Equal(Binomial, spec.Family)
	assert.Equal("k", spec.Response)
	assert.Equal("n", spec.Trials)
	assert.Equal("g", spec.Group)
	assert.True(spec.MeanPrior.Valid())

	// Spec returns a copy: mutating it must not leak into the builder
	spec.Response = "other"
	m, err := NewBuilder("m", f).Binomial("k", "n").Intercepts("g").Build()
	assert.NoError(err)
	assert.Equal(4, m.Dim())

	_, err = NewBuilder("m", nil).Spec()
	assert.Error(err)
}
