package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameBasics(t *testing.T) {
	assert := assert.New(t)

	f := NewFrame("test")
	assert.NoError(f.AddNumeric("x", []float64{1, 2, 3}))
	assert.NoError(f.AddFactor("g", []string{"a", "b", "a"}))

	assert.Equal(3, f.Rows())
	assert.Equal([]string{"x", "g"}, f.Columns())

	x, err := f.Col("x")
	assert.NoError(err)
	assert.Equal([]float64{1, 2, 3}, x)

	g, err := f.Col("g")
	assert.NoError(err)
	assert.Equal([]float64{0, 1, 0}, g)

	lv, err := f.Levels("g")
	assert.NoError(err)
	assert.Equal([]string{"a", "b"}, lv)

	assert.True(f.IsFactor("g"))
	assert.False(f.IsFactor("x"))

	_, err = f.Col("nope")
	assert.Error(err)
	_, err = f.Levels("x")
	assert.Error(err)
}

func TestFrameAddErrors(t *testing.T) {
	assert := assert.New(t)

	f := NewFrame("test")
	assert.Error(f.AddNumeric("", []float64{1}))
	assert.Error(f.AddNumeric("x", nil))
	assert.NoError(f.AddNumeric("x", []float64{1, 2}))
	assert.Error(f.AddNumeric("x", []float64{3, 4}))
	assert.Error(f.AddFactor("g", []string{"a"}))
}

func TestFromCSV(t *testing.T) {
	assert := assert.New(t)

	raw := []byte("g,y\na,1.5\nb,2.5\n")
	f, err := FromCSV("tiny", raw)
	assert.NoError(err)
	assert.Equal(2, f.Rows())
	assert.True(f.IsFactor("g"))

	y, err := f.Col("y")
	assert.NoError(err)
	assert.InDeltaSlice([]float64{1.5, 2.5}, y, 1e-12)

	_, err = FromCSV("empty", []byte("g,y\n"))
	assert.Error(err)

	_, err = FromCSV("ragged", []byte("g,y\na,1,9\n"))
	assert.Error(err)
}

func TestLoadAdmissions(t *testing.T) {
	assert := assert.New(t)

	f, err := LoadAdmissions()
	assert.NoError(err)
	assert.Equal(12, f.Rows())

	depts, err := f.Levels("dept")
	assert.NoError(err)
	assert.Equal([]string{"A", "B", "C", "D", "E", "F"}, depts)

	admit, err := f.Col("admit")
	assert.NoError(err)
	reject, err := f.Col("reject")
	assert.NoError(err)
	apps, err := f.Col("applications")
	assert.NoError(err)

	var totAdmit, totApps float64
	for i := range admit {
		assert.Equal(apps[i], admit[i]+reject[i])
		totAdmit += admit[i]
		totApps += apps[i]
	}
	assert.Equal(1755.0, totAdmit)
	assert.Equal(4526.0, totApps)

	male, err := f.Col("male")
	assert.NoError(err)
	ones := 0
	for _, m := range male {
		if m == 1.0 {
			ones++
		}
	}
	assert.Equal(6, ones)
}

func TestLoadPlantGrowth(t *testing.T) {
	assert := assert.New(t)

	f, err := LoadPlantGrowth()
	assert.NoError(err)
	assert.Equal(30, f.Rows())

	groups, err := f.Levels("group")
	assert.NoError(err)
	assert.Equal([]string{"ctrl", "trt1", "trt2"}, groups)

	w, err := f.Col("weight")
	assert.NoError(err)

	var sum float64
	for _, v := range w {
		sum += v
	}
	assert.InDelta(5.073, sum/30.0, 1e-3)
}
