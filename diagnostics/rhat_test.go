package diagnostics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tmalloy/partialpool/rand"
)

func normalDraws(t *testing.T, seed int64, mu float64, n int) []float64 {
	t.Helper()
	gen, err := rand.NewGenerator(seed)
	if err != nil {
		t.Fatal(err)
	}
	dist := distuv.Normal{Mu: mu, Sigma: 1, Src: gen}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

func TestRhatConverged(t *testing.T) {
	assert := assert.New(t)

	seqs := [][]float64{
		normalDraws(t, 1, 0, 2000),
		normalDraws(t, 2, 0, 2000),
		normalDraws(t, 3, 0, 2000),
	}

	r, err := Rhat(seqs)
	assert.NoError(err)
	assert.InDelta(1.0, r, 0.05)
}

func TestRhatDiverged(t *testing.T) {
	assert := assert.New(t)

	seqs := [][]float64{
		normalDraws(t, 1, 0, 500),
		normalDraws(t, 2, 5, 500),
	}

	r, err := Rhat(seqs)
	assert.NoError(err)
	assert.True(r > 1.5, "R-hat %f should flag separated sequences", r)
}

func TestRhatDegenerate(t *testing.T) {
	assert := assert.New(t)

	var err error

	_, err = Rhat([][]float64{{1, 2, 3}})
	assert.Error(err)

	_, err = Rhat([][]float64{{1}, {2}})
	assert.Error(err)

	_, err = Rhat([][]float64{{1, 2, 3}, {1, 2}})
	assert.Error(err)

	// Identical constants have trivially converged
	r, err := Rhat([][]float64{{2, 2, 2}, {2, 2, 2}})
	assert.NoError(err)
	assert.Equal(1.0, r)

	// Different constants never will
	r, err = Rhat([][]float64{{1, 1, 1}, {2, 2, 2}})
	assert.NoError(err)
	assert.True(math.IsInf(r, 1))
}

func TestSplitRhatCatchesTrend(t *testing.T) {
	assert := assert.New(t)

	// A single steadily-trending chain duplicated: plain R-hat over the two
	// identical copies would be 1, but the split halves disagree.
	trend := make([]float64, 1000)
	for i := range trend {
		trend[i] = float64(i)
	}

	r, err := SplitRhat([][]float64{trend, trend})
	assert.NoError(err)
	assert.True(r > 1.5, "split R-hat %f should flag a trending chain", r)

	_, err = SplitRhat(nil)
	assert.Error(err)

	_, err = SplitRhat([][]float64{{1, 2, 3}})
	assert.Error(err)
}

func TestESSIndependent(t *testing.T) {
	assert := assert.New(t)

	chains := [][]float64{
		normalDraws(t, 10, 0, 2000),
		normalDraws(t, 11, 0, 2000),
	}

	ess, err := ESS(chains)
	assert.NoError(err)
	total := 4000.0
	assert.True(ess > 0.5*total, "iid ESS %f should be close to %f", ess, total)
	assert.True(ess <= total)
}

func TestESSAutocorrelated(t *testing.T) {
	assert := assert.New(t)

	// AR(1) with phi=0.95 mixes poorly
	gen, err := rand.NewGenerator(7)
	assert.NoError(err)
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: gen}

	n := 2000
	ar := make([]float64, n)
	for i := 1; i < n; i++ {
		ar[i] = 0.95*ar[i-1] + dist.Rand()
	}

	ess, err := ESS([][]float64{ar})
	assert.NoError(err)
	assert.True(ess < 0.25*float64(n), "AR(1) ESS %f should be far below %d", ess, n)
}

func TestESSDegenerate(t *testing.T) {
	assert := assert.New(t)

	var err error

	_, err = ESS(nil)
	assert.Error(err)

	_, err = ESS([][]float64{{1, 2}})
	assert.Error(err)

	_, err = ESS([][]float64{{1, 2, 3, 4}, {1, 2, 3}})
	assert.Error(err)

	_, err = ESS([][]float64{{3, 3, 3, 3, 3}})
	assert.Error(err)
}
