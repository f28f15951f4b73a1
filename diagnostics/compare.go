package diagnostics

import (
	"math"

	"github.com/pkg/errors"
)

// Comparison represents the agreement metrics we use to judge two fits of
// the same model through different interfaces. Mean* values average over the
// shared parameters while Max* values report the single worst parameter.
// Differences are on posterior means and posterior sds, both natural scale.
type Comparison struct {
	MeanAbsMeanDiff float64
	MaxAbsMeanDiff  float64
	MeanAbsSDDiff   float64
	MaxAbsSDDiff    float64
}

// Compare matches summaries by parameter name and computes the agreement
// suite. Every parameter of a must be present in b.
func Compare(a, b []*Summary) (*Comparison, error) {
	if len(a) < 1 {
		return nil, errors.Errorf("Nothing to compare")
	}

	byName := make(map[string]*Summary, len(b))
	for _, s := range b {
		byName[s.Name] = s
	}

	cmp := &Comparison{}
	count := 0
	for _, sa := range a {
		sb, ok := byName[sa.Name]
		if !ok {
			return nil, errors.Errorf("Parameter %s missing from second fit", sa.Name)
		}

		d := math.Abs(sa.Mean - sb.Mean)
		cmp.MeanAbsMeanDiff += d
		cmp.MaxAbsMeanDiff = math.Max(d, cmp.MaxAbsMeanDiff)

		d = math.Abs(sa.SD - sb.SD)
		cmp.MeanAbsSDDiff += d
		cmp.MaxAbsSDDiff = math.Max(d, cmp.MaxAbsSDDiff)

		count++
	}

	cmp.MeanAbsMeanDiff /= float64(count)
	cmp.MeanAbsSDDiff /= float64(count)
	return cmp, nil
}

// Within is true when the worst posterior-mean disagreement stays under tol.
// The comparison carries a sliver of slack so that differences which are
// exactly tol up to float representation error still count as within.
func (c *Comparison) Within(tol float64) bool {
	return c.MaxAbsMeanDiff <= tol+1e-9
}
