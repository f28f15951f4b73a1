package diagnostics

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Interval is the posterior compatibility interval mass used in summaries.
// 89% is deliberate: wide enough to be useful, odd enough that nobody
// mistakes it for a significance test.
const Interval = 0.89

// Summary describes one marginal posterior distribution.
type Summary struct {
	Name string
	Mean float64
	SD   float64
	Lo   float64 // lower Interval bound (5.5%)
	Hi   float64 // upper Interval bound (94.5%)
	Rhat float64
	ESS  float64
}

// Summarize reduces per-chain draws for a single parameter (natural scale)
// to a Summary.
func Summarize(name string, chains [][]float64) (*Summary, error) {
	if len(chains) < 1 {
		return nil, errors.Errorf("No draws to summarize for %s", name)
	}

	pooled := make([]float64, 0, len(chains)*len(chains[0]))
	for _, c := range chains {
		pooled = append(pooled, c...)
	}
	if len(pooled) < 4 {
		return nil, errors.Errorf("Only %d draws for %s", len(pooled), name)
	}

	s := &Summary{
		Name: name,
		Mean: stat.Mean(pooled, nil),
		SD:   stat.StdDev(pooled, nil),
	}

	sorted := make([]float64, len(pooled))
	copy(sorted, pooled)
	sort.Float64s(sorted)
	tail := (1 - Interval) / 2
	s.Lo = stat.Quantile(tail, stat.Empirical, sorted, nil)
	s.Hi = stat.Quantile(1-tail, stat.Empirical, sorted, nil)

	// R-hat and ESS need multiple chains of useful length; leave zero when
	// they can't be computed (e.g. a merged single sequence).
	if len(chains) >= 2 {
		if r, err := SplitRhat(chains); err == nil {
			s.Rhat = r
		}
		if e, err := ESS(chains); err == nil {
			s.ESS = e
		}
	}

	return s, nil
}

// SummarizeAll runs Summarize for every parameter. draws[p][c] holds chain
// c's draws for parameter p.
func SummarizeAll(names []string, draws [][][]float64) ([]*Summary, error) {
	if len(names) != len(draws) {
		return nil, errors.Errorf("Have %d names for %d parameters", len(names), len(draws))
	}

	out := make([]*Summary, len(names))
	for p, name := range names {
		s, err := Summarize(name, draws[p])
		if err != nil {
			return nil, errors.Wrapf(err, "Could not summarize %s", name)
		}
		out[p] = s
	}
	return out, nil
}

// WriteTable prints summaries as a fixed-width table.
func WriteTable(w io.Writer, summaries []*Summary) {
	fmt.Fprintf(w, "%-16s %9s %9s %9s %9s %7s %8s\n",
		"param", "mean", "sd", "5.5%", "94.5%", "rhat", "ess")
	for _, s := range summaries {
		fmt.Fprintf(w, "%-16s %9.3f %9.3f %9.3f %9.3f %7.3f %8.0f\n",
			s.Name, s.Mean, s.SD, s.Lo, s.Hi, s.Rhat, s.ESS)
	}
}
