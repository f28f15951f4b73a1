package diagnostics

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Rhat computes the Gelman-Rubin potential scale reduction over a set of
// equal-length sequences. Values near 1 indicate the sequences are sampling
// the same distribution; the usual cutoff for "keep sampling" is 1.01-1.1.
func Rhat(seqs [][]float64) (float64, error) {
	m := len(seqs)
	if m < 2 {
		return 0, errors.Errorf("Need at least 2 sequences for R-hat, got %d", m)
	}

	n := len(seqs[0])
	if n < 2 {
		return 0, errors.Errorf("Sequences of length %d are too short for R-hat", n)
	}

	means := make([]float64, m)
	vars := make([]float64, m)
	for i, s := range seqs {
		if len(s) != n {
			return 0, errors.Errorf("Sequence %d has length %d, expected %d", i, len(s), n)
		}
		means[i] = stat.Mean(s, nil)
		vars[i] = stat.Variance(s, nil)
	}

	w := stat.Mean(vars, nil)                   // within-sequence variance
	b := float64(n) * stat.Variance(means, nil) // between-sequence variance

	if w < 1e-300 {
		// All sequences (near) constant. Identical constants have converged
		// trivially; differing constants will never mix.
		if b < 1e-300 {
			return 1.0, nil
		}
		return math.Inf(1), nil
	}

	nf := float64(n)
	varPlus := (nf-1)/nf*w + b/nf
	return math.Sqrt(varPlus / w), nil
}

// SplitRhat splits each chain in half and computes R-hat over the resulting
// sequences, which also catches trending within a single chain.
func SplitRhat(chains [][]float64) (float64, error) {
	if len(chains) < 1 {
		return 0, errors.Errorf("No chains for split R-hat")
	}

	seqs := make([][]float64, 0, len(chains)*2)
	for i, c := range chains {
		half := len(c) / 2
		if half < 2 {
			return 0, errors.Errorf("Chain %d has %d draws, too short to split", i, len(c))
		}
		seqs = append(seqs, c[:half], c[half:half*2])
	}

	return Rhat(seqs)
}

// ESS estimates the effective sample size of the pooled chains from the
// per-chain autocorrelation function, truncated with Geyer's initial positive
// sequence rule.
func ESS(chains [][]float64) (float64, error) {
	m := len(chains)
	if m < 1 {
		return 0, errors.Errorf("No chains for ESS")
	}
	n := len(chains[0])
	if n < 4 {
		return 0, errors.Errorf("Chains of length %d are too short for ESS", n)
	}
	for i, c := range chains {
		if len(c) != n {
			return 0, errors.Errorf("Chain %d has length %d, expected %d", i, len(c), n)
		}
	}

	maxLag := n - 1
	if maxLag > 1000 {
		maxLag = 1000
	}

	// Average per-chain autocorrelations
	rho := make([]float64, maxLag)
	for _, c := range chains {
		mean := stat.Mean(c, nil)
		var c0 float64
		for _, v := range c {
			c0 += (v - mean) * (v - mean)
		}
		c0 /= float64(n)
		if c0 < 1e-300 {
			return 0, errors.Errorf("Constant chain - ESS undefined")
		}
		for k := 1; k <= maxLag; k++ {
			var ck float64
			for i := 0; i < n-k; i++ {
				ck += (c[i] - mean) * (c[i+k] - mean)
			}
			ck /= float64(n)
			rho[k-1] += ck / c0 / float64(m)
		}
	}

	// Geyer: sum paired autocorrelations while the pair sums stay positive
	var tail float64
	for k := 0; k+1 < len(rho); k += 2 {
		pair := rho[k] + rho[k+1]
		if pair <= 0 {
			break
		}
		tail += pair
	}

	total := float64(m * n)
	ess := total / (1 + 2*tail)
	if ess > total {
		ess = total
	}
	return ess, nil
}
