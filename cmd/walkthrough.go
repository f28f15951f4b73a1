package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tmalloy/partialpool/diagnostics"
	"github.com/tmalloy/partialpool/plots"
	"github.com/tmalloy/partialpool/posterior"
	"github.com/tmalloy/partialpool/rand"
	"github.com/tmalloy/partialpool/sampler"
)

// fitResult bundles one fitted model: its chains and posterior summaries.
type fitResult struct {
	label  string
	model  *posterior.Model
	chains []*sampler.Chain
	sums   []*diagnostics.Summary
}

// runFit samples one model to convergence and prints its summary table.
// fitIdx offsets the seed so different fits do not share random streams.
func (sp *startupParams) runFit(label string, m *posterior.Model, fitIdx int) (*fitResult, error) {
	sp.log.Info().
		Str("fit", label).
		Int("params", m.Dim()).
		Int("chains", sp.chains).
		Msg("sampling")
	if sp.mon != nil {
		sp.mon.CurrentFit.Set(label)
	}

	base, err := rand.NewGenerator(sp.randomSeed + int64(fitIdx)*7919)
	if err != nil {
		return nil, err
	}

	cfg := sampler.DefaultConfig()
	cfg.Warmup = sp.warmup
	cfg.ConvergenceWindow = sp.batchSize

	start := time.Now()
	chains := make([]*sampler.Chain, sp.chains)
	for i := range chains {
		gen, err := base.Spawn(i)
		if err != nil {
			return nil, err
		}
		chains[i], err = sampler.NewChain(m, gen, cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not start chain %d for %s", i, label)
		}
	}
	sp.log.Debug().Str("fit", label).Dur("elapsed", time.Since(start)).Msg("warmup done")

	progress := func(batch int, worst float64) {
		sp.log.Debug().
			Str("fit", label).
			Int("batch", batch).
			Float64("worst_rhat", worst).
			Msg("batch done")
		if sp.mon != nil {
			sp.mon.Batches.Add(1)
			sp.mon.TotalSamples.Add(int64(sp.chains * sp.batchSize))
			sp.mon.LastWorstRhat.Set(worst)
			sp.mon.RunTime.Set(time.Since(start).Seconds())
		}
	}

	worst, err := sampler.Converge(chains, sp.batchSize, sp.maxBatches, sp.rhatThresh, progress)
	if err != nil {
		return nil, errors.Wrapf(err, "Fit %s", label)
	}

	draws, err := sampler.AllChains(chains)
	if err != nil {
		return nil, err
	}
	sums, err := diagnostics.SummarizeAll(m.ParamNames(), draws)
	if err != nil {
		return nil, err
	}

	sp.log.Info().
		Str("fit", label).
		Float64("worst_rhat", worst).
		Int("draws_per_chain", chains[0].Len()).
		Dur("elapsed", time.Since(start)).
		Msg("converged")

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Fit: %s (%d chains x %d draws)\n", label, sp.chains, chains[0].Len())
	diagnostics.WriteTable(os.Stdout, sums)

	return &fitResult{
		label:  label,
		model:  m,
		chains: chains,
		sums:   sums,
	}, nil
}

// compareFits reports how far apart two fits' posteriors are. Disagreement
// beyond tol is loudly logged but does not abort the walkthrough - seeing
// the sizes of the differences IS the lesson.
func (sp *startupParams) compareFits(a, b *fitResult, tol float64) error {
	cmp, err := diagnostics.Compare(a.sums, b.sums)
	if err != nil {
		return errors.Wrapf(err, "Could not compare %s and %s", a.label, b.label)
	}

	fmt.Printf("%s vs %s | MeanDiff mean:%7.4f max:%7.4f | SDDiff mean:%7.4f max:%7.4f\n",
		a.label, b.label,
		cmp.MeanAbsMeanDiff, cmp.MaxAbsMeanDiff,
		cmp.MeanAbsSDDiff, cmp.MaxAbsSDDiff)

	if !cmp.Within(tol) {
		sp.log.Warn().
			Str("a", a.label).
			Str("b", b.label).
			Float64("max_mean_diff", cmp.MaxAbsMeanDiff).
			Float64("tol", tol).
			Msg("posteriors disagree more than expected")
	}
	return nil
}

func paramIndex(m *posterior.Model, name string) (int, error) {
	for i, p := range m.Params() {
		if p.Name == name {
			return i, nil
		}
	}
	return 0, errors.Errorf("Model %s has no parameter %s", m.Name, name)
}

// plotFile builds an output path like out/admit-formula-trace-abar.png
func (sp *startupParams) plotFile(fr *fitResult, kind, param string) string {
	clean := strings.NewReplacer("[", "-", "]", "", "|", "-").Replace(param)
	return filepath.Join(sp.outDir, fmt.Sprintf("%s-%s-%s.png", fr.label, kind, clean))
}

// tracePlot writes the per-chain trace for one parameter.
func (sp *startupParams) tracePlot(fr *fitResult, param string) error {
	idx, err := paramIndex(fr.model, param)
	if err != nil {
		return err
	}
	chains, err := sampler.ParamChains(fr.chains, idx)
	if err != nil {
		return err
	}

	path := sp.plotFile(fr, "trace", param)
	if err := plots.Trace(path, param, chains); err != nil {
		return err
	}
	sp.log.Debug().Str("plot", path).Msg("wrote")
	return nil
}

// histPlot writes the pooled posterior histogram for one parameter.
func (sp *startupParams) histPlot(fr *fitResult, param string) error {
	idx, err := paramIndex(fr.model, param)
	if err != nil {
		return err
	}
	chains, err := sampler.ParamChains(fr.chains, idx)
	if err != nil {
		return err
	}

	pooled := make([]float64, 0, len(chains)*len(chains[0]))
	for _, c := range chains {
		pooled = append(pooled, c...)
	}

	path := sp.plotFile(fr, "posterior", param)
	if err := plots.Histogram(path, param, pooled); err != nil {
		return err
	}
	sp.log.Debug().Str("plot", path).Msg("wrote")
	return nil
}

// forestPlot writes the shrinkage plot over all parameters sharing a name
// prefix (the varying intercepts), with optional unpooled estimates.
func (sp *startupParams) forestPlot(fr *fitResult, prefix, title string, raw []float64) error {
	picked := make([]*diagnostics.Summary, 0, len(fr.sums))
	for _, s := range fr.sums {
		if strings.HasPrefix(s.Name, prefix) {
			picked = append(picked, s)
		}
	}
	if len(picked) < 1 {
		return errors.Errorf("No parameters with prefix %s to plot", prefix)
	}

	path := filepath.Join(sp.outDir, fmt.Sprintf("%s-forest.png", fr.label))
	if err := plots.Forest(path, title, picked, raw); err != nil {
		return err
	}
	sp.log.Debug().Str("plot", path).Msg("wrote")
	return nil
}
