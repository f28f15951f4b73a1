package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// startupParams carries the shared sampling configuration into the
// walkthrough commands.
type startupParams struct {
	chains     int
	warmup     int
	batchSize  int
	maxBatches int
	rhatThresh float64
	randomSeed int64
	outDir     string
	verbose    bool
	useMonitor bool

	log zerolog.Logger
	mon *monitor
}

var sp = &startupParams{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "partialpool",
	Short: "Hierarchical Bayesian modeling walkthroughs",
	Long: `partialpool walks through multilevel (partial pooling) Bayesian models
on two classic datasets, fitting each model through three interfaces
(formula string, explicit builder, prefab defaults) and comparing the
posteriors. Among other features:

  - A binomial walkthrough on the UC Berkeley admissions data
  - A two-level Gaussian walkthrough on the plant growth data
  - Multi-chain sampling with split R-hat stopping and ESS reporting
  - Trace, posterior, and shrinkage (forest) plots written as PNGs
`,
}

// setup validates flags, builds the logger, and starts the optional monitor.
func (sp *startupParams) setup() error {
	lvl := zerolog.InfoLevel
	if sp.verbose {
		lvl = zerolog.DebugLevel
	}
	sp.log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()

	if sp.chains < 2 {
		return errors.Errorf("Need at least 2 chains for convergence checking, have %d", sp.chains)
	}
	if sp.batchSize < 100 {
		return errors.Errorf("Batch size %d is too small for a windowed R-hat", sp.batchSize)
	}

	if err := os.MkdirAll(sp.outDir, 0o755); err != nil {
		return errors.Wrapf(err, "Could not create output directory %s", sp.outDir)
	}

	if sp.useMonitor {
		sp.mon = &monitor{}
		if err := sp.mon.Start(); err != nil {
			return err
		}
		sp.mon.Chains.Set(int64(sp.chains))
		sp.mon.Warmup.Set(int64(sp.warmup))
		sp.mon.BatchSize.Set(int64(sp.batchSize))
		sp.mon.MaxBatches.Set(int64(sp.maxBatches))
		sp.mon.RhatThresh.Set(sp.rhatThresh)
	}

	return nil
}

func (sp *startupParams) teardown() {
	if sp.mon != nil {
		sp.mon.Stop()
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	pf := rootCmd.PersistentFlags()
	pf.IntVarP(&sp.chains, "chains", "c", 4, "Number of MCMC chains")
	pf.IntVarP(&sp.warmup, "warmup", "w", 2000, "Warmup draws per chain, discarded after proposal adaptation")
	pf.IntVarP(&sp.batchSize, "batch", "b", 1000, "Draws per chain between convergence checks")
	pf.IntVar(&sp.maxBatches, "max-batches", 25, "Give up after this many batches without convergence")
	pf.Float64Var(&sp.rhatThresh, "rhat", 1.05, "Split R-hat threshold for stopping")
	pf.Int64VarP(&sp.randomSeed, "seed", "r", 1, "Random seed to use")
	pf.StringVarP(&sp.outDir, "out", "o", "out", "Directory for plot output")
	pf.BoolVarP(&sp.verbose, "verbose", "v", false, "Verbose logging (default is much more parsimonious)")
	pf.BoolVar(&sp.useMonitor, "monitor", false, "Serve sampling progress over HTTP (expvar)")

	rootCmd.AddCommand(admitCmd)
	rootCmd.AddCommand(growthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
