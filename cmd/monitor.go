package cmd

import (
	"expvar"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
)

type monitor struct {
	info    *expvar.Map
	stopped chan struct{}
	server  *http.Server

	Chains     *expvar.Int
	Warmup     *expvar.Int
	BatchSize  *expvar.Int
	MaxBatches *expvar.Int
	RhatThresh *expvar.Float

	CurrentFit    *expvar.String
	RunTime       *expvar.Float
	TotalSamples  *expvar.Int
	Batches       *expvar.Int
	LastWorstRhat *expvar.Float
}

// Start begins the monitor
func (m *monitor) Start() error {
	if m.info != nil {
		return errors.Errorf("BUG: You may only start the process monitor once")
	}

	m.info = expvar.NewMap("partialpool-progress")
	m.stopped = make(chan struct{})
	m.server = &http.Server{
		Addr: ":8000", // TODO: allow override in call to start
	}

	// Help the user and redirect to the only thing currently available:
	// the handler from the expvar package
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/debug/vars", http.StatusTemporaryRedirect)
	})

	m.Chains = expvar.NewInt("Chains")
	m.Warmup = expvar.NewInt("Warmup")
	m.BatchSize = expvar.NewInt("Batch-Size")
	m.MaxBatches = expvar.NewInt("Max-Batches")
	m.RhatThresh = expvar.NewFloat("Rhat-Threshold")

	m.CurrentFit = expvar.NewString("Current-Fit")
	m.RunTime = expvar.NewFloat("Run-Time")
	m.TotalSamples = expvar.NewInt("Total-Samples")
	m.Batches = expvar.NewInt("Batches")
	m.LastWorstRhat = expvar.NewFloat("Last-Worst-Rhat")

	// Actual server that will close the stopped channel on exit
	started := make(chan struct{})
	go func() {
		defer close(m.stopped)
		fmt.Fprintf(os.Stderr, "HTTP now available at %v (see debug/vars/)\n", m.server.Addr)
		close(started)
		m.server.ListenAndServe()
	}()

	<-started
	return nil
}

func (m *monitor) Stop() {
	if m.info == nil {
		return
	}

	m.server.Close()

	select {
	case <-m.stopped:
		fmt.Fprintf(os.Stderr, "HTTP Info Stopped\n")
	case <-time.After(2 * time.Second):
		fmt.Fprintf(os.Stderr, "HTTP would NOT stop: just continuing on\n")
	}
}
