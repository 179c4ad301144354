// Package cleanup runs the periodic sweep that removes expired cache
// entries, complementing the store's lazy eviction on read.
package cleanup

import (
	"sync"
	"time"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/stores"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/pkg/config"
)

// Worker sweeps the cache store on a fixed interval until stopped.
type Worker struct {
	store    *stores.Store
	logger   *logging.ChanneledLogger
	interval time.Duration
	verbose  bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewWorker creates a sweep worker over the store using the configured
// interval.
func NewWorker(store *stores.Store, logger *logging.ChanneledLogger) *Worker {
	return &Worker{
		store:    store,
		logger:   logger,
		interval: config.SweepInterval,
		verbose:  config.SweepVerbose,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.
func (w *Worker) Start() {
	go w.run()
	if w.logger != nil {
		w.logger.System().Info("Cache sweep worker started", "interval", w.interval.String())
	}
}

// Stop halts the loop and waits for the in-flight sweep to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stop:
			return
		}
	}
}

func (w *Worker) sweep() {
	start := time.Now()
	removed := w.store.Sweep()
	if w.logger == nil {
		return
	}
	if removed > 0 {
		w.logger.Cache().Info("Swept expired cache entries",
			"removed", removed, "remaining", w.store.Len(), "took", time.Since(start).String())
	} else if w.verbose {
		w.logger.Cache().Debug("Sweep found no expired entries", "entries", w.store.Len())
	}
}
