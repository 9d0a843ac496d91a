package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/mcptools/bashserver/internal/logging"
)

// Reaper periodically evicts sessions idle past the threshold, reusing
// the registry's kill path so eviction and explicit kill behave
// identically.
//
// Known limitation: a still-running background job does not refresh the
// session's activity timestamp. A session driven purely by background
// work with no new foreground submissions past the threshold is
// reclaimed, jobs included.
type Reaper struct {
	registry  *Manager
	interval  time.Duration
	threshold time.Duration
	log       *logging.Logger
	metrics   Metrics

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewReaper creates an idle-session reaper.
func NewReaper(registry *Manager, interval, threshold time.Duration, log *logging.Logger) *Reaper {
	return &Reaper{
		registry:  registry,
		interval:  interval,
		threshold: threshold,
		log:       log,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// WithMetrics attaches a metrics recorder.
func (r *Reaper) WithMetrics(metrics Metrics) *Reaper {
	r.metrics = metrics
	return r
}

// Start launches the scan loop.
func (r *Reaper) Start() {
	go r.run()
}

// Stop halts the loop and waits for the current scan to finish.
func (r *Reaper) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *Reaper) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Scan()
		case <-r.stopCh:
			return
		}
	}
}

// Scan evicts every session whose last activity is older than the
// threshold. Exported so tests can drive the reaper without waiting on
// the ticker.
func (r *Reaper) Scan() {
	now := time.Now()
	for _, summary := range r.registry.List() {
		if now.Sub(summary.LastActivityAt) <= r.threshold {
			continue
		}
		if err := r.registry.Kill(summary.ID); err != nil {
			continue
		}
		if r.metrics != nil {
			r.metrics.RecordSessionEvicted()
		}
		r.log.Info("Evicted idle session",
			zap.String("session_id", summary.ID),
			zap.Time("last_activity", summary.LastActivityAt),
		)
	}
}
