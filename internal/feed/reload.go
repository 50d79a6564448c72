package feed

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// JobMetrics provides centralized background job metrics tracking.
// This interface allows the reloader to report to the shared job metrics
// system without depending on it directly.
type JobMetrics interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

// Job type label for the calibration reloader.
const JobTypeCalibrationReload = "calibration_reload"

// DefaultReloadInterval is the default interval between calibration reloads.
const DefaultReloadInterval = 60 * time.Second

// ReloaderConfig configures the calibration reload job.
type ReloaderConfig struct {
	// Path of the calibration file. Empty disables reloading; Current then
	// always returns the defaults.
	Path string
	// Interval is the duration between reload attempts.
	Interval time.Duration
	// Logger for job activity.
	Logger *slog.Logger
	// JobMetrics for centralized background job tracking.
	JobMetrics JobMetrics
}

// Reloader periodically re-reads the calibration file and swaps the active
// weights atomically, so ranking weights can be tuned without a restart.
// Readers obtain the current weights via Current, which is safe to call
// concurrently with a reload.
type Reloader struct {
	config  ReloaderConfig
	current atomic.Pointer[Weights]

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReloader creates a calibration reloader and performs the initial load.
// A failed initial load falls back to defaults, mirroring LoadCalibration.
func NewReloader(config ReloaderConfig) *Reloader {
	if config.Interval == 0 {
		config.Interval = DefaultReloadInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	r := &Reloader{config: config}

	weights, err := LoadCalibration(config.Path)
	if err != nil {
		config.Logger.Warn("initial calibration load failed, using defaults",
			"path", config.Path,
			"error", err)
	}
	r.current.Store(weights)

	return r
}

// Current returns the active weights. The returned pointer must be treated
// as read-only; a reload replaces the pointer, never the pointee.
func (r *Reloader) Current() *Weights {
	return r.current.Load()
}

// Start begins the periodic reload job. Returns immediately; the job runs in
// a background goroutine. Starting a reloader without a path is a no-op.
func (r *Reloader) Start(ctx context.Context) {
	if r.config.Path == "" {
		return
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.run(ctx)
}

// Stop signals the reload job to stop and waits for it to finish.
func (r *Reloader) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	stopCh := r.stopCh
	doneCh := r.doneCh
	r.mu.Unlock()

	close(stopCh)
	<-doneCh

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// IsRunning returns whether the reload job is currently running.
func (r *Reloader) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// run is the main loop for the reload job.
func (r *Reloader) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.config.Logger.Info("calibration reload job stopping due to context cancellation")
			return
		case <-r.stopCh:
			r.config.Logger.Info("calibration reload job stopping due to stop signal")
			return
		case <-ticker.C:
			r.reload()
		}
	}
}

// reload re-reads the calibration file and swaps the weights on success.
// On error the previously active weights stay in place.
func (r *Reloader) reload() {
	start := time.Now()

	weights, err := LoadCalibration(r.config.Path)
	duration := time.Since(start).Seconds()

	if r.config.JobMetrics != nil {
		r.config.JobMetrics.ObserveJobDuration(JobTypeCalibrationReload, duration)
	}

	if err != nil {
		r.config.Logger.Warn("calibration reload failed, keeping active weights",
			"path", r.config.Path,
			"error", err)
		if r.config.JobMetrics != nil {
			r.config.JobMetrics.IncJobsTotal(JobTypeCalibrationReload, "failure")
			r.config.JobMetrics.IncJobErrors(JobTypeCalibrationReload, "load_error")
		}
		return
	}

	r.current.Store(weights)
	if r.config.JobMetrics != nil {
		r.config.JobMetrics.IncJobsTotal(JobTypeCalibrationReload, "success")
	}
}
